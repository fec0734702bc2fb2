package core

import (
	"sync"
	"sync/atomic"

	"github.com/dkrasnov/linechat/internal/proto"
	"github.com/google/uuid"
)

// State tracks where a session is in its lifecycle. Transitions only move
// forward: Connecting -> Active -> Disconnecting -> Closed.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateDisconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the server-side state for one connected client. The nickname and
// joined-channel list are mutated only by the Hub under its lock; the
// transport layer interacts with the outbound queue and lifecycle only.
type Session struct {
	// ID is the server-assigned client id.
	ID string

	// Out carries responses and events to the transport's write loop, in
	// delivery order. Enqueue never blocks.
	Out chan *proto.Message

	nickname string   // guarded by Hub.mu
	channels []string // guarded by Hub.mu, insertion order

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession constructs a session with a fresh client id and an outbound
// queue of the given capacity.
func NewSession(queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Session{
		ID:   uuid.NewString(),
		Out:  make(chan *proto.Message, queueSize),
		done: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Advance moves the session forward to st. Backward transitions are ignored,
// so racing callers cannot resurrect a disconnecting session.
func (s *Session) Advance(st State) {
	for {
		cur := s.state.Load()
		if int32(st) <= cur {
			return
		}
		if s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}

// Enqueue places a message on the outbound queue without blocking. It returns
// false when the queue is full or the session is being torn down; the caller
// decides whether that kicks the session.
func (s *Session) Enqueue(m *proto.Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.Out <- m:
		return true
	default:
		return false
	}
}

// Kick requests asynchronous teardown. The first call moves the session to
// Disconnecting and signals Done; the transport reacts by flushing the queue
// and closing the socket. Safe to call multiple times.
func (s *Session) Kick() {
	s.closeOnce.Do(func() {
		s.Advance(StateDisconnecting)
		close(s.done)
	})
}

// Done is closed once teardown has been requested.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
