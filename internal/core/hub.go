// Package core implements the chat engine: the session/channel registry,
// command dispatch, and event broadcast. One Hub instance holds all shared
// state; a single mutex covers nickname and membership mutation so every
// cross-session visible transition is atomic. Event delivery always happens
// on a membership snapshot taken under the lock and released before any
// enqueue, so a slow client never blocks registry mutation.
package core

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkrasnov/linechat/internal/proto"
	"github.com/rs/zerolog"
)

// Hub owns the process-wide chat state: every registered session, the
// nickname map, and the channel membership map.
type Hub struct {
	serverName string
	motd       string
	log        *zerolog.Logger

	mu        sync.Mutex
	sessions  map[string]*Session
	nicknames map[string]*Session
	channels  map[string]*Channel

	guestSeq atomic.Uint64
}

// NewHub creates a hub with no sessions or channels.
func NewHub(serverName, motd string, logger *zerolog.Logger) *Hub {
	return &Hub{
		serverName: serverName,
		motd:       motd,
		log:        logger,
		sessions:   make(map[string]*Session),
		nicknames:  make(map[string]*Session),
		channels:   make(map[string]*Channel),
	}
}

// Register adds a freshly accepted session, assigns it a placeholder
// nickname, and enqueues the connection greeting. The greeting is the first
// message on the session's queue, so clients always see it before any event.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	// Guest names are valid nicknames, so a client may have claimed one
	// already; keep advancing the sequence until a free name comes up.
	var nickname string
	for {
		nickname = fmt.Sprintf("user_%d", h.guestSeq.Add(1))
		if _, taken := h.nicknames[nickname]; !taken {
			break
		}
	}
	s.nickname = nickname
	h.sessions[s.ID] = s
	h.nicknames[nickname] = s
	h.mu.Unlock()

	s.Advance(StateActive)
	h.send(s, proto.RespConnected(h.serverName, s.ID, h.motd))

	h.log.Debug().Str("client_id", s.ID).Str("nickname", nickname).Msg("session registered")
}

// Unregister removes a session from every channel it belongs to, releases
// its nickname, and broadcasts user_left to the remaining members of each
// channel. Idempotent; later calls for the same session are no-ops.
func (h *Hub) Unregister(s *Session) {
	type farewell struct {
		event   *proto.Message
		targets []*Session
	}

	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; !ok {
		h.mu.Unlock()
		return
	}

	nickname := s.nickname
	farewells := make([]farewell, 0, len(s.channels))
	for _, name := range s.channels {
		ch, ok := h.channels[name]
		if !ok || !ch.remove(s) {
			continue
		}
		farewells = append(farewells, farewell{
			event:   proto.EvtUserLeft(name, nickname),
			targets: ch.snapshot(nil),
		})
	}
	s.channels = nil
	delete(h.nicknames, nickname)
	delete(h.sessions, s.ID)
	h.mu.Unlock()

	for _, f := range farewells {
		h.deliver(f.targets, f.event)
	}

	s.Kick()
	h.log.Debug().Str("client_id", s.ID).Str("nickname", nickname).Msg("session unregistered")
}

// BroadcastAll delivers an event to every registered session. Used only for
// the server shutdown notification.
func (h *Hub) BroadcastAll(event *proto.Message) {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	h.deliver(targets, event)
}

// Shutdown notifies every session that the server is going down and requests
// their teardown. The transport closes the sockets.
func (h *Hub) Shutdown(reason string) {
	h.BroadcastAll(proto.EvtServerShutdown(reason))

	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Kick()
	}
}

// ChannelCounts returns every channel name with its current member count.
func (h *Hub) ChannelCounts() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[string]int, len(h.channels))
	for name, ch := range h.channels {
		counts[name] = ch.size()
	}
	return counts
}

// Nickname returns the session's current nickname.
func (h *Hub) Nickname(s *Session) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return s.nickname
}

// deliver enqueues the event to each target. A full or closed queue marks
// that session for teardown instead of blocking or failing the caller.
func (h *Hub) deliver(targets []*Session, event *proto.Message) {
	for _, t := range targets {
		if !t.Enqueue(event) {
			h.stall(t, event.Name)
		}
	}
}

// send enqueues a response to the originating session.
func (h *Hub) send(s *Session, m *proto.Message) {
	if !s.Enqueue(m) {
		h.stall(s, m.Name)
	}
}

func (h *Hub) stall(s *Session, name string) {
	select {
	case <-s.Done():
		// Already tearing down; dropping the message is expected.
	default:
		h.log.Warn().Str("client_id", s.ID).Str("message", name).Msg("send queue stalled, kicking session")
	}
	s.Kick()
}
