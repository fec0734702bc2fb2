// Package tcp serves the chat protocol over plain TCP. It owns connection
// admission, the per-connection read/write loops, the idle watchdog, and the
// graceful shutdown sequence. Each accepted connection runs its own pair of
// goroutines bridging the socket to a core.Session.
package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/dkrasnov/linechat/internal/config"
	"github.com/dkrasnov/linechat/internal/core"
)

// Server accepts TCP connections and hands each one to the hub as a session.
// Admission is bounded: a semaphore unit is acquired before every Accept, so
// connections beyond the bound queue in the listener backlog instead of being
// dropped.
type Server struct {
	cfg config.Config
	hub *core.Hub
	log *zerolog.Logger

	ln      net.Listener
	sem     *semaphore.Weighted
	running atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	quit         chan struct{}
	stopped      chan struct{}

	idle *idleWatchdog

	activeMu sync.Mutex
	active   int
}

// NewServer builds a server for the given hub. Start must be called before
// the server accepts anything.
func NewServer(cfg config.Config, hub *core.Hub, logger *zerolog.Logger) *Server {
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = config.Default().MaxSessions
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		hub:     hub,
		log:     logger,
		sem:     semaphore.NewWeighted(int64(maxSessions)),
		ctx:     ctx,
		cancel:  cancel,
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.idle = newIdleWatchdog(cfg.IdleTimeout, func() {
		s.log.Info().Dur("idle_timeout", cfg.IdleTimeout).Msg("idle timeout reached")
		s.Shutdown("Server idle timeout")
	})
	return s
}

// Start binds the listener and launches the accept loop. The idle watchdog is
// armed immediately: a server that never sees a session still shuts down.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	s.ln = ln
	s.running.Store(true)
	s.idle.arm()

	s.wg.Add(1)
	go s.acceptLoop()

	go func() {
		<-s.quit
		s.wg.Wait()
		close(s.stopped)
	}()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Int("max_sessions", s.cfg.MaxSessions).
		Dur("idle_timeout", s.cfg.IdleTimeout).
		Msg("server started")
	return nil
}

// Addr returns the bound listener address. Valid after Start.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Done is closed once shutdown has completed and every session drained.
func (s *Server) Done() <-chan struct{} {
	return s.stopped
}

// Run starts the server and blocks until the context is cancelled or the
// server shuts down on its own (idle timeout). Session drain is bounded by
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		s.Shutdown("Server shutting down")
	case <-s.quit:
	}

	if s.cfg.ShutdownTimeout > 0 {
		drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		select {
		case <-s.stopped:
		case <-drainCtx.Done():
			s.log.Warn().Msg("shutdown timeout reached before all sessions drained")
		}
	} else {
		<-s.stopped
	}

	s.log.Info().Msg("server stopped")
	return nil
}

// Shutdown performs the graceful shutdown sequence exactly once: broadcast
// server_shutdown to every session, tear the sessions down, release the
// listener. Subsequent calls are no-ops.
func (s *Server) Shutdown(reason string) {
	s.shutdownOnce.Do(func() {
		s.log.Info().Str("reason", reason).Msg("shutting down")
		s.running.Store(false)
		s.idle.stop()
		s.hub.Shutdown(reason)
		if s.ln != nil {
			_ = s.ln.Close()
		}
		s.cancel()
		close(s.quit)
	})
}

// acceptLoop admits connections one semaphore unit at a time. The unit is
// held for the whole session and released when the connection handler ends.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			return
		}

		conn, err := s.ln.Accept()
		if err != nil {
			s.sem.Release(1)
			select {
			case <-s.quit:
				return
			default:
			}
			if !s.running.Load() {
				return
			}
			s.log.Error().Err(err).Msg("accept error")
			continue
		}

		s.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("connection accepted")
		s.sessionStarted()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) sessionStarted() {
	s.activeMu.Lock()
	s.active++
	if s.active == 1 {
		s.idle.disarm()
	}
	s.activeMu.Unlock()
}

func (s *Server) sessionEnded() {
	s.activeMu.Lock()
	s.active--
	if s.active == 0 {
		s.idle.arm()
	}
	s.activeMu.Unlock()
}
