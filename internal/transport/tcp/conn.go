package tcp

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/dkrasnov/linechat/internal/core"
	"github.com/dkrasnov/linechat/internal/proto"
)

// readBufSize is the per-read chunk; frames are expected to stay under 4KB.
const readBufSize = 4096

// handleConn runs one session to completion: register with the hub, pump
// reads and writes, then unwind in order no matter which side failed first.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.sem.Release(1)
	defer s.sessionEnded()

	sess := core.NewSession(s.cfg.SendQueueSize)
	logger := s.log.With().Str("client_id", sess.ID).Str("remote", conn.RemoteAddr().String()).Logger()

	s.hub.Register(sess)

	ioDone := make(chan error, 2)
	go func() {
		ioDone <- s.writeLoop(conn, sess)
	}()
	go func() {
		ioDone <- s.readLoop(conn, sess)
	}()

	err := <-ioDone
	sess.Kick() // unwinds the sibling loop
	if other := <-ioDone; err == nil {
		err = other
	}

	s.hub.Unregister(sess)
	_ = conn.Close()
	sess.Advance(core.StateClosed)

	if err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn().Err(err).Msg("connection closed with error")
	} else {
		logger.Debug().Msg("connection closed")
	}
}

// readLoop feeds socket bytes through the frame buffer and dispatches every
// complete frame. A frame that fails to decode is answered with an error
// response and otherwise ignored; only transport errors end the loop.
func (s *Server) readLoop(conn net.Conn, sess *core.Session) error {
	buf := make([]byte, readBufSize)
	var frames proto.FrameBuffer

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames.Feed(buf[:n])
			for {
				frame, ok := frames.Next()
				if !ok {
					break
				}

				msg, decodeErr := proto.Decode(frame)
				if decodeErr != nil {
					s.log.Warn().Err(decodeErr).Str("client_id", sess.ID).Msg("bad frame ignored")
					if !sess.Enqueue(proto.RespError("unknown", core.ErrBadMessage.Message)) {
						// Queue full means the client stopped reading; treat it
						// like any other stalled consumer.
						s.log.Warn().Str("client_id", sess.ID).Msg("send queue full, kicking session")
						sess.Kick()
					}
					continue
				}

				s.hub.Dispatch(sess, msg)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// writeLoop drains the session's outbound queue onto the socket. On teardown
// it flushes whatever is already queued, then closes the connection to
// unblock the read loop.
func (s *Server) writeLoop(conn net.Conn, sess *core.Session) error {
	for {
		select {
		case m := <-sess.Out:
			if err := s.writeMessage(conn, m); err != nil {
				sess.Kick()
				return err
			}
		case <-sess.Done():
			s.flush(conn, sess)
			_ = conn.Close()
			return nil
		}
	}
}

// flush performs a best-effort write of queued messages during teardown, so
// quit responses and the shutdown event reach the client.
func (s *Server) flush(conn net.Conn, sess *core.Session) {
	for {
		select {
		case m := <-sess.Out:
			if err := s.writeMessage(conn, m); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Server) writeMessage(conn net.Conn, m *proto.Message) error {
	frame, err := proto.Encode(m)
	if err != nil {
		// Internally constructed messages are always encodable; anything else
		// is a bug worth shouting about, not a reason to kill the session.
		s.log.Error().Err(err).Str("message", m.Name).Msg("dropping unencodable message")
		return nil
	}

	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	_, err = conn.Write(frame)
	return err
}
