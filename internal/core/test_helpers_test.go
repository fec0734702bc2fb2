package core

import (
	"testing"
	"time"

	"github.com/dkrasnov/linechat/internal/proto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	logger := zerolog.Nop()
	return NewHub("testsrv", "welcome", &logger)
}

// registered creates a session, registers it, and consumes the greeting.
func registered(t *testing.T, hub *Hub) *Session {
	t.Helper()

	s := NewSession(16)
	hub.Register(s)
	mustMessage(t, s, proto.KindResponse, proto.CmdNameConnect)
	return s
}

// nicked is registered plus a successful nick command.
func nicked(t *testing.T, hub *Hub, nickname string) *Session {
	t.Helper()

	s := registered(t, hub)
	hub.Dispatch(s, proto.CmdNick(nickname))
	resp := mustMessage(t, s, proto.KindResponse, proto.CmdNameNick)
	require.Equal(t, "ok", resp.Str("status"))
	return s
}

func join(t *testing.T, hub *Hub, s *Session, channel string) {
	t.Helper()

	hub.Dispatch(s, proto.CmdJoin(channel))
	resp := mustMessage(t, s, proto.KindResponse, proto.CmdNameJoin)
	require.Equal(t, "ok", resp.Str("status"))
}

// mustMessage pops queued messages until one matches kind and name.
func mustMessage(t *testing.T, s *Session, kind proto.Kind, name string) *proto.Message {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-s.Out:
			if m.Type == kind && m.Name == name {
				return m
			}
		case <-deadline:
			t.Fatalf("expected %s/%s not received", kind, name)
			return nil
		}
	}
}

// assertNoMessage verifies nothing with the given name is queued.
func assertNoMessage(t *testing.T, s *Session, name string) {
	t.Helper()

	for {
		select {
		case m := <-s.Out:
			if m.Name == name {
				t.Fatalf("unexpected message %s: %+v", m, m.Data)
			}
		default:
			return
		}
	}
}
