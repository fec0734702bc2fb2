package core

import (
	"strings"
	"time"

	"github.com/dkrasnov/linechat/internal/proto"
)

var helpCommands = []string{
	"/connect <server> [port] - Connect to server",
	"/nick <nickname> - Set your nickname",
	"/list - List all channels",
	"/join <channel> - Join a channel",
	"/leave [channel] - Leave a channel",
	"/quit - Disconnect from server",
	"/help - Show this help message",
}

// Dispatch routes one decoded message from a session to its command handler.
// Registry mutation happens before the response is enqueued, and the response
// is enqueued before any broadcast event, so the actor observes its own
// mutation and clients see response-then-events in order.
//
// Command-level failures produce an error response on the originating session
// only; they never terminate the connection.
func (h *Hub) Dispatch(s *Session, m *proto.Message) {
	if m.Type != proto.KindCommand {
		h.send(s, proto.RespError(m.Name, ErrNotACommand.Message))
		return
	}

	h.log.Debug().Str("client_id", s.ID).Str("command", m.Name).Msg("dispatch")

	switch m.Name {
	case proto.CmdNameConnect:
		// The handshake already ran implicitly on accept; an explicit connect
		// just gets the same confirmation again.
		h.send(s, proto.RespConnected(h.serverName, s.ID, h.motd))
	case proto.CmdNameNick:
		h.handleNick(s, m)
	case proto.CmdNameList:
		h.handleList(s)
	case proto.CmdNameJoin:
		h.handleJoin(s, m)
	case proto.CmdNameLeave:
		h.handleLeave(s, m)
	case proto.CmdNameMsg:
		h.handleMsg(s, m)
	case proto.CmdNameHelp:
		h.handleHelp(s)
	case proto.CmdNameQuit:
		h.handleQuit(s, m)
	default:
		h.send(s, proto.RespError(m.Name, ErrUnknownCommand.Message))
	}
}

func (h *Hub) handleNick(s *Session, m *proto.Message) {
	nickname := strings.TrimSpace(m.Str("nickname"))
	if !proto.ValidNickname(nickname) {
		h.send(s, proto.RespError(proto.CmdNameNick, ErrInvalidNickname.Message))
		return
	}

	h.mu.Lock()
	if owner, taken := h.nicknames[nickname]; taken && owner != s {
		h.mu.Unlock()
		h.send(s, proto.RespError(proto.CmdNameNick, ErrDuplicateNickname.Message))
		return
	}
	delete(h.nicknames, s.nickname)
	s.nickname = nickname
	h.nicknames[nickname] = s
	h.mu.Unlock()

	h.log.Info().Str("client_id", s.ID).Str("nickname", nickname).Msg("nickname set")
	h.send(s, proto.RespOK(proto.CmdNameNick, map[string]any{"nickname": nickname}))
}

func (h *Hub) handleList(s *Session) {
	h.send(s, proto.RespListChannels(h.ChannelCounts()))
}

func (h *Hub) handleJoin(s *Session, m *proto.Message) {
	channel := strings.TrimSpace(m.Str("channel"))
	if !proto.ValidChannel(channel) {
		h.send(s, proto.RespError(proto.CmdNameJoin, ErrInvalidChannel.Message))
		return
	}

	h.mu.Lock()
	ch, exists := h.channels[channel]
	if !exists {
		ch = newChannel(channel)
		h.channels[channel] = ch
	}
	joined := ch.add(s)
	if joined {
		s.channels = append(s.channels, channel)
	}
	nickname := s.nickname
	var others []*Session
	if joined {
		others = ch.snapshot(s)
	}
	h.mu.Unlock()

	h.send(s, proto.RespOK(proto.CmdNameJoin, map[string]any{"channel": channel}))
	if joined {
		h.log.Info().Str("nickname", nickname).Str("channel", channel).Msg("joined channel")
		h.deliver(others, proto.EvtUserJoined(channel, nickname))
	}
}

func (h *Hub) handleLeave(s *Session, m *proto.Message) {
	channel := strings.TrimSpace(m.Str("channel"))

	h.mu.Lock()
	if channel == "" {
		if len(s.channels) == 0 {
			h.mu.Unlock()
			h.send(s, proto.RespError(proto.CmdNameLeave, ErrNotInAnyChannel.Message))
			return
		}
		channel = s.channels[0]
	}

	ch, exists := h.channels[channel]
	if !exists || !ch.contains(s) {
		h.mu.Unlock()
		h.send(s, proto.RespError(proto.CmdNameLeave, ErrNotInChannel.Message))
		return
	}

	ch.remove(s)
	s.channels = removeString(s.channels, channel)
	nickname := s.nickname
	remaining := ch.snapshot(nil)
	h.mu.Unlock()

	h.log.Info().Str("nickname", nickname).Str("channel", channel).Msg("left channel")
	h.send(s, proto.RespOK(proto.CmdNameLeave, map[string]any{"channel": channel}))
	h.deliver(remaining, proto.EvtUserLeft(channel, nickname))
}

func (h *Hub) handleMsg(s *Session, m *proto.Message) {
	text := strings.TrimSpace(m.Str("text"))
	if text == "" {
		// Blank chat lines are dropped without a response.
		return
	}
	if !proto.ValidText(text) {
		h.send(s, proto.RespError(proto.CmdNameMsg, ErrEmbeddedNewline.Message))
		return
	}

	channel := strings.TrimSpace(m.Str("channel"))

	h.mu.Lock()
	if channel == "" {
		if len(s.channels) == 0 {
			h.mu.Unlock()
			h.send(s, proto.RespError(proto.CmdNameMsg, ErrNotInAnyChannel.Message))
			return
		}
		channel = s.channels[0]
	}

	ch, exists := h.channels[channel]
	if !exists || !ch.contains(s) {
		h.mu.Unlock()
		h.send(s, proto.RespError(proto.CmdNameMsg, ErrNotInChannel.Message))
		return
	}

	nickname := s.nickname
	members := ch.snapshot(nil)
	h.mu.Unlock()

	h.log.Debug().Str("nickname", nickname).Str("channel", channel).Msg("chat message")
	h.send(s, proto.RespOK(proto.CmdNameMsg, map[string]any{"channel": channel}))
	h.deliver(members, proto.EvtMessage(channel, nickname, text, time.Now().Unix()))
}

func (h *Hub) handleHelp(s *Session) {
	h.send(s, proto.RespHelp(helpCommands))
}

func (h *Hub) handleQuit(s *Session, m *proto.Message) {
	reason := m.Str("reason")
	if reason == "" {
		reason = "Client quit"
	}

	h.log.Info().Str("client_id", s.ID).Str("reason", reason).Msg("client quit")
	h.send(s, proto.RespOK(proto.CmdNameQuit, nil))
	s.Kick()
}

func removeString(list []string, victim string) []string {
	out := list[:0]
	for _, v := range list {
		if v != victim {
			out = append(out, v)
		}
	}
	return out
}
