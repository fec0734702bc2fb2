package core

import (
	"testing"

	"github.com/dkrasnov/linechat/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSendsGreetingFirst(t *testing.T) {
	hub := newTestHub(t)

	s := NewSession(8)
	hub.Register(s)

	greeting := mustMessage(t, s, proto.KindResponse, proto.CmdNameConnect)
	assert.Equal(t, "ok", greeting.Str("status"))
	assert.Equal(t, "testsrv", greeting.Str("server"))
	assert.Equal(t, s.ID, greeting.Str("client_id"))
	assert.Equal(t, "welcome", greeting.Str("motd"))
	assert.Equal(t, StateActive, s.State())
}

func TestNickValidationAndUniqueness(t *testing.T) {
	hub := newTestHub(t)
	alice := registered(t, hub)
	bob := registered(t, hub)

	hub.Dispatch(alice, proto.CmdNick("@bad@"))
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameNick)
	assert.Equal(t, "error", resp.Str("status"))
	assert.Equal(t, "Invalid nickname format", resp.Str("error"))

	hub.Dispatch(alice, proto.CmdNick("alice"))
	resp = mustMessage(t, alice, proto.KindResponse, proto.CmdNameNick)
	require.Equal(t, "ok", resp.Str("status"))
	assert.Equal(t, "alice", hub.Nickname(alice))

	hub.Dispatch(bob, proto.CmdNick("alice"))
	resp = mustMessage(t, bob, proto.KindResponse, proto.CmdNameNick)
	assert.Equal(t, "error", resp.Str("status"))
	assert.Equal(t, "Nickname already in use", resp.Str("error"))

	// Re-claiming your own nickname is not a duplicate.
	hub.Dispatch(alice, proto.CmdNick("alice"))
	resp = mustMessage(t, alice, proto.KindResponse, proto.CmdNameNick)
	assert.Equal(t, "ok", resp.Str("status"))

	// The old nickname is released for reuse after a change.
	hub.Dispatch(alice, proto.CmdNick("alice2"))
	mustMessage(t, alice, proto.KindResponse, proto.CmdNameNick)
	hub.Dispatch(bob, proto.CmdNick("alice"))
	resp = mustMessage(t, bob, proto.KindResponse, proto.CmdNameNick)
	assert.Equal(t, "ok", resp.Str("status"))
}

func TestGuestNicknameSkipsClaimedNames(t *testing.T) {
	hub := newTestHub(t)

	// First guest becomes user_1, then claims the name the next guest
	// would otherwise get.
	first := registered(t, hub)
	require.Equal(t, "user_1", hub.Nickname(first))
	hub.Dispatch(first, proto.CmdNick("user_2"))
	resp := mustMessage(t, first, proto.KindResponse, proto.CmdNameNick)
	require.Equal(t, "ok", resp.Str("status"))

	second := registered(t, hub)
	assert.NotEqual(t, "user_2", hub.Nickname(second))
	assert.Equal(t, "user_2", hub.Nickname(first))

	hub.mu.Lock()
	assert.Len(t, hub.nicknames, 2)
	assert.Same(t, first, hub.nicknames["user_2"])
	hub.mu.Unlock()

	// The taken name still counts as a duplicate for later sessions.
	third := registered(t, hub)
	hub.Dispatch(third, proto.CmdNick("user_2"))
	resp = mustMessage(t, third, proto.KindResponse, proto.CmdNameNick)
	assert.Equal(t, "error", resp.Str("status"))
	assert.Equal(t, "Nickname already in use", resp.Str("error"))
}

func TestJoinBroadcastsToOthersOnly(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	bob := nicked(t, hub, "bob")

	hub.Dispatch(alice, proto.CmdJoin("#general"))
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameJoin)
	require.Equal(t, "ok", resp.Str("status"))

	hub.Dispatch(bob, proto.CmdJoin("#general"))
	resp = mustMessage(t, bob, proto.KindResponse, proto.CmdNameJoin)
	require.Equal(t, "ok", resp.Str("status"))

	ev := mustMessage(t, alice, proto.KindEvent, proto.EventNameUserJoined)
	assert.Equal(t, "#general", ev.Str("channel"))
	assert.Equal(t, "bob", ev.Str("username"))

	// The joiner itself gets no user_joined event.
	assertNoMessage(t, bob, proto.EventNameUserJoined)
}

func TestJoinInvalidChannelName(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")

	for _, name := range []string{"general", "#", ""} {
		hub.Dispatch(alice, proto.CmdJoin(name))
		resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameJoin)
		assert.Equal(t, "error", resp.Str("status"), "channel %q", name)
		assert.Equal(t, "Invalid channel name", resp.Str("error"))
	}
}

func TestRejoinIsIdempotent(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	bob := nicked(t, hub, "bob")

	join(t, hub, alice, "#general")
	join(t, hub, bob, "#general")
	mustMessage(t, alice, proto.KindEvent, proto.EventNameUserJoined)

	hub.Dispatch(bob, proto.CmdJoin("#general"))
	resp := mustMessage(t, bob, proto.KindResponse, proto.CmdNameJoin)
	assert.Equal(t, "ok", resp.Str("status"))

	// No second user_joined for a member re-joining.
	assertNoMessage(t, alice, proto.EventNameUserJoined)
	assert.Equal(t, map[string]int{"#general": 2}, hub.ChannelCounts())
}

func TestMsgBroadcastIncludesSender(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	bob := nicked(t, hub, "bob")
	join(t, hub, alice, "#general")
	join(t, hub, bob, "#general")

	hub.Dispatch(alice, proto.CmdMsg("hi", "#general"))

	// The sender sees its response before the echoed event.
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameMsg)
	require.Equal(t, "ok", resp.Str("status"))

	for _, s := range []*Session{alice, bob} {
		ev := mustMessage(t, s, proto.KindEvent, proto.EventNameMessage)
		assert.Equal(t, "#general", ev.Str("channel"))
		assert.Equal(t, "alice", ev.Str("from"))
		assert.Equal(t, "hi", ev.Str("text"))
		assert.Contains(t, ev.Data, "timestamp")
	}
}

func TestMsgChannelIsolation(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	bob := nicked(t, hub, "bob")
	join(t, hub, alice, "#a")
	join(t, hub, bob, "#b")

	hub.Dispatch(alice, proto.CmdMsg("secret", "#a"))
	mustMessage(t, alice, proto.KindEvent, proto.EventNameMessage)

	assertNoMessage(t, bob, proto.EventNameMessage)
}

func TestMsgErrors(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")

	hub.Dispatch(alice, proto.CmdMsg("hi", ""))
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameMsg)
	assert.Equal(t, "Not in any channel", resp.Str("error"))

	join(t, hub, alice, "#a")
	hub.Dispatch(alice, proto.CmdMsg("hi", "#elsewhere"))
	resp = mustMessage(t, alice, proto.KindResponse, proto.CmdNameMsg)
	assert.Equal(t, "Not in that channel", resp.Str("error"))

	hub.Dispatch(alice, &proto.Message{
		Type: proto.KindCommand,
		Name: proto.CmdNameMsg,
		Data: map[string]any{"text": "bad\nsplit", "channel": "#a"},
	})
	resp = mustMessage(t, alice, proto.KindResponse, proto.CmdNameMsg)
	assert.Equal(t, "Message contains newline", resp.Str("error"))

	// Blank text is dropped silently.
	hub.Dispatch(alice, proto.CmdMsg("   ", "#a"))
	assertNoMessage(t, alice, proto.CmdNameMsg)
}

func TestMsgDefaultsToFirstJoinedChannel(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	join(t, hub, alice, "#first")
	join(t, hub, alice, "#second")

	hub.Dispatch(alice, proto.CmdMsg("hi", ""))
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameMsg)
	require.Equal(t, "ok", resp.Str("status"))
	assert.Equal(t, "#first", resp.Str("channel"))
}

func TestLeaveDefaultsToFirstJoinedChannel(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	join(t, hub, alice, "#first")
	join(t, hub, alice, "#second")

	hub.Dispatch(alice, proto.CmdLeave(""))
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameLeave)
	require.Equal(t, "ok", resp.Str("status"))
	assert.Equal(t, "#first", resp.Str("channel"))

	hub.Dispatch(alice, proto.CmdLeave(""))
	resp = mustMessage(t, alice, proto.KindResponse, proto.CmdNameLeave)
	assert.Equal(t, "#second", resp.Str("channel"))

	hub.Dispatch(alice, proto.CmdLeave(""))
	resp = mustMessage(t, alice, proto.KindResponse, proto.CmdNameLeave)
	assert.Equal(t, "error", resp.Str("status"))
	assert.Equal(t, "Not in any channel", resp.Str("error"))
}

func TestLeaveBroadcastsToRemaining(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	bob := nicked(t, hub, "bob")
	join(t, hub, alice, "#general")
	join(t, hub, bob, "#general")
	mustMessage(t, alice, proto.KindEvent, proto.EventNameUserJoined)

	hub.Dispatch(bob, proto.CmdLeave("#general"))
	resp := mustMessage(t, bob, proto.KindResponse, proto.CmdNameLeave)
	require.Equal(t, "ok", resp.Str("status"))

	ev := mustMessage(t, alice, proto.KindEvent, proto.EventNameUserLeft)
	assert.Equal(t, "#general", ev.Str("channel"))
	assert.Equal(t, "bob", ev.Str("username"))

	// The leaver is gone before the broadcast, so it sees no user_left.
	assertNoMessage(t, bob, proto.EventNameUserLeft)
}

func TestEmptyChannelPersistsInList(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	join(t, hub, alice, "#ghosttown")

	hub.Dispatch(alice, proto.CmdLeave("#ghosttown"))
	mustMessage(t, alice, proto.KindResponse, proto.CmdNameLeave)

	assert.Equal(t, map[string]int{"#ghosttown": 0}, hub.ChannelCounts())

	hub.Dispatch(alice, proto.CmdList())
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameList)
	channels, ok := resp.Data["channels"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, channels, "#ghosttown")
}

func TestHelpListsCommands(t *testing.T) {
	hub := newTestHub(t)
	alice := registered(t, hub)

	hub.Dispatch(alice, proto.CmdHelp())
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameHelp)
	require.Equal(t, "ok", resp.Str("status"))

	commands, ok := resp.Data["commands"].([]any)
	require.True(t, ok)
	assert.Len(t, commands, len(helpCommands))
}

func TestQuitRespondsThenKicks(t *testing.T) {
	hub := newTestHub(t)
	alice := registered(t, hub)

	hub.Dispatch(alice, proto.CmdQuit("bye"))
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameQuit)
	assert.Equal(t, "ok", resp.Str("status"))

	select {
	case <-alice.Done():
	default:
		t.Fatal("quit should request session teardown")
	}
	assert.Equal(t, StateDisconnecting, alice.State())
}

func TestExplicitConnectRepeatsGreeting(t *testing.T) {
	hub := newTestHub(t)
	alice := registered(t, hub)

	hub.Dispatch(alice, proto.CmdConnect("testsrv", 6667))
	resp := mustMessage(t, alice, proto.KindResponse, proto.CmdNameConnect)
	assert.Equal(t, "ok", resp.Str("status"))
	assert.Equal(t, alice.ID, resp.Str("client_id"))
}

func TestNonCommandAndUnknownCommand(t *testing.T) {
	hub := newTestHub(t)
	alice := registered(t, hub)

	hub.Dispatch(alice, &proto.Message{Type: proto.KindEvent, Name: "message", Data: map[string]any{}})
	resp := mustMessage(t, alice, proto.KindResponse, "message")
	assert.Equal(t, "Expected command message", resp.Str("error"))

	hub.Dispatch(alice, &proto.Message{Type: proto.KindCommand, Name: "dance", Data: map[string]any{}})
	resp = mustMessage(t, alice, proto.KindResponse, "dance")
	assert.Equal(t, "Unknown command", resp.Str("error"))
}

func TestUnregisterBroadcastsUserLeftPerChannel(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	bob := nicked(t, hub, "bob")
	join(t, hub, alice, "#a")
	join(t, hub, alice, "#b")
	join(t, hub, bob, "#a")
	join(t, hub, bob, "#b")
	mustMessage(t, alice, proto.KindEvent, proto.EventNameUserJoined)
	mustMessage(t, alice, proto.KindEvent, proto.EventNameUserJoined)

	hub.Unregister(bob)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := mustMessage(t, alice, proto.KindEvent, proto.EventNameUserLeft)
		assert.Equal(t, "bob", ev.Str("username"))
		seen[ev.Str("channel")] = true
	}
	assert.True(t, seen["#a"] && seen["#b"], "user_left for both channels, got %v", seen)

	// Nickname released for reuse.
	carol := registered(t, hub)
	hub.Dispatch(carol, proto.CmdNick("bob"))
	resp := mustMessage(t, carol, proto.KindResponse, proto.CmdNameNick)
	assert.Equal(t, "ok", resp.Str("status"))

	// Idempotent.
	hub.Unregister(bob)
}

func TestSlowConsumerIsKicked(t *testing.T) {
	hub := newTestHub(t)
	alice := nicked(t, hub, "alice")
	join(t, hub, alice, "#general")

	stalled := NewSession(1)
	hub.Register(stalled)
	// Leave the greeting in place so the queue is full.
	hub.mu.Lock()
	ch := hub.channels["#general"]
	ch.add(stalled)
	stalled.channels = append(stalled.channels, "#general")
	hub.mu.Unlock()

	hub.Dispatch(alice, proto.CmdMsg("hello", "#general"))

	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled session should be marked for teardown")
	}

	// Delivery to the healthy member still happened.
	mustMessage(t, alice, proto.KindEvent, proto.EventNameMessage)
}

func TestBroadcastAllReachesEverySession(t *testing.T) {
	hub := newTestHub(t)
	sessions := []*Session{registered(t, hub), registered(t, hub), registered(t, hub)}

	hub.Shutdown("going down")

	for _, s := range sessions {
		ev := mustMessage(t, s, proto.KindEvent, proto.EventNameServerShutdown)
		assert.Equal(t, "going down", ev.Str("reason"))
		select {
		case <-s.Done():
		default:
			t.Fatal("shutdown should kick every session")
		}
	}
}
