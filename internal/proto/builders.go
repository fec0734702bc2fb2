package proto

// Constructors for every message that travels on the wire. Handlers and
// clients build messages through these instead of assembling maps by hand.

// CmdConnect asks to connect to a chat server.
func CmdConnect(server string, port int) *Message {
	return &Message{
		Type: KindCommand,
		Name: CmdNameConnect,
		Data: map[string]any{"server": server, "port": port},
	}
}

// CmdNick sets the client's nickname.
func CmdNick(nickname string) *Message {
	return &Message{
		Type: KindCommand,
		Name: CmdNameNick,
		Data: map[string]any{"nickname": nickname},
	}
}

// CmdList requests the channel listing.
func CmdList() *Message {
	return &Message{Type: KindCommand, Name: CmdNameList, Data: map[string]any{}}
}

// CmdJoin joins a channel.
func CmdJoin(channel string) *Message {
	return &Message{
		Type: KindCommand,
		Name: CmdNameJoin,
		Data: map[string]any{"channel": channel},
	}
}

// CmdLeave leaves a channel. With an empty channel the server leaves the
// client's first joined channel.
func CmdLeave(channel string) *Message {
	data := map[string]any{}
	if channel != "" {
		data["channel"] = channel
	}
	return &Message{Type: KindCommand, Name: CmdNameLeave, Data: data}
}

// CmdMsg sends chat text. With an empty channel the server targets the
// client's first joined channel.
func CmdMsg(text, channel string) *Message {
	data := map[string]any{"text": text}
	if channel != "" {
		data["channel"] = channel
	}
	return &Message{Type: KindCommand, Name: CmdNameMsg, Data: data}
}

// CmdHelp requests the command reference.
func CmdHelp() *Message {
	return &Message{Type: KindCommand, Name: CmdNameHelp, Data: map[string]any{}}
}

// CmdQuit announces disconnection with an optional reason.
func CmdQuit(reason string) *Message {
	data := map[string]any{}
	if reason != "" {
		data["reason"] = reason
	}
	return &Message{Type: KindCommand, Name: CmdNameQuit, Data: data}
}

// RespOK builds a success response for the named command, merging extra
// fields into the payload.
func RespOK(command string, extra map[string]any) *Message {
	data := map[string]any{"status": "ok"}
	for k, v := range extra {
		data[k] = v
	}
	return &Message{Type: KindResponse, Name: command, Data: data}
}

// RespError builds an error response for the named command.
func RespError(command, errMsg string) *Message {
	return &Message{
		Type: KindResponse,
		Name: command,
		Data: map[string]any{"status": "error", "error": errMsg},
	}
}

// RespConnected confirms a new connection, carrying the server name, the
// assigned client id, and an optional message of the day.
func RespConnected(serverName, clientID, motd string) *Message {
	extra := map[string]any{
		"server":    serverName,
		"client_id": clientID,
	}
	if motd != "" {
		extra["motd"] = motd
	}
	return RespOK(CmdNameConnect, extra)
}

// RespListChannels answers a list command with a channel name to member
// count mapping.
func RespListChannels(channels map[string]int) *Message {
	counts := make(map[string]any, len(channels))
	for name, users := range channels {
		counts[name] = users
	}
	return RespOK(CmdNameList, map[string]any{"channels": counts})
}

// RespHelp answers a help command with human-readable command syntax lines.
func RespHelp(commands []string) *Message {
	list := make([]any, len(commands))
	for i, c := range commands {
		list[i] = c
	}
	return RespOK(CmdNameHelp, map[string]any{"commands": list})
}

// EvtMessage notifies channel members about a chat message. The timestamp is
// Unix seconds assigned by the server.
func EvtMessage(channel, from, text string, timestamp int64) *Message {
	return &Message{
		Type: KindEvent,
		Name: EventNameMessage,
		Data: map[string]any{
			"channel":   channel,
			"from":      from,
			"text":      text,
			"timestamp": timestamp,
		},
	}
}

// EvtUserJoined notifies channel members that a user joined.
func EvtUserJoined(channel, username string) *Message {
	return &Message{
		Type: KindEvent,
		Name: EventNameUserJoined,
		Data: map[string]any{"channel": channel, "username": username},
	}
}

// EvtUserLeft notifies channel members that a user left.
func EvtUserLeft(channel, username string) *Message {
	return &Message{
		Type: KindEvent,
		Name: EventNameUserLeft,
		Data: map[string]any{"channel": channel, "username": username},
	}
}

// EvtServerShutdown notifies every client that the server is going down.
func EvtServerShutdown(reason string) *Message {
	data := map[string]any{}
	if reason != "" {
		data["reason"] = reason
	}
	return &Message{Type: KindEvent, Name: EventNameServerShutdown, Data: data}
}
