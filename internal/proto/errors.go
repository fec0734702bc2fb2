package proto

import "errors"

var (
	// ErrMalformedFrame reports a frame that is not valid JSON.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrSchema reports a JSON object that is not a valid message envelope.
	ErrSchema = errors.New("invalid message schema")
	// ErrEncoding reports message data the JSON encoder cannot represent.
	// It indicates a programming error in message construction.
	ErrEncoding = errors.New("unencodable message data")
)
