package core

// Error codes for domain errors.
const (
	ErrCodeInvalidNickname   = "invalid_nickname"
	ErrCodeDuplicateNickname = "duplicate_nickname"
	ErrCodeInvalidChannel    = "invalid_channel"
	ErrCodeNotInChannel      = "not_in_channel"
	ErrCodeEmbeddedNewline   = "embedded_newline"
	ErrCodeUnknownCommand    = "unknown_command"
	ErrCodeBadMessage        = "bad_message"
)

// CoreError wraps a code and human-readable message. The message is what a
// client sees in the error response; the code is for programmatic checks.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

var (
	ErrInvalidNickname   = &CoreError{ErrCodeInvalidNickname, "Invalid nickname format"}
	ErrDuplicateNickname = &CoreError{ErrCodeDuplicateNickname, "Nickname already in use"}
	ErrInvalidChannel    = &CoreError{ErrCodeInvalidChannel, "Invalid channel name"}
	ErrNotInAnyChannel   = &CoreError{ErrCodeNotInChannel, "Not in any channel"}
	ErrNotInChannel      = &CoreError{ErrCodeNotInChannel, "Not in that channel"}
	ErrEmbeddedNewline   = &CoreError{ErrCodeEmbeddedNewline, "Message contains newline"}
	ErrUnknownCommand    = &CoreError{ErrCodeUnknownCommand, "Unknown command"}
	ErrNotACommand       = &CoreError{ErrCodeBadMessage, "Expected command message"}
	ErrBadMessage        = &CoreError{ErrCodeBadMessage, "Invalid message format"}
)
