package proto

import (
	"regexp"
	"strings"
)

const (
	// MaxNicknameLen bounds nickname length in characters.
	MaxNicknameLen = 20
	// MaxChannelLen bounds channel name length including the # prefix.
	MaxChannelLen = 50
	// MaxTextBytes is the advisory limit for message text. Encoding does not
	// reject on size alone; clients should stay under it to keep frames small.
	MaxTextBytes = 512
)

var nicknameRE = regexp.MustCompile(`^[A-Za-z0-9_]{1,20}$`)

// ValidNickname reports whether s is 1-20 alphanumeric or underscore
// characters.
func ValidNickname(s string) bool {
	return nicknameRE.MatchString(s)
}

// ValidChannel reports whether s is a #-prefixed name of total length 2-50.
func ValidChannel(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	return len(s) >= 2 && len(s) <= MaxChannelLen
}

// ValidText reports whether message text is safe to frame: a literal newline
// would split the frame and is therefore rejected.
func ValidText(s string) bool {
	return !strings.ContainsAny(s, "\n\r")
}
