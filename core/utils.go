package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Logger is any leveled logger. Extra args may carry errors, maps or the current account.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity is who a request or session acts for. UID is empty for anonymous callers,
// in which case GuestID (optional) distinguishes anonymous clients.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	GuestID     string
}

func (id Identity) IsAuthenticated() bool { return id.UID != "" }
