package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Now returns the current time in UTC, truncated to the microsecond (postgres precision).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// StringPtr returns a pointer to the cleaned `s`, or nil when it is blank.
func StringPtr(s string) *string {
	s = CleanString(s)
	if s == "" {
		return nil
	}
	return &s
}
