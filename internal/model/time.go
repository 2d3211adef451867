package model

import (
	"errors"
	"strings"
	"time"
)

// ErrBadTimestamp is returned when a feed timestamp cannot be parsed.
var ErrBadTimestamp = errors.New("unparseable feed timestamp")

// feedTimeLayout is the bare form timestamps reduce to after separator cleanup.
const feedTimeLayout = "2006-01-02 15:04:05"

// ParseFeedTimestamp parses the ISO-8601-ish timestamps uploaders send.
// Accepted variants: "T" or space separator, trailing "Z" or "+00:00" or no
// zone at all, optional fractional seconds. The result is always UTC.
func ParseFeedTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}

	// Uploaders are sloppy: reduce everything else to a bare layout.
	s = strings.Replace(s, "T", " ", 1)
	s = strings.TrimSuffix(s, "Z")
	s = strings.TrimSuffix(s, "+00:00")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	t, err := time.Parse(feedTimeLayout, s)
	if err != nil {
		return time.Time{}, ErrBadTimestamp
	}
	return t.UTC(), nil
}
