package services

import (
	"errors"
	"strconv"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// DefaultPageSize caps a page when the caller does not specify one.
const DefaultPageSize = 50

// parseCursor accepts an RFC3339 timestamp or an epoch-millisecond integer.
// Empty means "start from newest".
func parseCursor(cursor string) (*time.Time, error) {
	if cursor == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, cursor); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	if ms, err := strconv.ParseInt(cursor, 10, 64); err == nil {
		ts := time.UnixMilli(ms).UTC()
		return &ts, nil
	}
	return nil, ErrInvalidCursor
}

// parseChatCursor is lenient: an unparseable room cursor restarts from newest,
// which only costs the client a reload from the top of the list.
func parseChatCursor(cursor string) *time.Time {
	before, err := parseCursor(cursor)
	if err != nil {
		return nil
	}
	return before
}

// parseMessageCursor is strict: history is the infinite-scroll path and a
// silent restart from newest would duplicate messages on screen.
func parseMessageCursor(cursor string) (*time.Time, error) {
	return parseCursor(cursor)
}

func formatChatCursor(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func formatMessageCursor(ts time.Time) string {
	return strconv.FormatInt(ts.UnixMilli(), 10)
}
