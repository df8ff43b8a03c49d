package ws

import "errors"

var (
	errEmptyMessage = errors.New("message content is required")
	errUnknownFrame = errors.New("unknown frame type")
)
