package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("reward queue full")
	ErrClosed = errors.New("reward queue closed")
)
