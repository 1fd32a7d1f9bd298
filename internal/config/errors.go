package config

import "errors"

// ErrInvalidConfig wraps every Validate failure. The narrower kinds below are
// joined with it where a caller may want to tell them apart.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrLoadConfig     = errors.New("load config failed")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrUnknownTrick   = errors.New("unknown trick")
)
