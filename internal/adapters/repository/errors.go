package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("validation not found")
	ErrAlreadyExists = errors.New("validation already exists")
	ErrConflict      = errors.New("concurrent update conflict")
	ErrClosed        = errors.New("store closed")
)
