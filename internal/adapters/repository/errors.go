package repository

import "errors"

// Sentinel kinds for local cache errors.
var (
	ErrEmptyBucket  = errors.New("cache bucket name is empty")
	ErrEmptyAccount = errors.New("account id is empty")
	ErrCorrupt      = errors.New("cache bucket payload is corrupt")
	ErrClosed       = errors.New("cache is closed")
)
