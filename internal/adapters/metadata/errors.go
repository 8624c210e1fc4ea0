package metadata

import "errors"

// Sentinel kinds for metadata lookups.
var (
	ErrNotFound         = errors.New("metadata not found")
	ErrUnexpectedStatus = errors.New("metadata source returned unexpected status")
)
