package comparison

import "errors"

// Sentinel errors returned by Session actions.
var (
	ErrResolved      = errors.New("comparison session already resolved")
	ErrBaseline      = errors.New("comparison session is waiting for baseline confirmation")
	ErrNotBaseline   = errors.New("comparison session is not a baseline session")
	ErrUnknownChoice = errors.New("unknown comparison choice")
)
