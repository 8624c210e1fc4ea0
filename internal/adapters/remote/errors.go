package remote

import "errors"

// Sentinel kinds for remote ranking store errors.
var (
	ErrUnauthorized     = errors.New("remote store rejected credential")
	ErrUnavailable      = errors.New("remote store unavailable")
	ErrUnexpectedStatus = errors.New("remote store returned unexpected status")
	ErrDisabled         = errors.New("remote store disabled")
	ErrMissingAccount   = errors.New("remote store requires an account id")
	ErrInvalidAccount   = errors.New("remote store cannot address account id")
)
