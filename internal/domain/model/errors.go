package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidItemID       = errors.New("invalid item id")
	ErrMissingAccountID    = errors.New("account identity requires an account id")
	ErrUnknownIdentityKind = errors.New("unknown identity kind")
)
