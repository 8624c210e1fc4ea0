package service

import "errors"

// Sentinel errors returned by the ranking service.
var (
	ErrNotStarted      = errors.New("ranking service not started")
	ErrSessionNotFound = errors.New("comparison session not found")
	ErrStaleSession    = errors.New("ranking changed since the comparison session began")
	ErrItemNotFound    = errors.New("item is not ranked")
	ErrInvalidItem     = errors.New("item needs an id")
)
