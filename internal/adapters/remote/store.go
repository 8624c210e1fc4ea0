// Package remote contains clients for the remote ranking store: a simple
// whole-list read/replace API keyed by account.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/metrics"
)

// Store reads and replaces an account's ranking. There are no partial
// updates: Put always replaces the whole list.
type Store interface {
	// Get returns the account's list. An account without data returns an
	// empty list and no error.
	Get(ctx context.Context, accountID, credential string) (model.List, error)
	// Put replaces the account's list.
	Put(ctx context.Context, accountID, credential string, list model.List) error
}

// Disabled is the Store used when no remote is configured. Every call fails
// with ErrDisabled so the ranking service falls back to the local cache.
type Disabled struct{}

// Get implements Store.
func (Disabled) Get(context.Context, string, string) (model.List, error) { return nil, ErrDisabled }

// Put implements Store.
func (Disabled) Put(context.Context, string, string, model.List) error { return ErrDisabled }

func observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrUnauthorized):
		result = "unauthorized"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}
	if err != nil {
		metrics.RecordErrorByComponent("remote", result)
	}
	metrics.RecordRemoteRequest(op, result, float64(time.Since(start).Microseconds())/1000)
}
