// Package repository holds the client-local ranking cache: one bucket per
// identity plus per-account migration markers.
package repository

import (
	"context"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/metrics"
)

// Cache is the local, durable copy of every identity's ranking.
//
// Buckets are named by model.Identity.Bucket. Every method takes the bucket
// explicitly; the cache has no notion of a current identity.
type Cache interface {
	// Load returns the list stored in bucket. ok is false when the bucket
	// does not exist.
	Load(ctx context.Context, bucket string) (list model.List, ok bool, err error)
	// Save replaces the list stored in bucket.
	Save(ctx context.Context, bucket string, list model.List) error
	// Delete removes bucket. Deleting a missing bucket is not an error.
	Delete(ctx context.Context, bucket string) error

	// Migrated reports whether the guest ranking was already migrated into
	// accountID.
	Migrated(ctx context.Context, accountID string) (bool, error)
	// MarkMigrated records the one-time guest migration for accountID.
	MarkMigrated(ctx context.Context, accountID string) error

	// Count returns the number of buckets.
	Count(ctx context.Context) (int, error)
	Close() error
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		metrics.RecordErrorByComponent("cache", op)
	}
	metrics.RecordCacheOp(op, result, float64(time.Since(start).Microseconds())/1000)
}
