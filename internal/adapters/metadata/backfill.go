package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Default batching.
const (
	DefaultBatchSize  = 20
	DefaultBatchDelay = 250 * time.Millisecond
)

// Backfiller looks up missing details for a ranking in batches. Within a
// batch lookups run concurrently; batches are separated by a small delay to
// stay under the catalog's rate limits.
type Backfiller struct {
	provider  Provider
	batchSize int
	delay     time.Duration
	log       logger.Logger
}

// BackfillerOption configures a Backfiller.
type BackfillerOption func(*Backfiller)

// WithBatchSize sets how many items are looked up per batch.
func WithBatchSize(n int) BackfillerOption {
	return func(b *Backfiller) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between batches. Zero disables it.
func WithBatchDelay(d time.Duration) BackfillerOption {
	return func(b *Backfiller) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// WithLogger sets the backfiller logger.
func WithLogger(l logger.Logger) BackfillerOption {
	return func(b *Backfiller) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBackfiller creates a Backfiller over provider.
func NewBackfiller(provider Provider, opts ...BackfillerOption) *Backfiller {
	b := &Backfiller{
		provider:  provider,
		batchSize: DefaultBatchSize,
		delay:     DefaultBatchDelay,
		log:       logger.GetOrDiscard().Named("metadata"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Missing returns the ids in list that still lack details, in rank order.
func Missing(list model.List) []model.ItemID {
	var ids []model.ItemID
	for _, it := range list {
		if it.NeedsDetails() {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Fetch looks up ids and returns the details that were found. Failed lookups
// are logged and left out. Fetch only returns an error when ctx ends, along
// with what was collected so far.
func (b *Backfiller) Fetch(ctx context.Context, ids []model.ItemID) (map[model.ItemID]model.Details, error) {
	found := make(map[model.ItemID]model.Details, len(ids))
	var mu sync.Mutex

	for start := 0; start < len(ids); start += b.batchSize {
		if start > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
				return found, ctx.Err()
			case <-time.After(b.delay):
			}
		}
		end := min(start+b.batchSize, len(ids))
		batchStart := time.Now()

		eg, egCtx := errgroup.WithContext(ctx)
		for _, id := range ids[start:end] {
			eg.Go(func() error {
				d, err := b.provider.Details(egCtx, id)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					metrics.RecordMetadataFetch("failed")
					b.log.Debug(egCtx, "metadata lookup failed", logger.String("id", id.String()), logger.Error(err))
					return nil
				}
				metrics.RecordMetadataFetch("ok")
				mu.Lock()
				found[id] = d
				mu.Unlock()
				return nil
			})
		}
		err := eg.Wait()
		metrics.RecordMetadataBatch(float64(time.Since(batchStart).Milliseconds()))
		if err != nil {
			return found, err
		}
	}
	return found, nil
}
