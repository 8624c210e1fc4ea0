package service

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/cinerank/internal/adapters/metadata"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
)

// writeRemote is the sink of the sync workers. A job older than the last
// successful write to its bucket is skipped: the remote already holds a newer
// whole list.
func (s *Service) writeRemote(ctx context.Context, job model.SyncJob) error {
	written, err := s.putRemote(ctx, job.Bucket, job.Seq, job.AccountID, job.Credential, job.List)
	switch {
	case err != nil:
		metrics.RecordSync("failed")
		return err
	case !written:
		metrics.RecordSync("stale")
	default:
		metrics.RecordSync("ok")
	}
	return nil
}

// putRemote writes list as the remote copy of bucket unless a write with a
// higher sequence already landed. Writes to one bucket never overlap, so a
// slow older write cannot land after a newer one. written is false when the
// list was skipped as stale.
func (s *Service) putRemote(ctx context.Context, bucket string, seq uint64, accountID, credential string, list model.List) (written bool, err error) {
	lock := s.bucketLock(bucket)
	lock.Lock()
	defer lock.Unlock()

	if s.staleSeq(bucket, seq) {
		return false, nil
	}
	if err := s.remote.Put(ctx, accountID, credential, list); err != nil {
		return false, err
	}
	s.markWritten(bucket, seq)
	return true, nil
}

func (s *Service) bucketLock(bucket string) *sync.Mutex {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	lock, ok := s.writing[bucket]
	if !ok {
		lock = &sync.Mutex{}
		s.writing[bucket] = lock
	}
	return lock
}

func (s *Service) staleSeq(bucket string, seq uint64) bool {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return seq <= s.written[bucket]
}

func (s *Service) markWritten(bucket string, seq uint64) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if seq > s.written[bucket] {
		s.written[bucket] = seq
	}
}

// Backfill fetches missing details for the current ranking and merges them in.
// It returns how many items were filled.
func (s *Service) Backfill(ctx context.Context) (int, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return 0, ErrNotStarted
	}
	gen := s.generation
	ids := metadata.Missing(s.list)
	s.mu.Unlock()

	return s.backfill(ctx, gen, ids)
}

// scheduleBackfill fetches details for ids in the background. Callers hold mu.
func (s *Service) scheduleBackfill(ids []model.ItemID) {
	if s.backfiller == nil || len(ids) == 0 || s.bgCtx == nil {
		return
	}
	gen := s.generation
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.backfill(s.bgCtx, gen, ids); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn(s.bgCtx, "metadata backfill failed", logger.Error(err))
		}
	}()
}

// backfill merges details by id into the ranking of generation gen and its
// undo snapshots. The merge is written to the local bucket only; the next
// mutation carries it to the remote store.
func (s *Service) backfill(ctx context.Context, gen uint64, ids []model.ItemID) (int, error) {
	if s.backfiller == nil || len(ids) == 0 {
		return 0, nil
	}

	details, err := s.backfiller.Fetch(ctx, ids)
	if len(details) == 0 {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.generation != gen {
		return 0, err
	}

	filled := 0
	for _, it := range s.list {
		if _, ok := details[it.ID]; ok && it.NeedsDetails() {
			filled++
		}
	}
	if filled == 0 {
		return 0, err
	}
	s.list = s.list.MergeDetails(details)
	s.reorderer.MergeDetails(details)
	s.saveBucket(ctx, s.identity.Bucket(), s.list)
	s.logger.Debug(ctx, "metadata backfilled",
		logger.String("identity", s.identity.String()),
		logger.Int("items", filled),
	)
	return filled, err
}
