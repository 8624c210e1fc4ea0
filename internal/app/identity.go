package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/cinerank/internal/adapters/metadata"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
)

// Hydration sources reported to metrics and logs.
const (
	sourceGuest      = "guest"
	sourceRemote     = "remote"
	sourceMigration  = "migration"
	sourceLocal      = "local"
	sourceEmpty      = "empty"
	sourceSuperseded = "superseded"
)

// SwitchIdentity makes next the owner of the active ranking.
//
// The outgoing account's list is flushed to the remote store first. Then
// in-memory state is reset and next's ranking is loaded: guests from their
// cache bucket, accounts from the remote store, migrating the guest ranking
// into a brand new account once. Switching to the same owner only refreshes
// the credential; a credential that makes the ranking syncable queues one
// whole-list write.
func (s *Service) SwitchIdentity(ctx context.Context, next model.Identity) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("switch identity: %w", err)
	}
	return s.transition(ctx, next, false)
}

func (s *Service) transition(ctx context.Context, next model.Identity, initial bool) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}

	outgoing := s.identity
	if !initial && outgoing.Same(next) {
		s.identity = next
		if !outgoing.CanSync() && next.CanSync() && !s.hydrating && len(s.list) > 0 {
			s.enqueueSync(ctx, "credential")
		}
		s.mu.Unlock()
		return nil
	}

	label := transitionLabel(outgoing, next, initial)
	metrics.RecordIdentitySwitch(label)
	s.logger.Info(ctx, "switching identity",
		logger.String("from", outgoing.String()),
		logger.String("to", next.String()),
		logger.String("transition", label),
	)

	// Flush
	if !initial && outgoing.IsAuthenticated() && len(s.list) > 0 {
		s.flush(ctx, outgoing, s.list.Clone())
	}

	// Reset
	s.generation++
	gen := s.generation
	s.identity = next
	s.list = model.List{}
	s.hydrating = true
	s.raced = false
	s.reorderer.Reset()
	s.dropSessions("identity_switch")

	// Load
	if !next.IsAuthenticated() {
		list := s.loadBucket(ctx, model.GuestBucket)
		s.adopt(ctx, list, sourceGuest, time.Now())
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	start := time.Now()
	list, source := s.hydrateAccount(ctx, next, gen)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		metrics.RecordHydration(sourceSuperseded, msSince(start))
		s.logger.Debug(ctx, "discarding superseded hydration",
			logger.String("identity", next.String()),
			logger.String("source", source),
		)
		return nil
	}
	if s.raced {
		s.reconcile(ctx, list, source, start)
		return nil
	}
	s.adopt(ctx, list, source, start)
	return nil
}

// flush writes the outgoing account's list synchronously, falling back to its
// local bucket. There is no retry. A queued write still in flight for the
// bucket finishes first; queued writes behind it are then stale.
func (s *Service) flush(ctx context.Context, outgoing model.Identity, list model.List) {
	if outgoing.CanSync() {
		seq := s.seq.Add(1)
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flushTimeout)
		_, err := s.putRemote(flushCtx, outgoing.Bucket(), seq, outgoing.AccountID, outgoing.Credential, list)
		cancel()
		if err == nil {
			metrics.RecordFlush("ok")
			return
		}
		s.logger.Warn(ctx, "flush to remote failed, keeping local copy",
			logger.String("identity", outgoing.String()),
			logger.Error(err),
		)
	}
	if err := s.cache.Save(ctx, outgoing.Bucket(), list); err != nil {
		metrics.RecordFlush("failed")
		s.logger.Error(ctx, "flush fallback to local cache failed",
			logger.String("identity", outgoing.String()),
			logger.Error(err),
		)
		return
	}
	metrics.RecordFlush("local")
}

// hydrateAccount loads id's ranking without holding the lock. Every write it
// makes targets id's own bucket, never the current identity's.
func (s *Service) hydrateAccount(ctx context.Context, id model.Identity, gen uint64) (model.List, string) {
	remoteList, err := s.remote.Get(ctx, id.AccountID, id.Credential)
	if err != nil {
		s.logger.Warn(ctx, "remote read failed, using local cache",
			logger.String("identity", id.String()),
			logger.Error(err),
		)
		return s.loadBucket(ctx, id.Bucket()), sourceLocal
	}

	remoteList = remoteList.Normalize()
	if len(remoteList) > 0 {
		s.saveBucket(ctx, id.Bucket(), remoteList)
		return remoteList, sourceRemote
	}

	migrated, err := s.cache.Migrated(ctx, id.AccountID)
	if err != nil {
		// An unreadable marker must not cause a second migration.
		s.logger.Warn(ctx, "reading migration marker failed", logger.Error(err))
		migrated = true
	}
	if !migrated && s.current(gen) {
		if list, ok := s.migrateGuest(ctx, id, gen); ok {
			return list, sourceMigration
		}
	}

	if local := s.loadBucket(ctx, id.Bucket()); len(local) > 0 {
		return local, sourceLocal
	}
	return model.List{}, sourceEmpty
}

// migrateGuest moves the guest ranking into a brand new account. ok is false
// when there is nothing to migrate. The guest bucket is only cleared when gen
// is still current after the upload; a superseded migration leaves the guest
// bucket and the marker alone and only mirrors into the account's bucket.
func (s *Service) migrateGuest(ctx context.Context, id model.Identity, gen uint64) (model.List, bool) {
	guest := s.loadBucket(ctx, model.GuestBucket)
	if len(guest) == 0 {
		metrics.RecordMigration("skipped")
		return nil, false
	}

	seq := s.seq.Add(1)
	if _, err := s.putRemote(ctx, id.Bucket(), seq, id.AccountID, id.Credential, guest); err != nil {
		// The guest bucket and the missing marker let the next sign-in retry.
		metrics.RecordMigration("failed")
		s.logger.Warn(ctx, "guest migration upload failed",
			logger.String("identity", id.String()),
			logger.Int("items", len(guest)),
			logger.Error(err),
		)
		s.saveBucket(ctx, id.Bucket(), guest)
		return guest, true
	}
	s.saveBucket(ctx, id.Bucket(), guest)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.generation != gen {
		metrics.RecordMigration("superseded")
		s.logger.Info(ctx, "guest migration superseded, guest ranking kept",
			logger.String("identity", id.String()),
			logger.Int("items", len(guest)),
		)
		return guest, true
	}
	if err := s.cache.MarkMigrated(ctx, id.AccountID); err != nil {
		s.logger.Error(ctx, "recording migration failed", logger.Error(err))
	}
	if err := s.cache.Delete(ctx, model.GuestBucket); err != nil {
		s.logger.Error(ctx, "clearing guest cache failed", logger.Error(err))
	}
	metrics.RecordMigration("ok")
	s.logger.Info(ctx, "migrated guest ranking",
		logger.String("identity", id.String()),
		logger.Int("items", len(guest)),
	)
	return guest, true
}

// adopt installs a hydrated list. It never writes remotely. Callers hold mu.
func (s *Service) adopt(ctx context.Context, list model.List, source string, start time.Time) {
	s.list = list.Clone()
	s.hydrating = false
	metrics.RecordHydration(source, msSince(start))
	metrics.UpdateRankingSize(len(s.list))
	s.logger.Debug(ctx, "ranking hydrated",
		logger.String("identity", s.identity.String()),
		logger.String("source", source),
		logger.Int("items", len(s.list)),
	)
	s.scheduleBackfill(metadata.Missing(s.list))
}

// reconcile merges a hydrated list into mutations made while it was loading.
// The mutated order wins; hydrated items it lacks are appended. Callers hold
// mu.
func (s *Service) reconcile(ctx context.Context, hydrated model.List, source string, start time.Time) {
	merged := s.list.Clone()
	for _, it := range hydrated {
		if !merged.Contains(it.ID) {
			merged = append(merged, it.Clone())
		}
	}
	s.hydrating = false
	s.raced = false
	metrics.RecordHydration(source, msSince(start))
	s.logger.Info(ctx, "ranking changed while hydrating, merged",
		logger.String("identity", s.identity.String()),
		logger.Int("mutated", len(s.list)),
		logger.Int("hydrated", len(hydrated)),
	)
	if !merged.SameOrder(s.list) {
		s.persist(ctx, merged, "reconcile")
	}
	s.scheduleBackfill(metadata.Missing(s.list))
}

func (s *Service) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && s.generation == gen
}

func (s *Service) loadBucket(ctx context.Context, bucket string) model.List {
	list, ok, err := s.cache.Load(ctx, bucket)
	if err != nil {
		s.logger.Warn(ctx, "reading local cache failed", logger.String("bucket", bucket), logger.Error(err))
		return model.List{}
	}
	if !ok {
		return model.List{}
	}
	return list
}

func (s *Service) saveBucket(ctx context.Context, bucket string, list model.List) {
	if err := s.cache.Save(ctx, bucket, list); err != nil {
		s.logger.Warn(ctx, "writing local cache failed", logger.String("bucket", bucket), logger.Error(err))
	}
}

func transitionLabel(from, to model.Identity, initial bool) string {
	switch {
	case initial:
		return "initial"
	case !from.IsAuthenticated() && to.IsAuthenticated():
		return "guest_to_account"
	case from.IsAuthenticated() && !to.IsAuthenticated():
		return "account_to_guest"
	default:
		return "account_to_account"
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
