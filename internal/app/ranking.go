package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cinerank/internal/domain/comparison"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/scoring"
	"github.com/okian/cinerank/internal/domain/types"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
)

type openSession struct {
	session  *comparison.Session
	lastUsed time.Time
}

// BeginInsertion opens a comparison session placing item into the ranking.
// An item that is already ranked is re-ranked: its entry is left out of the
// comparison pool and replaced when the session resolves.
func (s *Service) BeginInsertion(ctx context.Context, item model.RankedItem) (types.Comparison, error) {
	if item.ID.IsZero() {
		return types.Comparison{}, ErrInvalidItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return types.Comparison{}, ErrNotStarted
	}

	id := uuid.NewString()
	open := &openSession{
		session:  comparison.Begin(item, s.list.Without(item.ID)),
		lastUsed: s.clock(),
	}
	s.sessions[id] = open
	metrics.RecordSession("opened")
	metrics.UpdateOpenSessions(len(s.sessions))

	s.logger.Debug(ctx, "comparison session opened",
		logger.String("session", id),
		logger.String("item", item.ID.String()),
		logger.Bool("rerank", s.list.Contains(item.ID)),
	)
	return view(id, open.session, nil), nil
}

// Choose applies a user choice to an open session. When the choice resolves
// the session, the candidate is inserted and the session closed.
func (s *Service) Choose(ctx context.Context, id string, choice comparison.Choice) (types.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.lookup(id)
	if err != nil {
		return types.Comparison{}, err
	}
	if err := comparison.Apply(open.session, choice); err != nil {
		return types.Comparison{}, fmt.Errorf("session %s: %w", id, err)
	}
	metrics.RecordComparison(string(choice))
	open.lastUsed = s.clock()

	res, resolved := open.session.Resolution()
	if !resolved {
		return view(id, open.session, nil), nil
	}

	delete(s.sessions, id)
	metrics.UpdateOpenSessions(len(s.sessions))

	// The pool was captured when the session began; its index only means
	// something against the same order.
	base := s.list.Without(res.Candidate.ID)
	if !base.SameOrder(open.session.Pool()) {
		metrics.RecordSession("stale")
		return types.Comparison{}, fmt.Errorf("session %s: %w", id, ErrStaleSession)
	}

	s.reorderer.Reset()
	s.persist(ctx, base.InsertAt(res.Candidate, res.Index), "insert")
	metrics.RecordSession("resolved")
	metrics.RecordResolution(string(res.Reason), open.session.Steps())

	if res.Candidate.NeedsDetails() {
		s.scheduleBackfill([]model.ItemID{res.Candidate.ID})
	}

	placement := &types.Placement{
		Rank:   res.Index + 1,
		Score:  scoring.Project(res.Index, len(s.list)),
		Reason: string(res.Reason),
	}
	s.logger.Debug(ctx, "comparison session resolved",
		logger.String("session", id),
		logger.String("item", res.Candidate.ID.String()),
		logger.Int("index", res.Index),
		logger.String("reason", string(res.Reason)),
		logger.Int("steps", open.session.Steps()),
	)
	return view(id, open.session, placement), nil
}

// Session returns the current view of an open session.
func (s *Service) Session(_ context.Context, id string) (types.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.lookup(id)
	if err != nil {
		return types.Comparison{}, err
	}
	return view(id, open.session, nil), nil
}

// Abandon closes a session without touching the ranking.
func (s *Service) Abandon(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id); err != nil {
		return err
	}
	delete(s.sessions, id)
	metrics.RecordSession("abandoned")
	metrics.UpdateOpenSessions(len(s.sessions))
	return nil
}

// Move drags the entry at from so it sits before the entry at to.
func (s *Service) Move(ctx context.Context, from, to int) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}

	next, err := s.reorderer.Move(s.list, from, to)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, next, "move")
	return scoring.Annotate(s.list), nil
}

// Undo restores the ranking as it was before the latest move.
func (s *Service) Undo(ctx context.Context) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}

	prev, err := s.reorderer.Undo()
	if err != nil {
		return nil, err
	}
	s.persist(ctx, prev, "undo")
	return scoring.Annotate(s.list), nil
}

// Remove deletes id from the ranking.
func (s *Service) Remove(ctx context.Context, id model.ItemID) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if !s.list.Contains(id) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	s.reorderer.Reset()
	s.persist(ctx, s.list.Without(id), "remove")
	return scoring.Annotate(s.list), nil
}

// persist installs next as the ranking, writes it to the current identity's
// bucket and queues the remote write. A mutation during hydration marks the
// hydration as raced. Callers hold mu.
func (s *Service) persist(ctx context.Context, next model.List, kind string) {
	s.list = next.Clone()
	if s.hydrating {
		s.raced = true
	}
	metrics.RecordMutation(kind)
	metrics.UpdateRankingSize(len(s.list))

	s.saveBucket(ctx, s.identity.Bucket(), s.list)
	s.enqueueSync(ctx, kind)
}

// enqueueSync queues a whole-list remote write of the current ranking.
// Callers hold mu.
func (s *Service) enqueueSync(ctx context.Context, reason string) {
	if !s.identity.CanSync() {
		return
	}
	job := model.SyncJob{
		Seq:        s.seq.Add(1),
		Bucket:     s.identity.Bucket(),
		AccountID:  s.identity.AccountID,
		Credential: s.identity.Credential,
		List:       s.list.Clone(),
		Reason:     reason,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		metrics.RecordSync("dropped")
		s.logger.Warn(ctx, "remote write not queued",
			logger.String("bucket", job.Bucket),
			logger.Uint64("seq", job.Seq),
			logger.Error(err),
		)
	}
}

func (s *Service) lookup(id string) (*openSession, error) {
	if !s.started {
		return nil, ErrNotStarted
	}
	open, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.clock().Sub(open.lastUsed) > s.sessionTTL {
		delete(s.sessions, id)
		metrics.RecordSession("expired")
		metrics.UpdateOpenSessions(len(s.sessions))
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return open, nil
}

func (s *Service) expireSessions() {
	now := s.clock()
	for id, open := range s.sessions {
		if now.Sub(open.lastUsed) > s.sessionTTL {
			delete(s.sessions, id)
			metrics.RecordSession("expired")
		}
	}
	metrics.UpdateOpenSessions(len(s.sessions))
}

func (s *Service) dropSessions(outcome string) {
	for id := range s.sessions {
		delete(s.sessions, id)
		metrics.RecordSession(outcome)
	}
	metrics.UpdateOpenSessions(0)
}

func view(id string, sess *comparison.Session, placement *types.Placement) types.Comparison {
	v := types.Comparison{
		ID:        id,
		State:     string(sess.State()),
		Candidate: sess.Candidate(),
		Steps:     sess.Steps(),
		Remaining: sess.Remaining(),
		CanGoBack: sess.CanGoBack(),
		Placement: placement,
	}
	if target, ok := sess.Target(); ok && sess.State() == comparison.StateComparing {
		v.Target = &target
	}
	return v
}
