package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/cinerank/internal/domain/model"
)

type recordingRemote struct {
	mu   sync.Mutex
	puts []model.List
	err  error
}

func (r *recordingRemote) Get(context.Context, string, string) (model.List, error) {
	return model.List{}, nil
}

func (r *recordingRemote) Put(_ context.Context, _, _ string, list model.List) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.puts = append(r.puts, list.Clone())
	return nil
}

func job(seq uint64, ids ...string) model.SyncJob {
	list := make(model.List, len(ids))
	for i, id := range ids {
		list[i] = model.RankedItem{ID: model.MustItemID(id)}
	}
	return model.SyncJob{Seq: seq, Bucket: model.AccountBucket("u1"), AccountID: "u1", Credential: "tok", List: list, Reason: "test"}
}

func TestWriteRemote_SkipsStaleJobs(t *testing.T) {
	rem := &recordingRemote{}
	s := New(WithRemote(rem))
	ctx := context.Background()

	if err := s.writeRemote(ctx, job(2, "B", "A")); err != nil {
		t.Fatalf("write seq 2: %v", err)
	}
	if err := s.writeRemote(ctx, job(1, "A", "B")); err != nil {
		t.Fatalf("write seq 1: %v", err)
	}
	if len(rem.puts) != 1 {
		t.Fatalf("expected the older job to be skipped, got %d puts", len(rem.puts))
	}
	if got := rem.puts[0][0].ID.String(); got != "B" {
		t.Fatalf("expected newest list to stay, got first item %s", got)
	}

	other := job(1, "C")
	other.Bucket = model.AccountBucket("u2")
	if err := s.writeRemote(ctx, other); err != nil {
		t.Fatalf("write other bucket: %v", err)
	}
	if len(rem.puts) != 2 {
		t.Fatalf("sequence numbers are tracked per bucket, got %d puts", len(rem.puts))
	}
}

func TestWriteRemote_FailureDoesNotAdvance(t *testing.T) {
	boom := errors.New("boom")
	rem := &recordingRemote{err: boom}
	s := New(WithRemote(rem))
	ctx := context.Background()

	if err := s.writeRemote(ctx, job(5, "A")); !errors.Is(err, boom) {
		t.Fatalf("expected remote error, got %v", err)
	}

	rem.err = nil
	if err := s.writeRemote(ctx, job(3, "A")); err != nil {
		t.Fatalf("write after failure: %v", err)
	}
	if len(rem.puts) != 1 {
		t.Fatalf("a failed write must not mark newer sequences as written, got %d puts", len(rem.puts))
	}
}

func TestTransitionLabel(t *testing.T) {
	guest, a, b := model.Guest(), model.Account("a", "t"), model.Account("b", "t")
	tests := []struct {
		from, to model.Identity
		initial  bool
		want     string
	}{
		{guest, a, true, "initial"},
		{guest, a, false, "guest_to_account"},
		{a, guest, false, "account_to_guest"},
		{a, b, false, "account_to_account"},
	}
	for _, tc := range tests {
		if got := transitionLabel(tc.from, tc.to, tc.initial); got != tc.want {
			t.Errorf("transitionLabel(%s, %s, %v) = %s, want %s", tc.from, tc.to, tc.initial, got, tc.want)
		}
	}
}
