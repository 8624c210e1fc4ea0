package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/domain/comparison"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/types"
)

var errRemoteDown = errors.New("remote down")

// fakeRemote is an in-memory remote ranking store. When gate is set, Get
// signals started and blocks until gate is closed. putGate does the same for
// the next Put only.
type fakeRemote struct {
	mu         sync.Mutex
	lists      map[string]model.List
	getErr     error
	putErr     error
	puts       int
	gate       chan struct{}
	started    chan struct{}
	putGate    chan struct{}
	putStarted chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{lists: make(map[string]model.List)}
}

func (f *fakeRemote) Get(ctx context.Context, accountID, _ string) (model.List, error) {
	// The response is fixed when the request is made, like a real request
	// already in flight.
	f.mu.Lock()
	gate, started := f.gate, f.started
	list, err := f.lists[accountID].Clone(), f.getErr
	f.mu.Unlock()

	if gate != nil {
		close(started)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *fakeRemote) Put(ctx context.Context, accountID, _ string, list model.List) error {
	f.mu.Lock()
	gate, started := f.putGate, f.putStarted
	f.putGate, f.putStarted = nil, nil
	f.mu.Unlock()

	if gate != nil {
		close(started)
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.lists[accountID] = list.Clone()
	return nil
}

func (f *fakeRemote) list(accountID string) model.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[accountID].Clone()
}

func (f *fakeRemote) set(accountID string, list model.List) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[accountID] = list.Clone()
}

func (f *fakeRemote) block() (started chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.started = make(chan struct{})
	gate := f.gate
	return f.started, func() {
		f.mu.Lock()
		f.gate = nil
		f.mu.Unlock()
		close(gate)
	}
}

// blockPut makes the next Put wait in flight until release is called. The
// list it writes is the one it was called with.
func (f *fakeRemote) blockPut() (started chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putGate = make(chan struct{})
	f.putStarted = make(chan struct{})
	gate := f.putGate
	return f.putStarted, func() { close(gate) }
}

func (f *fakeRemote) fail(getErr, putErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr, f.putErr = getErr, putErr
}

func movie(id string) model.RankedItem {
	return model.RankedItem{ID: model.MustItemID(id), Title: "Movie " + id}
}

func movies(ids ...string) model.List {
	out := make(model.List, len(ids))
	for i, id := range ids {
		out[i] = movie(id)
	}
	return out
}

func ids(list model.List) []string {
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.ID.String()
	}
	return out
}

// rankBelow inserts item below everything already ranked by always
// preferring the existing entry.
func rankBelow(t *testing.T, svc *service.Service, item model.RankedItem) types.Comparison {
	t.Helper()
	ctx := context.Background()
	view, err := svc.BeginInsertion(ctx, item)
	if err != nil {
		t.Fatalf("begin insertion: %v", err)
	}
	for view.Placement == nil {
		choice := comparison.ChoiceExisting
		if view.State == string(comparison.StateBaseline) {
			choice = comparison.ChoiceBaseline
		}
		if view, err = svc.Choose(ctx, view.ID, choice); err != nil {
			t.Fatalf("choose: %v", err)
		}
	}
	return view
}

func seed(t *testing.T, svc *service.Service, ids ...string) {
	t.Helper()
	for _, id := range ids {
		rankBelow(t, svc, movie(id))
	}
}

func rawIDs(t *testing.T, svc *service.Service) []string {
	t.Helper()
	list, err := svc.RawList(context.Background())
	if err != nil {
		t.Fatalf("raw list: %v", err)
	}
	return ids(list)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
