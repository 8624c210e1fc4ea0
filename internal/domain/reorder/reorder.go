// Package reorder implements free-form drag reordering of a ranking with a
// bounded undo history.
package reorder

import (
	"fmt"

	"github.com/okian/cinerank/internal/domain/history"
	"github.com/okian/cinerank/internal/domain/model"
)

// DefaultUndoCapacity is the number of snapshots kept for Undo.
const DefaultUndoCapacity = 10

// Move returns a copy of list with the entry at from moved so that it sits
// before the entry currently at to. to == len(list) moves it to the end.
func Move(list model.List, from, to int) (model.List, error) {
	if from < 0 || from >= len(list) {
		return nil, fmt.Errorf("%w: from=%d len=%d", ErrIndexOutOfRange, from, len(list))
	}
	if to < 0 || to > len(list) {
		return nil, fmt.Errorf("%w: to=%d len=%d", ErrIndexOutOfRange, to, len(list))
	}
	moved := list[from].Clone()
	out := make(model.List, 0, len(list))
	out = append(out, list[:from].Clone()...)
	out = append(out, list[from+1:].Clone()...)
	if from < to {
		to--
	}
	return out.InsertAt(moved, to), nil
}

// Reorderer applies moves and keeps a snapshot of the list before each one.
// Owners serialize access.
type Reorderer struct {
	undo *history.Stack[model.List]
}

// New creates a Reorderer keeping capacity snapshots. capacity <= 0 falls back
// to DefaultUndoCapacity.
func New(capacity int) *Reorderer {
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}
	return &Reorderer{undo: history.NewStack[model.List](history.WithCapacity(capacity))}
}

// Move snapshots list, then moves. The snapshot is only kept when the move is
// valid.
func (r *Reorderer) Move(list model.List, from, to int) (model.List, error) {
	out, err := Move(list, from, to)
	if err != nil {
		return nil, err
	}
	r.undo.Push(list.Clone())
	return out, nil
}

// Undo pops the most recent snapshot.
func (r *Reorderer) Undo() (model.List, error) {
	prev, ok := r.undo.Pop()
	if !ok {
		return nil, ErrNothingToUndo
	}
	return prev, nil
}

// MergeDetails fills missing details into every snapshot, so an undo does
// not lose details merged after the snapshot was taken.
func (r *Reorderer) MergeDetails(details map[model.ItemID]model.Details) {
	r.undo.Apply(func(l model.List) model.List { return l.MergeDetails(details) })
}

// Len returns the number of snapshots available.
func (r *Reorderer) Len() int { return r.undo.Len() }

// Reset drops every snapshot.
func (r *Reorderer) Reset() { r.undo.Clear() }
