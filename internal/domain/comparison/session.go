// Package comparison places a candidate item into an existing ranking through
// a binary search driven by pairwise human judgments.
package comparison

import (
	"fmt"
	"math/bits"

	"github.com/okian/cinerank/internal/domain/history"
	"github.com/okian/cinerank/internal/domain/model"
)

// State is the phase a Session is in.
type State string

// Session states.
const (
	StateBaseline  State = "baseline"
	StateComparing State = "comparing"
	StateResolved  State = "resolved"
)

// Reason records how a Session reached its insertion index.
type Reason string

// Resolution reasons.
const (
	ReasonBaseline  Reason = "baseline"
	ReasonBounds    Reason = "bounds"
	ReasonTie       Reason = "tie"
	ReasonExhausted Reason = "exhausted"
)

// Resolution is the outcome of a Session: where the candidate goes.
type Resolution struct {
	Candidate model.RankedItem
	Index     int
	Reason    Reason
}

type frame struct {
	low, high, mid int
	target         model.ItemID
}

// Session is the state machine of one "rate this item" interaction.
//
// The pool is expected to exclude the candidate already; the session never
// filters it out but re-checks every comparison target so the candidate is
// never compared against itself.
type Session struct {
	candidate model.RankedItem
	pool      model.List

	low, high, mid int
	state          State
	resolution     *Resolution
	history        *history.Stack[frame]
}

// Begin opens a session for candidate against pool. An empty pool starts in
// StateBaseline.
func Begin(candidate model.RankedItem, pool model.List) *Session {
	s := &Session{
		candidate: candidate.Clone(),
		pool:      pool.Clone(),
		history:   history.NewStack[frame](),
	}
	if len(s.pool) == 0 {
		s.state = StateBaseline
		return s
	}
	s.state = StateComparing
	s.low, s.high = 0, len(s.pool)-1
	s.settle()
	return s
}

// Candidate returns the item being placed.
func (s *Session) Candidate() model.RankedItem { return s.candidate.Clone() }

// Pool returns the list the candidate is compared against.
func (s *Session) Pool() model.List { return s.pool.Clone() }

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Target returns the item the candidate is currently compared against.
func (s *Session) Target() (model.RankedItem, bool) {
	if s.state != StateComparing {
		return model.RankedItem{}, false
	}
	return s.pool[s.mid].Clone(), true
}

// Bounds returns the current search window and midpoint.
func (s *Session) Bounds() (low, high, mid int) { return s.low, s.high, s.mid }

// Resolution returns the outcome once the session is resolved.
func (s *Session) Resolution() (Resolution, bool) {
	if s.resolution == nil {
		return Resolution{}, false
	}
	r := *s.resolution
	r.Candidate = r.Candidate.Clone()
	return r, true
}

// Steps returns how many judgments are currently on the history.
func (s *Session) Steps() int { return s.history.Len() }

// CanGoBack reports whether GoBack would rewind anything.
func (s *Session) CanGoBack() bool { return s.history.Len() > 0 }

// Remaining is the worst-case number of judgments still needed.
func (s *Session) Remaining() int {
	if s.state != StateComparing || s.low > s.high {
		return 0
	}
	return bits.Len(uint(s.high - s.low + 1))
}

// ConfirmBaseline resolves a baseline session at index 0.
func (s *Session) ConfirmBaseline() error {
	switch s.state {
	case StateResolved:
		return ErrResolved
	case StateComparing:
		return ErrNotBaseline
	}
	s.resolve(0, ReasonBaseline)
	return nil
}

// PreferCandidate records that the candidate ranks above the current target.
func (s *Session) PreferCandidate() error {
	if err := s.checkComparing(); err != nil {
		return err
	}
	s.push()
	if s.outOfWindow() {
		s.high = s.low - 1
	} else {
		s.high = s.mid - 1
	}
	s.settle()
	return nil
}

// PreferExisting records that the current target ranks above the candidate.
func (s *Session) PreferExisting() error {
	if err := s.checkComparing(); err != nil {
		return err
	}
	s.push()
	if s.outOfWindow() {
		s.low = s.high + 1
	} else {
		s.low = s.mid + 1
	}
	s.settle()
	return nil
}

// CannotDecide treats the current comparison as a tie and resolves at the
// target's index, skipping any remaining comparisons.
func (s *Session) CannotDecide() error {
	if err := s.checkComparing(); err != nil {
		return err
	}
	s.push()
	s.resolve(s.mid, ReasonTie)
	return nil
}

// GoBack rewinds the last judgment. A resolved session re-opens. It is a
// no-op when there is nothing to rewind.
func (s *Session) GoBack() {
	f, ok := s.history.Pop()
	if !ok {
		return
	}
	s.low, s.high, s.mid = f.low, f.high, f.mid
	s.state = StateComparing
	s.resolution = nil
}

func (s *Session) checkComparing() error {
	switch s.state {
	case StateResolved:
		return ErrResolved
	case StateBaseline:
		return ErrBaseline
	}
	return nil
}

func (s *Session) push() {
	s.history.Push(frame{low: s.low, high: s.high, mid: s.mid, target: s.pool[s.mid].ID})
}

// outOfWindow reports whether the current target was found outside
// [low, high] by the exhaustive self-comparison fallback.
func (s *Session) outOfWindow() bool { return s.mid < s.low || s.mid > s.high }

// settle recomputes mid after a bounds update and either presents the next
// comparison or resolves.
func (s *Session) settle() {
	if s.low > s.high {
		s.resolve(s.low, ReasonBounds)
		return
	}
	mid := (s.low + s.high) / 2
	if mid < 0 || mid >= len(s.pool) {
		s.resolve(min(mid, len(s.pool)), ReasonExhausted)
		return
	}
	idx, ok := s.distinctTarget(mid)
	if !ok {
		s.resolve(min(mid, len(s.pool)), ReasonExhausted)
		return
	}
	s.mid = idx
	s.state = StateComparing
}

// distinctTarget returns mid when pool[mid] is not the candidate. Otherwise
// it looks forward within the window, then backward, then across the whole
// pool for the nearest entry with a different id.
func (s *Session) distinctTarget(mid int) (int, bool) {
	id := s.candidate.ID
	if s.pool[mid].ID != id {
		return mid, true
	}
	for i := mid + 1; i <= s.high; i++ {
		if s.pool[i].ID != id {
			return i, true
		}
	}
	for i := mid - 1; i >= s.low; i-- {
		if s.pool[i].ID != id {
			return i, true
		}
	}
	for d := 1; d < len(s.pool); d++ {
		if i := mid + d; i < len(s.pool) && s.pool[i].ID != id {
			return i, true
		}
		if i := mid - d; i >= 0 && s.pool[i].ID != id {
			return i, true
		}
	}
	return 0, false
}

func (s *Session) resolve(index int, reason Reason) {
	if index < 0 {
		index = 0
	}
	if index > len(s.pool) {
		index = len(s.pool)
	}
	s.state = StateResolved
	s.resolution = &Resolution{Candidate: s.candidate.Clone(), Index: index, Reason: reason}
}

// String is used in logs.
func (s *Session) String() string {
	return fmt.Sprintf("comparison{candidate=%s state=%s low=%d high=%d mid=%d steps=%d}",
		s.candidate.ID, s.state, s.low, s.high, s.mid, s.Steps())
}
