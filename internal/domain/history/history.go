// Package history provides the bounded LIFO stack behind comparison
// back-tracking and reorder undo.
package history

// Stack is a LIFO stack with an optional capacity. When a push would exceed
// the capacity the oldest entry is evicted, so the stack always keeps the
// most recent snapshots. A capacity of zero or less means unbounded.
//
// Stack is not safe for concurrent use; owners serialize access.
type Stack[T any] struct {
	items    []T
	capacity int
	evicted  uint64
}

// NewStack creates a stack configured by opts.
func NewStack[T any](opts ...Option) *Stack[T] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Stack[T]{capacity: cfg.capacity}
	if s.capacity > 0 {
		s.items = make([]T, 0, s.capacity)
	}
	return s
}

// Push adds v on top. It reports whether the oldest entry had to be dropped.
func (s *Stack[T]) Push(v T) bool {
	if s.capacity > 0 && len(s.items) >= s.capacity {
		var zero T
		copy(s.items, s.items[1:])
		s.items[len(s.items)-1] = zero
		s.items = s.items[:len(s.items)-1]
		s.evicted++
		s.items = append(s.items, v)
		return true
	}
	s.items = append(s.items, v)
	return false
}

// Pop removes and returns the newest entry.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	last := len(s.items) - 1
	v := s.items[last]
	s.items[last] = zero
	s.items = s.items[:last]
	return v, true
}

// Peek returns the newest entry without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// Len returns the number of entries.
func (s *Stack[T]) Len() int { return len(s.items) }

// Cap returns the configured capacity, 0 when unbounded.
func (s *Stack[T]) Cap() int { return s.capacity }

// Evicted returns how many entries were dropped by pushes over capacity.
func (s *Stack[T]) Evicted() uint64 { return s.evicted }

// Apply replaces every entry with fn(entry), keeping their order.
func (s *Stack[T]) Apply(fn func(T) T) {
	for i, v := range s.items {
		s.items[i] = fn(v)
	}
}

// Clear drops every entry.
func (s *Stack[T]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}
