// Package history provides a bounded, persistent snapshot stack for undo.
package history

// DefaultLimit is the snapshot bound used when none is configured.
const DefaultLimit = 50

// Stack is an ordered history of snapshots, most recent last.
//
// Stack values are persistent: Push and Pop return a new Stack and never
// modify the receiver, so a Stack can be held inside immutable state.
type Stack[T any] struct {
	items []T
	limit int
}

// New returns an empty stack holding at most limit snapshots.
// A limit <= 0 means unbounded.
func New[T any](limit int) Stack[T] {
	return Stack[T]{limit: limit}
}

// Push appends a snapshot. When the bound is exceeded the oldest snapshots are
// dropped.
func (s Stack[T]) Push(v T) Stack[T] {
	n := len(s.items) + 1
	start := 0
	if s.limit > 0 && n > s.limit {
		start = n - s.limit
	}
	items := make([]T, 0, n-start)
	if start < len(s.items) {
		items = append(items, s.items[start:]...)
	}
	items = append(items, v)
	return Stack[T]{items: items, limit: s.limit}
}

// Pop removes the current snapshot and returns the stack together with the
// snapshot now on top. It never pops below one remaining snapshot: with
// Len() <= 1 it returns the receiver unchanged and ok == false.
func (s Stack[T]) Pop() (next Stack[T], top T, ok bool) {
	if len(s.items) <= 1 {
		var zero T
		if len(s.items) == 1 {
			zero = s.items[0]
		}
		return s, zero, false
	}
	items := s.items[: len(s.items)-1 : len(s.items)-1]
	return Stack[T]{items: items, limit: s.limit}, items[len(items)-1], true
}

// Peek returns the most recent snapshot.
func (s Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// Len returns the number of snapshots.
func (s Stack[T]) Len() int { return len(s.items) }

// Limit returns the configured bound (0 when unbounded).
func (s Stack[T]) Limit() int {
	if s.limit < 0 {
		return 0
	}
	return s.limit
}
