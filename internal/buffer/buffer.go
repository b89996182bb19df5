package buffer

import (
	"errors"
	"sync"
)

// State is the lifecycle state of a Buffer.
type State int

const (
	Idle State = iota
	Pending
	Flushed
	Discarded
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Flushed:
		return "Flushed"
	case Discarded:
		return "Discarded"
	default:
		return "Idle"
	}
}

// ErrPending is returned by Hold while earlier items are still waiting for an outcome.
var ErrPending = errors.New("buffer: items already pending")

// Buffer holds items between the pre-commit and post-commit phase of one save.
type Buffer[T any] struct {
	mu    sync.Mutex
	state State
	ts    []T
}

func NewBuffer[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Hold moves the buffer to Pending with the given items.
func (b *Buffer[T]) Hold(items ...T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Pending {
		return ErrPending
	}
	b.ts = append([]T(nil), items...)
	b.state = Pending
	return nil
}

// Flush hands the pending items to write. On success the buffer is cleared and Flushed;
// on error it stays Pending so the caller may retry or discard. Flushing a buffer
// that is not Pending is a no-op and returns 0.
func (b *Buffer[T]) Flush(write func([]T) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Pending {
		return 0, nil
	}
	if err := write(b.ts); err != nil {
		return 0, err
	}
	n := len(b.ts)
	b.ts = nil
	b.state = Flushed
	return n, nil
}

// Discard drops the pending items and returns how many were dropped.
func (b *Buffer[T]) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Pending {
		return 0
	}
	n := len(b.ts)
	b.ts = nil
	b.state = Discarded
	return n
}

// State returns the current state.
func (b *Buffer[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Len returns the number of pending items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ts)
}

// Reset returns the buffer to Idle, dropping anything pending.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ts = nil
	b.state = Idle
}
