// Package memory keeps audit events in process memory, for tests and demos.
package memory

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/mickamy/auditlog"
)

type Store struct {
	mu     sync.RWMutex
	events []auditlog.AuditEvent
}

func NewStore() *Store {
	return &Store{}
}

// WriteEvents appends events in order.
func (s *Store) WriteEvents(_ context.Context, events []auditlog.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		ev.Timestamp = ev.Timestamp.UTC()
		ev.Entries = slices.Clone(ev.Entries)
		s.events = append(s.events, ev)
	}
	return nil
}

// Events returns a copy of every stored event in write order.
func (s *Store) Events() []auditlog.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

func (s *Store) History(ctx context.Context, q auditlog.HistoryQuery) iter.Seq2[auditlog.AuditEvent, error] {
	return func(yield func(auditlog.AuditEvent, error) bool) {
		if err := q.Validate(); err != nil {
			yield(auditlog.AuditEvent{}, err)
			return
		}
		s.mu.RLock()
		var matched []auditlog.AuditEvent
		for _, ev := range s.events {
			if !q.InRange(ev.Timestamp) {
				continue
			}
			if ev = ev.ForRoot(q.RootType, q.RootID); len(ev.Entries) > 0 {
				matched = append(matched, ev)
			}
		}
		s.mu.RUnlock()

		slices.SortStableFunc(matched, func(a, b auditlog.AuditEvent) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		matched = page(matched, q.Skip, q.Take)
		for _, ev := range matched {
			if err := ctx.Err(); err != nil {
				yield(auditlog.AuditEvent{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Prune removes events older than before and reports how many were removed.
func (s *Store) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var n int64
	for _, ev := range s.events {
		if ev.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	clear(s.events[len(kept):])
	s.events = kept
	return n, nil
}

func page(events []auditlog.AuditEvent, skip, take int) []auditlog.AuditEvent {
	if skip >= len(events) {
		return nil
	}
	events = events[skip:]
	if take > 0 && take < len(events) {
		events = events[:take]
	}
	return events
}
