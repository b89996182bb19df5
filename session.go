package auditlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/mickamy/auditlog/internal/buffer"
)

// SaveState is the state of a Session's two-phase protocol.
type SaveState = buffer.State

const (
	SaveIdle      = buffer.Idle
	SavePending   = buffer.Pending
	SaveFlushed   = buffer.Flushed
	SaveDiscarded = buffer.Discarded
)

// ErrSavePending is returned when SavingChanges is called before the previous save resolved.
var ErrSavePending = errors.New("auditlog: previous save is still pending")

// Session audits the saves of one unit of work. Call SavingChanges before the save,
// then exactly one of SavedChanges or SaveFailed. A Session must not be shared
// between units of work.
type Session struct {
	h   *Handler
	buf *buffer.Buffer[AuditEvent]
}

// NewSession starts a session for one unit of work.
func (h *Handler) NewSession() *Session {
	return &Session{h: h, buf: buffer.NewBuffer[AuditEvent]()}
}

// State returns where the session is in the save protocol.
func (s *Session) State() SaveState {
	return s.buf.State()
}

// SavingChanges classifies snap, sends the flat messages right away and holds the
// structured event until the outcome of the save is known.
func (s *Session) SavingChanges(ctx context.Context, snap Snapshot) error {
	return s.savingChanges(ctx, snap, nil)
}

func (s *Session) savingChanges(ctx context.Context, snap Snapshot, loader ForeignKeyLoader) error {
	if extractSkip(ctx) {
		return nil
	}
	if s.buf.State() == SavePending {
		return ErrSavePending
	}
	res := s.h.builder.Build(ctx, snap, loader)
	if len(res.Messages) > 0 && s.h.cfg.Messages != nil {
		s.h.cfg.Messages.WriteMessages(ctx, res.Messages)
	}
	if len(res.Event.Entries) == 0 {
		return nil
	}
	if err := s.buf.Hold(res.Event); err != nil {
		return ErrSavePending
	}
	return nil
}

// SavedChanges writes the held event to the event sink. A write error is returned
// and the event stays pending.
func (s *Session) SavedChanges(ctx context.Context) error {
	n, err := s.buf.Flush(func(events []AuditEvent) error {
		if s.h.cfg.Events == nil {
			return nil
		}
		return s.h.cfg.Events.WriteEvents(ctx, events)
	})
	if err != nil {
		return fmt.Errorf("auditlog: failed to write audit events: %w", err)
	}
	s.h.cfg.Metrics.flushed(n)
	return nil
}

// SaveFailed drops the held event.
func (s *Session) SaveFailed(_ context.Context) {
	if n := s.buf.Discard(); n > 0 {
		s.h.cfg.Metrics.discarded(n)
		s.h.cfg.Logger.WithField("events", n).Debug("auditlog: discarded audit events of failed save")
	}
}
