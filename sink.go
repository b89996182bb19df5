package auditlog

import (
	"context"

	"github.com/sirupsen/logrus"
)

// MessageSink receives the flat messages of one save. It is called before the save
// completes and reports no error; delivery is the sink's concern.
type MessageSink interface {
	WriteMessages(ctx context.Context, messages []string)
}

// MessageSinkFunc adapts a function to MessageSink.
type MessageSinkFunc func(ctx context.Context, messages []string)

func (f MessageSinkFunc) WriteMessages(ctx context.Context, messages []string) {
	f(ctx, messages)
}

// EventSink persists structured events after a successful save.
type EventSink interface {
	WriteEvents(ctx context.Context, events []AuditEvent) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, events []AuditEvent) error

func (f EventSinkFunc) WriteEvents(ctx context.Context, events []AuditEvent) error {
	return f(ctx, events)
}

// LoggerSink writes each flat message to a logrus logger at info level.
type LoggerSink struct {
	Logger logrus.FieldLogger
}

// NewLoggerSink returns a LoggerSink. A nil logger uses the standard logger.
func NewLoggerSink(l logrus.FieldLogger) *LoggerSink {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LoggerSink{Logger: l}
}

func (s *LoggerSink) WriteMessages(_ context.Context, messages []string) {
	for _, m := range messages {
		s.Logger.WithField("audit_message", m).Info(m)
	}
}
