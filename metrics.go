package auditlog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks what the audit pipeline produced. A nil *Metrics records nothing.
type Metrics struct {
	EventsFlushed   prometheus.Counter
	EventsDiscarded prometheus.Counter
	Changes         *prometheus.CounterVec
	RecordsSkipped  prometheus.Counter
	BuildDuration   prometheus.Histogram
}

// NewMetrics registers the audit metrics with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		EventsFlushed: f.NewCounter(prometheus.CounterOpts{
			Name: "auditlog_events_flushed_total",
			Help: "Total number of audit events written after a successful save",
		}),
		EventsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "auditlog_events_discarded_total",
			Help: "Total number of audit events dropped because the save failed",
		}),
		Changes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auditlog_changes_total",
			Help: "Total number of audit changes built, by kind",
		}, []string{"kind"}),
		RecordsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "auditlog_records_skipped_total",
			Help: "Total number of changed records skipped after a classification failure",
		}),
		BuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditlog_build_duration_seconds",
			Help:    "Duration of classifying one change snapshot",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

func (m *Metrics) flushed(n int) {
	if m == nil {
		return
	}
	m.EventsFlushed.Add(float64(n))
}

func (m *Metrics) discarded(n int) {
	if m == nil {
		return
	}
	m.EventsDiscarded.Add(float64(n))
}

func (m *Metrics) change(kind ChangeKind) {
	if m == nil {
		return
	}
	m.Changes.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) skipped() {
	if m == nil {
		return
	}
	m.RecordsSkipped.Inc()
}

// observeBuild records the duration of a build. Call with time.Now() at the start.
func (m *Metrics) observeBuild(start time.Time) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(time.Since(start).Seconds())
}
