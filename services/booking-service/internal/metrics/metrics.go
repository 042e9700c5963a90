package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records scheduling decisions. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	decisions       *prometheus.CounterVec
	seriesDates     *prometheus.CounterVec
	seriesCreated   prometheus.Counter
	snapshotSeconds prometheus.Histogram
	outboxPublished *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointbook",
			Subsystem: "booking",
			Name:      "decisions_total",
			Help:      "Booking validation outcomes by reason (bookable or the rejection reason).",
		}, []string{"outcome"}),
		seriesDates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointbook",
			Subsystem: "booking",
			Name:      "series_dates_total",
			Help:      "Dates of recurring series requests by result.",
		}, []string{"result"}),
		seriesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "appointbook",
			Subsystem: "booking",
			Name:      "series_created_total",
			Help:      "Recurring series persisted with at least one appointment.",
		}),
		snapshotSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "appointbook",
			Subsystem: "availability",
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent computing an availability snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		outboxPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointbook",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events forwarded to Kafka by result.",
		}, []string{"result"}),
	}
}

// ObserveDecision counts one validation; outcome is "bookable" or a rejection reason.
func (m *Metrics) ObserveDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSeries(created, skipped int) {
	if m == nil {
		return
	}
	m.seriesDates.WithLabelValues("created").Add(float64(created))
	m.seriesDates.WithLabelValues("skipped").Add(float64(skipped))
	if created > 0 {
		m.seriesCreated.Inc()
	}
}

func (m *Metrics) ObserveSnapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveOutbox(published, failed int) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues("published").Add(float64(published))
	m.outboxPublished.WithLabelValues("failed").Add(float64(failed))
}
