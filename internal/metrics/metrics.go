// Package metrics holds the Prometheus instruments for ledger operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	// Registry owns every collector below and backs the /metrics handler.
	Registry *prometheus.Registry

	allocations       *prometheus.CounterVec
	allocatedCents    prometheus.Counter
	duesGenerated     prometheus.Counter
	linksRepaired     prometheus.Counter
	operationDuration *prometheus.HistogramVec
	eventsPublished   *prometheus.CounterVec
}

// New registers all instruments on a private registry so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		allocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfms_allocations_total",
				Help: "Payment allocation calls by result.",
			},
			[]string{"result"},
		),
		allocatedCents: factory.NewCounter(prometheus.CounterOpts{
			Name: "vfms_allocated_cents_total",
			Help: "Money applied to dues, in paise.",
		}),
		duesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "vfms_dues_generated_total",
			Help: "Monthly dues created from templates.",
		}),
		linksRepaired: factory.NewCounter(prometheus.CounterOpts{
			Name: "vfms_links_repaired_total",
			Help: "Recurring funds whose template link was restored.",
		}),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vfms_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfms_events_published_total",
				Help: "Ledger events handed to the broker by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) RecordAllocation(result string, appliedCents int64) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(result).Inc()
	if appliedCents > 0 {
		m.allocatedCents.Add(float64(appliedCents))
	}
}

func (m *Metrics) AddDuesGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duesGenerated.Add(float64(n))
}

func (m *Metrics) AddLinksRepaired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linksRepaired.Add(float64(n))
}

// ObserveSince records the time elapsed since start for operation.
func (m *Metrics) ObserveSince(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordPublish(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.eventsPublished.WithLabelValues(outcome).Inc()
}
