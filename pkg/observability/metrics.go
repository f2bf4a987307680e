package observability

import (
	"fmt"
	"strings"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// ModelLabel derives the "model" label value from the origin of a batch.
type ModelLabel func(origin spectate.Observable) string

// TypeLabel labels a batch with the Go type name of its origin.
func TypeLabel(origin spectate.Observable) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", origin), "*")
}

// Metrics counts delivered batches and events per model.
type Metrics struct {
	batches *prometheus.CounterVec
	events  *prometheus.CounterVec
	size    *prometheus.HistogramVec
	label   ModelLabel
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*Metrics)

// WithModelLabel overrides TypeLabel.
func WithModelLabel(fn ModelLabel) MetricsOption {
	return func(m *Metrics) {
		m.label = fn
	}
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) (*Metrics, error) {
	m := &Metrics{
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spectate",
				Name:      "batches_total",
				Help:      "Total number of batches delivered to views",
			},
			[]string{"model"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spectate",
				Name:      "events_total",
				Help:      "Total number of events delivered to views",
			},
			[]string{"model"},
		),
		size: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "spectate",
				Name:      "batch_size",
				Help:      "Number of events per delivered batch",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
			[]string{"model"},
		),
		label: TypeLabel,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, c := range []prometheus.Collector{m.batches, m.events, m.size} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// MustMetrics is like NewMetrics but panics on error.
func MustMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	m, err := NewMetrics(reg, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// View records every batch it receives.
func (m *Metrics) View(origin spectate.Observable, batch domain.Batch) error {
	model := m.label(origin)
	m.batches.WithLabelValues(model).Inc()
	m.events.WithLabelValues(model).Add(float64(batch.Len()))
	m.size.WithLabelValues(model).Observe(float64(batch.Len()))
	return nil
}
