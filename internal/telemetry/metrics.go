package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors for operator evaluations. It
// implements Reporter so it can sit in a MultiReporter next to the hub.
type Metrics struct {
	gatherer prometheus.Gatherer

	Evaluations *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Durations   *prometheus.HistogramVec

	Pulses     prometheus.Gauge
	Scatterers prometheus.Gauge
	Partitions prometheus.Gauge
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Collectors registered earlier under the same names are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	evaluations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sar_evaluations_total",
		Help: "Operator evaluations, labeled by direction.",
	}, []string{"direction"}), "sar_evaluations_total")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sar_evaluation_failures_total",
		Help: "Operator evaluations that returned an error, labeled by direction.",
	}, []string{"direction"}), "sar_evaluation_failures_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sar_evaluation_duration_seconds",
		Help:    "Operator evaluation latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"direction"}), "sar_evaluation_duration_seconds")
	if err != nil {
		return nil, err
	}
	pulses, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sar_pulses",
		Help: "Pulses in the current collection.",
	}), "sar_pulses")
	if err != nil {
		return nil, err
	}
	scatterers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sar_scatterers",
		Help: "Scatterers in the current hypothesis.",
	}), "sar_scatterers")
	if err != nil {
		return nil, err
	}
	partitions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sar_partitions",
		Help: "Pulse partitions evaluated in parallel.",
	}), "sar_partitions")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:    gatherer,
		Evaluations: evaluations,
		Failures:    failures,
		Durations:   durations,
		Pulses:      pulses,
		Scatterers:  scatterers,
		Partitions:  partitions,
	}, nil
}

// Report records one evaluation sample.
func (m *Metrics) Report(sample Sample) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(sample.Direction).Inc()
	if sample.Err != "" {
		m.Failures.WithLabelValues(sample.Direction).Inc()
	}
	d := time.Duration(sample.DurationMs * float64(time.Millisecond))
	m.Durations.WithLabelValues(sample.Direction).Observe(d.Seconds())
	m.SetProblemSize(sample.Pulses, sample.Scatterers, sample.Partitions)
}

// SetProblemSize updates the size gauges.
func (m *Metrics) SetProblemSize(pulses, scatterers, partitions int) {
	if m == nil {
		return
	}
	m.Pulses.Set(float64(pulses))
	m.Scatterers.Set(float64(scatterers))
	m.Partitions.Set(float64(partitions))
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := m.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
