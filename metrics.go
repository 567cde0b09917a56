package ioc

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Resolution outcomes reported by the resolutions counter.
const (
	outcomeCache     = "cache"
	outcomeBuild     = "build"
	outcomeFallback  = "fallback"
	outcomeTransient = "transient"
	outcomeError     = "error"
)

// Provider lifecycle phases reported by the phase histogram.
const (
	phaseRegister = "register"
	phaseBoot     = "boot"
)

// metrics holds the container's prometheus collectors. A nil *metrics
// records nothing.
type metrics struct {
	resolutions        *prometheus.CounterVec
	factoryInvocations prometheus.Counter
	factoryDuration    prometheus.Histogram
	phaseDuration      *prometheus.HistogramVec
}

// newMetrics creates and registers the collectors. It returns nil when
// reg is nil. A collector reg rejects is logged and left unregistered.
func newMetrics(reg prometheus.Registerer, namespace string, log *zap.Logger) *metrics {
	if reg == nil {
		return nil
	}

	return &metrics{
		resolutions: register(reg, log, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of service resolutions by outcome",
			},
			[]string{"outcome"},
		)),
		factoryInvocations: register(reg, log, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "factory_invocations_total",
				Help:      "Total number of factory invocations",
			},
		)),
		factoryDuration: register(reg, log, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "factory_duration_seconds",
				Help:      "Factory invocation duration in seconds",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
		)),
		phaseDuration: register(reg, log, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_phase_duration_seconds",
				Help:      "Provider register and boot step duration in seconds",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
			[]string{"phase"},
		)),
	}
}

// register registers c with reg, returning the collector already
// registered under the same descriptor if there is one. Any other
// registration error is logged and c is returned unregistered.
func register[C prometheus.Collector](reg prometheus.Registerer, log *zap.Logger, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}

	log.Error("metrics collector not registered", zap.Error(err))
	return c
}

func (m *metrics) resolved(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *metrics) factoryInvoked(d time.Duration) {
	if m == nil {
		return
	}
	m.factoryInvocations.Inc()
	m.factoryDuration.Observe(d.Seconds())
}

func (m *metrics) phase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
