// Package metrics exposes Prometheus collectors for waits, actions and
// scenario runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hairizuan-noorazman/ui-harness/failure"
)

const namespace = "uiharness"

// Collectors holds the harness metrics. It implements waiter.Recorder and
// driver.ActionRecorder.
type Collectors struct {
	scenarios       *prometheus.CounterVec
	scenarioSeconds *prometheus.HistogramVec
	waits           *prometheus.HistogramVec
	actions         *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		scenarios: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenarios_total",
				Help:      "Total number of scenario runs by status",
			},
			[]string{"status"},
		),
		scenarioSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scenario_duration_seconds",
				Help:      "Scenario run duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
			},
			[]string{"status"},
		),
		waits: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wait_duration_seconds",
				Help:      "Duration of polling waits in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"description", "result"},
		),
		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Total number of executed actions by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// ObserveWait records a completed wait.
func (c *Collectors) ObserveWait(description string, kind failure.Kind, elapsed time.Duration) {
	c.waits.WithLabelValues(description, result(kind)).Observe(elapsed.Seconds())
}

// ObserveAction records an executed action.
func (c *Collectors) ObserveAction(kind string, res failure.Kind, elapsed time.Duration) {
	if kind == "" {
		kind = "error"
	}
	c.actions.WithLabelValues(kind, result(res)).Inc()
}

// ObserveScenario records a finished scenario.
func (c *Collectors) ObserveScenario(succeeded bool, elapsed time.Duration) {
	status := "passed"
	if !succeeded {
		status = "failed"
	}
	c.scenarios.WithLabelValues(status).Inc()
	c.scenarioSeconds.WithLabelValues(status).Observe(elapsed.Seconds())
}

func result(kind failure.Kind) string {
	if kind == failure.KindNone {
		return "success"
	}
	return string(kind)
}
