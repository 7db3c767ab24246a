// Package metrics holds the Prometheus collectors of an import run and
// pushes them to a Pushgateway when the run ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job label.
const Job = "partnersync"

// Metrics tracks one import run.
type Metrics struct {
	registry *prometheus.Registry

	// Pages counts page fetches by outcome ("items", "end", "failed").
	Pages *prometheus.CounterVec
	// Inserted counts rows written.
	Inserted prometheus.Counter
	// Skipped counts records whose natural key was already stored.
	Skipped prometheus.Counter
	// Failed counts records whose persistence errored.
	Failed prometheus.Counter
	// Duration is the wall-clock length of the run.
	Duration prometheus.Gauge
}

// New registers a fresh set of collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnersync_pages_total",
				Help: "Total number of partner directory pages fetched",
			},
			[]string{"outcome"},
		),
		Inserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "partnersync_records_inserted_total",
			Help: "Total number of partner records inserted",
		}),
		Skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "partnersync_records_skipped_total",
			Help: "Total number of partner records skipped as already present",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "partnersync_records_failed_total",
			Help: "Total number of partner records that could not be persisted",
		}),
		Duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "partnersync_run_duration_seconds",
			Help: "Duration of the last import run",
		}),
	}
}

// Registry exposes the collectors for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the run duration.
func (m *Metrics) ObserveRun(d time.Duration) {
	m.Duration.Set(d.Seconds())
}

// Push sends every collector to the Pushgateway at url, grouped by run id.
func (m *Metrics) Push(url, runID string) error {
	err := push.New(url, Job).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
