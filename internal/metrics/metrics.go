// Package metrics records per-run gauges and writes them in the Prometheus
// textfile format, so a node exporter can pick up the result of each
// scheduled dailyreport invocation.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dailyreport"

// Recorder holds the gauges of a single run.
type Recorder struct {
	registry *prometheus.Registry

	repositories  prometheus.Gauge
	commits       *prometheus.GaugeVec
	generation    prometheus.Gauge
	summaryFailed prometheus.Gauge
	lastRun       prometheus.Gauge
}

// New creates a Recorder backed by its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		repositories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repositories_discovered",
			Help:      "Repositories found under the search roots.",
		}),
		commits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "commits",
			Help:      "Commits collected across all repositories, by day.",
		}, []string{"day"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summary_generation_seconds",
			Help:      "Wall time spent generating the summary.",
		}),
		summaryFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summary_failed",
			Help:      "1 when the text-generation service failed during the run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}

	r.registry.MustRegister(r.repositories, r.commits, r.generation, r.summaryFailed, r.lastRun)
	return r
}

// SetRepositories records the number of discovered repositories.
func (r *Recorder) SetRepositories(n int) { r.repositories.Set(float64(n)) }

// SetCommits records the commit count for day ("today" or "yesterday").
func (r *Recorder) SetCommits(day string, n int) { r.commits.WithLabelValues(day).Set(float64(n)) }

// ObserveGeneration records how long summary generation took and whether it failed.
func (r *Recorder) ObserveGeneration(d time.Duration, failed bool) {
	r.generation.Set(d.Seconds())
	if failed {
		r.summaryFailed.Set(1)
	} else {
		r.summaryFailed.Set(0)
	}
}

// MarkRun stamps the completion time.
func (r *Recorder) MarkRun(at time.Time) { r.lastRun.Set(float64(at.Unix())) }

// WriteTextfile writes all gauges to path, creating the parent directory.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory %s: %w", dir, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
