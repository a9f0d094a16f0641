// Package metrics exports per-run counters in the Prometheus text format so
// that a node_exporter textfile collector can pick them up after a cron run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"tender_spider/internal/models"
)

const namespace = "tender_spider"

// Recorder receives the stats of a finished run.
type Recorder interface {
	Record(stats models.RunStats) error
}

// Nop discards stats.
type Nop struct{}

func (Nop) Record(models.RunStats) error { return nil }

// Textfile writes a fresh registry to path on every Record call.
type Textfile struct {
	path string
}

// New returns a textfile recorder, or Nop when path is empty.
func New(path string) Recorder {
	if path == "" {
		return Nop{}
	}
	return &Textfile{path: path}
}

func (t *Textfile) Record(stats models.RunStats) error {
	reg := prometheus.NewRegistry()

	counts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_items",
		Help:      "Items seen at each stage of the last run.",
	}, []string{"stage"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Start time of the last run.",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall time of the last run.",
	})
	for _, c := range []prometheus.Collector{counts, lastRun, duration} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metric: %w", err)
		}
	}

	counts.WithLabelValues("listed").Set(float64(stats.Listed))
	counts.WithLabelValues("detail_checked").Set(float64(stats.DetailChecked))
	counts.WithLabelValues("filtered").Set(float64(stats.Filtered))
	counts.WithLabelValues("new").Set(float64(stats.New))
	counts.WithLabelValues("sent").Set(float64(stats.Sent))
	if !stats.StartedAt.IsZero() {
		lastRun.Set(float64(stats.StartedAt.Unix()))
	}
	duration.Set(stats.Duration.Seconds())

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(t.path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
