// Package metrics collects per-run Prometheus metrics and writes them to a
// node_exporter textfile when the run ends.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hookreel"

// Registry holds the run metrics. The zero value is not usable; use New.
// A nil *Registry is a valid no-op recorder.
type Registry struct {
	reg *prometheus.Registry

	cacheLookups  *prometheus.CounterVec
	fetchAttempts *prometheus.CounterVec
	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	items         *prometheus.GaugeVec
	videos        *prometheus.CounterVec
	lastRun       prometheus.Gauge
	lastSuccess   prometheus.Gauge

	mu sync.Mutex
}

// New builds a registry with every hookreel metric registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_cache_lookups_total",
			Help:      "Media cache lookups by result.",
		}, []string{"result"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_fetch_attempts_total",
			Help:      "Media download attempts by outcome.",
		}, []string{"outcome"}),
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stage executions by stage and status.",
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of the most recent execution of each stage.",
		}, []string{"stage"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_items",
			Help:      "Item counts of the last run by kind.",
		}, []string{"kind"}),
		videos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_rendered_total",
			Help:      "Render attempts by result.",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed every stage, 0 otherwise.",
		}),
	}
	r.reg.MustRegister(r.cacheLookups, r.fetchAttempts, r.stageRuns, r.stageDuration,
		r.items, r.videos, r.lastRun, r.lastSuccess)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// CacheLookup implements mediacache.Recorder.
func (r *Registry) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// FetchAttempt implements mediacache.Recorder.
func (r *Registry) FetchAttempt(outcome string) {
	if r == nil {
		return
	}
	r.fetchAttempts.WithLabelValues(outcome).Inc()
}

// StageFinished records one stage execution.
func (r *Registry) StageFinished(stage, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageRuns.WithLabelValues(stage, status).Inc()
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// RunCounts carries the summary counts exported as gauges.
type RunCounts struct {
	Items           int
	Media           int
	MediaDownloaded int
	Hooks           int
	Selected        int
	VideosSucceeded int
	VideosFailed    int
}

// RunFinished records the run outcome.
func (r *Registry) RunFinished(at time.Time, success bool, counts RunCounts) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(at.Unix()))
	if success {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
	r.items.WithLabelValues("posts").Set(float64(counts.Items))
	r.items.WithLabelValues("media").Set(float64(counts.Media))
	r.items.WithLabelValues("media_downloaded").Set(float64(counts.MediaDownloaded))
	r.items.WithLabelValues("hooks").Set(float64(counts.Hooks))
	r.items.WithLabelValues("selected_hooks").Set(float64(counts.Selected))
	r.videos.WithLabelValues("success").Add(float64(counts.VideosSucceeded))
	r.videos.WithLabelValues("failure").Add(float64(counts.VideosFailed))
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically so node_exporter never reads a partial file.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("metrics textfile path is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
