package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hookreel/internal/mediacache"
	"hookreel/internal/metrics"
)

var _ mediacache.Recorder = (*metrics.Registry)(nil)

func TestWriteTextfile(t *testing.T) {
	reg := metrics.New()
	reg.CacheLookup(true)
	reg.CacheLookup(false)
	reg.CacheLookup(false)
	reg.FetchAttempt(mediacache.AttemptRetry)
	reg.StageFinished("collect", "completed", 2500*time.Millisecond)
	reg.RunFinished(time.Unix(1700000000, 0), true, metrics.RunCounts{Items: 7, VideosSucceeded: 3, VideosFailed: 1})

	path := filepath.Join(t.TempDir(), "textfile", "hookreel.prom")
	if err := reg.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	for _, want := range []string{
		`hookreel_media_cache_lookups_total{result="miss"} 2`,
		`hookreel_media_cache_lookups_total{result="hit"} 1`,
		`hookreel_media_fetch_attempts_total{outcome="retry"} 1`,
		`hookreel_stage_duration_seconds{stage="collect"} 2.5`,
		`hookreel_run_items{kind="posts"} 7`,
		`hookreel_videos_rendered_total{result="failure"} 1`,
		`hookreel_last_run_success 1`,
		`hookreel_last_run_timestamp_seconds 1.7e+09`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *metrics.Registry
	reg.CacheLookup(true)
	reg.StageFinished("x", "failed", time.Second)
	if err := reg.WriteTextfile("/nonexistent/dir/file.prom"); err != nil {
		t.Fatalf("nil registry should not write: %v", err)
	}
}
