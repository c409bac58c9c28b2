package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hookreel/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestEnsureDirectoryCreates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if result := EnsureDirectory("nested", dir); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestCheckTopics(t *testing.T) {
	results := CheckTopics([]string{" "}, 0)
	if len(Failures(results)) != 2 {
		t.Fatalf("expected both checks to fail: %#v", results)
	}
	results = CheckTopics([]string{"golang"}, 5)
	if len(Failures(results)) != 0 {
		t.Fatalf("expected both checks to pass: %#v", results)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.IntermediateDir = filepath.Join(base, "intermediate")
	cfg.Paths.VideoDir = filepath.Join(base, "videos")
	cfg.Scraper.Topics = []string{"go"}
	cfg.Scraper.APIToken = "apify"
	cfg.Descriptions.APIKey = "vision"
	cfg.LLM.APIKey = "llm"
	cfg.Render.Enabled = false
	cfg.Assets.Enabled = false
	return &cfg
}

func TestRunAllRequiresSlackOnlyWhenSelecting(t *testing.T) {
	cfg := testConfig(t)
	failures := Failures(RunAll(context.Background(), cfg, Options{}))
	if len(failures) != 2 {
		t.Fatalf("expected slack token and channel failures, got %#v", failures)
	}
	for _, f := range failures {
		if !strings.HasPrefix(f.Name, "Slack") {
			t.Fatalf("unexpected failure %#v", f)
		}
	}
	if failures := Failures(RunAll(context.Background(), cfg, Options{SkipSelection: true})); len(failures) != 0 {
		t.Fatalf("expected no failures with selection skipped, got %#v", failures)
	}
	cfg.Selection.Provider = config.ProviderFile
	if failures := Failures(RunAll(context.Background(), cfg, Options{})); len(failures) != 0 {
		t.Fatalf("file provider needs no slack credentials, got %#v", failures)
	}
}

func TestRunAllFlagsMissingFFmpeg(t *testing.T) {
	cfg := testConfig(t)
	cfg.Selection.Enabled = false
	cfg.Render.Enabled = true
	cfg.Render.FFmpegBinary = "clearly-not-an-ffmpeg-binary"
	failures := Failures(RunAll(context.Background(), cfg, Options{}))
	if len(failures) != 1 || failures[0].Name != "FFmpeg" {
		t.Fatalf("expected ffmpeg failure, got %#v", failures)
	}
}
