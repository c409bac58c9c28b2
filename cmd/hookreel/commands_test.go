package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hookreel/internal/history"
	"hookreel/internal/pipeline"
	"hookreel/internal/workitem"
)

func TestRunDryRunReportsMissingPrerequisites(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--dry-run", "--skip-selection"}, env.configPath)
	if err == nil {
		t.Fatal("expected prerequisite failure without an Apify token")
	}
	requireContains(t, err.Error(), "prerequisite")
	requireContains(t, out, "Apify API token")
	requireContains(t, out, "FAIL")
}

func TestCheckpointCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"checkpoint"}, env.configPath)
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	requireContains(t, out, "No checkpoint at")

	cp := pipeline.Checkpoint{
		Timestamp:         time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		RunID:             "0f8fad5b-d9cb-469f-a165-70867728950e",
		CurrentStage:      "download",
		CompletedStages:   []string{"collect", "describe", "generate-hooks", "select"},
		FailedStages:      []string{"download"},
		IntermediateFiles: []string{"/tmp/intermediate_selected_20250101_120000.json"},
	}
	if err := pipeline.SaveCheckpoint(filepath.Join(env.baseDir, "state", "checkpoint.json"), cp); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	out, _, err = runCLI(t, []string{"checkpoint"}, env.configPath)
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	requireContains(t, out, "generate-hooks")
	requireContains(t, out, "hookreel run --resume-from download --input /tmp/intermediate_selected_20250101_120000.json")
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	store, err := history.Open(filepath.Join(env.baseDir, "state", "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)
	if err := store.StartRun(ctx, history.Run{RunID: "abcdef1234567890", StartedAt: started}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.FinishRun(ctx, history.Run{
		RunID:           "abcdef1234567890",
		FinishedAt:      started.Add(90 * time.Second),
		Status:          history.StatusFailed,
		FailedStage:     "render",
		CompletedStages: []string{"collect"},
		Items:           4,
		VideosSucceeded: 2,
		VideosAttempted: 3,
		Duration:        90 * time.Second,
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	store.Close()

	out, _, err = runCLI(t, []string{"history", "--limit", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "abcdef12")
	requireContains(t, out, "failed (render)")
	requireContains(t, out, "2/3")
}

func TestCacheStatsAndSweepOnEmptyCache(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Valid entries")
	requireContains(t, out, filepath.Join(env.baseDir, "cache"))

	out, _, err = runCLI(t, []string{"cache", "sweep"}, env.configPath)
	if err != nil {
		t.Fatalf("cache sweep: %v", err)
	}
	requireContains(t, out, "No cache files removed")
}

func TestSelectCommandAutoSelectsToExplicitOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	hooks := make([]string, 10)
	for i := range hooks {
		hooks[i] = "hook " + string(rune('a'+i))
	}
	input := filepath.Join(env.baseDir, "with_hooks.json")
	if err := workitem.Save(input, []workitem.Item{{Text: "post", Topic: "golang", Hooks: hooks}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	output := filepath.Join(env.baseDir, "selected.json")

	out, _, err := runCLI(t, []string{"select", input, output, "--auto"}, env.configPath)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	requireContains(t, out, "Wrote "+output)

	items, err := workitem.Load(output)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := strings.Join(items[0].SelectedHooks, ",")
	if got != "hook a,hook e,hook j" || items[0].SelectionMethod != workitem.SelectionAuto {
		t.Fatalf("selected = %q method = %q", got, items[0].SelectionMethod)
	}
}

func TestRenderSummary(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	out := renderSummary(pipeline.Summary{
		RunID:           "run-1",
		StartedAt:       start,
		FinishedAt:      start.Add(95 * time.Second),
		CompletedStages: []string{"collect", "describe"},
		FailedStage:     "generate-hooks",
		Items:           3,
		Media:           4,
		MediaDownloaded: 2,
		VideosSucceeded: 1,
		VideosAttempted: 2,
	})
	requireContains(t, out, "failed at generate-hooks")
	requireContains(t, out, "1m35s")
	requireContains(t, out, "4 (2 downloaded)")
	requireContains(t, out, "1/2")
}
