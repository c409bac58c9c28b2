package workitem_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hookreel/internal/services"
	"hookreel/internal/workitem"
)

func TestSaveLoadPreservesSelectionFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	local := "/cache/abc.jpg"
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	selected := workitem.Item{Text: "one", Topic: "golang", Hooks: []string{"a", "b", "c"}}
	selected.Select([]string{"a", "c"}, []int{1, 3}, workitem.SelectionHuman, at)
	selected.Media = []workitem.Media{{Type: workitem.KindImage, URL: "https://x/y.jpg", LocalPath: &local}}

	excluded := workitem.Item{Text: "two", Hooks: []string{"a"}}
	excluded.MarkExcluded(workitem.ExcludedReasonOffBrand, at)

	if err := workitem.Save(path, []workitem.Item{selected, excluded}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"selected_hooks": []`) {
		t.Fatalf("excluded item should serialize an empty selected_hooks list:\n%s", raw)
	}
	if !strings.Contains(string(raw), `"excluded": false`) {
		t.Fatalf("human selection should record excluded=false:\n%s", raw)
	}

	items, err := workitem.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].IsExcluded() || items[0].SelectionMethod != workitem.SelectionHuman {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if got := items[0].SelectedHookIndices; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("unexpected indices: %v", got)
	}
	if items[0].Media[0].Local() != local {
		t.Fatalf("unexpected local path: %q", items[0].Media[0].Local())
	}
	if !items[1].IsExcluded() || items[1].ExcludedReason != workitem.ExcludedReasonOffBrand {
		t.Fatalf("unexpected excluded item: %+v", items[1])
	}
	if !items[1].ExcludedTimestamp.Equal(at) {
		t.Fatalf("unexpected excluded timestamp: %v", items[1].ExcludedTimestamp)
	}
}

func TestGeneratedVideoFailureSerializesNullPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	item := workitem.Item{Text: "post", GeneratedVideos: []workitem.GeneratedVideo{{HookIndex: 0, HookText: "hook", Error: "render failed", MediaSource: "/m.jpg"}}}
	if err := workitem.Save(path, []workitem.Item{item}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"video_path": null`) {
		t.Fatalf("expected null video path:\n%s", raw)
	}
	items, err := workitem.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if items[0].GeneratedVideos[0].Succeeded() {
		t.Fatal("failed render should not report success")
	}
}

func TestLoadRejectsNonListAndMissing(t *testing.T) {
	dir := t.TempDir()
	objectPath := filepath.Join(dir, "object.json")
	if err := os.WriteFile(objectPath, []byte(`{"golang": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := workitem.Load(objectPath); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := workitem.Load(filepath.Join(dir, "missing.json")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestScoreAndDescriptions(t *testing.T) {
	if got := workitem.Score(100, 10, 5); got != 125 {
		t.Fatalf("Score = %d, want 125", got)
	}
	item := workitem.Item{Media: []workitem.Media{{Description: " a cat "}, {}, {Description: "a dog"}}}
	got := item.MediaDescriptions()
	if len(got) != 2 || got[0] != "a cat" || got[1] != "a dog" {
		t.Fatalf("unexpected descriptions: %v", got)
	}
}
