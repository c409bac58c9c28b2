package stage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"hookreel/internal/config"
	"hookreel/internal/services"
	"hookreel/internal/workitem"
)

func fixedNow() time.Time { return time.Date(2025, 11, 9, 16, 47, 7, 0, time.UTC) }

func TestArtifactsIntermediateNaming(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.IntermediateDir = filepath.Join(base, "intermediate")
	cfg.Paths.WorkDir = base
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Output.FilenamePrefix = "reel"

	a := NewArtifacts(&cfg, fixedNow)
	got, err := a.Intermediate(ArtifactScraped)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(base, "intermediate", "intermediate_scraped_20251109_164707.json"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	cfg.Output.SaveIntermediateFiles = false
	got, _ = a.Intermediate(ArtifactSelected)
	if want := filepath.Join(base, "temp_selected_20251109_164707.json"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	got, _ = a.Final()
	if want := filepath.Join(base, "out", "reel_20251109_164707.json"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	override := a.WithOverride("/tmp/explicit.json")
	if got, _ := override.Final(); got != "/tmp/explicit.json" {
		t.Fatalf("override ignored: %s", got)
	}
}

func TestLoadItemsRequiresPath(t *testing.T) {
	if _, err := LoadItems(Download, " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	path := filepath.Join(t.TempDir(), "items.json")
	if err := SaveItems(Download, path, []workitem.Item{{Text: "x"}}); err != nil {
		t.Fatal(err)
	}
	items, err := LoadItems(Download, path)
	if err != nil || len(items) != 1 || items[0].Text != "x" {
		t.Fatalf("items = %#v err = %v", items, err)
	}
}

func TestIndexFollowsOrder(t *testing.T) {
	if Index(Collect) != 0 || Index(Render) != 6 || Index(Download) != 4 || Index("nope") != -1 {
		t.Fatal("unexpected stage order")
	}
}
