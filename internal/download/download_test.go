package download_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hookreel/internal/config"
	"hookreel/internal/download"
	"hookreel/internal/stage"
	"hookreel/internal/workitem"
)

type fakeFetcher struct {
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	f.calls = append(f.calls, rawURL)
	if strings.Contains(rawURL, "gone") {
		return "", errors.New("download " + rawURL + ": http 404")
	}
	return "/cache/" + filepath.Base(rawURL), nil
}

func TestDownloadRecordsPathsAndErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	input := filepath.Join(dir, "selected.json")
	excluded := workitem.Item{Text: "skip me", Media: []workitem.Media{{Type: workitem.KindImage, URL: "https://x/excluded.jpg"}}}
	excluded.MarkExcluded(workitem.ExcludedReasonOffBrand, time.Unix(0, 0))
	items := []workitem.Item{
		{Text: "a", Media: []workitem.Media{{Type: workitem.KindImage, URL: "https://x/a.jpg"}, {Type: workitem.KindVideo, URL: "https://x/gone.mp4"}}},
		excluded,
		{Text: "c", Media: []workitem.Media{{Type: workitem.KindImage}}},
	}
	if err := workitem.Save(input, items); err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{}
	now := func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }
	s := download.New(&cfg, fetcher, stage.NewArtifacts(&cfg, now), nil)
	out, err := s.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if filepath.Base(out) != "hookreel_output_20250203_040506.json" {
		t.Fatalf("unexpected output %s", out)
	}
	got, err := workitem.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Media[0].Local() != "/cache/a.jpg" || got[0].Media[0].DownloadError != "" {
		t.Fatalf("media 0 = %#v", got[0].Media[0])
	}
	if got[0].Media[1].LocalPath != nil || !strings.Contains(got[0].Media[1].DownloadError, "404") {
		t.Fatalf("media 1 = %#v", got[0].Media[1])
	}
	if got[1].Media[0].LocalPath != nil {
		t.Fatal("excluded item should not be downloaded")
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("calls = %v", fetcher.calls)
	}
	counts := s.LastCounts()
	if counts.Attempted != 2 || counts.Succeeded != 1 || counts.Failed != 1 || counts.Skipped != 2 {
		t.Fatalf("counts = %+v", counts)
	}
}
