package describe_test

import (
	"context"
	"path/filepath"
	"testing"

	"hookreel/internal/config"
	"hookreel/internal/describe"
	"hookreel/internal/services/vision"
	"hookreel/internal/stage"
	"hookreel/internal/workitem"
)

type fakeDescriber struct {
	seen []string
}

func (f *fakeDescriber) Describe(_ context.Context, mediaURL, kind string) string {
	f.seen = append(f.seen, kind+" "+mediaURL)
	if mediaURL == "" {
		return vision.NoURL
	}
	if kind == workitem.KindVideo {
		return vision.ErrorPrefix + "boom"
	}
	return "a picture of " + mediaURL
}

func TestDescribeFillsEveryMediaEntry(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.IntermediateDir = filepath.Join(dir, "intermediate")
	input := filepath.Join(dir, "scraped.json")
	items := []workitem.Item{
		{Text: "one", Media: []workitem.Media{{Type: workitem.KindImage, URL: "a.jpg"}, {Type: workitem.KindVideo, URL: "b.mp4"}}},
		{Text: "two", Media: []workitem.Media{}},
		{Text: "three", Media: []workitem.Media{{Type: workitem.KindImage}}},
	}
	if err := workitem.Save(input, items); err != nil {
		t.Fatal(err)
	}

	fake := &fakeDescriber{}
	s := describe.New(&cfg, fake, stage.NewArtifacts(&cfg, nil), nil)
	out, err := s.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, err := workitem.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(fake.seen) != 3 {
		t.Fatalf("expected 3 describe calls, got %v", fake.seen)
	}
	if got[0].Media[0].Description != "a picture of a.jpg" {
		t.Fatalf("unexpected description %q", got[0].Media[0].Description)
	}
	if got[0].Media[1].Description != vision.ErrorPrefix+"boom" {
		t.Fatalf("failure should be recorded on the media: %q", got[0].Media[1].Description)
	}
	if got[2].Media[0].Description != vision.NoURL {
		t.Fatalf("unexpected description %q", got[2].Media[0].Description)
	}
}

func TestDescribeRequiresInput(t *testing.T) {
	cfg := config.Default()
	s := describe.New(&cfg, &fakeDescriber{}, stage.NewArtifacts(&cfg, nil), nil)
	if _, err := s.Execute(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestDescribeEnabledFollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Descriptions.Enabled = false
	s := describe.New(&cfg, &fakeDescriber{}, stage.NewArtifacts(&cfg, nil), nil)
	if s.Enabled() {
		t.Fatal("stage should be disabled")
	}
	if s.Name() != stage.Describe {
		t.Fatalf("name = %q", s.Name())
	}
}
