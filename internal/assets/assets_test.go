package assets_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hookreel/internal/assets"
	"hookreel/internal/config"
	"hookreel/internal/services"
	"hookreel/internal/stage"
)

func okRunner(context.Context, string, ...string) ([]byte, error) {
	return []byte("ffmpeg version 7.1 Copyright (c) 2000-2024\nbuilt with gcc\n"), nil
}

func missingRunner(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("exit status 127")
}

func setup(t *testing.T, withBoxes bool) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	fonts := filepath.Join(root, "fonts")
	if err := os.MkdirAll(fonts, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fonts, "Arial.ttf"), []byte("font"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Paths.VideoDir = filepath.Join(root, "videos")
	cfg.Paths.AssetsDir = filepath.Join(root, "assets")
	cfg.Assets.Boxes = map[string]string{}
	for _, key := range []string{config.BoxOneLine, config.BoxTwoLine, config.BoxThreeLine} {
		path := filepath.Join(cfg.Paths.AssetsDir, "tweet_boxes", key+".png")
		cfg.Assets.Boxes[key] = path
		if withBoxes {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return &cfg, fonts
}

func TestValidateAssetsPassesThroughInput(t *testing.T) {
	cfg, fonts := setup(t, true)
	s := assets.New(cfg, nil, assets.WithVersionRunner(okRunner), assets.WithFontDirs([]string{fonts}))
	out, err := s.Execute(context.Background(), "/data/final.json")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "/data/final.json" {
		t.Fatalf("input should pass through, got %q", out)
	}
	if _, err := os.Stat(cfg.Paths.VideoDir); err != nil {
		t.Fatalf("video dir should be created: %v", err)
	}
	records := s.Validate(context.Background())
	if !stage.AllReady(records) {
		t.Fatalf("expected all checks ready: %+v", records)
	}
	if records[0].Detail != "ffmpeg version 7.1 Copyright (c) 2000-2024" {
		t.Fatalf("ffmpeg detail = %q", records[0].Detail)
	}
}

func TestValidateAssetsStrictFailsOnMissingBoxes(t *testing.T) {
	cfg, fonts := setup(t, false)
	s := assets.New(cfg, nil, assets.WithVersionRunner(okRunner), assets.WithFontDirs([]string{fonts}))
	_, err := s.Execute(context.Background(), "in.json")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateAssetsLenientContinues(t *testing.T) {
	cfg, _ := setup(t, true)
	cfg.Assets.StrictValidation = false
	s := assets.New(cfg, nil, assets.WithVersionRunner(missingRunner), assets.WithFontDirs([]string{t.TempDir()}))
	out, err := s.Execute(context.Background(), "in.json")
	if err != nil || out != "in.json" {
		t.Fatalf("out = %q err = %v", out, err)
	}
	records := s.Validate(context.Background())
	for _, h := range records {
		switch h.Name {
		case assets.CheckFFmpeg, assets.CheckFonts:
			if h.Ready {
				t.Fatalf("%s should fail: %+v", h.Name, h)
			}
		default:
			if !h.Ready {
				t.Fatalf("%s should pass: %+v", h.Name, h)
			}
		}
	}
}
