// Package download implements the download stage. Every media URL on a
// non-excluded item is fetched through the media cache and the local path,
// or the failure, is recorded on the media entry.
package download

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"hookreel/internal/config"
	"hookreel/internal/logging"
	"hookreel/internal/stage"
)

// Fetcher returns a local file for a media URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Counts summarizes one download pass.
type Counts struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// Stage is the download stage handler.
type Stage struct {
	cfg       *config.Config
	fetcher   Fetcher
	artifacts stage.Artifacts
	logger    *slog.Logger
	last      Counts
}

// New constructs the download stage.
func New(cfg *config.Config, fetcher Fetcher, artifacts stage.Artifacts, logger *slog.Logger) *Stage {
	s := &Stage{cfg: cfg, fetcher: fetcher, artifacts: artifacts}
	s.SetLogger(logger)
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, stage.Download)
}

func (s *Stage) Name() string  { return stage.Download }
func (s *Stage) Enabled() bool { return s.cfg.Download.Enabled }

// LastCounts reports the counts of the most recent Execute.
func (s *Stage) LastCounts() Counts { return s.last }

// Execute implements stage.Handler.
func (s *Stage) Execute(ctx context.Context, input string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	items, err := stage.LoadItems(stage.Download, input)
	if err != nil {
		return "", err
	}

	var counts Counts
	for i := range items {
		if items[i].IsExcluded() {
			counts.Skipped += len(items[i].Media)
			continue
		}
		for j := range items[i].Media {
			media := &items[i].Media[j]
			if strings.TrimSpace(media.URL) == "" {
				counts.Skipped++
				continue
			}
			counts.Attempted++
			path, err := s.fetcher.Fetch(ctx, media.URL)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
					return "", err
				}
				media.LocalPath = nil
				media.DownloadError = err.Error()
				counts.Failed++
				logging.WarnWithContext(logger, "media download failed", "download_failed",
					logging.Int(logging.FieldItemIndex, i),
					logging.String("url", media.URL),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the media host may have removed the file"),
					logging.String(logging.FieldImpact, "item cannot be rendered without local media"),
				)
				continue
			}
			local := path
			media.LocalPath = &local
			media.DownloadError = ""
			counts.Succeeded++
		}
	}
	s.last = counts
	logger.Info("media downloaded",
		logging.Int("attempted", counts.Attempted),
		logging.Int("succeeded", counts.Succeeded),
		logging.Int("failed", counts.Failed),
		logging.Int("skipped", counts.Skipped),
	)

	out, err := s.artifacts.Final()
	if err != nil {
		return "", err
	}
	if err := stage.SaveItems(stage.Download, out, items); err != nil {
		return "", err
	}
	logger.Info("download complete",
		logging.String("output", out),
		logging.String(logging.FieldEventType, "stage_output"),
	)
	return out, nil
}
