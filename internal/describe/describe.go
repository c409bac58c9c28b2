// Package describe implements the describe stage, which attaches a short
// vision-model description to every media entry.
package describe

import (
	"context"
	"log/slog"
	"strings"

	"hookreel/internal/config"
	"hookreel/internal/logging"
	"hookreel/internal/services/vision"
	"hookreel/internal/stage"
)

// Describer produces a description for one media URL. Failures are encoded
// in the returned text.
type Describer interface {
	Describe(ctx context.Context, mediaURL, kind string) string
}

// Stage is the describe stage handler.
type Stage struct {
	cfg       *config.Config
	describer Describer
	artifacts stage.Artifacts
	logger    *slog.Logger
}

// New constructs the describe stage.
func New(cfg *config.Config, describer Describer, artifacts stage.Artifacts, logger *slog.Logger) *Stage {
	s := &Stage{cfg: cfg, describer: describer, artifacts: artifacts}
	s.SetLogger(logger)
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, stage.Describe)
}

func (s *Stage) Name() string  { return stage.Describe }
func (s *Stage) Enabled() bool { return s.cfg.Descriptions.Enabled }

// Execute implements stage.Handler.
func (s *Stage) Execute(ctx context.Context, input string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	items, err := stage.LoadItems(stage.Describe, input)
	if err != nil {
		return "", err
	}

	var total, failed int
	for i := range items {
		for j := range items[i].Media {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			media := &items[i].Media[j]
			media.Description = s.describer.Describe(ctx, media.URL, media.Type)
			total++
			if strings.HasPrefix(media.Description, vision.ErrorPrefix) {
				failed++
			}
		}
		logger.Debug("item described",
			logging.Int(logging.FieldItemIndex, i),
			logging.Int("media", len(items[i].Media)),
		)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if failed > 0 {
		logging.WarnWithContext(logger, "some media descriptions failed", "describe_partial",
			logging.Int("failed", failed),
			logging.Int("total", total),
			logging.String(logging.FieldImpact, "hooks for these items use post text only"),
		)
	}

	out, err := s.artifacts.Intermediate(stage.ArtifactDescribed)
	if err != nil {
		return "", err
	}
	if err := stage.SaveItems(stage.Describe, out, items); err != nil {
		return "", err
	}
	logger.Info("describe complete",
		logging.Int("items", len(items)),
		logging.Int("media_described", total),
		logging.String("output", out),
		logging.String(logging.FieldEventType, "stage_output"),
	)
	return out, nil
}
