// Package hooks implements the generate-hooks stage.
package hooks

import (
	"context"
	"errors"
	"log/slog"

	"hookreel/internal/config"
	"hookreel/internal/logging"
	"hookreel/internal/stage"
)

// Generator produces caption hooks for a post.
type Generator interface {
	Generate(ctx context.Context, text string, descriptions []string) ([]string, error)
}

// Stage is the generate-hooks stage handler.
type Stage struct {
	cfg       *config.Config
	generator Generator
	artifacts stage.Artifacts
	logger    *slog.Logger
}

// New constructs the generate-hooks stage.
func New(cfg *config.Config, generator Generator, artifacts stage.Artifacts, logger *slog.Logger) *Stage {
	s := &Stage{cfg: cfg, generator: generator, artifacts: artifacts}
	s.SetLogger(logger)
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, stage.GenerateHooks)
}

func (s *Stage) Name() string  { return stage.GenerateHooks }
func (s *Stage) Enabled() bool { return s.cfg.Hooks.Enabled }

// Execute generates hooks for every item. An item whose generation fails
// has its hooks cleared and the stage moves on.
func (s *Stage) Execute(ctx context.Context, input string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	items, err := stage.LoadItems(stage.GenerateHooks, input)
	if err != nil {
		return "", err
	}

	limit := s.cfg.Hooks.HooksPerItem
	processed := 0
	for i := range items {
		hooks, err := s.generator.Generate(ctx, items[i].Text, items[i].MediaDescriptions())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
				return "", err
			}
			logging.WarnWithContext(logger, "hook generation failed", "hooks_failed",
				logging.Int(logging.FieldItemIndex, i),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check llm.api_key and llm.model"),
				logging.String(logging.FieldImpact, "item has no hooks and is skipped by selection"),
			)
			items[i].Hooks = []string{}
			continue
		}
		if limit > 0 && len(hooks) > limit {
			hooks = hooks[:limit]
		}
		items[i].Hooks = hooks
		processed++
		logger.Debug("hooks generated",
			logging.Int(logging.FieldItemIndex, i),
			logging.Int("hooks", len(hooks)),
		)
	}
	logger.Info("hooks generated",
		logging.Int("processed", processed),
		logging.Int("total", len(items)),
	)

	out, err := s.artifacts.Intermediate(stage.ArtifactWithHooks)
	if err != nil {
		return "", err
	}
	if err := stage.SaveItems(stage.GenerateHooks, out, items); err != nil {
		return "", err
	}
	logger.Info("generate-hooks complete",
		logging.String("output", out),
		logging.String(logging.FieldEventType, "stage_output"),
	)
	return out, nil
}
