package selection

import (
	"context"
	"log/slog"

	"hookreel/internal/config"
	"hookreel/internal/logging"
	"hookreel/internal/stage"
	"hookreel/internal/workitem"
)

// Stage is the select stage handler. It always runs: when human review is
// disabled, skipped, or unavailable it falls back to auto-selection.
type Stage struct {
	cfg       *config.Config
	selector  *Selector
	skip      bool
	artifacts stage.Artifacts
	logger    *slog.Logger
}

// NewStage constructs the select stage. A nil selector means no review
// provider is configured.
func NewStage(cfg *config.Config, selector *Selector, skip bool, artifacts stage.Artifacts, logger *slog.Logger) *Stage {
	s := &Stage{cfg: cfg, selector: selector, skip: skip, artifacts: artifacts}
	s.SetLogger(logger)
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, stage.Select)
}

func (s *Stage) Name() string  { return stage.Select }
func (s *Stage) Enabled() bool { return true }

// Execute implements stage.Handler.
func (s *Stage) Execute(ctx context.Context, input string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	items, err := stage.LoadItems(stage.Select, input)
	if err != nil {
		return "", err
	}
	now := s.artifacts.Now()

	switch reason := s.autoReason(); {
	case reason != "":
		s.autoSelect(logger, items, reason)
	default:
		results, err := s.selector.Select(ctx, items)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", ctx.Err()
		case err != nil:
			logging.WarnWithContext(logger, "human selection failed; using auto-select", "selection_fallback",
				logging.String("provider", s.selector.Provider()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the selection provider credentials and channel"),
				logging.String(logging.FieldImpact, "hooks chosen by fixed indices"),
			)
			s.autoSelect(logger, items, "provider_error")
		case len(results) == 0:
			s.autoSelect(logger, items, "no_replies")
		default:
			Apply(items, results, now)
			selected, excluded := countResults(results)
			logger.Info("human selections applied",
				logging.Args(append(logging.DecisionAttrs("hook_selection", "human", "reviewer replies received"),
					logging.Int("selected", selected),
					logging.Int("excluded", excluded),
					logging.Int("unanswered", pending(items, results)),
				)...)...,
			)
		}
	}

	out, err := s.artifacts.Intermediate(stage.ArtifactSelected)
	if err != nil {
		return "", err
	}
	if err := stage.SaveItems(stage.Select, out, items); err != nil {
		return "", err
	}
	logger.Info("select complete",
		logging.String("output", out),
		logging.String(logging.FieldEventType, "stage_output"),
	)
	return out, nil
}

func (s *Stage) autoReason() string {
	switch {
	case s.skip:
		return "selection_skipped"
	case !s.cfg.Selection.Enabled:
		return "selection_disabled"
	case s.selector == nil:
		return "no_provider"
	}
	return ""
}

func (s *Stage) autoSelect(logger *slog.Logger, items []workitem.Item, reason string) {
	AutoSelect(items, s.cfg.Selection.AutoSelectIndices, s.artifacts.Now())
	logger.Info("auto-selected hooks",
		logging.Args(append(logging.DecisionAttrs("hook_selection", "auto", reason),
			logging.Any("indices", s.cfg.Selection.AutoSelectIndices),
			logging.Int("items", len(items)),
		)...)...,
	)
}

func countResults(results map[int]Result) (selected, excluded int) {
	for _, r := range results {
		if r.Excluded {
			excluded++
		} else {
			selected++
		}
	}
	return selected, excluded
}

// pending counts reviewable items that received no decision. It runs after
// Apply, so decided items are either excluded or carry a selection.
func pending(items []workitem.Item, results map[int]Result) int {
	n := 0
	for _, idx := range Reviewable(items) {
		if _, ok := results[idx]; !ok {
			n++
		}
	}
	return n
}
