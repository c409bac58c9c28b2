// Package collect implements the collect stage: it runs the scraper for each
// configured topic, applies engagement thresholds, and writes the first
// artifact of a run.
package collect

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"hookreel/internal/config"
	"hookreel/internal/logging"
	"hookreel/internal/stage"
	"hookreel/internal/workitem"
)

// Scraper searches for posts on one topic.
type Scraper interface {
	Search(ctx context.Context, topic string, maxItems int, mode string) ([]workitem.Item, error)
}

// Stage is the collect stage handler.
type Stage struct {
	cfg       *config.Config
	scraper   Scraper
	artifacts stage.Artifacts
	logger    *slog.Logger
}

// New constructs the collect stage.
func New(cfg *config.Config, scraper Scraper, artifacts stage.Artifacts, logger *slog.Logger) *Stage {
	s := &Stage{cfg: cfg, scraper: scraper, artifacts: artifacts}
	s.SetLogger(logger)
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, stage.Collect)
}

// Name implements stage.Handler.
func (s *Stage) Name() string { return stage.Collect }

// Enabled implements stage.Handler. Collect always runs.
func (s *Stage) Enabled() bool { return true }

// Execute implements stage.Handler. The input path is ignored.
func (s *Stage) Execute(ctx context.Context, _ string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	sc := s.cfg.Scraper
	logger.Info("collecting posts",
		logging.String("topics", strings.Join(sc.Topics, ", ")),
		logging.Int("max_items_per_topic", sc.MaxItemsPerTopic),
		logging.String("search_type", sc.SearchType),
	)

	var all []workitem.Item
	before := 0
	for _, topic := range sc.Topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		found, err := s.scraper.Search(ctx, topic, sc.MaxItemsPerTopic, sc.SearchType)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
				return "", err
			}
			logging.WarnWithContext(logger, "topic search failed; continuing without it", "collect_topic_failed",
				logging.String(logging.FieldTopic, topic),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check scraper.api_token and the actor run log"),
				logging.String(logging.FieldImpact, "no posts collected for this topic"),
			)
			found = nil
		}
		before += len(found)
		kept := Filter(found, sc.MinEngagement)
		Rank(kept)
		for i := range kept {
			kept[i].Topic = topic
		}
		logger.Info("topic collected",
			logging.String(logging.FieldTopic, topic),
			logging.Int("found", len(found)),
			logging.Int("kept", len(kept)),
		)
		all = append(all, kept...)
	}
	if all == nil {
		all = []workitem.Item{}
	}
	logger.Info("engagement filter applied",
		logging.Int("before", before),
		logging.Int("after", len(all)),
		logging.Int("removed", before-len(all)),
	)

	out, err := s.artifacts.Intermediate(stage.ArtifactScraped)
	if err != nil {
		return "", err
	}
	if err := stage.SaveItems(stage.Collect, out, all); err != nil {
		return "", err
	}
	logger.Info("collect complete",
		logging.Int("items", len(all)),
		logging.String("output", out),
		logging.String(logging.FieldEventType, "stage_output"),
	)
	return out, nil
}

// Filter keeps items meeting every threshold. The engagement score is
// recomputed so hand-edited artifacts are judged consistently.
func Filter(items []workitem.Item, min config.MinEngagement) []workitem.Item {
	out := make([]workitem.Item, 0, len(items))
	for _, item := range items {
		item.EngagementScore = workitem.Score(item.Likes, item.Retweets, item.Replies)
		if item.Likes < int64(min.Likes) ||
			item.Retweets < int64(min.Retweets) ||
			item.Replies < int64(min.Replies) ||
			item.EngagementScore < int64(min.TotalScore) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Rank orders items by engagement score, highest first. Ties keep their
// scraper order.
func Rank(items []workitem.Item) {
	slices.SortStableFunc(items, func(a, b workitem.Item) int {
		return cmp.Compare(b.EngagementScore, a.EngagementScore)
	})
}
