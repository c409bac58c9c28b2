package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hookreel/internal/config"
	"hookreel/internal/logging"
	"hookreel/internal/services"
	"hookreel/internal/stage"
	"hookreel/internal/textutil"
	"hookreel/internal/workitem"
)

// FailedMessage is recorded when ffmpeg ran but produced no usable video.
const FailedMessage = "Video generation failed"

// Tally counts render attempts of one Execute.
type Tally struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// Stage is the render stage handler.
type Stage struct {
	cfg       *config.Config
	renderer  *Renderer
	dryRun    bool
	artifacts stage.Artifacts
	logger    *slog.Logger
	last      Tally
}

// NewStage constructs the render stage. In dry-run mode commands are
// previewed and the input artifact is returned untouched.
func NewStage(cfg *config.Config, renderer *Renderer, dryRun bool, artifacts stage.Artifacts, logger *slog.Logger) *Stage {
	s := &Stage{cfg: cfg, renderer: renderer, dryRun: dryRun, artifacts: artifacts}
	s.SetLogger(logger)
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, stage.Render)
}

func (s *Stage) Name() string  { return stage.Render }
func (s *Stage) Enabled() bool { return s.cfg.Render.Enabled }

// LastTally reports the counts of the most recent Execute.
func (s *Stage) LastTally() Tally { return s.last }

// VideoFilename names the output for hook j of item i.
func VideoFilename(topic string, item, hook int, stamp string) string {
	return fmt.Sprintf("%s_tweet%d_hook%d_%s.mp4", textutil.FileSegment(topic, "unknown"), item, hook, stamp)
}

// Execute renders one video per selected hook using each item's primary
// media. Items without a downloaded primary media file are skipped.
func (s *Stage) Execute(ctx context.Context, input string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	items, err := stage.LoadItems(stage.Render, input)
	if err != nil {
		return "", err
	}
	total := 0
	for _, item := range items {
		total += len(item.SelectedHooks)
	}
	logger.Info("rendering videos",
		logging.Int("videos", total),
		logging.Int("items", len(items)),
		logging.Bool("dry_run", s.dryRun),
	)

	stamp := s.artifacts.Now().Format(stage.TimestampLayout)
	var tally Tally
	for i := range items {
		item := &items[i]
		if len(item.SelectedHooks) == 0 || item.IsExcluded() {
			continue
		}
		source, ok := primaryMedia(*item)
		if !ok {
			tally.Skipped += len(item.SelectedHooks)
			logging.WarnWithContext(logger, "no local media for item; skipping", "render_skipped",
				logging.Int(logging.FieldItemIndex, i),
				logging.String(logging.FieldErrorHint, "run the download stage or check download_error on the media"),
				logging.String(logging.FieldImpact, "no videos for this item"),
			)
			continue
		}

		videos := make([]workitem.GeneratedVideo, 0, len(item.SelectedHooks))
		for j, hook := range item.SelectedHooks {
			output := filepath.Join(s.cfg.Paths.VideoDir, VideoFilename(item.Topic, i, j, stamp))
			tally.Attempted++
			logger.Info("rendering video",
				logging.Int(logging.FieldItemIndex, i),
				logging.Int("hook_index", j),
				logging.String("progress", fmt.Sprintf("%d/%d", tally.Attempted, total)),
				logging.String("output", output),
			)
			video := workitem.GeneratedVideo{HookIndex: j, HookText: hook, MediaSource: source}
			result, err := s.renderer.Render(ctx, Job{MediaPath: source, Caption: hook, OutputPath: output}, s.dryRun)
			switch {
			case err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)):
				return "", err
			case errors.Is(err, ErrEngineNotFound):
				return "", services.Wrap(services.ErrConfiguration, stage.Render, "render", "ffmpeg not found", err)
			case err != nil:
				video.Error = err.Error()
			case !result.Success:
				video.Error = FailedMessage
			default:
				path := output
				video.VideoPath = &path
				video.GeneratedAt = s.artifacts.Now()
			}
			if video.Succeeded() {
				tally.Succeeded++
			} else {
				tally.Failed++
				logging.ErrorWithContext(logger, "video render failed", "render_failed",
					logging.Int(logging.FieldItemIndex, i),
					logging.Int("hook_index", j),
					logging.String("error", video.Error),
					logging.String("diagnostic", result.Diagnostic),
					logging.String(logging.FieldErrorHint, "inspect the ffmpeg diagnostic"),
				)
			}
			videos = append(videos, video)
		}
		item.GeneratedVideos = videos
	}
	s.last = tally
	logger.Info("videos rendered",
		logging.Int("succeeded", tally.Succeeded),
		logging.Int("failed", tally.Failed),
		logging.Int("skipped", tally.Skipped),
	)
	if s.dryRun {
		return input, nil
	}

	out, err := s.artifacts.Final()
	if err != nil {
		return "", err
	}
	if err := stage.SaveItems(stage.Render, out, items); err != nil {
		return "", err
	}
	logger.Info("render complete",
		logging.String("output", out),
		logging.String(logging.FieldEventType, "stage_output"),
	)
	return out, nil
}

func primaryMedia(item workitem.Item) (string, bool) {
	if len(item.Media) == 0 {
		return "", false
	}
	path := item.Media[0].Local()
	if path == "" {
		return "", false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}
