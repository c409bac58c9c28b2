// Package assets implements the validate-assets stage: it confirms that
// ffmpeg runs, a caption font is installed, the output directories exist,
// and every overlay box PNG is present before anything is rendered.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"hookreel/internal/config"
	"hookreel/internal/deps"
	"hookreel/internal/logging"
	"hookreel/internal/render"
	"hookreel/internal/services"
	"hookreel/internal/stage"
)

// Check names reported by Validate.
const (
	CheckFFmpeg      = "ffmpeg"
	CheckFonts       = "fonts"
	CheckDirectories = "directories"
	CheckBoxes       = "overlay_boxes"
)

// Option customizes the stage.
type Option func(*Stage)

// WithVersionRunner injects the ffmpeg version check.
func WithVersionRunner(run deps.VersionRunner) Option {
	return func(s *Stage) { s.runVersion = run }
}

// WithFontDirs overrides the font search directories.
func WithFontDirs(dirs []string) Option {
	return func(s *Stage) { s.fontDirs = dirs }
}

// Stage is the validate-assets stage handler.
type Stage struct {
	cfg        *config.Config
	runVersion deps.VersionRunner
	fontDirs   []string
	logger     *slog.Logger
}

// New constructs the validate-assets stage.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	s.SetLogger(logger)
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, stage.ValidateAssets)
}

func (s *Stage) Name() string  { return stage.ValidateAssets }
func (s *Stage) Enabled() bool { return s.cfg.Assets.Enabled }

// Validate runs every asset check and returns one record per check.
func (s *Stage) Validate(ctx context.Context) []stage.Health {
	return []stage.Health{
		s.checkFFmpeg(ctx),
		s.checkFonts(),
		s.checkDirectories(),
		s.checkBoxes(),
	}
}

// Execute validates assets and passes the input artifact through unchanged.
// With strict validation a failed check fails the stage.
func (s *Stage) Execute(ctx context.Context, input string) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	records := s.Validate(ctx)
	var failed []string
	for _, h := range records {
		if h.Ready {
			logger.Info("asset check passed",
				logging.String("check", h.Name),
				logging.String("detail", h.Detail),
			)
			continue
		}
		failed = append(failed, h.Name)
		logging.WarnWithContext(logger, "asset check failed", "asset_check_failed",
			logging.String("check", h.Name),
			logging.String("detail", h.Detail),
			logging.String(logging.FieldErrorHint, hintFor(h.Name)),
			logging.String(logging.FieldImpact, "video rendering will fail"),
		)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(failed) > 0 {
		if s.cfg.Assets.StrictValidation {
			return "", services.Wrap(services.ErrConfiguration, stage.ValidateAssets, "validate",
				fmt.Sprintf("asset checks failed: %s", strings.Join(failed, ", ")), nil)
		}
		logging.WarnWithContext(logger, "continuing despite failed asset checks", "asset_validation_lenient",
			logging.Int("failed", len(failed)),
			logging.String(logging.FieldErrorHint, "set assets.strict_validation = true to stop on failures"),
		)
	}
	logger.Info("validate-assets complete",
		logging.Int("checks", len(records)),
		logging.Int("failed", len(failed)),
		logging.String(logging.FieldEventType, "stage_output"),
	)
	return input, nil
}

func (s *Stage) checkFFmpeg(ctx context.Context) stage.Health {
	status := deps.CheckFFmpeg(ctx, s.cfg.FFmpegBinary(), s.runVersion)
	if !status.Available {
		return stage.Unhealthy(CheckFFmpeg, status.Detail)
	}
	return stage.Healthy(CheckFFmpeg, status.Detail)
}

func (s *Stage) checkFonts() stage.Health {
	r := s.cfg.Render
	font, ok := render.FindFont(r.FontFamily, r.FontFallbacks, s.fontDirs)
	if !ok {
		names := append([]string{r.FontFamily}, r.FontFallbacks...)
		return stage.Unhealthy(CheckFonts, fmt.Sprintf("none of %s installed", strings.Join(names, ", ")))
	}
	return stage.Healthy(CheckFonts, font)
}

func (s *Stage) checkDirectories() stage.Health {
	dirs := []string{s.cfg.Paths.VideoDir, s.cfg.Paths.AssetsDir}
	for _, box := range s.cfg.Assets.Boxes {
		if box = strings.TrimSpace(box); box != "" {
			dirs = append(dirs, filepath.Dir(box))
		}
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stage.Unhealthy(CheckDirectories, fmt.Sprintf("create %s: %v", dir, err))
		}
	}
	return stage.Healthy(CheckDirectories, fmt.Sprintf("%d directories ready", len(dirs)))
}

func (s *Stage) checkBoxes() stage.Health {
	var missing []string
	for _, key := range []string{config.BoxOneLine, config.BoxTwoLine, config.BoxThreeLine} {
		path := strings.TrimSpace(s.cfg.Assets.Boxes[key])
		switch {
		case path == "":
			missing = append(missing, key+" (not configured)")
		case !strings.EqualFold(filepath.Ext(path), ".png"):
			missing = append(missing, key+" (not a .png)")
		default:
			if info, err := os.Stat(path); err != nil || info.IsDir() {
				missing = append(missing, path)
			}
		}
	}
	if len(missing) > 0 {
		return stage.Unhealthy(CheckBoxes, "missing: "+strings.Join(missing, ", "))
	}
	return stage.Healthy(CheckBoxes, "all overlay boxes present")
}

func hintFor(check string) string {
	switch check {
	case CheckFFmpeg:
		return "install ffmpeg or set render.ffmpeg_binary"
	case CheckFonts:
		return "install the configured font or adjust render.font_family"
	case CheckBoxes:
		return "place the overlay PNGs under paths.assets_dir/tweet_boxes"
	default:
		return "check directory permissions"
	}
}
