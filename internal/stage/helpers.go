// Package stage defines the pipeline stage contract, stage names, and the
// artifact naming shared by every stage.
package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hookreel/internal/config"
	"hookreel/internal/services"
	"hookreel/internal/workitem"
)

// TimestampLayout formats artifact timestamps (YYYYMMDD_HHMMSS).
const TimestampLayout = "20060102_150405"

// Artifact names for intermediate stage outputs.
const (
	ArtifactScraped   = "scraped"
	ArtifactDescribed = "described"
	ArtifactWithHooks = "with_hooks"
	ArtifactSelected  = "selected"
)

// Artifacts decides where stage outputs are written.
type Artifacts struct {
	cfg      *config.Config
	now      func() time.Time
	override string
}

// NewArtifacts builds a namer. A nil now uses time.Now.
func NewArtifacts(cfg *config.Config, now func() time.Time) Artifacts {
	if now == nil {
		now = time.Now
	}
	return Artifacts{cfg: cfg, now: now}
}

// WithOverride returns a namer that always answers path. Standalone stage
// commands use it for an explicit output argument.
func (a Artifacts) WithOverride(path string) Artifacts {
	a.override = strings.TrimSpace(path)
	return a
}

// Now returns the namer's clock reading.
func (a Artifacts) Now() time.Time {
	return a.now()
}

// Intermediate returns the output path for an intermediate artifact. With
// intermediate saving disabled the file is a temp_ file in the work dir.
func (a Artifacts) Intermediate(name string) (string, error) {
	if a.override != "" {
		return a.override, nil
	}
	ts := a.now().Format(TimestampLayout)
	if a.cfg.Output.SaveIntermediateFiles {
		if err := os.MkdirAll(a.cfg.Paths.IntermediateDir, 0o755); err != nil {
			return "", fmt.Errorf("create intermediate directory: %w", err)
		}
		return filepath.Join(a.cfg.Paths.IntermediateDir, fmt.Sprintf("intermediate_%s_%s.json", name, ts)), nil
	}
	return filepath.Join(a.cfg.Paths.WorkDir, fmt.Sprintf("temp_%s_%s.json", name, ts)), nil
}

// Final returns the path of the run's final output document.
func (a Artifacts) Final() (string, error) {
	if a.override != "" {
		return a.override, nil
	}
	if err := os.MkdirAll(a.cfg.Paths.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	prefix := strings.TrimSpace(a.cfg.Output.FilenamePrefix)
	if prefix == "" {
		prefix = "hookreel_output"
	}
	return filepath.Join(a.cfg.Paths.OutputDir, fmt.Sprintf("%s_%s.json", prefix, a.now().Format(TimestampLayout))), nil
}

// LoadItems reads the input artifact for a stage. A missing or empty path
// is a validation failure tagged with the stage name.
func LoadItems(stageName, path string) ([]workitem.Item, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "load input", "no input artifact; pass --input when resuming", nil)
	}
	items, err := workitem.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stageName, err)
	}
	return items, nil
}

// SaveItems writes a stage output artifact.
func SaveItems(stageName, path string, items []workitem.Item) error {
	if err := workitem.Save(path, items); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "save output", "", err)
	}
	return nil
}
