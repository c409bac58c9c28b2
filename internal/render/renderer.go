package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Renderer combines Build and Supervisor for one job at a time.
type Renderer struct {
	settings   Settings
	supervisor *Supervisor
}

// NewRenderer returns a renderer using settings and supervisor.
func NewRenderer(settings Settings, supervisor *Supervisor) *Renderer {
	return &Renderer{settings: settings, supervisor: supervisor}
}

// Render builds the command for job, creates the output directory, and runs
// ffmpeg. Build errors are returned as errors; ffmpeg failures come back in
// Result.
func (r *Renderer) Render(ctx context.Context, job Job, dryRun bool) (Result, error) {
	args, err := Build(job, r.settings)
	if err != nil {
		return Result{}, err
	}
	if !dryRun {
		if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
			return Result{}, fmt.Errorf("create output directory: %w", err)
		}
	}
	return r.supervisor.Run(ctx, args, dryRun)
}
