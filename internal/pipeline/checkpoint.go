package pipeline

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"hookreel/internal/fileutil"
	"hookreel/internal/services"
)

// Checkpoint is the persisted progress of a run.
type Checkpoint struct {
	Timestamp         time.Time `json:"timestamp"`
	RunID             string    `json:"run_id"`
	CurrentStage      string    `json:"current_stage"`
	CompletedStages   []string  `json:"completed_stages"`
	FailedStages      []string  `json:"failed_stages"`
	IntermediateFiles []string  `json:"intermediate_files"`
}

func newCheckpoint(runID string) Checkpoint {
	return Checkpoint{
		RunID:             runID,
		CompletedStages:   []string{},
		FailedStages:      []string{},
		IntermediateFiles: []string{},
	}
}

// LastArtifact returns the most recent artifact recorded, or "".
func (c Checkpoint) LastArtifact() string {
	if len(c.IntermediateFiles) == 0 {
		return ""
	}
	return c.IntermediateFiles[len(c.IntermediateFiles)-1]
}

func (c *Checkpoint) addArtifact(path string) {
	if path = strings.TrimSpace(path); path == "" || slices.Contains(c.IntermediateFiles, path) {
		return
	}
	c.IntermediateFiles = append(c.IntermediateFiles, path)
}

// LoadCheckpoint reads a checkpoint file.
func LoadCheckpoint(path string) (Checkpoint, error) {
	var cp Checkpoint
	if err := fileutil.ReadJSON(path, &cp); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checkpoint{}, services.Wrap(services.ErrNotFound, "", "load checkpoint", fmt.Sprintf("no checkpoint at %s", path), err)
		}
		return Checkpoint{}, services.Wrap(services.ErrValidation, "", "load checkpoint", path, err)
	}
	return cp, nil
}

// SaveCheckpoint writes cp atomically.
func SaveCheckpoint(path string, cp Checkpoint) error {
	if err := fileutil.WriteJSONAtomic(path, cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
