package pipeline

import (
	"os"
	"time"

	"hookreel/internal/workitem"
)

// Summary reports the outcome of a run.
type Summary struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	CompletedStages []string
	FailedStage     string
	Interrupted     bool
	FinalOutput     string

	Items           int
	Media           int
	MediaDownloaded int
	Hooks           int
	SelectedHooks   int
	VideosSucceeded int
	VideosAttempted int
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Succeeded reports whether every scheduled stage completed.
func (s Summary) Succeeded() bool {
	return s.FailedStage == "" && !s.Interrupted
}

// Tally fills the item counts from the final artifact. A video counts as
// succeeded only while its file still exists.
func (s *Summary) Tally(items []workitem.Item) {
	s.Items = len(items)
	s.Media, s.MediaDownloaded, s.Hooks, s.SelectedHooks = 0, 0, 0, 0
	s.VideosSucceeded, s.VideosAttempted = 0, 0
	for _, item := range items {
		s.Media += len(item.Media)
		for _, m := range item.Media {
			if m.Local() != "" {
				s.MediaDownloaded++
			}
		}
		s.Hooks += len(item.Hooks)
		s.SelectedHooks += len(item.SelectedHooks)
		s.VideosAttempted += len(item.GeneratedVideos)
		for _, v := range item.GeneratedVideos {
			if !v.Succeeded() {
				continue
			}
			if _, err := os.Stat(*v.VideoPath); err == nil {
				s.VideosSucceeded++
			}
		}
	}
}
