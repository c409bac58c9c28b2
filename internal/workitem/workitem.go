// Package workitem defines the post records that flow between pipeline
// stages and the JSON artifact files that carry them.
//
// Each stage loads the full collection from the previous artifact, mutates
// its own fields, and writes a new snapshot. Fields are added stage by stage:
// collect fills the source fields, describe fills media descriptions,
// generate-hooks fills Hooks, select fills the selection fields, download
// fills media local paths, and render appends GeneratedVideos.
package workitem

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"hookreel/internal/fileutil"
	"hookreel/internal/services"
)

// Media kinds understood by the describe and render stages.
const (
	KindImage = "image"
	KindVideo = "video"
)

// Selection methods recorded on items.
const (
	SelectionAuto  = "auto"
	SelectionHuman = "human"
)

// ExcludedReasonOffBrand marks items a reviewer skipped or cancelled.
const ExcludedReasonOffBrand = "off_brand_or_cancelled"

// Author describes the account that published a post.
type Author struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Followers int64  `json:"followers"`
	Verified  bool   `json:"verified"`
}

// Media is a single attachment on a post.
type Media struct {
	Type          string  `json:"type"`
	URL           string  `json:"url"`
	Description   string  `json:"description,omitempty"`
	LocalPath     *string `json:"local_path,omitempty"`
	DownloadError string  `json:"download_error,omitempty"`
}

// Local returns the downloaded path or "" when the media was not fetched.
func (m Media) Local() string {
	if m.LocalPath == nil {
		return ""
	}
	return *m.LocalPath
}

// GeneratedVideo records one render attempt for a selected hook. VideoPath
// is null when rendering failed.
type GeneratedVideo struct {
	HookIndex   int       `json:"hook_index"`
	HookText    string    `json:"hook_text"`
	VideoPath   *string   `json:"video_path"`
	Error       string    `json:"error,omitempty"`
	MediaSource string    `json:"media_source"`
	GeneratedAt time.Time `json:"generated_at,omitzero"`
}

// Succeeded reports whether the render produced a video.
func (v GeneratedVideo) Succeeded() bool {
	return v.VideoPath != nil && *v.VideoPath != ""
}

// Item is one collected post and everything later stages attach to it.
type Item struct {
	Text            string  `json:"text"`
	CreatedAt       string  `json:"created_at,omitempty"`
	Likes           int64   `json:"likes"`
	Retweets        int64   `json:"retweets"`
	Replies         int64   `json:"replies"`
	Views           int64   `json:"views"`
	EngagementScore int64   `json:"engagement_score"`
	Topic           string  `json:"topic,omitempty"`
	URL             string  `json:"url,omitempty"`
	User            Author  `json:"user"`
	Media           []Media `json:"media"`

	Hooks []string `json:"hooks,omitzero"`

	SelectedHooks       []string  `json:"selected_hooks,omitzero"`
	SelectedHookIndices []int     `json:"selected_hook_indices,omitzero"`
	SelectionMethod     string    `json:"selection_method,omitempty"`
	SelectionTimestamp  time.Time `json:"selection_timestamp,omitzero"`

	Excluded          *bool     `json:"excluded,omitempty"`
	ExcludedReason    string    `json:"excluded_reason,omitempty"`
	ExcludedTimestamp time.Time `json:"excluded_timestamp,omitzero"`

	GeneratedVideos []GeneratedVideo `json:"generated_videos,omitzero"`
}

// Score computes likes + 2*retweets + replies.
func Score(likes, retweets, replies int64) int64 {
	return likes + 2*retweets + replies
}

// IsExcluded reports whether a reviewer excluded the item.
func (it Item) IsExcluded() bool {
	return it.Excluded != nil && *it.Excluded
}

// MediaDescriptions returns the non-empty media descriptions in order.
func (it Item) MediaDescriptions() []string {
	out := make([]string, 0, len(it.Media))
	for _, m := range it.Media {
		if d := strings.TrimSpace(m.Description); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// MarkExcluded clears the selection and records the exclusion.
func (it *Item) MarkExcluded(reason string, at time.Time) {
	excluded := true
	it.Excluded = &excluded
	it.ExcludedReason = reason
	it.ExcludedTimestamp = at
	it.SelectedHooks = []string{}
	it.SelectedHookIndices = nil
}

// Select records a selection. indices are stored as given.
func (it *Item) Select(hooks []string, indices []int, method string, at time.Time) {
	it.SelectedHooks = append([]string{}, hooks...)
	it.SelectedHookIndices = append([]int{}, indices...)
	it.SelectionMethod = method
	it.SelectionTimestamp = at
	if method == SelectionHuman {
		excluded := false
		it.Excluded = &excluded
	}
}

// Load reads an artifact file. The document must be a JSON array of items.
func Load(path string) ([]Item, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "", "load artifact", "artifact path is empty", nil)
	}
	var items []Item
	if err := fileutil.ReadJSON(path, &items); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "", "load artifact", fmt.Sprintf("artifact %s does not exist", path), err)
		}
		return nil, services.Wrap(services.ErrValidation, "", "load artifact", fmt.Sprintf("artifact %s is not a list of items", path), err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Save writes items atomically as an indented JSON array.
func Save(path string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	if err := fileutil.WriteJSONAtomic(path, items); err != nil {
		return fmt.Errorf("save artifact %s: %w", path, err)
	}
	return nil
}
