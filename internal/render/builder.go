package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hookreel/internal/config"
	"hookreel/internal/services"
)

// Media kinds accepted as the primary input.
const (
	KindImage = "image"
	KindVideo = "video"
)

// ImageDurationSeconds is how long a still image is shown.
const ImageDurationSeconds = 10

const (
	captionFontSize    = 72
	captionColor       = "black"
	captionLineSpacing = 10
	maxCaptionLines    = 3
)

var (
	imageExtensions = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {}, ".m4v": {}}
)

// ErrUnsupportedMedia reports a media file whose extension is neither a
// known image nor video format.
var ErrUnsupportedMedia = errors.New("unsupported media format")

// Job is a single caption-on-media render.
type Job struct {
	MediaPath  string
	Caption    string
	OutputPath string
	// Kind is detected from MediaPath when empty.
	Kind string
}

// Settings holds the encode and layout parameters.
type Settings struct {
	Width            int
	Height           int
	Framerate        int
	Codec            string
	Preset           string
	CRF              int
	Quality          int
	Bitrate          string
	AudioBitrate     string
	BlurSigma        float64
	MaxWidthPercent  float64
	MaxHeightPercent float64
	TextY            int
	FontFamily       string
	FontFallbacks    []string
	// FontDirs overrides the platform font search directories.
	FontDirs []string
	// Boxes maps overlay keys (1_liner, 2_liner, 3_liner) to PNG paths.
	Boxes map[string]string
}

// SettingsFromConfig extracts render settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	r := cfg.Render
	return Settings{
		Width:            r.Width,
		Height:           r.Height,
		Framerate:        r.Framerate,
		Codec:            r.Codec,
		Preset:           r.Preset,
		CRF:              r.CRF,
		Quality:          r.Quality,
		Bitrate:          r.Bitrate,
		AudioBitrate:     r.AudioBitrate,
		BlurSigma:        r.BlurSigma,
		MaxWidthPercent:  r.MaxWidthPercent,
		MaxHeightPercent: r.MaxHeightPercent,
		TextY:            r.TextY,
		FontFamily:       r.FontFamily,
		FontFallbacks:    append([]string(nil), r.FontFallbacks...),
		Boxes:            cfg.Assets.Boxes,
	}
}

// DetectKind classifies a media path by extension.
func DetectKind(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageExtensions[ext]; ok {
		return KindImage, nil
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, ext)
}

// LineCount returns the number of caption lines, capped at three.
func LineCount(caption string) int {
	return min(strings.Count(caption, "\n")+1, maxCaptionLines)
}

// BoxKey returns the overlay key for a caption.
func BoxKey(caption string) string {
	return fmt.Sprintf("%d_liner", LineCount(caption))
}

// EscapeText escapes a caption for the drawtext filter. Backslashes are
// escaped before quotes and colons so earlier escapes are not doubled.
func EscapeText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `'`, `\'`)
	text = strings.ReplaceAll(text, `:`, `\:`)
	return text
}

// IsHardwareCodec reports whether codec is a VideoToolbox encoder.
func IsHardwareCodec(codec string) bool {
	return strings.Contains(strings.ToLower(codec), "videotoolbox")
}

// SelectBox resolves the overlay PNG for the caption and checks it exists.
func SelectBox(caption string, boxes map[string]string) (string, error) {
	key := BoxKey(caption)
	path := strings.TrimSpace(boxes[key])
	if path == "" {
		return "", services.Wrap(services.ErrConfiguration, "render", "select box", fmt.Sprintf("no overlay box configured for %s", key), nil)
	}
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrNotFound, "render", "select box", fmt.Sprintf("overlay box %s", path), err)
	}
	return path, nil
}

// Build returns the ffmpeg arguments (without the binary) for job.
func Build(job Job, s Settings) ([]string, error) {
	if strings.TrimSpace(job.MediaPath) == "" || strings.TrimSpace(job.OutputPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "render", "build", "media and output paths are required", nil)
	}
	kind := job.Kind
	if kind == "" {
		detected, err := DetectKind(job.MediaPath)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "render", "build", job.MediaPath, err)
		}
		kind = detected
	}
	box, err := SelectBox(job.Caption, s.Boxes)
	if err != nil {
		return nil, err
	}
	font, _ := FindFont(s.FontFamily, s.FontFallbacks, s.FontDirs)

	args := []string{"-y"}
	if kind == KindImage {
		args = append(args, "-loop", "1", "-t", strconv.Itoa(ImageDurationSeconds), "-i", job.MediaPath)
	} else {
		args = append(args, "-i", job.MediaPath)
	}
	args = append(args, "-loop", "1", "-i", box)
	args = append(args,
		"-filter_complex", Graph(job.Caption, font, s).String(),
		"-map", "["+FinalLabel+"]",
		"-c:v", s.Codec,
	)
	if IsHardwareCodec(s.Codec) {
		args = append(args, "-q:v", strconv.Itoa(s.Quality), "-b:v", s.Bitrate)
	} else {
		args = append(args, "-preset", s.Preset, "-crf", strconv.Itoa(s.CRF))
	}
	args = append(args,
		"-r", strconv.Itoa(s.Framerate),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", s.AudioBitrate,
		"-shortest",
		job.OutputPath,
	)
	return args, nil
}

// Graph builds the composite filter graph. font may be empty, in which case
// drawtext uses ffmpeg's default font.
func Graph(caption, font string, s Settings) FilterGraph {
	w, h := strconv.Itoa(s.Width), strconv.Itoa(s.Height)
	mw := strconv.Itoa(int(float64(s.Width) * s.MaxWidthPercent / 100))
	mh := strconv.Itoa(int(float64(s.Height) * s.MaxHeightPercent / 100))
	centered := []string{"(W-w)/2", "(H-h)/2"}

	drawtext := make([]string, 0, 7)
	if font != "" {
		drawtext = append(drawtext, "fontfile="+font)
	}
	drawtext = append(drawtext,
		"text='"+EscapeText(caption)+"'",
		"fontsize="+strconv.Itoa(captionFontSize),
		"fontcolor="+captionColor,
		"x=(w-text_w)/2",
		"y="+strconv.Itoa(s.TextY),
		"line_spacing="+strconv.Itoa(captionLineSpacing),
	)

	var g FilterGraph
	g.Add([]string{"0:v"}, "bg",
		Filter{Name: "scale", Params: []string{w, h, "force_original_aspect_ratio=increase"}},
		Filter{Name: "crop", Params: []string{w, h}},
	).Add([]string{"bg"}, "blurred",
		Filter{Name: "gblur", Params: []string{"sigma=" + strconv.FormatFloat(s.BlurSigma, 'f', -1, 64)}},
	).Add([]string{"0:v"}, "media",
		Filter{Name: "scale", Params: []string{mw, mh, "force_original_aspect_ratio=decrease"}},
	).Add([]string{"blurred", "media"}, "with_media",
		Filter{Name: "overlay", Params: centered},
	).Add([]string{"with_media"}, "sharpened",
		Filter{Name: "unsharp", Params: []string{"11", "11", "1.5"}},
	).Add([]string{"sharpened"}, "enhanced",
		Filter{Name: "eq", Params: []string{"brightness=0.02", "contrast=1.2"}},
	).Add([]string{"enhanced", "1:v"}, "with_box",
		Filter{Name: "overlay", Params: centered},
	).Add([]string{"with_box"}, FinalLabel,
		Filter{Name: "drawtext", Params: drawtext},
	)
	return g
}
