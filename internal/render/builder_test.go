package render_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"hookreel/internal/render"
	"hookreel/internal/services"
)

func testSettings(t *testing.T) render.Settings {
	t.Helper()
	dir := t.TempDir()
	boxes := map[string]string{}
	for _, key := range []string{"1_liner", "2_liner", "3_liner"} {
		path := filepath.Join(dir, key+".png")
		if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
			t.Fatalf("write box: %v", err)
		}
		boxes[key] = path
	}
	return render.Settings{
		Width:            1080,
		Height:           1920,
		Framerate:        30,
		Codec:            "libx264",
		Preset:           "medium",
		CRF:              18,
		Quality:          65,
		Bitrate:          "10M",
		AudioBitrate:     "192k",
		BlurSigma:        20,
		MaxWidthPercent:  90,
		MaxHeightPercent: 60,
		TextY:            300,
		FontFamily:       "Arial",
		FontDirs:         []string{},
		Boxes:            boxes,
	}
}

func TestBuildImageArguments(t *testing.T) {
	s := testSettings(t)
	job := render.Job{MediaPath: "/cache/abc.jpg", Caption: "Hello", OutputPath: "/out/v.mp4"}

	args, err := render.Build(job, s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	graph := "[0:v]scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920[bg];" +
		"[bg]gblur=sigma=20[blurred];" +
		"[0:v]scale=972:1152:force_original_aspect_ratio=decrease[media];" +
		"[blurred][media]overlay=(W-w)/2:(H-h)/2[with_media];" +
		"[with_media]unsharp=11:11:1.5[sharpened];" +
		"[sharpened]eq=brightness=0.02:contrast=1.2[enhanced];" +
		"[enhanced][1:v]overlay=(W-w)/2:(H-h)/2[with_box];" +
		"[with_box]drawtext=text='Hello':fontsize=72:fontcolor=black:x=(w-text_w)/2:y=300:line_spacing=10[final]"
	want := []string{
		"-y",
		"-loop", "1", "-t", "10", "-i", "/cache/abc.jpg",
		"-loop", "1", "-i", s.Boxes["1_liner"],
		"-filter_complex", graph,
		"-map", "[final]",
		"-c:v", "libx264",
		"-preset", "medium", "-crf", "18",
		"-r", "30", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest", "/out/v.mp4",
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args mismatch\n got: %q\nwant: %q", args, want)
	}

	again, err := render.Build(job, s)
	if err != nil || !reflect.DeepEqual(args, again) {
		t.Fatalf("Build is not deterministic: %v", err)
	}
}

func TestBuildVideoHardwareCodec(t *testing.T) {
	s := testSettings(t)
	s.Codec = "h264_videotoolbox"
	args, err := render.Build(render.Job{MediaPath: "/cache/clip.MP4", Caption: "a", OutputPath: "/o.mp4"}, s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.HasPrefix(joined, "-y -i /cache/clip.MP4 -loop 1 -i ") {
		t.Fatalf("video input should not loop: %s", joined)
	}
	if !strings.Contains(joined, "-c:v h264_videotoolbox -q:v 65 -b:v 10M -r 30") {
		t.Fatalf("hardware codec flags missing: %s", joined)
	}
	if strings.Contains(joined, "-crf") || strings.Contains(joined, "-preset") {
		t.Fatalf("software flags present for hardware codec: %s", joined)
	}
}

func TestBuildSelectsBoxByLineCount(t *testing.T) {
	s := testSettings(t)
	cases := map[string]string{
		"one":                "1_liner",
		"one\ntwo":           "2_liner",
		"one\ntwo\nthree":    "3_liner",
		"a\nb\nc\nd\ne":      "3_liner",
		"trailing newline\n": "2_liner",
	}
	for caption, key := range cases {
		if got := render.BoxKey(caption); got != key {
			t.Fatalf("BoxKey(%q) = %s, want %s", caption, got, key)
		}
		args, err := render.Build(render.Job{MediaPath: "m.png", Caption: caption, OutputPath: "o.mp4"}, s)
		if err != nil {
			t.Fatalf("Build(%q): %v", caption, err)
		}
		if !containsPair(args, "-i", s.Boxes[key]) {
			t.Fatalf("caption %q should use %s box: %q", caption, key, args)
		}
	}
}

func TestBuildMissingBox(t *testing.T) {
	s := testSettings(t)
	s.Boxes["2_liner"] = filepath.Join(t.TempDir(), "missing.png")
	_, err := render.Build(render.Job{MediaPath: "m.png", Caption: "a\nb", OutputPath: "o.mp4"}, s)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	delete(s.Boxes, "2_liner")
	_, err = render.Build(render.Job{MediaPath: "m.png", Caption: "a\nb", OutputPath: "o.mp4"}, s)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestBuildRejectsUnsupportedMedia(t *testing.T) {
	s := testSettings(t)
	_, err := render.Build(render.Job{MediaPath: "m.bin", Caption: "a", OutputPath: "o.mp4"}, s)
	if !errors.Is(err, render.ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestBuildUsesDiscoveredFont(t *testing.T) {
	s := testSettings(t)
	fontDir := t.TempDir()
	fontPath := filepath.Join(fontDir, "Arial.ttf")
	if err := os.WriteFile(fontPath, []byte("font"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	s.FontDirs = []string{fontDir}
	args, err := render.Build(render.Job{MediaPath: "m.webp", Caption: "x", OutputPath: "o.mp4"}, s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(strings.Join(args, " "), "drawtext=fontfile="+fontPath+":text='x'") {
		t.Fatalf("font not used: %q", args)
	}
}

func TestEscapeTextOrder(t *testing.T) {
	cases := map[string]string{
		`\'`:          `\\\'`,
		"it's 5:00":   `it\'s 5\:00`,
		`C:\path`:     `C\:\\path`,
		"line1\nline2": "line1\nline2",
	}
	for in, want := range cases {
		if got := render.EscapeText(in); got != want {
			t.Fatalf("EscapeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectKind(t *testing.T) {
	for path, want := range map[string]string{
		"a.JPG": render.KindImage, "b.gif": render.KindImage, "c.webm": render.KindVideo, "d.m4v": render.KindVideo,
	} {
		got, err := render.DetectKind(path)
		if err != nil || got != want {
			t.Fatalf("DetectKind(%s) = %s, %v", path, got, err)
		}
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
