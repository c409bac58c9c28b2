package deps

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}
}

func TestCheckFFmpegReportsVersionLine(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotArgs = append([]string{binary}, args...)
		return []byte("\nffmpeg version 7.1 Copyright (c) 2000-2024\nbuilt with gcc\n"), nil
	}
	status := CheckFFmpeg(context.Background(), "/opt/ffmpeg", run)
	if !status.Available || status.Detail != "ffmpeg version 7.1 Copyright (c) 2000-2024" {
		t.Fatalf("unexpected status %#v", status)
	}
	if strings.Join(gotArgs, " ") != "/opt/ffmpeg -version" {
		t.Fatalf("unexpected invocation %v", gotArgs)
	}
}

func TestCheckFFmpegMissingBinary(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return nil, &exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}
	}
	status := CheckFFmpeg(context.Background(), "", run)
	if status.Available || !strings.Contains(status.Detail, "not found") || status.Command != "ffmpeg" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestCheckFFmpegFailure(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}
	status := CheckFFmpeg(context.Background(), "ffmpeg", run)
	if status.Available || !strings.Contains(status.Detail, "exit status 1") {
		t.Fatalf("unexpected status %#v", status)
	}
}
