package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// VersionRunner runs binary with args and returns its combined output.
type VersionRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// ExecVersionRunner runs the command with os/exec.
func ExecVersionRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput()
}

// CheckFFmpeg runs `<binary> -version` and reports the first output line as
// the detail. A nil runner uses ExecVersionRunner.
func CheckFFmpeg(ctx context.Context, binary string, run VersionRunner) Status {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	status := Status{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Required for rendering",
	}
	if run == nil {
		run = ExecVersionRunner
	}
	checkCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := run(checkCtx, binary, "-version")
	if err != nil {
		var execErr *exec.Error
		switch {
		case errors.As(err, &execErr), errors.Is(err, exec.ErrNotFound):
			status.Detail = fmt.Sprintf("binary %q not found", binary)
		case errors.Is(checkCtx.Err(), context.DeadlineExceeded):
			status.Detail = "version check timed out"
		default:
			status.Detail = fmt.Sprintf("version check failed: %v", err)
		}
		return status
	}
	status.Available = true
	status.Detail = FirstLine(string(out))
	return status
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
