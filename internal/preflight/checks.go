package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"hookreel/internal/config"
	"hookreel/internal/deps"
)

// CheckSecret verifies a credential is present. envName is shown in the
// detail so operators know where to set it.
func CheckSecret(name, value, envName string) Result {
	if strings.TrimSpace(value) == "" {
		return Result{Name: name, Detail: fmt.Sprintf("missing (set %s or the config value)", envName)}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// EnsureDirectory creates path when missing and verifies access.
func EnsureDirectory(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create: %v)", path, err)}
	}
	return CheckDirectoryAccess(name, path)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTopics validates the scraper query settings.
func CheckTopics(topics []string, maxItems int) []Result {
	results := make([]Result, 0, 2)
	nonEmpty := 0
	for _, t := range topics {
		if strings.TrimSpace(t) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		results = append(results, Result{Name: "Scraper topics", Detail: "no topics configured"})
	} else {
		results = append(results, Result{Name: "Scraper topics", Passed: true, Detail: fmt.Sprintf("%d topic(s)", nonEmpty)})
	}
	if maxItems <= 0 {
		results = append(results, Result{Name: "Max items per topic", Detail: "must be greater than 0"})
	} else {
		results = append(results, Result{Name: "Max items per topic", Passed: true, Detail: fmt.Sprintf("%d", maxItems)})
	}
	return results
}

// CheckSystemDeps evaluates the external binaries needed by enabled stages.
// Both run preflight and `config validate` use it.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement
	if cfg.Render.Enabled || cfg.Assets.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for rendering",
		})
	}
	return deps.CheckBinaries(requirements)
}
