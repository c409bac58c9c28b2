package preflight

import (
	"context"
	"fmt"

	"hookreel/internal/config"
	"hookreel/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options adjusts which checks apply to a run.
type Options struct {
	// SkipSelection drops the Slack credential checks because hooks will be
	// auto-selected.
	SkipSelection bool
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckSecret("Apify API token", cfg.Scraper.APIToken, "APIFY_API_TOKEN"))
	if cfg.Descriptions.Enabled {
		results = append(results, CheckSecret("Vision API key", cfg.Descriptions.APIKey, "OPENAI_API_KEY"))
	}
	if cfg.Hooks.Enabled {
		results = append(results, CheckSecret("LLM API key", cfg.HooksLLM().APIKey, "OPENROUTER_API_KEY"))
	}
	if cfg.Selection.Enabled && !opts.SkipSelection && cfg.Selection.Provider == config.ProviderSlack {
		results = append(results,
			CheckSecret("Slack bot token", cfg.Selection.SlackBotToken, "SLACK_BOT_TOKEN"),
			CheckSecret("Slack channel", cfg.Selection.SlackChannelID, "SLACK_CHANNEL_ID"),
		)
	}

	dirs := []struct{ name, path string }{
		{"Output directory", cfg.Paths.OutputDir},
		{"Cache directory", cfg.Paths.CacheDir},
		{"State directory", cfg.Paths.StateDir},
	}
	if cfg.Output.SaveIntermediateFiles {
		dirs = append(dirs, struct{ name, path string }{"Intermediate directory", cfg.Paths.IntermediateDir})
	}
	if cfg.Render.Enabled {
		dirs = append(dirs, struct{ name, path string }{"Video directory", cfg.Paths.VideoDir})
	}
	for _, d := range dirs {
		results = append(results, EnsureDirectory(d.name, d.path))
	}

	results = append(results, CheckTopics(cfg.Scraper.Topics, cfg.Scraper.MaxItemsPerTopic)...)

	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: statusDetail(status),
		})
	}
	return results
}

// Failures returns the failed results.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func statusDetail(status deps.Status) string {
	if status.Available {
		return fmt.Sprintf("%s (found)", status.Command)
	}
	return status.Detail
}
