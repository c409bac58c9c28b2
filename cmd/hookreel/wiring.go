package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"hookreel/internal/assets"
	"hookreel/internal/collect"
	"hookreel/internal/config"
	"hookreel/internal/describe"
	"hookreel/internal/download"
	"hookreel/internal/hooks"
	"hookreel/internal/mediacache"
	"hookreel/internal/metrics"
	"hookreel/internal/notifications"
	"hookreel/internal/render"
	"hookreel/internal/selection"
	"hookreel/internal/services/apify"
	"hookreel/internal/services/llm"
	"hookreel/internal/services/slack"
	"hookreel/internal/services/vision"
	"hookreel/internal/stage"
	"hookreel/internal/workitem"
)

// slackPostDelay spaces out review messages under Slack's posting limit.
const slackPostDelay = time.Second

// stageFactory builds stage handlers with their production collaborators.
type stageFactory struct {
	cfg       *config.Config
	logger    *slog.Logger
	artifacts stage.Artifacts
	metrics   *metrics.Registry
	notifier  notifications.Service
	out       io.Writer

	skipSelection bool
	renderDryRun  bool
}

func (f *stageFactory) handlers() ([]stage.Handler, error) {
	downloadStage, err := f.download()
	if err != nil {
		return nil, err
	}
	return []stage.Handler{
		f.collect(),
		f.describe(),
		f.hooks(),
		f.selection(),
		downloadStage,
		f.assets(),
		f.render(),
	}, nil
}

func (f *stageFactory) handler(name string) (stage.Handler, error) {
	switch name {
	case stage.Collect:
		return f.collect(), nil
	case stage.Describe:
		return f.describe(), nil
	case stage.GenerateHooks:
		return f.hooks(), nil
	case stage.Select:
		return f.selection(), nil
	case stage.Download:
		return f.download()
	case stage.ValidateAssets:
		return f.assets(), nil
	default:
		return f.render(), nil
	}
}

func (f *stageFactory) collect() stage.Handler {
	client := apify.NewClient(apify.Config{
		Token:          f.cfg.Scraper.APIToken,
		ActorID:        f.cfg.Scraper.ActorID,
		BaseURL:        f.cfg.Scraper.BaseURL,
		TimeoutSeconds: f.cfg.Scraper.TimeoutSeconds,
	}, f.logger)
	return collect.New(f.cfg, client, f.artifacts, f.logger)
}

func (f *stageFactory) describe() stage.Handler {
	client := vision.NewClient(vision.Config{
		APIKey:    f.cfg.Descriptions.APIKey,
		BaseURL:   f.cfg.Descriptions.BaseURL,
		Model:     f.cfg.Descriptions.Model,
		MaxTokens: f.cfg.Descriptions.MaxTokens,
	}, f.logger)
	return describe.New(f.cfg, client, f.artifacts, f.logger)
}

func (f *stageFactory) hooks() stage.Handler {
	settings := f.cfg.HooksLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	}, llm.WithLogger(f.logger))
	return hooks.New(f.cfg, llm.NewHookGenerator(client, f.cfg.Hooks.HooksPerItem), f.artifacts, f.logger)
}

func (f *stageFactory) selection() stage.Handler {
	var selector *selection.Selector
	if f.cfg.Selection.Enabled && !f.skipSelection {
		schedule := selection.Schedule{
			Interval: time.Duration(f.cfg.Selection.PollIntervalSeconds) * time.Second,
			Timeout:  time.Duration(f.cfg.Selection.TimeoutMinutes) * time.Minute,
		}
		provider := &notifyingProvider{Provider: f.selectionProvider(), notifier: f.notifier}
		selector = selection.NewSelector(provider, schedule, f.logger)
	}
	return selection.NewStage(f.cfg, selector, f.skipSelection, f.artifacts, f.logger)
}

func (f *stageFactory) selectionProvider() selection.Provider {
	if f.cfg.Selection.Provider == config.ProviderFile {
		return selection.NewFileProvider(f.cfg.Selection.DropDir, f.logger)
	}
	client := slack.NewClient(f.cfg.Selection.SlackBotToken, f.cfg.Selection.SlackBaseURL)
	return selection.NewSlackProvider(client, f.cfg.Selection.SlackChannelID, slackPostDelay, f.logger)
}

func (f *stageFactory) download() (stage.Handler, error) {
	cache, err := mediacache.New(f.cfg.Paths.CacheDir, time.Duration(f.cfg.Download.TTLHours)*time.Hour, f.logger,
		mediacache.WithRecorder(f.metrics))
	if err != nil {
		return nil, err
	}
	policy := mediacache.Policy{
		MaxAttempts:  f.cfg.Download.MaxAttempts,
		InitialDelay: time.Duration(f.cfg.Download.InitialDelayMillis) * time.Millisecond,
		Timeout:      time.Duration(f.cfg.Download.TimeoutSeconds) * time.Second,
		UserAgent:    f.cfg.Download.UserAgent,
	}
	fetcher := mediacache.NewFetcher(cache, policy, f.logger, mediacache.WithObserver(newFetchObserver(os.Stderr)))
	return download.New(f.cfg, fetcher, f.artifacts, f.logger), nil
}

func (f *stageFactory) assets() stage.Handler {
	return assets.New(f.cfg, f.logger)
}

func (f *stageFactory) render() stage.Handler {
	supervisor := render.NewSupervisor(f.cfg.FFmpegBinary(), f.logger, render.WithDryRunOutput(f.out))
	renderer := render.NewRenderer(render.SettingsFromConfig(f.cfg), supervisor)
	return render.NewStage(f.cfg, renderer, f.renderDryRun, f.artifacts, f.logger)
}

// notifyingProvider announces a review round once the items are posted.
type notifyingProvider struct {
	selection.Provider
	notifier notifications.Service
}

func (p *notifyingProvider) Post(ctx context.Context, items []workitem.Item) ([]selection.Thread, error) {
	threads, err := p.Provider.Post(ctx, items)
	if err != nil || len(threads) == 0 || p.notifier == nil {
		return threads, err
	}
	_ = p.notifier.NotifySelectionRequested(ctx, p.Provider.Name(), len(threads))
	return threads, nil
}

func (p *notifyingProvider) Wait(ctx context.Context, d time.Duration) error {
	if w, ok := p.Provider.(selection.Waiter); ok {
		return w.Wait(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *notifyingProvider) Close() error {
	if c, ok := p.Provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
