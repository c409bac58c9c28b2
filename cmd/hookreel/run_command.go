package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hookreel/internal/config"
	"hookreel/internal/history"
	"hookreel/internal/logging"
	"hookreel/internal/metrics"
	"hookreel/internal/notifications"
	"hookreel/internal/pipeline"
	"hookreel/internal/preflight"
	"hookreel/internal/stage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		skipSelection bool
		dryRun        bool
		resumeFrom    string
		input         string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Long: fmt.Sprintf("Run every stage in order (%s).\n\nResume a failed run with --resume-from <stage> --input <previous artifact>.",
			strings.Join(stage.Order, ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipSelection: skipSelection})
			fmt.Fprintln(out, renderPreflight(results))
			if failed := preflight.Failures(results); len(failed) > 0 {
				return fmt.Errorf("%d prerequisite check(s) failed", len(failed))
			}
			if dryRun {
				fmt.Fprintln(out, "Dry run: prerequisites satisfied, no stages executed")
				return nil
			}

			return runPipeline(cmd.Context(), ctx, cfg, out, runRequest{
				skipSelection: skipSelection,
				options:       pipeline.RunOptions{ResumeFrom: resumeFrom, Input: input},
			})
		},
	}

	cmd.Flags().BoolVar(&skipSelection, "skip-selection", false, "Auto-select hooks instead of asking reviewers")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate prerequisites without running any stage")
	cmd.Flags().StringVar(&resumeFrom, "resume-from", "", "Stage to start from")
	cmd.Flags().StringVar(&input, "input", "", "Artifact consumed by the first resumed stage")
	return cmd
}

type runRequest struct {
	skipSelection bool
	options       pipeline.RunOptions
}

func runPipeline(ctx context.Context, cmdCtx *commandContext, cfg *config.Config, out io.Writer, req runRequest) error {
	base, err := cmdCtx.baseLogger()
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger, runLog, err := logging.NewRunLogger(base, cfg.Paths.LogDir, runID)
	if err != nil {
		return err
	}
	defer runLog.Close()
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, runLog.Path)

	notifier := notifications.NewService(cfg)
	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.New()
	}

	factory := &stageFactory{
		cfg:           cfg,
		logger:        logger,
		artifacts:     stage.NewArtifacts(cfg, nil),
		metrics:       registry,
		notifier:      notifier,
		out:           out,
		skipSelection: req.skipSelection,
	}
	handlers, err := factory.handlers()
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithRunID(runID),
		pipeline.WithNotifier(notifier),
		pipeline.WithMetrics(registry, cfg.Metrics.Textfile),
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions or disable [history]"),
				logging.String(logging.FieldImpact, "this run is not recorded in the history ledger"),
			)
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithLedger(store))
			pruneHistory(ctx, logger, store, cfg.Logging.RetentionDays)
		}
	}

	orchestrator, err := pipeline.New(cfg, handlers, logger, opts...)
	if err != nil {
		return err
	}
	summary, runErr := orchestrator.Run(ctx, req.options)
	if !summary.StartedAt.IsZero() && !summary.FinishedAt.IsZero() {
		fmt.Fprintln(out, renderSummary(summary))
		if runLog.Path != "" {
			fmt.Fprintf(out, "Run log: %s\n", runLog.Path)
		}
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintf(out, "Interrupted; checkpoint saved to %s\n", cfg.CheckpointPath())
		}
		return runErr
	}
	return nil
}

func pruneHistory(ctx context.Context, logger *slog.Logger, store *history.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		logger.Warn("history prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("history pruned", logging.Int64("removed", removed))
	}
}

func renderPreflight(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if !r.Passed {
			status = "FAIL"
		}
		rows = append(rows, []string{r.Name, status, r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}

func renderSummary(s pipeline.Summary) string {
	status := "completed"
	switch {
	case s.Interrupted:
		status = "interrupted"
	case s.FailedStage != "":
		status = "failed at " + s.FailedStage
	}
	completed := strings.Join(s.CompletedStages, ", ")
	if completed == "" {
		completed = "none"
	}
	final := s.FinalOutput
	if final == "" {
		final = "-"
	}
	rows := [][]string{
		{"Run ID", s.RunID},
		{"Status", status},
		{"Duration", s.Duration().Round(time.Second).String()},
		{"Completed stages", completed},
		{"Items", strconv.Itoa(s.Items)},
		{"Media", fmt.Sprintf("%d (%d downloaded)", s.Media, s.MediaDownloaded)},
		{"Hooks generated", strconv.Itoa(s.Hooks)},
		{"Hooks selected", strconv.Itoa(s.SelectedHooks)},
		{"Videos", fmt.Sprintf("%d/%d", s.VideosSucceeded, s.VideosAttempted)},
		{"Final output", final},
	}
	return renderKeyValues(rows)
}
