package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"hookreel/internal/config"
	"hookreel/internal/history"
	"hookreel/internal/logging"
	"hookreel/internal/metrics"
	"hookreel/internal/notifications"
	"hookreel/internal/services"
	"hookreel/internal/stage"
	"hookreel/internal/workitem"
)

// Stage statuses recorded in the history ledger and metrics.
const (
	statusCompleted   = "completed"
	statusSkipped     = "skipped"
	statusFailed      = "failed"
	statusInterrupted = "interrupted"
)

// Ledger records runs. *history.Store satisfies it.
type Ledger interface {
	StartRun(ctx context.Context, run history.Run) error
	RecordStage(ctx context.Context, rec history.StageRecord) error
	FinishRun(ctx context.Context, run history.Run) error
}

// RunOptions selects where a run starts.
type RunOptions struct {
	// ResumeFrom names the first stage to execute; empty starts at collect.
	ResumeFrom string
	// Input is the artifact handed to the first executed stage.
	Input string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLedger records runs and stages in l.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// WithNotifier sends run notifications through n.
func WithNotifier(n notifications.Service) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithMetrics records stage and run metrics in reg and writes them to
// textfile after the run when textfile is non-empty.
func WithMetrics(reg *metrics.Registry, textfile string) Option {
	return func(o *Orchestrator) {
		o.metrics = reg
		o.textfile = strings.TrimSpace(textfile)
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = strings.TrimSpace(id) }
}

// Orchestrator runs the stage sequence.
type Orchestrator struct {
	cfg      *config.Config
	handlers []stage.Handler
	logger   *slog.Logger
	ledger   Ledger
	notifier notifications.Service
	metrics  *metrics.Registry
	textfile string
	now      func() time.Time
	runID    string
}

// New validates that handlers cover stage.Order exactly, in order.
func New(cfg *config.Config, handlers []stage.Handler, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("orchestrator requires config")
	}
	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			return nil, errors.New("orchestrator handler is nil")
		}
		names = append(names, h.Name())
	}
	if !slices.Equal(names, stage.Order) {
		return nil, fmt.Errorf("orchestrator stages %v do not match %v", names, stage.Order)
	}
	o := &Orchestrator{
		cfg:      cfg,
		handlers: handlers,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		notifier: notifications.NewService(nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes the pipeline. The returned summary is populated even when
// the run fails; the error names the failed stage.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := Summary{RunID: runID, StartedAt: o.now(), CompletedStages: []string{}}

	start := 0
	if name := strings.TrimSpace(opts.ResumeFrom); name != "" {
		start = stage.Index(name)
		if start < 0 {
			return summary, services.Wrap(services.ErrValidation, "", "resume", fmt.Sprintf("unknown stage %q (valid: %s)", name, strings.Join(stage.Order, ", ")), nil)
		}
		if start > 0 && strings.TrimSpace(opts.Input) == "" {
			return summary, services.Wrap(services.ErrValidation, name, "resume", "resuming requires --input with the previous stage's artifact", nil)
		}
	}

	lock, err := acquireRunLock(o.cfg.LockPath())
	if err != nil {
		return summary, err
	}
	defer func() { _ = lock.Unlock() }()

	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	cp := newCheckpoint(runID)
	cp.addArtifact(opts.Input)

	logger.Info("pipeline started",
		logging.String("first_stage", stage.Order[start]),
		logging.String("input", opts.Input),
		logging.String(logging.FieldEventType, "run_start"),
	)
	o.recordRunStart(ctx, logger, summary, opts)
	if err := o.notifier.NotifyRunStarted(ctx, runID, o.cfg.Scraper.Topics); err != nil {
		logger.Debug("run start notification failed", logging.Error(err))
	}

	current := opts.Input
	for _, h := range o.handlers[start:] {
		name := h.Name()
		cp.CurrentStage = name
		o.saveCheckpoint(logger, &cp)

		stageStart := o.now()
		if !h.Enabled() {
			logger.Info("stage disabled; passing input through",
				logging.String(logging.FieldStage, name),
				logging.String(logging.FieldEventType, "stage_skipped"),
			)
			cp.CompletedStages = append(cp.CompletedStages, name)
			summary.CompletedStages = append(summary.CompletedStages, name)
			o.saveCheckpoint(logger, &cp)
			o.recordStage(ctx, logger, runID, name, statusSkipped, stageStart, current, nil)
			continue
		}

		stageCtx := services.WithRequestID(services.WithStage(ctx, name), uuid.NewString())
		stageLogger := logging.WithContext(stageCtx, o.logger)
		if aware, ok := h.(stage.LoggerAware); ok {
			aware.SetLogger(stageLogger)
		}
		stageLogger.Info("stage started",
			logging.String("input", current),
			logging.String(logging.FieldEventType, "stage_start"),
		)

		out, err := runStage(stageCtx, h, current)
		if err == nil && strings.TrimSpace(out) == "" {
			err = services.Wrap(services.ErrValidation, name, "execute", "stage produced no artifact", nil)
		}
		if err != nil {
			if ctx.Err() != nil {
				summary.Interrupted = true
				logging.WarnWithContext(stageLogger, "pipeline interrupted", "run_interrupted",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, fmt.Sprintf("resume with --resume-from %s --input %s", name, current)),
					logging.String(logging.FieldImpact, "run stopped; completed artifacts are kept"),
				)
				o.saveCheckpoint(logger, &cp)
				o.recordStage(context.WithoutCancel(ctx), logger, runID, name, statusInterrupted, stageStart, "", err)
				return o.finish(context.WithoutCancel(ctx), logger, summary, current, err), ctx.Err()
			}
			summary.FailedStage = name
			cp.FailedStages = append(cp.FailedStages, name)
			o.saveCheckpoint(logger, &cp)
			logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
				logging.String("error_class", services.Classify(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, fmt.Sprintf("fix the cause, then resume with --resume-from %s --input %s", name, current)),
			)
			o.recordStage(ctx, logger, runID, name, statusFailed, stageStart, "", err)
			if nerr := o.notifier.NotifyStageFailed(ctx, name, err); nerr != nil {
				logger.Debug("stage failure notification failed", logging.Error(nerr))
			}
			return o.finish(ctx, logger, summary, current, err), fmt.Errorf("stage %s: %w", name, err)
		}

		current = out
		cp.CompletedStages = append(cp.CompletedStages, name)
		summary.CompletedStages = append(summary.CompletedStages, name)
		cp.addArtifact(out)
		o.saveCheckpoint(logger, &cp)
		o.recordStage(ctx, logger, runID, name, statusCompleted, stageStart, out, nil)
		stageLogger.Info("stage completed",
			logging.String("output", out),
			logging.Duration("stage_duration", o.now().Sub(stageStart)),
			logging.String(logging.FieldEventType, "stage_complete"),
		)
	}

	summary = o.finish(ctx, logger, summary, current, nil)
	if err := o.notifier.NotifyRunCompleted(ctx, notifications.RunReport{
		RunID:           runID,
		Duration:        summary.Duration(),
		CompletedStages: len(summary.CompletedStages),
		Items:           summary.Items,
		Videos:          summary.VideosSucceeded,
		VideosAttempted: summary.VideosAttempted,
		FinalOutput:     summary.FinalOutput,
	}); err != nil {
		logger.Debug("run completion notification failed", logging.Error(err))
	}
	return summary, nil
}

// runStage executes one handler, converting a panic into an error.
func runStage(ctx context.Context, h stage.Handler, input string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrExternalTool, h.Name(), "execute",
				fmt.Sprintf("panic: %v", r), errors.New(string(debug.Stack())))
		}
	}()
	return h.Execute(ctx, input)
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, summary Summary, final string, runErr error) Summary {
	summary.FinishedAt = o.now()
	summary.FinalOutput = final
	if final != "" {
		items, err := workitem.Load(final)
		if err != nil {
			logging.WarnWithContext(logger, "could not load final artifact for statistics", "summary_unavailable",
				logging.String("artifact", final),
				logging.Error(err),
				logging.String(logging.FieldImpact, "summary counts are zero"),
			)
		} else {
			summary.Tally(items)
		}
	}

	status := history.StatusCompleted
	switch {
	case summary.Interrupted:
		status = history.StatusInterrupted
	case summary.FailedStage != "":
		status = history.StatusFailed
	}
	if o.ledger != nil {
		run := history.Run{
			RunID:           summary.RunID,
			FinishedAt:      summary.FinishedAt,
			Status:          status,
			CompletedStages: summary.CompletedStages,
			FailedStage:     summary.FailedStage,
			Items:           summary.Items,
			MediaDownloaded: summary.MediaDownloaded,
			Hooks:           summary.Hooks,
			Selected:        summary.SelectedHooks,
			VideosSucceeded: summary.VideosSucceeded,
			VideosAttempted: summary.VideosAttempted,
			FinalOutput:     summary.FinalOutput,
			Duration:        summary.Duration(),
		}
		if runErr != nil {
			run.Error = runErr.Error()
		}
		if err := o.ledger.FinishRun(ctx, run); err != nil {
			logging.WarnWithContext(logger, "history update failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions and history.db"),
				logging.String(logging.FieldImpact, "run missing from hookreel history"),
			)
		}
	}
	o.metrics.RunFinished(summary.FinishedAt, summary.Succeeded(), metrics.RunCounts{
		Items:           summary.Items,
		Media:           summary.Media,
		MediaDownloaded: summary.MediaDownloaded,
		Hooks:           summary.Hooks,
		Selected:        summary.SelectedHooks,
		VideosSucceeded: summary.VideosSucceeded,
		VideosFailed:    summary.VideosAttempted - summary.VideosSucceeded,
	})
	if o.metrics != nil && o.textfile != "" {
		if err := o.metrics.WriteTextfile(o.textfile); err != nil {
			logger.Warn("metrics textfile write failed", logging.Error(err))
		}
	}

	logger.Info("pipeline finished",
		logging.String("status", status),
		logging.Duration("duration", summary.Duration()),
		logging.String("completed_stages", strings.Join(summary.CompletedStages, ",")),
		logging.Int("items", summary.Items),
		logging.Int("videos_succeeded", summary.VideosSucceeded),
		logging.Int("videos_attempted", summary.VideosAttempted),
		logging.String("final_output", summary.FinalOutput),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return summary
}

func (o *Orchestrator) saveCheckpoint(logger *slog.Logger, cp *Checkpoint) {
	if !o.cfg.Resume.Enabled {
		return
	}
	cp.Timestamp = o.now()
	if err := SaveCheckpoint(o.cfg.CheckpointPath(), *cp); err != nil {
		logging.WarnWithContext(logger, "checkpoint save failed", "checkpoint_failed",
			logging.String("path", o.cfg.CheckpointPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
			logging.String(logging.FieldImpact, "resume information may be stale"),
		)
	}
}

func (o *Orchestrator) recordRunStart(ctx context.Context, logger *slog.Logger, summary Summary, opts RunOptions) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.StartRun(ctx, history.Run{
		RunID:       summary.RunID,
		StartedAt:   summary.StartedAt,
		ResumedFrom: opts.ResumeFrom,
		InputFile:   opts.Input,
	}); err != nil {
		logging.WarnWithContext(logger, "history insert failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from hookreel history"),
		)
	}
}

func (o *Orchestrator) recordStage(ctx context.Context, logger *slog.Logger, runID, name, status string, started time.Time, output string, stageErr error) {
	elapsed := o.now().Sub(started)
	o.metrics.StageFinished(name, status, elapsed)
	if o.ledger == nil {
		return
	}
	rec := history.StageRecord{
		RunID:      runID,
		Stage:      name,
		Status:     status,
		StartedAt:  started,
		Duration:   elapsed,
		OutputFile: output,
	}
	if stageErr != nil {
		rec.Error = stageErr.Error()
	}
	if err := o.ledger.RecordStage(ctx, rec); err != nil {
		logging.WarnWithContext(logger, "history stage insert failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stage missing from hookreel history"),
		)
	}
}
