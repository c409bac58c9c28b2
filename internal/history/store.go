package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"hookreel/internal/services"
)

// Run statuses.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one row of the runs table.
type Run struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Status          string
	ResumedFrom     string
	InputFile       string
	CompletedStages []string
	FailedStage     string
	Error           string
	Items           int
	MediaDownloaded int
	Hooks           int
	Selected        int
	VideosSucceeded int
	VideosAttempted int
	FinalOutput     string
	Duration        time.Duration
}

// StageRecord is one executed stage of a run.
type StageRecord struct {
	RunID      string
	Stage      string
	Status     string
	StartedAt  time.Time
	Duration   time.Duration
	OutputFile string
	Error      string
}

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger at path and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "history path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a running row. Starting a run id twice replaces the
// earlier row.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	query, args, err := sq.Insert("runs").
		Options("OR REPLACE").
		Columns("run_id", "started_at", "status", "resumed_from", "input_file").
		Values(run.RunID, formatTime(run.StartedAt), StatusRunning, nullable(run.ResumedFrom), nullable(run.InputFile)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and summary counts of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	query, args, err := sq.Update("runs").
		SetMap(map[string]any{
			"finished_at":      formatTime(run.FinishedAt),
			"status":           run.Status,
			"completed_stages": strings.Join(run.CompletedStages, ","),
			"failed_stage":     nullable(run.FailedStage),
			"error_message":    nullable(run.Error),
			"items":            run.Items,
			"media_downloaded": run.MediaDownloaded,
			"hooks":            run.Hooks,
			"selected":         run.Selected,
			"videos_succeeded": run.VideosSucceeded,
			"videos_attempted": run.VideosAttempted,
			"final_output":     nullable(run.FinalOutput),
			"duration_ms":      run.Duration.Milliseconds(),
		}).
		Where(sq.Eq{"run_id": run.RunID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "history", "finish run", fmt.Sprintf("run %s not recorded", run.RunID), nil)
	}
	return nil
}

// RecordStage appends a stage row.
func (s *Store) RecordStage(ctx context.Context, rec StageRecord) error {
	query, args, err := sq.Insert("stage_runs").
		Columns("run_id", "stage", "status", "started_at", "duration_ms", "output_file", "error_message").
		Values(rec.RunID, rec.Stage, rec.Status, formatTime(rec.StartedAt), rec.Duration.Milliseconds(), nullable(rec.OutputFile), nullable(rec.Error)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build stage insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert stage: %w", err)
	}
	return nil
}

var runColumns = []string{
	"run_id", "started_at", "finished_at", "status", "resumed_from", "input_file",
	"completed_stages", "failed_stage", "error_message", "items", "media_downloaded",
	"hooks", "selected", "videos_succeeded", "videos_attempted", "final_output", "duration_ms",
}

// Recent returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	builder := sq.Select(runColumns...).From("runs").OrderBy("started_at DESC", "run_id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build runs query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns a single run.
func (s *Store) Get(ctx context.Context, runID string) (Run, error) {
	query, args, err := sq.Select(runColumns...).From("runs").Where(sq.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return Run{}, fmt.Errorf("build run query: %w", err)
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, services.Wrap(services.ErrNotFound, "history", "get run", fmt.Sprintf("run %s not recorded", runID), nil)
	}
	return run, err
}

// Stages returns the stage rows of a run in execution order.
func (s *Store) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	query, args, err := sq.Select("run_id", "stage", "status", "started_at", "duration_ms", "output_file", "error_message").
		From("stage_runs").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stages query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var (
			rec              StageRecord
			started          string
			durationMS       int64
			output, errorMsg sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &rec.Stage, &rec.Status, &started, &durationMS, &output, &errorMsg); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		rec.StartedAt = parseTime(started)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.OutputFile = output.String
		rec.Error = errorMsg.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return out, nil
}

// Prune deletes runs that started before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete("runs").Where(sq.Lt{"started_at": formatTime(cutoff)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                                      Run
		started                                  string
		finished, resumed, input, failed, errMsg sql.NullString
		final                                    sql.NullString
		stages                                   string
		durationMS                               int64
	)
	err := row.Scan(&run.RunID, &started, &finished, &run.Status, &resumed, &input,
		&stages, &failed, &errMsg, &run.Items, &run.MediaDownloaded,
		&run.Hooks, &run.Selected, &run.VideosSucceeded, &run.VideosAttempted, &final, &durationMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished.String)
	run.ResumedFrom = resumed.String
	run.InputFile = input.String
	run.FailedStage = failed.String
	run.Error = errMsg.String
	run.FinalOutput = final.String
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if stages != "" {
		run.CompletedStages = strings.Split(stages, ",")
	}
	return run, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
