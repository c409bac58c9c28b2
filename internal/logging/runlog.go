package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLog is the per-run JSON log file.
type RunLog struct {
	Path string
	file *os.File
}

// Close closes the run log file. It is safe on a nil or empty RunLog.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// NewRunLogger tees base into dir/runs/run-<timestamp>-<short id>.log. The
// file records every level and stamps run_id on each record; base keeps its
// own level. An empty dir returns base unchanged.
func NewRunLogger(base *slog.Logger, dir, runID string) (*slog.Logger, *RunLog, error) {
	if strings.TrimSpace(dir) == "" {
		return base, &RunLog{}, nil
	}
	path := filepath.Join(dir, "runs", fmt.Sprintf("run-%s-%s.log", time.Now().UTC().Format("20060102T150405"), shortID(runID)))
	file, err := openLogFile(path)
	if err != nil {
		return nil, nil, err
	}
	if base == nil {
		base = NewNop()
	}
	stamped := runStampHandler{Handler: newJSONHandler(file, slog.LevelDebug, false), runID: runID}
	return slog.New(teeHandler{base.Handler(), stamped}), &RunLog{Path: path, file: file}, nil
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return "anon"
	case len(id) > 8:
		return id[:8]
	default:
		return id
	}
}

// runStampHandler adds run_id to records that do not already carry one,
// either on the record or from an earlier With.
type runStampHandler struct {
	slog.Handler
	runID   string
	stamped bool
}

func (h runStampHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.stamped && h.runID != "" {
		present := false
		record.Attrs(func(attr slog.Attr) bool {
			present = attr.Key == FieldRunID
			return !present
		})
		if !present {
			record.AddAttrs(slog.String(FieldRunID, h.runID))
		}
	}
	return h.Handler.Handle(ctx, record)
}

func (h runStampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return runStampHandler{
		Handler: h.Handler.WithAttrs(attrs),
		runID:   h.runID,
		stamped: h.stamped || HasAttrKey(attrs, FieldRunID),
	}
}

func (h runStampHandler) WithGroup(name string) slog.Handler {
	return runStampHandler{Handler: h.Handler.WithGroup(name), runID: h.runID, stamped: h.stamped}
}

// teeHandler hands each record to every member that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithGroup(name)
	}
	return next
}
