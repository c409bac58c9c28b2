// Package logging assembles structured slog loggers and formatting helpers used
// across hookreel stages.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with run IDs, stage names, and correlation IDs. Every pipeline run
// additionally tees its records into a per-run JSON file under the log
// directory so a failed run can be inspected after the fact.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the pipeline.
package logging
