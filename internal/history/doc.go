// Package history keeps a SQLite ledger of pipeline runs and the stages
// each run executed.
//
// The ledger is advisory: the checkpoint file remains the source of truth
// for resuming. History answers "what ran, when, and how did it go" for the
// history command and for operators comparing runs over time.
package history
