// Package pipeline drives the fixed stage sequence of a hookreel run.
//
// The Orchestrator runs collect, describe, generate-hooks, select, download,
// validate-assets, and render in order, handing each stage the artifact path
// produced by the one before it. The checkpoint file is rewritten before and
// after every stage and when the run is interrupted, so an operator can
// resume with --resume-from and the artifact named in the checkpoint.
//
// Only one run may use a state directory at a time; the run lock is an
// advisory flock on <state_dir>/hookreel.lock.
package pipeline
