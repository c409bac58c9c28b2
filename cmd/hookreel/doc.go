// Package main hosts the hookreel CLI.
//
// The cobra command tree loads configuration once, wires the stage
// collaborators (Apify, the vision and hook models, the selection provider,
// the media cache, and ffmpeg) and either drives the whole pipeline through
// the orchestrator or runs a single stage against an explicit artifact.
// Maintenance commands inspect the media cache, the run history ledger, and
// the last checkpoint.
package main
