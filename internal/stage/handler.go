package stage

import (
	"context"
	"log/slog"
)

// Stage names in pipeline order.
const (
	Collect        = "collect"
	Describe       = "describe"
	GenerateHooks  = "generate-hooks"
	Select         = "select"
	Download       = "download"
	ValidateAssets = "validate-assets"
	Render         = "render"
)

// Order is the fixed pipeline sequence.
var Order = []string{Collect, Describe, GenerateHooks, Select, Download, ValidateAssets, Render}

// Index returns the position of name in Order, or -1.
func Index(name string) int {
	for i, n := range Order {
		if n == name {
			return i
		}
	}
	return -1
}

// Handler describes the contract the orchestrator needs from each stage.
// Execute consumes the previous artifact path and returns the next one.
// Collect ignores its input.
type Handler interface {
	Name() string
	Enabled() bool
	Execute(ctx context.Context, input string) (string, error)
}

// LoggerAware handlers accept a run-scoped logger before Execute.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
