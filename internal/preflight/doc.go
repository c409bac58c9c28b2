// Package preflight validates run prerequisites before the pipeline starts:
// credentials for the enabled collaborators, writable directories, sane
// scraper settings, and the render binary.
//
// The run command calls RunAll and refuses to start when any check fails;
// `run --dry-run` stops after reporting the results. Each credential check is
// gated by the stage or provider that needs it.
package preflight
