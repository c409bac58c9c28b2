// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so stage failures carry a
//     classification (transient, not found, validation, configuration).
//
// Subpackages hold the thin HTTP adapters for the scraping, language model,
// vision, and chat services the pipeline talks to.
package services
