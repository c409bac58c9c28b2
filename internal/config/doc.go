// Package config loads, normalizes, and validates hookreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// APIFY_API_TOKEN, OPENROUTER_API_KEY, OPENAI_API_KEY, and SLACK_BOT_TOKEN.
// The Config type centralizes every knob the pipeline stages and the CLI need
// so artifact directories, the media cache, render settings, and external
// service credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
