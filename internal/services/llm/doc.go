// Package llm provides an OpenRouter-compatible chat client and the hook
// generator built on it.
//
// Client.Complete sends a single user prompt and returns the text reply.
// HookGenerator turns a post and its media descriptions into a numbered list
// of short caption hooks and parses it with ParseHooks.
//
// The client retries on HTTP 408/429/5xx, empty content, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default), honoring Retry-After. Context cancellation aborts retries.
package llm
