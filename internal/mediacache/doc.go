// Package mediacache stores downloaded post media on disk keyed by the md5
// of the source URL, with a JSON sidecar per entry recording provenance,
// size, and download time.
//
// An entry is valid while its payload exists, is non-empty, passes the
// signature check, and has not outlived the configured TTL. Writes go to a
// temp file inside the cache directory and are promoted with a rename, so a
// crash never leaves a partially written payload under its final name.
// Fetcher layers HTTP download with exponential backoff on top of Cache.
package mediacache
