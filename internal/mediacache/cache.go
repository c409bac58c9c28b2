package mediacache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"hookreel/internal/fileutil"
	"hookreel/internal/logging"
)

const (
	sidecarExt     = ".json"
	tempPrefix     = "download_"
	staleTempAfter = time.Hour
)

// Entry describes a cached payload.
type Entry struct {
	Key         string
	URL         string
	PayloadPath string
	Kind        string
	Size        int64
	CreatedAt   time.Time
	TTL         time.Duration
}

// ExpiresAt returns the instant the entry stops being served.
func (e Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

type sidecar struct {
	CacheKey     string  `json:"cache_key"`
	URL          string  `json:"url"`
	FileType     string  `json:"file_type"`
	FileSize     int64   `json:"file_size"`
	DownloadTime string  `json:"download_time"`
	TTLHours     float64 `json:"ttl_hours"`
}

// Stats summarizes cache contents.
type Stats struct {
	Entries    int
	TotalBytes int64
	Expired    int
	Invalid    int
}

// Recorder receives cache and fetch outcomes for metrics export.
type Recorder interface {
	CacheLookup(hit bool)
	FetchAttempt(result string)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(bool)     {}
func (nopRecorder) FetchAttempt(string) {}

// Cache is a directory of URL-keyed payloads with JSON sidecars.
type Cache struct {
	dir      string
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	recorder Recorder
	mu       sync.Mutex
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithClock overrides the time source used for TTL decisions.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRecorder reports lookups to r.
func WithRecorder(r Recorder) CacheOption {
	return func(c *Cache) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New returns a cache rooted at dir, creating the directory when missing.
func New(dir string, ttl time.Duration, logger *slog.Logger, opts ...CacheOption) (*Cache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("mediacache: cache directory is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("mediacache: ttl must be positive, got %s", ttl)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mediacache: create cache dir: %w", err)
	}
	c := &Cache{
		dir:      dir,
		ttl:      ttl,
		logger:   logging.NewComponentLogger(logger, "mediacache"),
		now:      time.Now,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dir exposes the backing directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Key derives the cache key for a URL.
func Key(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the valid entry for rawURL. Expired, missing, empty, or
// unreadable entries report absent.
func (c *Cache) Lookup(rawURL string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, err := c.load(Key(rawURL))
	hit := err == nil
	c.recorder.CacheLookup(hit)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("cache entry rejected",
				logging.String("url", rawURL),
				logging.String("reason", err.Error()),
				logging.String(logging.FieldEventType, "cache_entry_rejected"),
			)
		}
		return Entry{}, false
	}
	c.logger.Debug("cache hit",
		logging.String("url", rawURL),
		logging.String("path", entry.PayloadPath),
		logging.String(logging.FieldEventType, "cache_hit"),
	)
	return entry, true
}

// Promote validates tempPath, renames it to the payload path for rawURL, and
// writes the sidecar. kind may be empty, in which case it is derived from the
// extension. The temp file is removed when validation fails.
func (c *Cache) Promote(tempPath, rawURL, kind string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size, format, err := inspectPayload(tempPath)
	if err != nil {
		_ = os.Remove(tempPath)
		return Entry{}, fmt.Errorf("validate download: %w", err)
	}
	if format == "" {
		logging.WarnWithContext(c.logger, "unrecognized media signature; accepting non-empty payload", "cache_unknown_signature",
			logging.String("url", rawURL),
			logging.String(logging.FieldErrorHint, "verify the source serves image or video content"),
			logging.String(logging.FieldImpact, "render may fail if the payload is not media"),
		)
	}

	ext := strings.ToLower(filepath.Ext(tempPath))
	if KindForExtension(ext) == KindUnknown {
		ext = ExtensionFor(rawURL, "")
	}
	if kind == "" {
		kind = KindForExtension(ext)
	}
	key := Key(rawURL)
	payload := filepath.Join(c.dir, key+ext)

	c.removePayloads(key, payload)
	if err := os.Rename(tempPath, payload); err != nil {
		_ = os.Remove(tempPath)
		return Entry{}, fmt.Errorf("promote download: %w", err)
	}

	created := c.now().UTC()
	meta := sidecar{
		CacheKey:     key,
		URL:          rawURL,
		FileType:     kind,
		FileSize:     size,
		DownloadTime: created.Format(time.RFC3339Nano),
		TTLHours:     c.ttl.Hours(),
	}
	if err := fileutil.WriteJSONAtomic(c.sidecarPath(key), meta); err != nil {
		return Entry{}, fmt.Errorf("write sidecar: %w", err)
	}
	c.logger.Info("media cached",
		logging.String("url", rawURL),
		logging.String("path", payload),
		logging.String("size", humanize.Bytes(uint64(size))),
		logging.String("kind", kind),
		logging.String(logging.FieldEventType, "cache_store"),
	)
	return Entry{
		Key:         key,
		URL:         rawURL,
		PayloadPath: payload,
		Kind:        kind,
		Size:        size,
		CreatedAt:   created,
		TTL:         c.ttl,
	}, nil
}

// Sweep removes every entry that fails the validity rule together with
// orphaned sidecars, orphaned payloads, and stale temp files. It returns the
// number of files removed.
func (c *Cache) Sweep() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("mediacache: read cache dir: %w", err)
	}
	valid := make(map[string]bool)
	removed := 0
	remove := func(name string) {
		if err := os.Remove(filepath.Join(c.dir, name)); err == nil {
			removed++
		} else if !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(c.logger, "cache sweep remove failed", "cache_sweep_failed",
				logging.String("file", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache directory permissions"),
				logging.String(logging.FieldImpact, "stale file remains in cache"),
			)
		}
	}

	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != sidecarExt {
			continue
		}
		key := strings.TrimSuffix(name, sidecarExt)
		if _, err := c.load(key); err == nil {
			valid[key] = true
			continue
		}
		for _, ext := range payloadExts {
			remove(key + ext)
		}
		remove(name)
	}

	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) == sidecarExt {
			continue
		}
		if strings.HasPrefix(name, tempPrefix) {
			if info, err := f.Info(); err == nil && c.now().Sub(info.ModTime()) > staleTempAfter {
				remove(name)
			}
			continue
		}
		key := strings.TrimSuffix(name, filepath.Ext(name))
		if !valid[key] {
			remove(name)
		}
	}

	c.logger.Info("cache swept",
		logging.Int("removed", removed),
		logging.Int("remaining", len(valid)),
		logging.String(logging.FieldEventType, "cache_sweep"),
	)
	return removed, nil
}

// Stats counts entries by validity and sums the bytes of valid payloads.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("mediacache: read cache dir: %w", err)
	}
	var stats Stats
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != sidecarExt {
			continue
		}
		entry, err := c.load(strings.TrimSuffix(name, sidecarExt))
		switch {
		case err == nil:
			stats.Entries++
			stats.TotalBytes += entry.Size
		case errors.Is(err, errExpired):
			stats.Expired++
		default:
			stats.Invalid++
		}
	}
	return stats, nil
}

var errExpired = errors.New("entry expired")

// load applies the validity rule to the entry stored under key.
func (c *Cache) load(key string) (Entry, error) {
	data, err := os.ReadFile(c.sidecarPath(key))
	if err != nil {
		return Entry{}, err
	}
	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return Entry{}, fmt.Errorf("decode sidecar: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, meta.DownloadTime)
	if err != nil {
		return Entry{}, fmt.Errorf("parse download_time: %w", err)
	}
	payload, ok := c.findPayload(key)
	if !ok {
		return Entry{}, fmt.Errorf("payload missing: %w", os.ErrNotExist)
	}
	size, _, err := inspectPayload(payload)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		Key:         key,
		URL:         meta.URL,
		PayloadPath: payload,
		Kind:        meta.FileType,
		Size:        size,
		CreatedAt:   created,
		TTL:         c.ttl,
	}
	if !c.now().Before(entry.ExpiresAt()) {
		return entry, errExpired
	}
	return entry, nil
}

func (c *Cache) findPayload(key string) (string, bool) {
	for _, ext := range payloadExts {
		candidate := filepath.Join(c.dir, key+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// removePayloads deletes payloads for key other than keep, so a re-download
// with a different extension does not leave a shadowing file behind.
func (c *Cache) removePayloads(key, keep string) {
	for _, ext := range payloadExts {
		candidate := filepath.Join(c.dir, key+ext)
		if candidate == keep {
			continue
		}
		_ = os.Remove(candidate)
	}
}

func (c *Cache) sidecarPath(key string) string {
	return filepath.Join(c.dir, key+sidecarExt)
}
