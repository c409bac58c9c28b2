package mediacache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"hookreel/internal/logging"
	"hookreel/internal/services"
)

// Fetch attempt outcomes reported to the Recorder.
const (
	AttemptSuccess   = "success"
	AttemptRetry     = "retry"
	AttemptPermanent = "permanent"
)

// DefaultUserAgent identifies media requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; MediaDownloader/1.0)"

// Policy controls retries and per-request limits.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Timeout      time.Duration
	UserAgent    string
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Timeout:      30 * time.Second,
		UserAgent:    DefaultUserAgent,
	}
}

// Observer receives transfer progress. It is advisory only.
type Observer interface {
	Begin(url string, total int64)
	Advance(n int)
	End(err error)
}

type nopObserver struct{}

func (nopObserver) Begin(string, int64) {}
func (nopObserver) Advance(int)         {}
func (nopObserver) End(error)           {}

// Fetcher downloads media into a Cache.
type Fetcher struct {
	cache    *Cache
	policy   Policy
	client   *http.Client
	timer    backoff.Timer
	observer Observer
	recorder Recorder
	logger   *slog.Logger
}

// FetchOption customizes a Fetcher.
type FetchOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimer overrides the timer used between attempts.
func WithTimer(timer backoff.Timer) FetchOption {
	return func(f *Fetcher) {
		if timer != nil {
			f.timer = timer
		}
	}
}

// WithObserver reports transfer progress to obs.
func WithObserver(obs Observer) FetchOption {
	return func(f *Fetcher) {
		if obs != nil {
			f.observer = obs
		}
	}
}

// WithFetchRecorder reports attempt outcomes to r.
func WithFetchRecorder(r Recorder) FetchOption {
	return func(f *Fetcher) {
		if r != nil {
			f.recorder = r
		}
	}
}

// NewFetcher constructs a Fetcher backed by cache.
func NewFetcher(cache *Cache, policy Policy, logger *slog.Logger, opts ...FetchOption) *Fetcher {
	defaults := DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaults.MaxAttempts
	}
	if policy.InitialDelay < 0 {
		policy.InitialDelay = defaults.InitialDelay
	}
	if policy.Timeout <= 0 {
		policy.Timeout = defaults.Timeout
	}
	if strings.TrimSpace(policy.UserAgent) == "" {
		policy.UserAgent = defaults.UserAgent
	}
	f := &Fetcher{
		cache:    cache,
		policy:   policy,
		client:   &http.Client{},
		observer: nopObserver{},
		recorder: cache.recorder,
		logger:   logging.NewComponentLogger(logger, "fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the local path of the payload for rawURL, downloading it
// when no valid cache entry exists.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", services.Wrap(services.ErrValidation, "download", "fetch", "media url is empty", nil)
	}
	if entry, ok := f.cache.Lookup(rawURL); ok {
		return entry.PayloadPath, nil
	}

	attempts := 0
	var entry Entry
	operation := func() error {
		attempts++
		var err error
		entry, err = f.attempt(ctx, rawURL)
		switch {
		case err == nil:
			f.recorder.FetchAttempt(AttemptSuccess)
		case isPermanent(err):
			f.recorder.FetchAttempt(AttemptPermanent)
		default:
			f.recorder.FetchAttempt(AttemptRetry)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logging.WarnWithContext(f.logger, "download attempt failed; retrying", "download_retry",
			logging.String("url", rawURL),
			logging.Int("attempt", attempts),
			logging.Duration("wait", wait),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity and the media host"),
			logging.String(logging.FieldImpact, "download delayed"),
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, f.schedule(ctx), notify, f.timer)
	if err == nil {
		return entry.PayloadPath, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, ctxErr)
	}
	if errors.Is(err, services.ErrNotFound) {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	return "", fmt.Errorf("download %s failed after %d attempts: %w", rawURL, attempts, err)
}

// schedule yields initial_delay * 2^(n-1) between attempts, MaxAttempts-1 times.
func (f *Fetcher) schedule(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.policy.InitialDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = 24 * time.Hour
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.policy.MaxAttempts-1)), ctx)
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) (entry Entry, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Entry{}, backoff.Permanent(services.Wrap(services.ErrValidation, "download", "build request", rawURL, err))
	}
	req.Header.Set("User-Agent", f.policy.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Entry{}, services.Wrap(services.ErrTimeout, "download", "request", rawURL, err)
		}
		return Entry{}, services.Wrap(services.ErrTransient, "download", "request", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return Entry{}, backoff.Permanent(services.Wrap(services.ErrNotFound, "download", "request", fmt.Sprintf("HTTP %d", resp.StatusCode), nil))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Entry{}, services.Wrap(services.ErrTransient, "download", "request", fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	ext := ExtensionFor(rawURL, resp.Header.Get("Content-Type"))
	tmp, err := os.CreateTemp(f.cache.Dir(), tempPrefix+"*"+ext)
	if err != nil {
		return Entry{}, backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	promoted := false
	defer func() {
		if !promoted {
			_ = os.Remove(tmpPath)
		}
	}()

	f.observer.Begin(rawURL, resp.ContentLength)
	_, copyErr := io.Copy(tmp, &progressReader{reader: resp.Body, observer: f.observer})
	closeErr := tmp.Close()
	f.observer.End(errors.Join(copyErr, closeErr))
	if copyErr != nil {
		return Entry{}, services.Wrap(services.ErrTransient, "download", "transfer", rawURL, copyErr)
	}
	if closeErr != nil {
		return Entry{}, services.Wrap(services.ErrTransient, "download", "transfer", "close temp file", closeErr)
	}

	entry, err = f.cache.Promote(tmpPath, rawURL, KindForExtension(ext))
	if err != nil {
		return Entry{}, services.Wrap(services.ErrValidation, "download", "promote", rawURL, err)
	}
	promoted = true
	return entry, nil
}

func isPermanent(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}

type progressReader struct {
	reader   io.Reader
	observer Observer
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.observer.Advance(n)
	}
	return n, err
}
