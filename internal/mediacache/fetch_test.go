package mediacache_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hookreel/internal/mediacache"
	"hookreel/internal/services"
)

type fakeTimer struct {
	waits []time.Duration
	ch    chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.ch = make(chan time.Time, 1)
	f.ch <- time.Time{}
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.ch }

type countingObserver struct {
	begun int
	bytes int
	ended int
}

func (o *countingObserver) Begin(string, int64) { o.begun++ }
func (o *countingObserver) Advance(n int)       { o.bytes += n }
func (o *countingObserver) End(error)           { o.ended++ }

type recorder struct {
	hits, misses int
	attempts     []string
}

func (r *recorder) CacheLookup(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recorder) FetchAttempt(result string) { r.attempts = append(r.attempts, result) }

func newFetcher(t *testing.T, opts ...mediacache.FetchOption) (*mediacache.Fetcher, *mediacache.Cache, *fakeTimer) {
	t.Helper()
	cache, _ := newCache(t, time.Hour)
	timer := &fakeTimer{}
	opts = append([]mediacache.FetchOption{mediacache.WithTimer(timer)}, opts...)
	fetcher := mediacache.NewFetcher(cache, mediacache.DefaultPolicy(), nil, opts...)
	return fetcher, cache, timer
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "download_*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestFetchRetriesWithDoublingDelay(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fetcher, cache, timer := newFetcher(t)
	_, err := fetcher.Fetch(context.Background(), srv.URL+"/a.jpg")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("requests = %d, want 3", got)
	}
	if len(timer.waits) != 2 || timer.waits[0] != time.Second || timer.waits[1] != 2*time.Second {
		t.Fatalf("waits = %v, want [1s 2s]", timer.waits)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") || !strings.Contains(err.Error(), "HTTP 503") {
		t.Fatalf("unexpected error: %v", err)
	}
	assertNoTempFiles(t, cache.Dir())
}

func TestFetchPermanentFailureSingleAttempt(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden} {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(status)
		}))

		rec := &recorder{}
		fetcher, cache, timer := newFetcher(t, mediacache.WithFetchRecorder(rec))
		_, err := fetcher.Fetch(context.Background(), srv.URL+"/gone.mp4")
		srv.Close()

		if !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("status %d: expected ErrNotFound, got %v", status, err)
		}
		if requests.Load() != 1 || len(timer.waits) != 0 {
			t.Fatalf("status %d: requests=%d waits=%v, want one attempt without delay", status, requests.Load(), timer.waits)
		}
		if len(rec.attempts) != 1 || rec.attempts[0] != mediacache.AttemptPermanent {
			t.Fatalf("status %d: recorded attempts %v", status, rec.attempts)
		}
		assertNoTempFiles(t, cache.Dir())
	}
}

func TestFetchRecoversAndServesFromCache(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "oops", http.StatusBadGateway)
			return
		}
		if got := r.Header.Get("User-Agent"); got != mediacache.DefaultUserAgent {
			t.Errorf("user agent = %q", got)
		}
		_, _ = w.Write(jpegBytes)
	}))
	defer srv.Close()

	obs := &countingObserver{}
	fetcher, cache, timer := newFetcher(t, mediacache.WithObserver(obs))
	url := srv.URL + "/photo.jpg"

	path, err := fetcher.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Dir(path) != cache.Dir() || filepath.Ext(path) != ".jpg" {
		t.Fatalf("unexpected path %q", path)
	}
	if len(timer.waits) != 1 {
		t.Fatalf("waits = %v, want one retry", timer.waits)
	}
	if obs.bytes != len(jpegBytes) || obs.ended != obs.begun {
		t.Fatalf("observer = %+v", obs)
	}

	again, err := fetcher.Fetch(context.Background(), url)
	if err != nil || again != path {
		t.Fatalf("second Fetch = %q, %v", again, err)
	}
	if requests.Load() != 2 {
		t.Fatalf("cache hit must not touch network, requests = %d", requests.Load())
	}
	assertNoTempFiles(t, cache.Dir())
}

func TestFetchRetriesEmptyBody(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fetcher, cache, _ := newFetcher(t)
	if _, err := fetcher.Fetch(context.Background(), srv.URL+"/empty.png"); err == nil {
		t.Fatal("expected validation failure")
	}
	if requests.Load() != 3 {
		t.Fatalf("requests = %d, want 3", requests.Load())
	}
	assertNoTempFiles(t, cache.Dir())
}

func TestFetchUsesContentTypeExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2'})
	}))
	defer srv.Close()

	fetcher, _, _ := newFetcher(t)
	path, err := fetcher.Fetch(context.Background(), srv.URL+"/media/12345")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Fatalf("path = %q, want .mp4 payload", path)
	}
	if info, err := os.Stat(path); err != nil || info.Size() != 12 {
		t.Fatalf("payload stat = %v, %v", info, err)
	}
}

func TestFetchHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher, _, _ := newFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetcher.Fetch(ctx, srv.URL+"/a.jpg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	fetcher, _, _ := newFetcher(t)
	if _, err := fetcher.Fetch(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchTruncatedTransferLeavesNothingInCache(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jpegBytes[:4])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer cannot hijack")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	fetcher, cache, timer := newFetcher(t)
	url := srv.URL + "/cut.jpg"
	if _, err := fetcher.Fetch(context.Background(), url); err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected failure after retries, got %v", err)
	}
	if requests.Load() != 3 || len(timer.waits) != 2 {
		t.Fatalf("requests=%d waits=%v", requests.Load(), timer.waits)
	}
	final := filepath.Join(cache.Dir(), mediacache.Key(url)+".jpg")
	if _, err := os.Stat(final); !os.IsNotExist(err) {
		t.Fatalf("final payload must not exist, stat err = %v", err)
	}
	entries, err := os.ReadDir(cache.Dir())
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cache dir should be empty, found %d entries", len(entries))
	}
	if _, ok := cache.Lookup(url); ok {
		t.Fatal("truncated transfer must not be a cache hit")
	}
}

func TestFetchSucceedsOnThirdAttempt(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(jpegBytes)
	}))
	defer srv.Close()

	fetcher, cache, timer := newFetcher(t)
	path, err := fetcher.Fetch(context.Background(), srv.URL+"/third.jpg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if requests.Load() != 3 {
		t.Fatalf("requests = %d, want 3", requests.Load())
	}
	if len(timer.waits) != 2 || timer.waits[0] != time.Second || timer.waits[1] != 2*time.Second {
		t.Fatalf("waits = %v, want [1s 2s]", timer.waits)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(got) != string(jpegBytes) {
		t.Fatalf("cached body = %x, want %x", got, jpegBytes)
	}
	assertNoTempFiles(t, cache.Dir())
}
