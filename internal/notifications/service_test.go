package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hookreel/internal/config"
	"hookreel/internal/notifications"
)

type captured struct {
	title, tags, priority, body string
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyStageFailed(context.Background(), "render", errors.New("boom")); err != nil {
		t.Fatalf("noop notifier should return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("nil config should yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyRunCompleted(ctx, notifications.RunReport{Duration: 90 * time.Second, Items: 4, Videos: 5, VideosAttempted: 6, FinalOutput: "/out/final.json"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyStageFailed(ctx, "collect", errors.New("apify down")); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifySelectionRequested(ctx, "slack", 1); err != nil {
		t.Fatal(err)
	}

	if len(*got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(*got))
	}
	done := (*got)[0]
	if done.title != "hookreel - Run Complete (with errors)" || done.tags != "hookreel,run,completed" {
		t.Fatalf("unexpected completion headers %+v", done)
	}
	if !strings.Contains(done.body, "5/6 videos rendered from 4 posts in 1m30s") || !strings.Contains(done.body, "/out/final.json") {
		t.Fatalf("unexpected completion body %q", done.body)
	}
	failed := (*got)[1]
	if failed.priority != "high" || !strings.Contains(failed.body, "collect") || !strings.Contains(failed.body, "apify down") {
		t.Fatalf("unexpected failure payload %+v", failed)
	}
	if !strings.Contains((*got)[2].body, "1 post awaiting hook selection via slack") {
		t.Fatalf("unexpected selection body %q", (*got)[2].body)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
