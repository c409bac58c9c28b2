package slack_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hookreel/internal/services"
	"hookreel/internal/services/slack"
)

func authorized(r *http.Request, token string) bool {
	return r.Header.Get("Authorization") == "Bearer "+token || r.FormValue("token") == token
}

func TestPostMessageAndReplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, "xoxb-1") {
			t.Errorf("request %s not authorized with bot token", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat.postMessage":
			if r.FormValue("channel") != "C1" || r.FormValue("text") != "hello" {
				t.Errorf("unexpected form %v", r.Form)
			}
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"171.000"}`))
		case "/conversations.replies":
			if r.FormValue("ts") != "171.000" || r.FormValue("channel") != "C1" {
				t.Errorf("unexpected form %v", r.Form)
			}
			if r.FormValue("cursor") == "" {
				_, _ = w.Write([]byte(`{"ok":true,"has_more":true,"messages":[{"ts":"171.000","text":"root"}],"response_metadata":{"next_cursor":"page2"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"has_more":false,"messages":[{"ts":"172.000","thread_ts":"171.000","user":"U1","text":"1, 2, 3"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := slack.NewClient("xoxb-1", srv.URL)
	ts, err := client.PostMessage(context.Background(), "C1", "hello")
	if err != nil || ts != "171.000" {
		t.Fatalf("PostMessage = %q, %v", ts, err)
	}
	msgs, err := client.Replies(context.Background(), "C1", ts)
	if err != nil {
		t.Fatalf("Replies: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Text != "1, 2, 3" || msgs[1].User != "U1" || msgs[1].ThreadTS != "171.000" {
		t.Fatalf("unexpected messages %#v", msgs)
	}
}

func TestRateLimitedCallWaitsRetryAfter(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"5.000"}`))
	}))
	defer srv.Close()

	var waits []time.Duration
	client := slack.NewClient("t", srv.URL, slack.WithSleeper(func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}))
	ts, err := client.PostMessage(context.Background(), "C1", "x")
	if err != nil || ts != "5.000" {
		t.Fatalf("PostMessage = %q, %v", ts, err)
	}
	if calls != 2 || len(waits) != 1 || waits[0] != 2*time.Second {
		t.Fatalf("calls=%d waits=%v", calls, waits)
	}
}

func TestAPIErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		marker error
	}{
		{"invalid auth", http.StatusOK, `{"ok":false,"error":"invalid_auth"}`, services.ErrConfiguration},
		{"ratelimited body", http.StatusOK, `{"ok":false,"error":"ratelimited"}`, services.ErrTransient},
		{"http 429", http.StatusTooManyRequests, ``, services.ErrTransient},
		{"http 502", http.StatusBadGateway, ``, services.ErrTransient},
		{"other api error", http.StatusOK, `{"ok":false,"error":"msg_too_long"}`, services.ErrExternalTool},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			client := slack.NewClient("t", srv.URL, slack.WithSleeper(func(context.Context, time.Duration) error { return nil }))
			_, err := client.PostMessage(context.Background(), "C", "x")
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestMissingTokenIsConfigurationError(t *testing.T) {
	_, err := slack.NewClient("", "http://127.0.0.1:1").Replies(context.Background(), "C", "1")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
