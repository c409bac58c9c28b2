package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hookreel/internal/config"
	"hookreel/internal/services"
	"hookreel/internal/textutil"
)

const userAgent = "hookreel/0.1"

// RunReport is the subset of a run summary included in notifications.
type RunReport struct {
	RunID           string
	Duration        time.Duration
	CompletedStages int
	Items           int
	Videos          int
	VideosAttempted int
	FinalOutput     string
}

// Service defines the notification surface used by the pipeline.
type Service interface {
	NotifyRunStarted(ctx context.Context, runID string, topics []string) error
	NotifySelectionRequested(ctx context.Context, provider string, items int) error
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyStageFailed(ctx context.Context, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, runID string, topics []string) error {
	message := "Pipeline run started"
	if len(topics) > 0 {
		message = fmt.Sprintf("Pipeline run started for: %s", strings.Join(topics, ", "))
	}
	if id := strings.TrimSpace(runID); id != "" {
		message += fmt.Sprintf("\nRun: %s", id)
	}
	return n.send(ctx, payload{
		title:   "hookreel - Run Started",
		message: message,
		tags:    []string{"hookreel", "run", "started"},
	})
}

func (n *ntfyService) NotifySelectionRequested(ctx context.Context, provider string, items int) error {
	noun := "posts"
	if items == 1 {
		noun = "post"
	}
	return n.send(ctx, payload{
		title:    "hookreel - Review Needed",
		message:  fmt.Sprintf("📝 %d %s awaiting hook selection via %s", items, noun, strings.TrimSpace(provider)),
		tags:     []string{"hookreel", "selection", "review"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	duration := max(report.Duration.Round(time.Second), 0)
	title := "hookreel - Run Complete"
	if report.VideosAttempted > report.Videos {
		title = "hookreel - Run Complete (with errors)"
	}
	message := fmt.Sprintf("✅ %d/%d videos rendered from %d posts in %s",
		report.Videos, report.VideosAttempted, report.Items, duration)
	if out := strings.TrimSpace(report.FinalOutput); out != "" {
		message += fmt.Sprintf("\nOutput: %s", out)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"hookreel", "run", "completed"},
	})
}

// maxErrorLength bounds the error text in failure notifications.
const maxErrorLength = 500

func (n *ntfyService) NotifyStageFailed(ctx context.Context, stage string, err error) error {
	var builder strings.Builder
	builder.WriteString("❌ Stage failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(": ")
		builder.WriteString(stage)
	}
	builder.WriteString("\n")
	if err != nil {
		builder.WriteString(textutil.Truncate(strings.TrimSpace(err.Error()), maxErrorLength))
	} else {
		builder.WriteString("unknown error")
	}
	return n.send(ctx, payload{
		title:    "hookreel - Error",
		message:  builder.String(),
		tags:     []string{"hookreel", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "hookreel - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"hookreel", "test"},
		priority: "low",
	})
}

// send posts data as an ntfy message. Title, tags, and priority travel as
// headers; the body is the plain-text message.
func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notifications", "build request", n.endpoint, err)
	}
	for key, value := range data.headers() {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notifications", "send", "", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode >= http.StatusMultipleChoices {
		marker := services.ErrConfiguration
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "notifications", "send", fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return nil
}

func (p payload) headers() map[string]string {
	headers := map[string]string{
		"User-Agent":   userAgent,
		"Content-Type": "text/plain; charset=utf-8",
	}
	if p.title != "" {
		headers["Title"] = p.title
	}
	if len(p.tags) > 0 {
		headers["Tags"] = strings.Join(p.tags, ",")
	}
	if p.priority != "" && p.priority != "default" {
		headers["Priority"] = p.priority
	}
	return headers
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, []string) error      { return nil }
func (noopService) NotifySelectionRequested(context.Context, string, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, RunReport) error         { return nil }
func (noopService) NotifyStageFailed(context.Context, string, error) error      { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
