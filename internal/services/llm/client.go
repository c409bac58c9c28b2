package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hookreel/internal/logging"
	"hookreel/internal/services"
)

const (
	defaultEndpoint  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1000
	roleUser         = "user"
	serviceName      = "llm"
)

// Config holds the endpoint, credentials, and OpenRouter attribution headers.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client posts single-prompt chat completions.
type Client struct {
	cfg       Config
	http      *http.Client
	logger    *slog.Logger
	maxTokens int
	retry     retryPolicy
	sleep     func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, serviceName)
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(tokens int) Option {
	return func(c *Client) {
		if tokens > 0 {
			c.maxTokens = tokens
		}
	}
}

// WithRetryMaxAttempts sets the total number of attempts, including the first.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff sets the first retry delay and the ceiling it doubles up to.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) {
		c.retry.base = base
		c.retry.ceiling = ceiling
	}
}

// WithSleeper replaces the wait between attempts. Tests use it to observe
// delays without waiting.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient builds a client. An empty BaseURL targets OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: timeout},
		logger:    logging.NewNop(),
		maxTokens: defaultMaxTokens,
		retry:     defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry = c.retry.normalized()
	return c
}

// Complete sends prompt as a single user message and returns the trimmed
// reply. Rate limits, server errors, timeouts, and empty replies are retried.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrValidation, serviceName, "complete", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, serviceName, "complete", "api key not configured", nil)
	}
	req := chatCompletionRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: roleUser, Content: prompt}},
		MaxTokens: c.maxTokens,
	}
	return c.withRetry(ctx, func() (string, error) {
		return c.post(ctx, req)
	})
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// statusError is a non-2xx reply. RetryAfter is zero when the server sent
// no usable hint.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, strings.TrimSpace(e.Body))
}

func (c *Client) post(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, serviceName, "encode request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, serviceName, "build request", c.cfg.BaseURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.transportError(ctx, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.transportError(ctx, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		status := &statusError{Code: resp.StatusCode, Body: string(body), RetryAfter: retryAfter}
		return "", services.Wrap(statusMarker(resp.StatusCode), serviceName, "complete", "", status)
	}
	return decodeReply(body)
}

func statusMarker(code int) error {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return services.ErrTransient
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return services.ErrConfiguration
	default:
		return services.ErrExternalTool
	}
}

type timeoutError interface {
	Timeout() bool
}

// transportError tags a failed round trip. Caller cancellation passes through
// untagged; client timeouts become ErrTimeout so they are retried.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var te timeoutError
	if errors.As(err, &te) && te.Timeout() {
		return services.Wrap(services.ErrTimeout, serviceName, "complete", fmt.Sprintf("no reply within %s", c.http.Timeout), err)
	}
	return services.Wrap(services.ErrExternalTool, serviceName, "complete", "", err)
}
