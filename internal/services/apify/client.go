// Package apify runs the configured Apify search actor and maps its dataset
// items into work items.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hookreel/internal/logging"
	"hookreel/internal/services"
	"hookreel/internal/workitem"
)

const (
	defaultBaseURL      = "https://api.apify.com/v2"
	defaultPollInterval = 3 * time.Second
	defaultTimeout      = 5 * time.Minute
)

// Run states reported by the actor-runs endpoint.
const (
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusAborted   = "ABORTED"
	statusTimedOut  = "TIMED-OUT"
)

// Config captures the Apify connection settings.
type Config struct {
	Token          string
	ActorID        string
	BaseURL        string
	TimeoutSeconds int
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithPollInterval overrides how often run status is checked.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pollInterval = d
		}
	}
}

// Client talks to the Apify REST API.
type Client struct {
	cfg          Config
	http         *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// NewClient constructs an Apify client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.ActorID = strings.TrimSpace(cfg.ActorID)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:          cfg,
		http:         &http.Client{Timeout: time.Minute},
		pollInterval: defaultPollInterval,
		timeout:      timeout,
		logger:       logging.NewComponentLogger(logger, "apify"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs the actor for one query and returns the non-repost items that
// carry text. mode is "Top" or "Latest".
func (c *Client) Search(ctx context.Context, query string, maxItems int, mode string) ([]workitem.Item, error) {
	if c.cfg.Token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "collect", "apify search", "api token not configured", nil)
	}
	if c.cfg.ActorID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "collect", "apify search", "actor id not configured", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := map[string]any{
		"searchQueries": []string{query},
		"maxTweets":     maxItems,
		"searchType":    mode,
	}
	runID, err := c.startRun(ctx, input)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("actor run started",
		logging.String("run", runID),
		logging.String(logging.FieldTopic, query),
		logging.String(logging.FieldEventType, "apify_run_started"),
	)
	datasetID, err := c.waitForRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	raw, err := c.datasetItems(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	items := make([]workitem.Item, 0, len(raw))
	for _, entry := range raw {
		item, ok := MapItem(entry)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) startRun(ctx context.Context, input map[string]any) (string, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("apify: encode input: %w", err)
	}
	endpoint := fmt.Sprintf("%s/acts/%s/runs", c.cfg.BaseURL, url.PathEscape(c.cfg.ActorID))
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("apify: start run: %w", err)
	}
	if resp.Data.ID == "" {
		return "", services.Wrap(services.ErrValidation, "collect", "apify start run", "response missing run id", nil)
	}
	return resp.Data.ID, nil
}

func (c *Client) waitForRun(ctx context.Context, runID string) (string, error) {
	endpoint := fmt.Sprintf("%s/actor-runs/%s", c.cfg.BaseURL, url.PathEscape(runID))
	for {
		var resp struct {
			Data struct {
				Status           string `json:"status"`
				DefaultDatasetID string `json:"defaultDatasetId"`
			} `json:"data"`
		}
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return "", fmt.Errorf("apify: run status: %w", err)
		}
		switch resp.Data.Status {
		case statusSucceeded:
			return resp.Data.DefaultDatasetID, nil
		case statusFailed, statusAborted, statusTimedOut:
			return "", services.Wrap(services.ErrExternalTool, "collect", "apify run", "run finished with status "+resp.Data.Status, nil)
		}
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", services.Wrap(services.ErrTimeout, "collect", "apify run", "run did not finish in time", ctx.Err())
			}
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) datasetItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?format=json&clean=true", c.cfg.BaseURL, url.PathEscape(datasetID))
	var items []map[string]any
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &items); err != nil {
		return nil, fmt.Errorf("apify: dataset items: %w", err)
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "collect", "apify request", "", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "collect", "apify request", "read body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		marker := services.ErrTransient
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			marker = services.ErrConfiguration
		case http.StatusNotFound:
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, "collect", "apify request", fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(payload)), nil)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrValidation, "collect", "apify request", "decode response", err)
	}
	return nil
}

func snippet(payload []byte) string {
	text := strings.Join(strings.Fields(string(payload)), " ")
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}
