// Package slack wraps github.com/slack-go/slack for the two calls hook
// selection needs: posting a message and reading a thread.
package slack

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"hookreel/internal/services"
)

const (
	defaultBaseURL     = "https://slack.com/api"
	defaultRateRetries = 3
	maxRetryAfter      = time.Minute
)

// Message is a single message in a conversation or thread.
type Message struct {
	TS       string
	ThreadTS string
	User     string
	BotID    string
	Text     string
}

// Client calls the Slack Web API with a bot token. Rate-limited calls are
// retried after the server's Retry-After delay.
type Client struct {
	token       string
	api         *slackapi.Client
	httpClient  *http.Client
	rateRetries int
	sleep       func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimitRetries sets how many times a rate-limited call is retried.
func WithRateLimitRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.rateRetries = n
		}
	}
}

// WithSleeper replaces the Retry-After wait.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a Slack client. An empty baseURL uses slack.com.
func NewClient(token, baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		token:       strings.TrimSpace(token),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateRetries: defaultRateRetries,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = slackapi.New(c.token,
		slackapi.OptionAPIURL(baseURL+"/"),
		slackapi.OptionHTTPClient(c.httpClient),
	)
	return c
}

// PostMessage posts text to channel and returns the message timestamp,
// which also identifies the thread for replies.
func (c *Client) PostMessage(ctx context.Context, channel, text string) (string, error) {
	var ts string
	err := c.call(ctx, "chat.postMessage", func() error {
		var err error
		_, ts, err = c.api.PostMessageContext(ctx, channel,
			slackapi.MsgOptionText(text, false),
			slackapi.MsgOptionDisableLinkUnfurl(),
			slackapi.MsgOptionDisableMediaUnfurl(),
		)
		return err
	})
	return ts, err
}

// Replies returns every message of the thread rooted at ts, following
// pagination. The first message is the thread root.
func (c *Client) Replies(ctx context.Context, channel, ts string) ([]Message, error) {
	var out []Message
	params := &slackapi.GetConversationRepliesParameters{ChannelID: channel, Timestamp: ts}
	for {
		var (
			page []slackapi.Message
			more bool
			next string
		)
		err := c.call(ctx, "conversations.replies", func() error {
			var err error
			page, more, next, err = c.api.GetConversationRepliesContext(ctx, params)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			out = append(out, Message{
				TS:       m.Timestamp,
				ThreadTS: m.ThreadTimestamp,
				User:     m.User,
				BotID:    m.BotID,
				Text:     m.Text,
			})
		}
		if !more || next == "" {
			return out, nil
		}
		params.Cursor = next
	}
}

// call runs fn, waiting out rate limits, and tags the final error.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	if c.token == "" {
		return services.Wrap(services.ErrConfiguration, "select", "slack "+method, "bot token not configured", nil)
	}
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var limited *slackapi.RateLimitedError
		if !errors.As(err, &limited) || attempt >= c.rateRetries {
			return classify(method, err)
		}
		if err := c.sleep(ctx, min(limited.RetryAfter, maxRetryAfter)); err != nil {
			return err
		}
	}
}

func classify(method string, err error) error {
	var limited *slackapi.RateLimitedError
	if errors.As(err, &limited) {
		return services.Wrap(services.ErrTransient, "select", "slack "+method, "rate limited, retry after "+limited.RetryAfter.String(), err)
	}
	var status slackapi.StatusCodeError
	if errors.As(err, &status) {
		return services.Wrap(services.ErrTransient, "select", "slack "+method, "", err)
	}
	code := err.Error()
	var apiErr slackapi.SlackErrorResponse
	if errors.As(err, &apiErr) {
		code = apiErr.Err
	}
	switch code {
	case "not_authed", "invalid_auth", "account_inactive", "token_revoked", "channel_not_found", "not_in_channel", "missing_scope":
		return services.Wrap(services.ErrConfiguration, "select", "slack "+method, code, nil)
	case "ratelimited":
		return services.Wrap(services.ErrTransient, "select", "slack "+method, code, nil)
	}
	if apiErr.Err != "" {
		return services.Wrap(services.ErrExternalTool, "select", "slack "+method, code, nil)
	}
	return services.Wrap(services.ErrTransient, "select", "slack "+method, "", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
