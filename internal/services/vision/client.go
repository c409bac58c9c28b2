// Package vision describes post media with an OpenAI-compatible vision model.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"hookreel/internal/logging"
)

// Media kinds understood by Describe.
const (
	KindImage = "image"
	KindVideo = "video"
)

const (
	imagePrompt      = "Describe this image concisely in 1-2 sentences. Focus on the key visual elements and any text visible in the image."
	videoPromptFmt   = "Describe the content of this video concisely in 1-2 sentences: %s"
	defaultMaxTokens = 150
	defaultTimeout   = 60 * time.Second

	// ErrorPrefix starts every description that records a failure.
	ErrorPrefix = "Error generating description: "
	// NoURL is recorded for media entries without a URL.
	NoURL = "No URL available"
)

// Config captures the vision endpoint settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
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

// Client wraps go-openai chat completions for media description.
type Client struct {
	api        *openai.Client
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a vision client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewComponentLogger(logger, "vision"),
	}
	for _, opt := range opts {
		opt(c)
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		apiCfg.BaseURL = base
	}
	apiCfg.HTTPClient = c.httpClient
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// Describe returns a one or two sentence description of the media at
// mediaURL. Failures are returned as description text prefixed with
// ErrorPrefix so the stage can record them on the item and move on.
func (c *Client) Describe(ctx context.Context, mediaURL, kind string) string {
	mediaURL = strings.TrimSpace(mediaURL)
	if mediaURL == "" {
		return NoURL
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	var (
		text string
		err  error
	)
	switch kind {
	case KindImage:
		text, err = c.complete(ctx, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: imagePrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: mediaURL, Detail: openai.ImageURLDetailAuto}},
			},
		})
	case KindVideo:
		text, err = c.complete(ctx, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(videoPromptFmt, mediaURL),
		})
	default:
		return fmt.Sprintf("Unknown media type: %s", kind)
	}
	if err != nil {
		logging.WarnWithContext(c.logger, "media description failed", "description_failed",
			logging.String("url", mediaURL),
			logging.String("kind", kind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check descriptions.api_key and model access"),
			logging.String(logging.FieldImpact, "hooks are generated without this media context"),
		)
		return ErrorPrefix + err.Error()
	}
	return text
}

func (c *Client) complete(ctx context.Context, message openai.ChatCompletionMessage) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("vision api key not configured")
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []openai.ChatCompletionMessage{message},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty content")
	}
	return text, nil
}
