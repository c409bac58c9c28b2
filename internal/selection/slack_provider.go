package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hookreel/internal/logging"
	"hookreel/internal/services"
	"hookreel/internal/services/slack"
	"hookreel/internal/workitem"
)

// SlackAPI is the subset of the Slack client the provider uses.
type SlackAPI interface {
	PostMessage(ctx context.Context, channel, text string) (string, error)
	Replies(ctx context.Context, channel, ts string) ([]slack.Message, error)
}

// SlackProvider posts one message per item and reads thread replies.
type SlackProvider struct {
	api       SlackAPI
	channel   string
	postDelay time.Duration
	logger    *slog.Logger
}

// NewSlackProvider constructs a Slack-backed provider. postDelay spaces out
// item messages to stay under Slack's posting rate limit.
func NewSlackProvider(api SlackAPI, channel string, postDelay time.Duration, logger *slog.Logger) *SlackProvider {
	return &SlackProvider{
		api:       api,
		channel:   channel,
		postDelay: postDelay,
		logger:    logging.NewComponentLogger(logger, "selection.slack"),
	}
}

// Name implements Provider.
func (p *SlackProvider) Name() string { return "slack" }

// Post implements Provider. Items are grouped by topic behind a header.
func (p *SlackProvider) Post(ctx context.Context, items []workitem.Item) ([]Thread, error) {
	if p.channel == "" {
		return nil, services.Wrap(services.ErrConfiguration, "select", "slack post", "channel id not configured", nil)
	}
	topics, groups := GroupByTopic(items, Reviewable(items))
	threads := make([]Thread, 0, len(items))
	for _, topic := range topics {
		indices := groups[topic]
		if _, err := p.api.PostMessage(ctx, p.channel, TopicHeader(topic, len(indices))); err != nil {
			return nil, fmt.Errorf("post topic header %q: %w", topic, err)
		}
		for _, idx := range indices {
			ts, err := p.api.PostMessage(ctx, p.channel, FormatItem(idx, items[idx]))
			if err != nil {
				return nil, fmt.Errorf("post item %d: %w", idx+1, err)
			}
			threads = append(threads, Thread{Index: idx, Ref: ts, HookCount: len(items[idx].Hooks)})
			if err := sleepContext(ctx, p.postDelay); err != nil {
				return nil, err
			}
		}
		p.logger.Info("posted topic for review",
			logging.String(logging.FieldTopic, topic),
			logging.Int("items", len(indices)),
			logging.String(logging.FieldEventType, "selection_topic_posted"),
		)
	}
	return threads, nil
}

// Poll implements Provider. The thread root is skipped, as are messages
// posted by bots.
func (p *SlackProvider) Poll(ctx context.Context, pending []Thread) (map[int][]string, error) {
	out := make(map[int][]string, len(pending))
	var transient error
	for _, thread := range pending {
		messages, err := p.api.Replies(ctx, p.channel, thread.Ref)
		if err != nil {
			if !errors.Is(err, services.ErrTransient) {
				return out, err
			}
			transient = err
			continue
		}
		if len(messages) <= 1 {
			continue
		}
		for _, msg := range messages[1:] {
			if msg.BotID != "" {
				continue
			}
			out[thread.Index] = append(out[thread.Index], msg.Text)
		}
	}
	if transient != nil && len(out) == 0 {
		return out, transient
	}
	return out, nil
}
