package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"hookreel/internal/logging"
	"hookreel/internal/services"
)

type retryPolicy struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 5, base: time.Second, ceiling: 10 * time.Second}
}

func (p retryPolicy) normalized() retryPolicy {
	if p.attempts < 1 {
		p.attempts = 1
	}
	if p.base < 0 {
		p.base = 0
	}
	if p.ceiling < p.base {
		p.ceiling = p.base
	}
	return p
}

// schedule yields the doubling delays between attempts without jitter.
func (p retryPolicy) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.base
	b.MaxInterval = p.ceiling
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// backoffDelay is the wait before retry number attempt (1-based).
func (c *Client) backoffDelay(attempt int) time.Duration {
	b := c.retry.schedule()
	var delay time.Duration
	for i := 0; i < max(attempt, 1); i++ {
		delay = b.NextBackOff()
	}
	return delay
}

func (c *Client) withRetry(ctx context.Context, call func() (string, error)) (string, error) {
	schedule := c.retry.schedule()
	for attempt := 1; ; attempt++ {
		text, err := call()
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt >= c.retry.attempts || !retryable(err) {
			return "", err
		}
		delay := schedule.NextBackOff()
		var status *statusError
		if errors.As(err, &status) && status.RetryAfter > 0 {
			delay = min(status.RetryAfter, c.retry.ceiling)
		}
		c.logger.Debug("llm attempt failed; retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.String("error_kind", services.Classify(err)),
			logging.Error(err),
		)
		if err := c.wait(ctx, delay); err != nil {
			return "", err
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTimeout)
}

func (c *Client) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleep != nil {
		c.sleep(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, secs >= 0
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := time.Until(when); d > 0 {
		return d, true
	}
	return 0, false
}
