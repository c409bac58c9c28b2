package selection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hookreel/internal/logging"
	"hookreel/internal/services"
)

// PollFunc returns the reply texts seen so far for the pending threads,
// keyed by item index.
type PollFunc func(ctx context.Context, pending []Thread) (map[int][]string, error)

// Schedule drives Step until every thread is decided, the deadline passes,
// or the context is cancelled.
type Schedule struct {
	Interval time.Duration
	Timeout  time.Duration
	// Sleep waits between polls; nil uses a context-aware timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Logger *slog.Logger
}

// Run polls until done. A timeout is not an error: the partial state is
// returned. Transient poll failures are logged and retried on the next tick;
// any other poll failure ends the run with that error.
func (s Schedule) Run(ctx context.Context, state State, poll PollFunc) (State, error) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	deadline := now().Add(s.Timeout)

	for round := 1; ; round++ {
		pending := state.Pending()
		if len(pending) == 0 {
			return state, nil
		}
		replies, err := poll(ctx, pending)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return state, err
		case errors.Is(err, services.ErrTransient):
			logging.WarnWithContext(logger, "selection poll failed; retrying next interval", "selection_poll_failed",
				logging.Int("round", round),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check connectivity to the selection provider"),
				logging.String(logging.FieldImpact, "replies are picked up on the next poll"),
			)
		default:
			return state, err
		}

		var done bool
		before := len(state.Results)
		state, done = Step(state, replies)
		if len(state.Results) > before {
			selected, excluded := state.Counts()
			logger.Info("selection progress",
				logging.Int("selected", selected),
				logging.Int("excluded", excluded),
				logging.Int("pending", len(state.Pending())),
				logging.String(logging.FieldEventType, "selection_progress"),
			)
		}
		if done {
			return state, nil
		}
		if !now().Before(deadline) {
			selected, excluded := state.Counts()
			logging.WarnWithContext(logger, "selection timed out; continuing with partial results", "selection_timeout",
				logging.Int("selected", selected),
				logging.Int("excluded", excluded),
				logging.Int("pending", len(state.Pending())),
				logging.Duration("timeout", s.Timeout),
				logging.String(logging.FieldErrorHint, "raise selection.timeout_minutes or reply sooner"),
				logging.String(logging.FieldImpact, "unanswered items get no selected hooks"),
			)
			return state, nil
		}
		if err := sleep(ctx, s.Interval); err != nil {
			return state, err
		}
	}
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
