package selection

import (
	"context"
	"io"
	"log/slog"
	"time"

	"hookreel/internal/logging"
	"hookreel/internal/workitem"
)

// Provider publishes items for review and reports the replies received.
type Provider interface {
	Name() string
	// Post publishes the reviewable items and returns one thread per item.
	Post(ctx context.Context, items []workitem.Item) ([]Thread, error)
	Poll(ctx context.Context, pending []Thread) (map[int][]string, error)
}

// Waiter is implemented by providers that can wake the schedule when a new
// reply may be available. Wait returns after d at the latest.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// Selector runs one review round through a provider.
type Selector struct {
	provider Provider
	schedule Schedule
	logger   *slog.Logger
}

// NewSelector builds a selector. The schedule's Sleep defaults to the
// provider's Wait when it implements Waiter.
func NewSelector(provider Provider, schedule Schedule, logger *slog.Logger) *Selector {
	logger = logging.NewComponentLogger(logger, "selection")
	if schedule.Logger == nil {
		schedule.Logger = logger
	}
	if w, ok := provider.(Waiter); ok && schedule.Sleep == nil {
		schedule.Sleep = w.Wait
	}
	return &Selector{provider: provider, schedule: schedule, logger: logger}
}

// Provider returns the configured provider name.
func (s *Selector) Provider() string {
	return s.provider.Name()
}

// Select posts items and waits for decisions. The returned map holds only
// decided items. Items without hooks or already excluded are not posted.
func (s *Selector) Select(ctx context.Context, items []workitem.Item) (map[int]Result, error) {
	if closer, ok := s.provider.(io.Closer); ok {
		defer closer.Close()
	}
	threads, err := s.provider.Post(ctx, items)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return map[int]Result{}, nil
	}
	s.logger.Info("awaiting hook selections",
		logging.String("provider", s.provider.Name()),
		logging.Int("threads", len(threads)),
		logging.Duration("poll_interval", s.schedule.Interval),
		logging.Duration("timeout", s.schedule.Timeout),
		logging.String(logging.FieldEventType, "selection_posted"),
	)
	state, err := s.schedule.Run(ctx, NewState(threads), s.provider.Poll)
	return state.Results, err
}

// Reviewable returns the indices of items a reviewer can choose for.
func Reviewable(items []workitem.Item) []int {
	out := make([]int, 0, len(items))
	for i, item := range items {
		if len(item.Hooks) == 0 || item.IsExcluded() {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Apply records reviewer decisions on items. Selected indices are stored
// 1-based as the reviewer typed them.
func Apply(items []workitem.Item, results map[int]Result, at time.Time) {
	for idx, result := range results {
		if idx < 0 || idx >= len(items) {
			continue
		}
		item := &items[idx]
		if result.Excluded {
			item.MarkExcluded(workitem.ExcludedReasonOffBrand, at)
			continue
		}
		hooks := make([]string, 0, len(result.Numbers))
		for _, n := range result.Numbers {
			if n >= 1 && n <= len(item.Hooks) {
				hooks = append(hooks, item.Hooks[n-1])
			}
		}
		item.Select(hooks, result.Numbers, workitem.SelectionHuman, at)
	}
}

// AutoSelect picks hooks at fixed 0-based indices for every item, skipping
// indices beyond the item's hook list.
func AutoSelect(items []workitem.Item, indices []int, at time.Time) {
	for i := range items {
		item := &items[i]
		hooks := make([]string, 0, len(indices))
		picked := make([]int, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(item.Hooks) {
				hooks = append(hooks, item.Hooks[idx])
				picked = append(picked, idx)
			}
		}
		item.Select(hooks, picked, workitem.SelectionAuto, at)
	}
}
