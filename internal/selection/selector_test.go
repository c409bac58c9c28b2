package selection_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"hookreel/internal/selection"
	"hookreel/internal/services/slack"
	"hookreel/internal/workitem"
)

func tenHooks(prefix string) []string {
	hooks := make([]string, 10)
	for i := range hooks {
		hooks[i] = prefix + string(rune('a'+i))
	}
	return hooks
}

func TestAutoSelectUsesZeroBasedIndices(t *testing.T) {
	items := []workitem.Item{{Text: "x", Hooks: tenHooks("h")}, {Text: "short", Hooks: []string{"only"}}}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	selection.AutoSelect(items, []int{0, 4, 9}, at)

	if !slices.Equal(items[0].SelectedHooks, []string{"ha", "he", "hj"}) {
		t.Fatalf("selected = %v", items[0].SelectedHooks)
	}
	if !slices.Equal(items[0].SelectedHookIndices, []int{0, 4, 9}) || items[0].SelectionMethod != workitem.SelectionAuto {
		t.Fatalf("unexpected selection metadata %#v", items[0])
	}
	if !items[0].SelectionTimestamp.Equal(at) {
		t.Fatalf("timestamp = %s", items[0].SelectionTimestamp)
	}
	if !slices.Equal(items[1].SelectedHooks, []string{"only"}) || !slices.Equal(items[1].SelectedHookIndices, []int{0}) {
		t.Fatalf("short item = %#v", items[1])
	}
}

func TestApplyRecordsHumanDecisions(t *testing.T) {
	items := []workitem.Item{{Hooks: tenHooks("h")}, {Hooks: tenHooks("g"), SelectedHooks: []string{"stale"}}, {Hooks: tenHooks("k")}}
	at := time.Unix(100, 0)
	selection.Apply(items, map[int]selection.Result{
		0: {Index: 0, Numbers: []int{1, 5, 10}},
		1: {Index: 1, Excluded: true},
	}, at)

	if !slices.Equal(items[0].SelectedHooks, []string{"ha", "he", "hj"}) || !slices.Equal(items[0].SelectedHookIndices, []int{1, 5, 10}) {
		t.Fatalf("item 0 = %#v", items[0])
	}
	if items[0].SelectionMethod != workitem.SelectionHuman || items[0].Excluded == nil || *items[0].Excluded {
		t.Fatalf("item 0 selection flags = %#v", items[0])
	}
	if !items[1].IsExcluded() || items[1].ExcludedReason != workitem.ExcludedReasonOffBrand || len(items[1].SelectedHooks) != 0 {
		t.Fatalf("item 1 = %#v", items[1])
	}
	if items[2].SelectionMethod != "" || items[2].SelectedHooks != nil {
		t.Fatalf("unanswered item must stay unselected: %#v", items[2])
	}
}

type fakeSlack struct {
	posted  []string
	replies map[string][]slack.Message
}

func (f *fakeSlack) PostMessage(_ context.Context, _ string, text string) (string, error) {
	f.posted = append(f.posted, text)
	return "ts" + string(rune('0'+len(f.posted))), nil
}

func (f *fakeSlack) Replies(_ context.Context, _ string, ts string) ([]slack.Message, error) {
	return f.replies[ts], nil
}

func TestSlackProviderGroupsByTopicAndReadsThreads(t *testing.T) {
	items := []workitem.Item{
		{Text: "a", Topic: "ai news", Hooks: tenHooks("a")},
		{Text: "b", Topic: "crypto", Hooks: tenHooks("b")},
		{Text: "c", Topic: "ai news", Hooks: tenHooks("c")},
		{Text: "no hooks", Topic: "crypto"},
	}
	api := &fakeSlack{replies: map[string][]slack.Message{}}
	provider := selection.NewSlackProvider(api, "C1", 0, nil)
	threads, err := provider.Post(context.Background(), items)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	// header(ai news), item 0, item 2, header(crypto), item 1
	if len(api.posted) != 5 {
		t.Fatalf("posted %d messages: %q", len(api.posted), api.posted)
	}
	if !strings.HasPrefix(api.posted[0], "*AI NEWS* (2 posts)") || !strings.HasPrefix(api.posted[3], "*CRYPTO* (1 post)") {
		t.Fatalf("unexpected headers %q / %q", api.posted[0], api.posted[3])
	}
	if !strings.Contains(api.posted[2], "*Post #3*") || !strings.Contains(api.posted[2], "10. cj") {
		t.Fatalf("unexpected item message %q", api.posted[2])
	}
	if len(threads) != 3 || threads[1].Index != 2 || threads[1].Ref != "ts3" {
		t.Fatalf("unexpected threads %#v", threads)
	}

	api.replies["ts2"] = []slack.Message{{Text: "root 1 2 3"}, {Text: "1 2 3", BotID: "B1"}, {Text: "4, 5, 6", User: "U1"}}
	replies, err := provider.Poll(context.Background(), threads)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !slices.Equal(replies[0], []string{"4, 5, 6"}) || len(replies[2]) != 0 {
		t.Fatalf("unexpected replies %#v", replies)
	}
}

func TestSelectorRunsFileProviderEndToEnd(t *testing.T) {
	dir := t.TempDir()
	items := []workitem.Item{{Text: "a", Topic: "go", Hooks: tenHooks("a")}, {Text: "b", Topic: "go", Hooks: tenHooks("b")}}
	provider := selection.NewFileProvider(dir, nil)

	clock := &fakeClock{now: time.Unix(0, 0)}
	polls := 0
	sched := selection.Schedule{
		Interval: time.Second,
		Timeout:  time.Minute,
		Now:      clock.Now,
		Sleep: func(ctx context.Context, d time.Duration) error {
			polls++
			switch polls {
			case 1:
				if err := os.WriteFile(provider.ReplyPath(0), []byte("hmm\n2, 4, 6\n"), 0o644); err != nil {
					t.Fatal(err)
				}
			case 2:
				if err := os.WriteFile(provider.ReplyPath(1), []byte("skip\n"), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			return clock.Sleep(ctx, d)
		},
	}
	selector := selection.NewSelector(provider, sched, nil)
	results, err := selector.Select(context.Background(), items)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(results) != 2 || !slices.Equal(results[0].Numbers, []int{2, 4, 6}) || !results[1].Excluded {
		t.Fatalf("unexpected results %#v", results)
	}
	if _, err := os.Stat(filepath.Join(dir, "item-1.prompt.md")); err != nil {
		t.Fatalf("expected prompt file: %v", err)
	}
}

func TestFileProviderClearsStaleReplies(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "item-1.txt")
	if err := os.WriteFile(stale, []byte("1 2 3"), 0o644); err != nil {
		t.Fatal(err)
	}
	provider := selection.NewFileProvider(dir, nil)
	defer provider.Close()
	if _, err := provider.Post(context.Background(), []workitem.Item{{Hooks: tenHooks("a")}}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale reply should be removed, stat err = %v", err)
	}
}

func TestFileProviderWaitWakesOnReply(t *testing.T) {
	dir := t.TempDir()
	provider := selection.NewFileProvider(dir, nil)
	defer provider.Close()
	if _, err := provider.Post(context.Background(), []workitem.Item{{Hooks: tenHooks("a")}}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(provider.ReplyPath(0), []byte("1 2 3"), 0o644)
	}()
	start := time.Now()
	if err := provider.Wait(context.Background(), 10*time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Wait did not wake on reply (elapsed %s)", elapsed)
	}
}

func TestSelectorWithNothingReviewable(t *testing.T) {
	provider := selection.NewFileProvider(t.TempDir(), nil)
	results, err := selection.NewSelector(provider, selection.Schedule{}, nil).Select(context.Background(), []workitem.Item{{Text: "no hooks"}})
	if err != nil || len(results) != 0 {
		t.Fatalf("results = %#v err = %v", results, err)
	}
}
