package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hookreel/internal/fileutil"
	"hookreel/internal/logging"
	"hookreel/internal/services"
	"hookreel/internal/workitem"
)

const (
	promptSuffix = ".prompt.md"
	replySuffix  = ".txt"
)

// FileProvider writes one prompt file per item into a drop directory and
// reads replies from item-<n>.txt files next to them, one reply per line.
type FileProvider struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewFileProvider constructs a drop-directory provider.
func NewFileProvider(dir string, logger *slog.Logger) *FileProvider {
	return &FileProvider{dir: dir, logger: logging.NewComponentLogger(logger, "selection.file")}
}

// Name implements Provider.
func (p *FileProvider) Name() string { return "file" }

// ReplyPath returns the file a reviewer writes to answer for the item at
// 0-based index.
func (p *FileProvider) ReplyPath(index int) string {
	return filepath.Join(p.dir, fmt.Sprintf("item-%d%s", index+1, replySuffix))
}

// Post implements Provider. Stale prompt and reply files from an earlier
// round are removed first.
func (p *FileProvider) Post(ctx context.Context, items []workitem.Item) ([]Thread, error) {
	if strings.TrimSpace(p.dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "select", "file post", "drop directory not configured", nil)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "select", "file post", "create drop directory", err)
	}
	if err := p.clearStale(); err != nil {
		return nil, err
	}

	topics, groups := GroupByTopic(items, Reviewable(items))
	threads := make([]Thread, 0, len(items))
	for _, topic := range topics {
		header := TopicHeader(topic, len(groups[topic]))
		for _, idx := range groups[topic] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			prompt := filepath.Join(p.dir, fmt.Sprintf("item-%d%s", idx+1, promptSuffix))
			body := header + "\n\n" + FormatItem(idx, items[idx]) + "\n\nWrite your reply to " + filepath.Base(p.ReplyPath(idx)) + "\n"
			if err := fileutil.WriteFileAtomic(prompt, []byte(body), 0o644); err != nil {
				return nil, fmt.Errorf("write prompt %s: %w", prompt, err)
			}
			threads = append(threads, Thread{Index: idx, Ref: p.ReplyPath(idx), HookCount: len(items[idx].Hooks)})
		}
	}
	if len(threads) > 0 {
		if err := p.watch(); err != nil {
			logging.WarnWithContext(p.logger, "drop directory watch unavailable; polling only", "selection_watch_failed",
				logging.String("dir", p.dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check inotify limits"),
				logging.String(logging.FieldImpact, "replies are noticed on the poll interval"),
			)
		}
	}
	p.logger.Info("wrote selection prompts",
		logging.String("dir", p.dir),
		logging.Int("items", len(threads)),
		logging.String(logging.FieldEventType, "selection_prompts_written"),
	)
	return threads, nil
}

// Poll implements Provider.
func (p *FileProvider) Poll(ctx context.Context, pending []Thread) (map[int][]string, error) {
	out := make(map[int][]string, len(pending))
	for _, thread := range pending {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		data, err := os.ReadFile(thread.Ref)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return out, services.Wrap(services.ErrTransient, "select", "file poll", thread.Ref, err)
		}
		for line := range strings.SplitSeq(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out[thread.Index] = append(out[thread.Index], line)
			}
		}
	}
	return out, nil
}

// Wait implements Waiter. It returns early when a reply file is created or
// written.
func (p *FileProvider) Wait(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	watcher := p.watcher
	p.mu.Unlock()
	if watcher == nil {
		return sleepContext(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return sleepContext(ctx, d)
			}
			if strings.HasSuffix(event.Name, replySuffix) && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if ok && err != nil {
				p.logger.Debug("drop directory watch error", logging.Error(err))
			}
		}
	}
}

// Close releases the directory watch.
func (p *FileProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	p.watcher = nil
	return err
}

func (p *FileProvider) watch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(p.dir); err != nil {
		_ = w.Close()
		return err
	}
	p.watcher = w
	return nil
}

func (p *FileProvider) clearStale() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("read drop directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "item-") {
			continue
		}
		if strings.HasSuffix(name, promptSuffix) || strings.HasSuffix(name, replySuffix) {
			if err := os.Remove(filepath.Join(p.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove stale %s: %w", name, err)
			}
		}
	}
	return nil
}
