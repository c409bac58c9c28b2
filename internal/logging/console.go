package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// consoleSink is shared by every handler derived from one console handler so
// concurrent records never interleave.
type consoleSink struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

// consoleHandler writes one human readable line per record:
//
//	2026-01-02T15:04:05Z INFO [download] mediacache: media cached url=... bytes=42
//
// The stage and component attributes move into the line header. run_id is
// dropped because it is constant for a process and the run file keeps it.
type consoleHandler struct {
	sink      *consoleSink
	level     slog.Leveler
	addSource bool
	prefix    string
	stage     string
	component string
	preset    []byte
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{
		sink:      &consoleSink{out: w, color: isTerminal(w)},
		level:     level,
		addSource: addSource,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	stage, component := h.stage, h.component
	var attrs []byte
	record.Attrs(func(attr slog.Attr) bool {
		attrs = h.appendAttr(attrs, h.prefix, attr, &stage, &component)
		return true
	})

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	line := make([]byte, 0, 96+len(h.preset)+len(attrs))
	line = h.paint(line, ansiDim, when.UTC().Format(time.RFC3339))
	line = append(line, ' ')
	line = h.paint(line, levelColor(record.Level), levelLabel(record.Level))
	line = append(line, ' ')
	if stage != "" {
		line = append(line, '[')
		line = h.paint(line, ansiCyan, stage)
		line = append(line, "] "...)
	}
	if component != "" {
		line = append(line, component...)
		line = append(line, ": "...)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line = append(line, msg...)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			line = fmt.Appendf(line, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	line = append(line, h.preset...)
	line = append(line, attrs...)
	line = append(line, '\n')

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	_, err := h.sink.out.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append([]byte(nil), h.preset...)
	for _, attr := range attrs {
		next.preset = next.appendAttr(next.preset, next.prefix, attr, &next.stage, &next.component)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// appendAttr renders attr as " key=value", flattening groups into dotted
// keys. Top-level stage and component values are captured for the header.
func (h *consoleHandler) appendAttr(dst []byte, prefix string, attr slog.Attr, stage, component *string) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = h.appendAttr(dst, prefix, member, stage, component)
		}
		return dst
	}
	if prefix == "" {
		switch attr.Key {
		case FieldStage:
			if *stage == "" {
				*stage = attr.Value.String()
			}
			return dst
		case FieldComponent:
			if *component == "" {
				*component = attr.Value.String()
			}
			return dst
		case FieldRunID:
			return dst
		}
	}
	dst = append(dst, ' ')
	dst = append(dst, prefix...)
	dst = append(dst, attr.Key...)
	dst = append(dst, '=')
	return append(dst, consoleValue(attr.Value)...)
}

func (h *consoleHandler) paint(dst []byte, color, text string) []byte {
	if !h.sink.color || color == "" {
		return append(dst, text...)
	}
	dst = append(dst, color...)
	dst = append(dst, text...)
	return append(dst, ansiReset...)
}

func consoleValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\r=\"") {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	default:
		return ""
	}
}
