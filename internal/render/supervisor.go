package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"hookreel/internal/logging"
	"hookreel/internal/services"
)

// ErrEngineNotFound reports that the ffmpeg executable could not be started.
var ErrEngineNotFound = errors.New("ffmpeg executable not found")

const diagnosticLines = 20

// Result is the outcome of one ffmpeg invocation.
type Result struct {
	Success bool
	// Diagnostic holds the last lines of output, or the post-condition
	// failure, when Success is false.
	Diagnostic string
}

// Progress is a parsed ffmpeg status line.
type Progress struct {
	Line    string
	Seconds float64
	Percent float64
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(s *Supervisor) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithProgress receives every frame=/time= status line.
func WithProgress(fn func(Progress)) Option {
	return func(s *Supervisor) {
		s.onProgress = fn
	}
}

// WithDryRunOutput sets where dry-run command previews are printed.
func WithDryRunOutput(w io.Writer) Option {
	return func(s *Supervisor) {
		if w != nil {
			s.dryRunOut = w
		}
	}
}

// Supervisor runs ffmpeg and checks its result.
type Supervisor struct {
	binary     string
	exec       Executor
	logger     *slog.Logger
	onProgress func(Progress)
	dryRunOut  io.Writer
}

// NewSupervisor constructs a supervisor for the given ffmpeg binary.
func NewSupervisor(binary string, logger *slog.Logger, opts ...Option) *Supervisor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	s := &Supervisor{
		binary:    binary,
		exec:      commandExecutor{},
		logger:    logging.NewComponentLogger(logger, "ffmpeg"),
		dryRunOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Binary returns the configured ffmpeg executable.
func (s *Supervisor) Binary() string { return s.binary }

// CommandLine renders args as a single shell-readable string for previews.
func (s *Supervisor) CommandLine(args []string) string {
	return strings.Join(append([]string{s.binary}, args...), " ")
}

// Run executes ffmpeg with args. The last argument is the output path. A
// missing executable returns ErrEngineNotFound; cancellation returns the
// context error. Every other failure is reported through Result.
func (s *Supervisor) Run(ctx context.Context, args []string, dryRun bool) (Result, error) {
	if len(args) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "render", "run", "no ffmpeg arguments", nil)
	}
	command := s.CommandLine(args)
	s.logger.Info("ffmpeg command",
		logging.String("command", command),
		logging.Bool("dry_run", dryRun),
	)
	if dryRun {
		fmt.Fprintf(s.dryRunOut, "DRY RUN - command preview\n%s\n", command)
		return Result{Success: true}, nil
	}

	output := args[len(args)-1]
	tail := newLineRing(diagnosticLines)
	sampler := logging.NewProgressSampler(10)
	var duration float64

	err := s.exec.Run(ctx, s.binary, args, func(line string) {
		tail.add(line)
		if duration <= 0 {
			if d, ok := parseDuration(line); ok {
				duration = d
			}
		}
		if !isProgressLine(line) {
			return
		}
		progress := Progress{Line: strings.TrimSpace(line), Percent: -1}
		if secs, ok := parseTime(line); ok {
			progress.Seconds = secs
			if duration > 0 {
				progress.Percent = min(secs/duration*100, 100)
			}
		}
		if s.onProgress != nil {
			s.onProgress(progress)
		}
		if sampler.ShouldLog(progress.Percent, "encoding") {
			s.logger.Debug("ffmpeg progress",
				logging.Float64("seconds", progress.Seconds),
				logging.Float64("percent", progress.Percent),
				logging.String(logging.FieldEventType, "render_progress"),
			)
		}
	})
	if err != nil {
		if errors.Is(err, ErrEngineNotFound) {
			return Result{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		diagnostic := tail.String()
		logging.ErrorWithContext(s.logger, "ffmpeg failed", "render_failed",
			logging.Error(err),
			logging.String("diagnostic", diagnostic),
			logging.String(logging.FieldErrorHint, "inspect the ffmpeg output above"),
		)
		return Result{Success: false, Diagnostic: diagnostic}, nil
	}

	info, statErr := os.Stat(output)
	switch {
	case statErr != nil:
		return Result{Success: false, Diagnostic: fmt.Sprintf("output file not created: %s", output)}, nil
	case info.Size() == 0:
		return Result{Success: false, Diagnostic: fmt.Sprintf("output file is empty: %s", output)}, nil
	}
	s.logger.Info("ffmpeg completed",
		logging.String("output", output),
		logging.Int64("size_bytes", info.Size()),
		logging.String(logging.FieldEventType, "render_complete"),
	)
	return Result{Success: true}, nil
}

func isProgressLine(line string) bool {
	return strings.Contains(line, "frame=") || strings.Contains(line, "time=")
}

var (
	timePattern     = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

func parseTime(line string) (float64, bool) {
	return parseClock(timePattern, line)
}

func parseDuration(line string) (float64, bool) {
	return parseClock(durationPattern, line)
}

func parseClock(pattern *regexp.Regexp, line string) (float64, bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}

type lineRing struct {
	lines []string
	size  int
}

func newLineRing(size int) *lineRing {
	return &lineRing{size: size}
}

func (r *lineRing) add(line string) {
	r.lines = append(r.lines, line)
	if len(r.lines) > r.size {
		r.lines = r.lines[len(r.lines)-r.size:]
	}
}

func (r *lineRing) String() string {
	return strings.Join(r.lines, "\n")
}
