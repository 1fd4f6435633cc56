package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level classifies an Event
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelPreview Level = "preview"
)

// Event is a single progress message emitted while a batch runs.
type Event struct {
	Time       time.Time `json:"time"`
	Identifier string    `json:"identifier,omitempty"`
	Level      Level     `json:"level"`
	Stage      string    `json:"stage,omitempty"`
	Message    string    `json:"message"`
	Image      []byte    `json:"image,omitempty"` // PNG, preview events only
}

// Reporter receives progress events. Implementations must not block for long:
// the batch waits on every call.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// Nop discards everything.
var Nop Reporter = ReporterFunc(func(Event) {})

// Multi fans an event out to every reporter in order.
func Multi(reporters ...Reporter) Reporter {
	return ReporterFunc(func(e Event) {
		for _, r := range reporters {
			if r != nil {
				r.Report(e)
			}
		}
	})
}

func emit(r Reporter, id string, level Level, format string, args ...interface{}) {
	r.Report(Event{
		Time:       time.Now(),
		Identifier: id,
		Level:      level,
		Message:    fmt.Sprintf(format, args...),
	})
}

func Info(r Reporter, id, format string, args ...interface{}) {
	emit(r, id, LevelInfo, format, args...)
}

func Success(r Reporter, id, format string, args ...interface{}) {
	emit(r, id, LevelSuccess, format, args...)
}

func Warn(r Reporter, id, format string, args ...interface{}) {
	emit(r, id, LevelWarn, format, args...)
}

func Error(r Reporter, id, format string, args ...interface{}) {
	emit(r, id, LevelError, format, args...)
}

// Preview emits a screenshot thumbnail for the given stage.
func Preview(r Reporter, id, stage string, png []byte) {
	r.Report(Event{
		Time:       time.Now(),
		Identifier: id,
		Level:      LevelPreview,
		Stage:      stage,
		Message:    fmt.Sprintf("[%s] %s", id, stage),
		Image:      png,
	})
}

// Console prints events as terminal progress lines.
type Console struct {
	w       io.Writer
	verbose bool
	mu      sync.Mutex
}

// NewConsole returns a Console writing to w. Preview events are only
// mentioned when verbose is set.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose}
}

func (c *Console) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := ""
	if e.Identifier != "" {
		prefix = "[" + e.Identifier + "] "
	}

	switch e.Level {
	case LevelSuccess:
		fmt.Fprintf(c.w, "✓ %s%s\n", prefix, e.Message)
	case LevelWarn:
		fmt.Fprintf(c.w, "⚠ %s%s\n", prefix, e.Message)
	case LevelError:
		fmt.Fprintf(c.w, "✗ %s%s\n", prefix, e.Message)
	case LevelPreview:
		if c.verbose {
			fmt.Fprintf(c.w, "  %spreview: %s (%d bytes)\n", prefix, e.Stage, len(e.Image))
		}
	default:
		fmt.Fprintf(c.w, "→ %s%s\n", prefix, e.Message)
	}
}

// ZapReporter writes events to a structured logger.
type ZapReporter struct {
	logger *zap.Logger
}

func NewZapReporter(logger *zap.Logger) *ZapReporter {
	return &ZapReporter{logger: logger}
}

func (z *ZapReporter) Report(e Event) {
	fields := []zap.Field{zap.String("identifier", e.Identifier)}
	if e.Stage != "" {
		fields = append(fields, zap.String("stage", e.Stage))
	}

	switch e.Level {
	case LevelWarn:
		z.logger.Warn(e.Message, fields...)
	case LevelError:
		z.logger.Error(e.Message, fields...)
	case LevelPreview:
		fields = append(fields, zap.Int("bytes", len(e.Image)))
		z.logger.Debug("preview captured", fields...)
	default:
		z.logger.Info(e.Message, fields...)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Levels returns the recorded events of the given level.
func (r *Recorder) Levels(level Level) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
