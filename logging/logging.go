// Package logging - slog construction shared by the annotator packages.
package logging

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// New returns a structured JSON logger writing to w at the given level.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Record is a captured log entry.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder is a slog.Handler that keeps every record in memory.
//
// It is meant for tests asserting that a component logged (or did not log)
// something.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	attrs   []slog.Attr
}

// NewRecorder returns a logger backed by a fresh Recorder.
//
// Returns:
//   - *slog.Logger: The logger to inject into the component under test.
//   - *Recorder: The handle to inspect captured records.
func NewRecorder() (*slog.Logger, *Recorder) {
	r := &Recorder{}
	return slog.New(r), r
}

// Enabled reports true for every level.
func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle stores the record.
func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	entry := Record{Level: rec.Level, Message: rec.Message, Attrs: map[string]any{}}
	for _, a := range r.attrs {
		entry.Attrs[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		entry.Attrs[a.Key] = a.Value.Any()
		return true
	})
	r.mu.Lock()
	r.records = append(r.records, entry)
	r.mu.Unlock()
	return nil
}

// WithAttrs returns the same recorder; attributes are folded into records.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs = append(r.attrs, attrs...)
	return r
}

// WithGroup ignores groups.
func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Records returns a copy of the captured records.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Count returns how many records were logged at exactly the given level.
func (r *Recorder) Count(level slog.Level) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Level == level {
			n++
		}
	}
	return n
}

// Reset drops all captured records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
