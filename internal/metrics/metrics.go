package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Writer receives scalar and text records tagged with the global step.
type Writer interface {
	AddScalar(tag string, value float64, step int, at time.Time) error
	AddText(tag, text string, step int, at time.Time) error
	Close() error
}

// Event is one record of a JSONL event file.
type Event struct {
	Run       string    `json:"run"`
	Kind      string    `json:"kind"`
	Tag       string    `json:"tag"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// JSONLWriter appends one JSON event per line to a file.
type JSONLWriter struct {
	mu  sync.Mutex
	run uuid.UUID
	f   *os.File
	enc *json.Encoder
}

// NewJSONLWriter creates dir if needed and opens dir/events.jsonl for append.
func NewJSONLWriter(dir string, run uuid.UUID) (*JSONLWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metrics dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLWriter{run: run, f: f, enc: json.NewEncoder(f)}, nil
}

func (w *JSONLWriter) write(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev.Run = w.run.String()
	return w.enc.Encode(ev)
}

func (w *JSONLWriter) AddScalar(tag string, value float64, step int, at time.Time) error {
	return w.write(Event{Kind: "scalar", Tag: tag, Step: step, Timestamp: at, Value: &value})
}

func (w *JSONLWriter) AddText(tag, text string, step int, at time.Time) error {
	return w.write(Event{Kind: "text", Tag: tag, Step: step, Timestamp: at, Text: text})
}

func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// LogWriter emits records through a zerolog logger.
type LogWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func NewLogWriter(logger zerolog.Logger, level zerolog.Level) *LogWriter {
	return &LogWriter{logger: logger, level: level}
}

func (w *LogWriter) AddScalar(tag string, value float64, step int, at time.Time) error {
	w.logger.WithLevel(w.level).
		Str("tag", tag).
		Int("step", step).
		Time("at", at).
		Float64("value", value).
		Msg("scalar")
	return nil
}

func (w *LogWriter) AddText(tag, text string, step int, at time.Time) error {
	w.logger.WithLevel(w.level).
		Str("tag", tag).
		Int("step", step).
		Time("at", at).
		Str("text", text).
		Msg("text")
	return nil
}

func (w *LogWriter) Close() error { return nil }

// Multi fans records out to several writers.
type Multi []Writer

func (m Multi) AddScalar(tag string, value float64, step int, at time.Time) error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.AddScalar(tag, value, step, at))
	}
	return errors.Join(errs...)
}

func (m Multi) AddText(tag, text string, step int, at time.Time) error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.AddText(tag, text, step, at))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// Recorder keeps records in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) AddScalar(tag string, value float64, step int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Event{Kind: "scalar", Tag: tag, Step: step, Timestamp: at, Value: &value})
	return nil
}

func (r *Recorder) AddText(tag, text string, step int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Event{Kind: "text", Tag: tag, Step: step, Timestamp: at, Text: text})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Scalars returns the recorded scalar events with the given tag.
func (r *Recorder) Scalars(tag string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.Events {
		if ev.Kind == "scalar" && ev.Tag == tag {
			out = append(out, ev)
		}
	}
	return out
}

// Texts returns the recorded text events with the given tag.
func (r *Recorder) Texts(tag string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.Events {
		if ev.Kind == "text" && ev.Tag == tag {
			out = append(out, ev)
		}
	}
	return out
}
