package metrics

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestJSONLWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run", "train")
	run := uuid.New()
	w, err := NewJSONLWriter(dir, run)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, w.AddScalar("loss", 1.5, 1, at))
	require.NoError(t, w.AddText("translation", "Source: \"a\"", 2, at))
	require.NoError(t, w.Close())

	events := readEvents(t, filepath.Join(dir, "events.jsonl"))
	require.Len(t, events, 2)

	assert.Equal(t, run.String(), events[0].Run)
	assert.Equal(t, "scalar", events[0].Kind)
	require.NotNil(t, events[0].Value)
	assert.Equal(t, 1.5, *events[0].Value)
	assert.True(t, at.Equal(events[0].Timestamp))

	assert.Equal(t, "text", events[1].Kind)
	assert.Equal(t, 2, events[1].Step)
	assert.Nil(t, events[1].Value)
	assert.Equal(t, "Source: \"a\"", events[1].Text)
}

func TestJSONLWriterAppends(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		w, err := NewJSONLWriter(dir, uuid.New())
		require.NoError(t, err)
		require.NoError(t, w.AddScalar("loss", float64(i), i+1, time.Now()))
		require.NoError(t, w.Close())
	}
	assert.Len(t, readEvents(t, filepath.Join(dir, "events.jsonl")), 2)
}

func TestLogWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewLogWriter(zerolog.New(&buf), zerolog.InfoLevel)
	require.NoError(t, w.AddScalar("loss", 0.25, 7, time.Now()))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "loss", line["tag"])
	assert.Equal(t, 7.0, line["step"])
	assert.Equal(t, 0.25, line["value"])
}

type failingWriter struct{ Recorder }

var errWrite = errors.New("write failed")

func (*failingWriter) AddScalar(string, float64, int, time.Time) error { return errWrite }

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b}
	require.NoError(t, m.AddScalar("loss", 1, 1, time.Now()))
	require.NoError(t, m.AddText("translation", "x", 1, time.Now()))
	assert.Len(t, a.Scalars("loss"), 1)
	assert.Len(t, b.Texts("translation"), 1)

	m = Multi{&failingWriter{}, a}
	assert.ErrorIs(t, m.AddScalar("loss", 2, 2, time.Now()), errWrite)
	assert.Len(t, a.Scalars("loss"), 2, "later writers still receive the record")
	assert.NoError(t, m.Close())
}
