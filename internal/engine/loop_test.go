package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinynmt/internal/data"
	"tinynmt/internal/metrics"
	"tinynmt/internal/model"
)

type loopFixture struct {
	loop     *Loop
	trainLog *metrics.Recorder
	valLog   *metrics.Recorder
}

func newLoopFixture(t *testing.T, cfg LoopConfig, train, val []data.Example) loopFixture {
	t.Helper()
	m := newToyModel(t, 8)
	voc := data.ToyVocabulary()
	f := loopFixture{trainLog: &metrics.Recorder{}, valLog: &metrics.Recorder{}}
	loop, err := NewLoop(cfg,
		newToyTrainer(t, m, "sgd", 0.05),
		NewEvaluator(m, model.NLLLoss{}, data.ToySOS, data.ToyEOS),
		data.NewSliceStream(train), data.NewSliceStream(val),
		voc, voc, f.trainLog, f.valLog, zerolog.Nop())
	require.NoError(t, err)
	f.loop = loop
	return f
}

func steps(events []metrics.Event) []int {
	out := make([]int, len(events))
	for i, ev := range events {
		out[i] = ev.Step
	}
	return out
}

func TestLoopSchedule(t *testing.T) {
	toy := data.ToyExamples()
	train := []data.Example{toy[0], toy[1], toy[0]}
	f := newLoopFixture(t, LoopConfig{Epochs: 2, EvalEvery: 2, SampleEvery: 3, SampleCount: 1}, train, toy)

	assert.Equal(t, 1, f.loop.Step())
	require.NoError(t, f.loop.Run())
	assert.Equal(t, 7, f.loop.Step())

	// Validation and sampling follow the position within each epoch; the
	// records are still tagged with the global step.
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, steps(f.trainLog.Scalars("loss")))
	assert.Equal(t, []int{2, 5}, steps(f.valLog.Scalars("loss")))
	texts := f.valLog.Texts("translation")
	assert.Equal(t, []int{3, 6}, steps(texts))
	for _, ev := range texts {
		assert.Contains(t, ev.Text, "Source: ")
		assert.Contains(t, ev.Text, "\nTranslation: ")
	}
}

func TestLoopStepCounterSurvivesEpochs(t *testing.T) {
	toy := data.ToyExamples()
	// One example per epoch: the position within the epoch never reaches 2,
	// while the global step keeps counting.
	f := newLoopFixture(t, LoopConfig{Epochs: 4, EvalEvery: 2, SampleEvery: 1}, toy[:1], toy)

	require.NoError(t, f.loop.Run())
	assert.Equal(t, 5, f.loop.Step())
	assert.Equal(t, []int{1, 2, 3, 4}, steps(f.trainLog.Scalars("loss")))
	assert.Empty(t, f.valLog.Scalars("loss"))
	// SampleCount defaults to five, capped by the two validation examples.
	assert.Equal(t, []int{1, 1, 2, 2, 3, 3, 4, 4}, steps(f.valLog.Texts("translation")))
}

func TestValidateIndependentOfWorkers(t *testing.T) {
	toy := data.ToyExamples()
	val := append(append([]data.Example{}, toy...), toy...)

	serial := newLoopFixture(t, LoopConfig{Epochs: 1, EvalEvery: 1, SampleEvery: 1, EvalWorkers: 1}, toy, val)
	parallel := newLoopFixture(t, LoopConfig{Epochs: 1, EvalEvery: 1, SampleEvery: 1, EvalWorkers: 4}, toy, val)

	a, err := serial.loop.Validate()
	require.NoError(t, err)
	b, err := parallel.loop.Validate()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Greater(t, a, 0.0)
}

func TestLoopErrors(t *testing.T) {
	toy := data.ToyExamples()

	_, err := NewLoop(LoopConfig{Epochs: 1, EvalEvery: 0, SampleEvery: 1}, nil, nil, nil, nil, nil, nil, nil, nil, zerolog.Nop())
	assert.Error(t, err)

	bad := []data.Example{toy[0], {Source: []int{1, 2}, Target: []int{99}}}
	f := newLoopFixture(t, LoopConfig{Epochs: 1, EvalEvery: 10, SampleEvery: 10}, bad, toy)
	err = f.loop.Run()
	assert.ErrorIs(t, err, model.ErrTokenOutOfRange)
	assert.ErrorContains(t, err, "step 2")

	f = newLoopFixture(t, LoopConfig{Epochs: 1, EvalEvery: 1, SampleEvery: 10}, toy, nil)
	assert.ErrorContains(t, f.loop.Run(), "validation stream is empty")

	f = newLoopFixture(t, LoopConfig{Epochs: 1, EvalEvery: 1, SampleEvery: 10}, toy, bad)
	assert.ErrorIs(t, f.loop.Run(), model.ErrTokenOutOfRange)
}
