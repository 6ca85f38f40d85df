package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleValidate(t *testing.T) {
	assert.NoError(t, Example{Source: []int{1}, Target: []int{2}}.Validate())
	assert.ErrorIs(t, Example{Target: []int{2}}.Validate(), ErrInvalidSequence)
	assert.ErrorIs(t, Example{Source: []int{1}}.Validate(), ErrInvalidSequence)
}

func TestSliceStreamIsReiterable(t *testing.T) {
	s := NewSliceStream(ToyExamples())
	first := Collect(s)
	second := Collect(s)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.Equal(t, 2, s.Len())
}

func TestShuffledStreamIsSeeded(t *testing.T) {
	examples := make([]Example, 20)
	for i := range examples {
		examples[i] = Example{Source: []int{i}, Target: []int{i}}
	}
	a := NewSliceStream(examples).Shuffled(7)
	b := NewSliceStream(examples).Shuffled(7)
	for pass := 0; pass < 3; pass++ {
		got := Collect(a)
		assert.Equal(t, got, Collect(b), "pass %d", pass)
		assert.ElementsMatch(t, examples, got)
	}
}

func TestTake(t *testing.T) {
	s := NewSliceStream(ToyExamples())
	assert.Len(t, Take(s, 1), 1)
	assert.Len(t, Take(s, 5), 2)
	assert.Empty(t, Take(s, 0))
}

func TestToyExamplesFitVocabulary(t *testing.T) {
	v := ToyVocabulary()
	assert.Equal(t, 12, v.Size())
	assert.Equal(t, 11, v.PadID())
	assert.Equal(t, ToySOS, v.SOSID())
	assert.Equal(t, ToyEOS, v.EOSID())
	for _, ex := range ToyExamples() {
		for _, id := range append(append([]int{}, ex.Source...), ex.Target...) {
			tok, err := v.Token(id)
			assert.NoError(t, err)
			assert.NotEqual(t, v.PadID(), id, "toy pairs never use <pad>")
			assert.NotEqual(t, v.UnkID(), id, tok)
		}
	}
}

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPairs(t *testing.T) {
	path := writeCorpus(t, "Le Chat\tThe Cat\n\nun chat noir dort\ta black cat sleeps\n")

	pairs, err := ReadPairs(path, CorpusOptions{Lowercase: true})
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, []string{"le", "chat"}, pairs[0].Source)
	assert.Equal(t, []string{"the", "cat"}, pairs[0].Target)

	pairs, err = ReadPairs(path, CorpusOptions{MaxLength: 3})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, []string{"Le", "Chat"}, pairs[0].Source)
}

func TestReadPairsErrors(t *testing.T) {
	_, err := ReadPairs(writeCorpus(t, "no tab here\n"), CorpusOptions{})
	assert.ErrorContains(t, err, ":1:")

	_, err = ReadPairs(writeCorpus(t, "a\tb\nsource\t \n"), CorpusOptions{})
	assert.ErrorIs(t, err, ErrInvalidSequence)
	assert.ErrorContains(t, err, ":2:")
}

func TestSplitAndNumericalize(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 10; i++ {
		pairs = append(pairs, Pair{Source: []string{"a", "b"}, Target: []string{"x"}})
	}
	train, val := SplitPairs(pairs, 0.2, 1)
	assert.Len(t, train, 8)
	assert.Len(t, val, 2)

	src, trg := BuildVocabularies(train, 1)
	examples := Numericalize(val, src, trg)
	require.Len(t, examples, 2)
	assert.Equal(t, []int{src.SOSID(), 4, 5, src.EOSID()}, examples[0].Source)
	assert.Equal(t, []int{trg.SOSID(), 4, trg.EOSID()}, examples[0].Target)
}
