package data

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"
)

var (
	ErrInvalidSequence = errors.New("invalid sequence")
)

// Example is one source/target pair of token ids.
type Example struct {
	Source []int
	Target []int
}

// Validate rejects pairs with an empty side.
func (e Example) Validate() error {
	if len(e.Source) == 0 {
		return fmt.Errorf("%w: empty source sentence", ErrInvalidSequence)
	}
	if len(e.Target) == 0 {
		return fmt.Errorf("%w: empty target sentence", ErrInvalidSequence)
	}
	return nil
}

// Stream is a re-iterable sequence of examples. Every call to All starts a
// fresh pass.
type Stream interface {
	All() iter.Seq2[int, Example]
	Len() int
}

// SliceStream serves examples from memory. With shuffling enabled each pass
// visits the examples in a new order drawn from a seeded source, so a run is
// reproducible; otherwise passes are in insertion order.
type SliceStream struct {
	examples []Example
	rng      *rand.Rand
}

func NewSliceStream(examples []Example) *SliceStream {
	return &SliceStream{examples: examples}
}

// Shuffled enables per-pass shuffling with the given seed.
func (s *SliceStream) Shuffled(seed int64) *SliceStream {
	s.rng = rand.New(rand.NewSource(seed))
	return s
}

func (s *SliceStream) Len() int { return len(s.examples) }

func (s *SliceStream) All() iter.Seq2[int, Example] {
	order := make([]int, len(s.examples))
	for i := range order {
		order[i] = i
	}
	if s.rng != nil {
		s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return func(yield func(int, Example) bool) {
		for i, idx := range order {
			if !yield(i, s.examples[idx]) {
				return
			}
		}
	}
}

// Collect drains one pass of s into a slice.
func Collect(s Stream) []Example {
	out := make([]Example, 0, s.Len())
	for _, ex := range s.All() {
		out = append(out, ex)
	}
	return out
}

// Take returns the first n examples of one pass.
func Take(s Stream, n int) []Example {
	out := make([]Example, 0, n)
	if n <= 0 {
		return out
	}
	for _, ex := range s.All() {
		out = append(out, ex)
		if len(out) == n {
			break
		}
	}
	return out
}
