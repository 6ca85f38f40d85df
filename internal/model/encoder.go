package model

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"tinynmt/internal/data"
)

var (
	ErrTokenOutOfRange = errors.New("token id out of range")
	ErrShape           = errors.New("shape mismatch")
)

// History holds one encoder hidden vector per source token.
type History [][]float64

// State is the recurrent hidden vector threaded from one step to the next.
// Steps never modify the State they receive.
type State struct {
	h []float64
}

// NewState wraps a copy of h.
func NewState(h []float64) State { return State{h: clone(h)} }

// Hidden returns a copy of the hidden vector.
func (s State) Hidden() []float64 { return clone(s.h) }

type embedding struct {
	w    *Param
	size int
}

func newEmbedding(name string, vocab, size int, rng *rand.Rand) *embedding {
	return &embedding{w: newGlorotParam(name, rng, vocab, size), size: size}
}

func (e *embedding) lookup(id int) ([]float64, error) {
	vocab, _ := e.w.dims()
	if id < 0 || id >= vocab {
		return nil, fmt.Errorf("%w: %s id %d outside [0, %d)", ErrTokenOutOfRange, e.w.name, id, vocab)
	}
	return clone(e.w.row(id)), nil
}

func (e *embedding) accumulate(id int, d []float64) {
	floats.Add(e.w.gradRow(id), d)
}

// Encoder embeds source tokens and runs them one at a time through a GRU.
type Encoder struct {
	embed  *embedding
	cell   *gru
	hidden int
}

// NewEncoder creates an encoder with randomly initialised parameters.
func NewEncoder(vocabSize, embeddingSize, hiddenSize int, rng *rand.Rand) *Encoder {
	return &Encoder{
		embed:  newEmbedding("encoder.embedding", vocabSize, embeddingSize, rng),
		cell:   newGRU("encoder.gru", embeddingSize, hiddenSize, rng),
		hidden: hiddenSize,
	}
}

func (e *Encoder) HiddenSize() int { return e.hidden }

// Params lists the learnable parameters in a fixed order.
func (e *Encoder) Params() []*Param {
	return append([]*Param{e.embed.w}, e.cell.params()...)
}

// InitState returns the all-zero initial state.
func (e *Encoder) InitState() State {
	return State{h: make([]float64, e.hidden)}
}

// Step consumes one source token. The returned hidden vector and the hidden
// vector of the new state are equal but do not share storage.
func (e *Encoder) Step(token int, s State) ([]float64, State, error) {
	out, _, err := e.step(token, s)
	if err != nil {
		return nil, State{}, err
	}
	return clone(out), State{h: out}, nil
}

func (e *Encoder) step(token int, s State) ([]float64, *gruCache, error) {
	if len(s.h) != e.hidden {
		return nil, nil, fmt.Errorf("%w: encoder state has %d units, want %d", ErrShape, len(s.h), e.hidden)
	}
	x, err := e.embed.lookup(token)
	if err != nil {
		return nil, nil, err
	}
	out, cache := e.cell.forward(x, s.h)
	return out, cache, nil
}

// EncoderTape records what backpropagation through time needs from one
// encoding pass.
type EncoderTape struct {
	tokens []int
	steps  []*gruCache
}

// Encode runs the encoder over source and returns the full history and the
// final state.
func (e *Encoder) Encode(source []int) (History, State, error) {
	hist, s, _, err := e.encode(source, false)
	return hist, s, err
}

// EncodeTape is Encode that also records a tape for Backward.
func (e *Encoder) EncodeTape(source []int) (History, State, *EncoderTape, error) {
	return e.encode(source, true)
}

func (e *Encoder) encode(source []int, record bool) (History, State, *EncoderTape, error) {
	if len(source) == 0 {
		return nil, State{}, nil, fmt.Errorf("%w: empty source sentence", data.ErrInvalidSequence)
	}
	var tape *EncoderTape
	if record {
		tape = &EncoderTape{tokens: source, steps: make([]*gruCache, 0, len(source))}
	}
	hist := make(History, len(source))
	s := e.InitState()
	for i, tok := range source {
		out, cache, err := e.step(tok, s)
		if err != nil {
			return nil, State{}, nil, fmt.Errorf("source position %d: %w", i, err)
		}
		hist[i] = clone(out)
		s = State{h: out}
		if record {
			tape.steps = append(tape.steps, cache)
		}
	}
	return hist, s, tape, nil
}

// Backward accumulates encoder gradients. dHistory holds dL/d history[i]
// and dFinal dL/d final state.
func (e *Encoder) Backward(tape *EncoderTape, dHistory History, dFinal []float64) {
	dh := clone(dFinal)
	for t := len(tape.steps) - 1; t >= 0; t-- {
		floats.Add(dh, dHistory[t])
		dx, dPrev := e.cell.backward(tape.steps[t], dh)
		e.embed.accumulate(tape.tokens[t], dx)
		dh = dPrev
	}
}
