package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Decoder consumes the previous output token and the previous attention
// context, advances its GRU state, attends over the encoder history and
// predicts a distribution over the target vocabulary from [h; context].
type Decoder struct {
	embed  *embedding
	cell   *gru
	attn   *attention
	wo, bo *Param
	hidden int
	vocab  int
}

// NewDecoder creates a decoder with randomly initialised parameters. The
// hidden size must match the encoder's.
func NewDecoder(vocabSize, embeddingSize, hiddenSize, attentionSize int, rng *rand.Rand) *Decoder {
	return &Decoder{
		embed:  newEmbedding("decoder.embedding", vocabSize, embeddingSize, rng),
		cell:   newGRU("decoder.gru", embeddingSize+hiddenSize, hiddenSize, rng),
		attn:   newAttention(hiddenSize, attentionSize, rng),
		wo:     newGlorotParam("decoder.out.w", rng, vocabSize, 2*hiddenSize),
		bo:     newParam("decoder.out.b", vocabSize),
		hidden: hiddenSize,
		vocab:  vocabSize,
	}
}

func (d *Decoder) VocabSize() int { return d.vocab }

// Params lists the learnable parameters in a fixed order.
func (d *Decoder) Params() []*Param {
	ps := []*Param{d.embed.w}
	ps = append(ps, d.cell.params()...)
	ps = append(ps, d.attn.params()...)
	return append(ps, d.wo, d.bo)
}

// Output is the result of one decoder step.
type Output struct {
	// Dist is the next-token probability distribution.
	Dist    []float64
	Context []float64
	State   State
	// Weights are the attention weights over the source positions.
	Weights []float64
}

// DecoderTape records one step for Backward.
type DecoderTape struct {
	input int
	cell  *gruCache
	attn  *attentionCache
	feat  []float64
}

// Step runs one decode step.
func (d *Decoder) Step(sourceLength int, history History, prev int, prevContext []float64, s State) (Output, error) {
	out, _, err := d.step(sourceLength, history, prev, prevContext, s)
	return out, err
}

// StepTape is Step that also records a tape for Backward.
func (d *Decoder) StepTape(sourceLength int, history History, prev int, prevContext []float64, s State) (Output, *DecoderTape, error) {
	return d.step(sourceLength, history, prev, prevContext, s)
}

func (d *Decoder) step(sourceLength int, history History, prev int, prevContext []float64, s State) (Output, *DecoderTape, error) {
	if sourceLength == 0 || sourceLength != len(history) {
		return Output{}, nil, fmt.Errorf("%w: source length %d with %d history entries", ErrShape, sourceLength, len(history))
	}
	if len(prevContext) != d.hidden || len(s.h) != d.hidden {
		return Output{}, nil, fmt.Errorf("%w: context %d and state %d units, want %d", ErrShape, len(prevContext), len(s.h), d.hidden)
	}
	x, err := d.embed.lookup(prev)
	if err != nil {
		return Output{}, nil, err
	}
	xcat := concat(x, prevContext)
	h, cellCache := d.cell.forward(xcat, s.h)
	ctx, weights, attnCache := d.attn.forward(h, history)

	feat := concat(h, ctx)
	logits := mulVec(d.wo.mat(), feat)
	floats.Add(logits, d.bo.Data())

	out := Output{
		Dist:    softmax(logits),
		Context: clone(ctx),
		State:   State{h: h},
		Weights: weights,
	}
	tape := &DecoderTape{input: prev, cell: cellCache, attn: attnCache, feat: feat}
	return out, tape, nil
}

// Backward accumulates decoder gradients for one recorded step.
// dLogits is the loss gradient w.r.t. this step's logits, dState and
// dContext the gradients flowing back from the following step into this
// step's outputs. Gradients w.r.t. the encoder history are added into
// dHistory. It returns the gradients w.r.t. the state and context this step
// consumed.
func (d *Decoder) Backward(t *DecoderTape, history History, dLogits, dState, dContext []float64, dHistory History) (dPrevState, dPrevContext []float64) {
	addOuter(d.wo.gradMat(), dLogits, t.feat)
	floats.Add(d.bo.GradData(), dLogits)
	dFeat := mulVecT(d.wo.mat(), dLogits)

	dh := dFeat[:d.hidden]
	floats.Add(dh, dState)
	dCtx := dFeat[d.hidden:]
	floats.Add(dCtx, dContext)

	floats.Add(dh, d.attn.backward(t.attn, history, dCtx, dHistory))

	dx, dPrevState := d.cell.backward(t.cell, dh)
	emb := d.embed.size
	d.embed.accumulate(t.input, dx[:emb])
	return dPrevState, clone(dx[emb:])
}
