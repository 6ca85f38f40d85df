package engine

import (
	"fmt"

	"tinynmt/internal/data"
	"tinynmt/internal/model"
)

// MinDecodeLength is the floor of the greedy decoding length bound.
const MinDecodeLength = 10

// MaxDecodeLength returns max(10, 2*n).
func MaxDecodeLength(n int) int {
	return max(MinDecodeLength, 2*n)
}

// Result is the outcome of greedy decoding one example.
type Result struct {
	// Loss is the monitoring loss over the positions that have a reference
	// token. It never feeds a gradient.
	Loss   float64
	Tokens []int
}

// Evaluator decodes greedily without touching the parameters, so one
// Evaluator may be shared by concurrent callers.
type Evaluator struct {
	model    *model.Seq2Seq
	loss     model.LossFunc
	sos, eos int
}

func NewEvaluator(m *model.Seq2Seq, loss model.LossFunc, sos, eos int) *Evaluator {
	return &Evaluator{model: m, loss: loss, sos: sos, eos: eos}
}

// Evaluate decodes ex.Source feeding back the model's own predictions.
func (e *Evaluator) Evaluate(ex data.Example) (Result, error) {
	if err := ex.Validate(); err != nil {
		return Result{}, err
	}
	return e.decode(ex.Source, ex.Target, MaxDecodeLength(len(ex.Target)))
}

// Translate decodes a source sentence with no reference, bounded by twice
// the source length.
func (e *Evaluator) Translate(source []int) ([]int, error) {
	res, err := e.decode(source, nil, MaxDecodeLength(len(source)))
	if err != nil {
		return nil, err
	}
	return res.Tokens, nil
}

func (e *Evaluator) decode(source, target []int, maxLength int) (Result, error) {
	enc, dec := e.model.Encoder, e.model.Decoder
	history, state, err := enc.Encode(source)
	if err != nil {
		return Result{}, err
	}
	context := state.Hidden()
	input := e.sos

	var res Result
	for i := 0; ; i++ {
		out, err := dec.Step(len(history), history, input, context, state)
		if err != nil {
			return Result{}, fmt.Errorf("decode step %d: %w", i, err)
		}
		pred := model.Argmax(out.Dist)
		if i < len(target) {
			if target[i] < 0 || target[i] >= dec.VocabSize() {
				return Result{}, fmt.Errorf("target position %d: %w: id %d", i, model.ErrTokenOutOfRange, target[i])
			}
			res.Loss += e.loss.Loss(out.Dist, target[i])
		}
		if pred == e.eos {
			break
		}
		res.Tokens = append(res.Tokens, pred)
		if len(res.Tokens) >= maxLength {
			break
		}
		input = pred
		context, state = out.Context, out.State
	}
	return res, nil
}
