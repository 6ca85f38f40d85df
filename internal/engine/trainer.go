package engine

import (
	"fmt"

	"gorgonia.org/gorgonia"

	"tinynmt/internal/data"
	"tinynmt/internal/model"
)

// Trainer runs teacher-forced training steps. Each Step performs exactly one
// parameter update on the encoder and one on the decoder.
type Trainer struct {
	model     *model.Seq2Seq
	loss      model.LossFunc
	encSolver gorgonia.Solver
	decSolver gorgonia.Solver
	sos, eos  int
}

// NewTrainer wires a model to its solvers. The encoder and decoder keep
// separate solver state.
func NewTrainer(m *model.Seq2Seq, loss model.LossFunc, encSolver, decSolver gorgonia.Solver, sos, eos int) *Trainer {
	return &Trainer{
		model:     m,
		loss:      loss,
		encSolver: encSolver,
		decSolver: decSolver,
		sos:       sos,
		eos:       eos,
	}
}

// Step trains on one example and returns its summed token loss.
func (t *Trainer) Step(ex data.Example) (float64, error) {
	loss, err := t.backprop(ex)
	if err != nil {
		return 0, err
	}
	if err := model.Update(t.encSolver, t.model.Encoder.Params()); err != nil {
		return 0, fmt.Errorf("encoder update: %w", err)
	}
	if err := model.Update(t.decSolver, t.model.Decoder.Params()); err != nil {
		return 0, fmt.Errorf("decoder update: %w", err)
	}
	return loss, nil
}

type decodeStep struct {
	tape    *model.DecoderTape
	dLogits []float64
}

// backprop runs the forward pass over ex and leaves fresh gradients in every
// parameter without updating any of them.
func (t *Trainer) backprop(ex data.Example) (float64, error) {
	if err := ex.Validate(); err != nil {
		return 0, err
	}
	enc, dec := t.model.Encoder, t.model.Decoder

	history, state, encTape, err := enc.EncodeTape(ex.Source)
	if err != nil {
		return 0, err
	}
	// The first context is the encoder's final hidden vector as is.
	context := state.Hidden()
	input := t.sos

	var loss float64
	steps := make([]decodeStep, 0, len(ex.Target))
	for i, target := range ex.Target {
		out, tape, err := dec.StepTape(len(history), history, input, context, state)
		if err != nil {
			return 0, fmt.Errorf("target position %d: %w", i, err)
		}
		if target < 0 || target >= dec.VocabSize() {
			return 0, fmt.Errorf("target position %d: %w: id %d", i, model.ErrTokenOutOfRange, target)
		}
		loss += t.loss.Loss(out.Dist, target)
		steps = append(steps, decodeStep{tape: tape, dLogits: t.loss.Grad(out.Dist, target)})

		// Teacher forcing feeds the ground truth, but stopping follows the
		// model's own prediction.
		input = target
		context, state = out.Context, out.State
		if model.Argmax(out.Dist) == t.eos {
			break
		}
	}

	model.ZeroGrads(t.model.Params())
	hidden := enc.HiddenSize()
	dHistory := make(model.History, len(history))
	for i := range dHistory {
		dHistory[i] = make([]float64, hidden)
	}
	dState := make([]float64, hidden)
	dContext := make([]float64, hidden)
	for i := len(steps) - 1; i >= 0; i-- {
		dState, dContext = dec.Backward(steps[i].tape, history, steps[i].dLogits, dState, dContext, dHistory)
	}
	// Initial decoder state and context are both the encoder final state.
	for i := range dState {
		dState[i] += dContext[i]
	}
	enc.Backward(encTape, dHistory, dState)
	return loss, nil
}
