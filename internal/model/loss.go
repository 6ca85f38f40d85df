package model

import (
	"fmt"
	"math"
)

// LossFunc scores a predicted distribution against a target id.
type LossFunc interface {
	Loss(dist []float64, target int) float64
	// Grad returns the gradient of Loss w.r.t. the logits dist was computed
	// from with a softmax.
	Grad(dist []float64, target int) []float64
}

const minProb = 1e-12

// NLLLoss is the negative log likelihood of the target token.
type NLLLoss struct{}

func (NLLLoss) Loss(dist []float64, target int) float64 {
	return -math.Log(math.Max(minProb, dist[target]))
}

func (NLLLoss) Grad(dist []float64, target int) []float64 {
	d := clone(dist)
	d[target] -= 1
	return d
}

// LabelSmoothingLoss is cross-entropy against a target distribution that puts
// 1-Epsilon on the target token and spreads Epsilon uniformly.
type LabelSmoothingLoss struct {
	Epsilon float64
}

func (l LabelSmoothingLoss) Loss(dist []float64, target int) float64 {
	uniform := l.Epsilon / float64(len(dist))
	var loss float64
	for i, p := range dist {
		q := uniform
		if i == target {
			q += 1 - l.Epsilon
		}
		loss -= q * math.Log(math.Max(minProb, p))
	}
	return loss
}

func (l LabelSmoothingLoss) Grad(dist []float64, target int) []float64 {
	uniform := l.Epsilon / float64(len(dist))
	d := make([]float64, len(dist))
	for i, p := range dist {
		d[i] = p - uniform
	}
	d[target] -= 1 - l.Epsilon
	return d
}

// NewLoss resolves a loss function by name.
func NewLoss(name string, smoothing float64) (LossFunc, error) {
	switch name {
	case "", "nll", "cross_entropy":
		return NLLLoss{}, nil
	case "label_smoothing":
		if smoothing < 0 || smoothing >= 1 {
			return nil, fmt.Errorf("label smoothing %v outside [0, 1)", smoothing)
		}
		return LabelSmoothingLoss{Epsilon: smoothing}, nil
	default:
		return nil, fmt.Errorf("unknown loss %q", name)
	}
}
