package model

import (
	"fmt"

	"gorgonia.org/gorgonia"
)

// SolverConfig selects and tunes a gorgonia solver.
type SolverConfig struct {
	Name         string
	LearningRate float64
	Momentum     float64
	Clip         float64
	L2           float64
}

// NewSolver builds the gorgonia solver named by cfg.
func NewSolver(cfg SolverConfig) (gorgonia.Solver, error) {
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %v", cfg.LearningRate)
	}
	opts := []gorgonia.SolverOpt{gorgonia.WithLearnRate(cfg.LearningRate)}
	if cfg.Clip > 0 {
		opts = append(opts, gorgonia.WithClip(cfg.Clip))
	}
	if cfg.L2 > 0 {
		opts = append(opts, gorgonia.WithL2Reg(cfg.L2))
	}

	switch cfg.Name {
	case "", "sgd":
		return gorgonia.NewVanillaSolver(opts...), nil
	case "momentum":
		if cfg.Momentum > 0 {
			opts = append(opts, gorgonia.WithMomentum(cfg.Momentum))
		}
		return gorgonia.NewMomentum(opts...), nil
	case "adam":
		return gorgonia.NewAdamSolver(opts...), nil
	case "rmsprop":
		return gorgonia.NewRMSPropSolver(opts...), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Name)
	}
}

// Update applies one solver step to params using their accumulated
// gradients.
func Update(solver gorgonia.Solver, params []*Param) error {
	vgs := make([]gorgonia.ValueGrad, len(params))
	for i, p := range params {
		vgs[i] = p
	}
	return solver.Step(vgs)
}
