package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Param is a learnable tensor together with its gradient accumulator.
// Both live in gorgonia dense tensors so the gorgonia solvers can update them
// in place; the forward and backward passes read them through gonum views
// that share the backing slices.
type Param struct {
	name  string
	value *tensor.Dense
	grad  *tensor.Dense
}

var _ gorgonia.ValueGrad = (*Param)(nil)

func newParam(name string, shape ...int) *Param {
	size := 1
	for _, s := range shape {
		size *= s
	}
	return &Param{
		name:  name,
		value: tensor.New(tensor.WithShape(shape...), tensor.WithBacking(make([]float64, size))),
		grad:  tensor.New(tensor.WithShape(shape...), tensor.WithBacking(make([]float64, size))),
	}
}

// newGlorotParam draws every entry from U(-a, a), a = sqrt(6/(rows+cols)).
func newGlorotParam(name string, rng *rand.Rand, rows, cols int) *Param {
	p := newParam(name, rows, cols)
	a := math.Sqrt(6.0 / float64(rows+cols))
	data := p.Data()
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * a
	}
	return p
}

func (p *Param) Name() string { return p.name }

func (p *Param) Shape() tensor.Shape { return p.value.Shape() }

func (p *Param) Value() gorgonia.Value { return p.value }

func (p *Param) Grad() (gorgonia.Value, error) { return p.grad, nil }

// Data exposes the parameter values; writes go straight into the tensor.
func (p *Param) Data() []float64 { return p.value.Data().([]float64) }

func (p *Param) GradData() []float64 { return p.grad.Data().([]float64) }

// Set overwrites the parameter values.
func (p *Param) Set(values []float64) error {
	data := p.Data()
	if len(values) != len(data) {
		return fmt.Errorf("%w: %s has %d values, got %d", ErrShape, p.name, len(data), len(values))
	}
	copy(data, values)
	return nil
}

func (p *Param) ZeroGrad() { clear(p.GradData()) }

func (p *Param) dims() (int, int) {
	s := p.value.Shape()
	if len(s) == 1 {
		return s[0], 1
	}
	return s[0], s[1]
}

func (p *Param) mat() *mat.Dense {
	r, c := p.dims()
	return mat.NewDense(r, c, p.Data())
}

func (p *Param) gradMat() *mat.Dense {
	r, c := p.dims()
	return mat.NewDense(r, c, p.GradData())
}

// row returns row i of a matrix parameter, sharing storage.
func (p *Param) row(i int) []float64 {
	_, c := p.dims()
	return p.Data()[i*c : (i+1)*c]
}

func (p *Param) gradRow(i int) []float64 {
	_, c := p.dims()
	return p.GradData()[i*c : (i+1)*c]
}

// ZeroGrads clears the gradients of every parameter.
func ZeroGrads(params []*Param) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// Snapshot copies the current values of params, keyed by name.
func Snapshot(params []*Param) map[string][]float64 {
	out := make(map[string][]float64, len(params))
	for _, p := range params {
		out[p.name] = append([]float64(nil), p.Data()...)
	}
	return out
}
