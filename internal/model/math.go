package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// mulVec returns w*x.
func mulVec(w *mat.Dense, x []float64) []float64 {
	r, _ := w.Dims()
	out := make([]float64, r)
	mat.NewVecDense(r, out).MulVec(w, mat.NewVecDense(len(x), x))
	return out
}

// mulVecT returns w^T*y.
func mulVecT(w *mat.Dense, y []float64) []float64 {
	_, c := w.Dims()
	out := make([]float64, c)
	mat.NewVecDense(c, out).MulVec(w.T(), mat.NewVecDense(len(y), y))
	return out
}

// addOuter accumulates a*b^T into g.
func addOuter(g *mat.Dense, a, b []float64) {
	g.RankOne(g, 1, mat.NewVecDense(len(a), a), mat.NewVecDense(len(b), b))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// softmax is computed through log-sum-exp so large logits do not overflow.
func softmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp(v - lse)
	}
	return out
}

func concat(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}

// Argmax returns the index of the largest entry, the lowest index on ties.
func Argmax(dist []float64) int {
	return floats.MaxIdx(dist)
}
