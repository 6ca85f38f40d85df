package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// attention scores every encoder position against the decoder state with
// score_i = v . tanh(Wa h + Ua enc_i + ba).
type attention struct {
	wa, ua, ba, va *Param
}

type attentionCache struct {
	h     []float64
	act   [][]float64 // tanh activations per position
	alpha []float64
}

func newAttention(hidden, size int, rng *rand.Rand) *attention {
	return &attention{
		wa: newGlorotParam("decoder.attention.wa", rng, size, hidden),
		ua: newGlorotParam("decoder.attention.ua", rng, size, hidden),
		ba: newParam("decoder.attention.ba", size),
		va: newGlorotParam("decoder.attention.va", rng, size, 1),
	}
}

func (a *attention) params() []*Param {
	return []*Param{a.wa, a.ua, a.ba, a.va}
}

// forward returns the context vector and the attention weights. Nothing is
// carried over between calls.
func (a *attention) forward(h []float64, history History) ([]float64, []float64, *attentionCache) {
	query := mulVec(a.wa.mat(), h)
	floats.Add(query, a.ba.Data())
	v := a.va.Data()
	ua := a.ua.mat()

	c := &attentionCache{h: h, act: make([][]float64, len(history))}
	scores := make([]float64, len(history))
	for i, enc := range history {
		pre := mulVec(ua, enc)
		floats.Add(pre, query)
		for k := range pre {
			pre[k] = math.Tanh(pre[k])
		}
		c.act[i] = pre
		scores[i] = floats.Dot(v, pre)
	}
	c.alpha = softmax(scores)

	ctx := make([]float64, len(h))
	for i, enc := range history {
		floats.AddScaled(ctx, c.alpha[i], enc)
	}
	return ctx, clone(c.alpha), c
}

// backward accumulates attention gradients, adds dL/d history[i] into
// dHistory and returns dL/dh.
func (a *attention) backward(c *attentionCache, history History, dCtx []float64, dHistory History) []float64 {
	dAlpha := make([]float64, len(history))
	for i, enc := range history {
		dAlpha[i] = floats.Dot(dCtx, enc)
		floats.AddScaled(dHistory[i], c.alpha[i], dCtx)
	}
	weighted := floats.Dot(c.alpha, dAlpha)

	v := a.va.Data()
	dv := a.va.GradData()
	ua, dUa := a.ua.mat(), a.ua.gradMat()
	dPreSum := make([]float64, len(v))
	for i, enc := range history {
		dScore := c.alpha[i] * (dAlpha[i] - weighted)
		if dScore == 0 {
			continue
		}
		floats.AddScaled(dv, dScore, c.act[i])
		dPre := make([]float64, len(v))
		for k, t := range c.act[i] {
			dPre[k] = dScore * v[k] * (1 - t*t)
		}
		addOuter(dUa, dPre, enc)
		floats.Add(dHistory[i], mulVecT(ua, dPre))
		floats.Add(dPreSum, dPre)
	}

	addOuter(a.wa.gradMat(), dPreSum, c.h)
	floats.Add(a.ba.GradData(), dPreSum)
	return mulVecT(a.wa.mat(), dPreSum)
}
