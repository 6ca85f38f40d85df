package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// gru is a single gated recurrent unit cell. Gate rows are stacked in the
// order reset, update, candidate:
//
//	r  = sigmoid(Wx_r x + bx_r + Wh_r h + bh_r)
//	z  = sigmoid(Wx_z x + bx_z + Wh_z h + bh_z)
//	n  = tanh(Wx_n x + bx_n + r * (Wh_n h + bh_n))
//	h' = (1-z)*n + z*h
type gru struct {
	wx, wh, bx, bh *Param
	in, hidden     int
}

type gruCache struct {
	x, h    []float64
	r, z, n []float64
	hn      []float64 // Wh_n h + bh_n, needed by the reset gate gradient
}

func newGRU(prefix string, in, hidden int, rng *rand.Rand) *gru {
	return &gru{
		wx:     newGlorotParam(fmt.Sprintf("%s.wx", prefix), rng, 3*hidden, in),
		wh:     newGlorotParam(fmt.Sprintf("%s.wh", prefix), rng, 3*hidden, hidden),
		bx:     newParam(fmt.Sprintf("%s.bx", prefix), 3*hidden),
		bh:     newParam(fmt.Sprintf("%s.bh", prefix), 3*hidden),
		in:     in,
		hidden: hidden,
	}
}

func (g *gru) params() []*Param {
	return []*Param{g.wx, g.wh, g.bx, g.bh}
}

func (g *gru) forward(x, h []float64) ([]float64, *gruCache) {
	H := g.hidden
	gx := mulVec(g.wx.mat(), x)
	gh := mulVec(g.wh.mat(), h)
	bx, bh := g.bx.Data(), g.bh.Data()

	c := &gruCache{
		x:  x,
		h:  h,
		r:  make([]float64, H),
		z:  make([]float64, H),
		n:  make([]float64, H),
		hn: make([]float64, H),
	}
	out := make([]float64, H)
	for j := 0; j < H; j++ {
		c.r[j] = sigmoid(gx[j] + bx[j] + gh[j] + bh[j])
		c.z[j] = sigmoid(gx[H+j] + bx[H+j] + gh[H+j] + bh[H+j])
		c.hn[j] = gh[2*H+j] + bh[2*H+j]
		c.n[j] = math.Tanh(gx[2*H+j] + bx[2*H+j] + c.r[j]*c.hn[j])
		out[j] = (1-c.z[j])*c.n[j] + c.z[j]*h[j]
	}
	return out, c
}

// backward accumulates parameter gradients for one step given dL/dh' and
// returns dL/dx and dL/dh.
func (g *gru) backward(c *gruCache, dOut []float64) (dx, dh []float64) {
	H := g.hidden
	dgx := make([]float64, 3*H)
	dgh := make([]float64, 3*H)
	dh = make([]float64, H)
	for j := 0; j < H; j++ {
		dn := dOut[j] * (1 - c.z[j])
		dz := dOut[j] * (c.h[j] - c.n[j])
		dh[j] = dOut[j] * c.z[j]

		dnPre := dn * (1 - c.n[j]*c.n[j])
		dzPre := dz * c.z[j] * (1 - c.z[j])
		drPre := dnPre * c.hn[j] * c.r[j] * (1 - c.r[j])

		dgx[j], dgx[H+j], dgx[2*H+j] = drPre, dzPre, dnPre
		dgh[j], dgh[H+j], dgh[2*H+j] = drPre, dzPre, dnPre*c.r[j]
	}

	addOuter(g.wx.gradMat(), dgx, c.x)
	addOuter(g.wh.gradMat(), dgh, c.h)
	floats.Add(g.bx.GradData(), dgx)
	floats.Add(g.bh.GradData(), dgh)

	dx = mulVecT(g.wx.mat(), dgx)
	floats.Add(dh, mulVecT(g.wh.mat(), dgh))
	return dx, dh
}
