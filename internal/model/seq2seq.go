package model

import (
	"fmt"
	"math/rand"
)

// Config sizes a Seq2Seq model.
type Config struct {
	SourceVocab   int
	TargetVocab   int
	EmbeddingSize int
	HiddenSize    int
	AttentionSize int
	Seed          int64
}

// Seq2Seq pairs an encoder with an attention decoder of matching hidden size.
type Seq2Seq struct {
	Encoder *Encoder
	Decoder *Decoder
	cfg     Config
}

// New initialises a model; the same seed yields the same parameters.
func New(cfg Config) (*Seq2Seq, error) {
	if cfg.SourceVocab <= 0 || cfg.TargetVocab <= 0 || cfg.EmbeddingSize <= 0 || cfg.HiddenSize <= 0 {
		return nil, fmt.Errorf("%w: invalid model config %+v", ErrShape, cfg)
	}
	if cfg.AttentionSize <= 0 {
		cfg.AttentionSize = cfg.HiddenSize
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Seq2Seq{
		Encoder: NewEncoder(cfg.SourceVocab, cfg.EmbeddingSize, cfg.HiddenSize, rng),
		Decoder: NewDecoder(cfg.TargetVocab, cfg.EmbeddingSize, cfg.HiddenSize, cfg.AttentionSize, rng),
		cfg:     cfg,
	}, nil
}

func (m *Seq2Seq) Config() Config { return m.cfg }

// Params lists encoder then decoder parameters.
func (m *Seq2Seq) Params() []*Param {
	return append(m.Encoder.Params(), m.Decoder.Params()...)
}

// NumParams counts scalar parameters.
func (m *Seq2Seq) NumParams() int {
	n := 0
	for _, p := range m.Params() {
		n += len(p.Data())
	}
	return n
}
