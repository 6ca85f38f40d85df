package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tinynmt/internal/config"
	"tinynmt/internal/data"
	"tinynmt/internal/engine"
	"tinynmt/internal/metrics"
	"tinynmt/internal/model"
	"tinynmt/internal/vocab"
)

// run holds everything one training invocation owns.
type run struct {
	id        uuid.UUID
	model     *model.Seq2Seq
	evaluator *engine.Evaluator
	loop      *engine.Loop
	writers   metrics.Multi
}

func newRun(cfg *config.Config, src, trg *vocab.Vocabulary, train, val data.Stream, logger zerolog.Logger) (*run, error) {
	id := uuid.New()
	logger = logger.With().Str("run", id.String()).Str("name", cfg.Name).Logger()

	m, err := model.New(model.Config{
		SourceVocab:   src.Size(),
		TargetVocab:   trg.Size(),
		EmbeddingSize: cfg.Model.EmbeddingSize,
		HiddenSize:    cfg.Model.HiddenSize,
		AttentionSize: cfg.Model.AttentionSize,
		Seed:          cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	lossFn, err := model.NewLoss(cfg.Loss.Name, cfg.Loss.Smoothing)
	if err != nil {
		return nil, err
	}
	encSolver, err := model.NewSolver(cfg.SolverConfig())
	if err != nil {
		return nil, err
	}
	decSolver, err := model.NewSolver(cfg.SolverConfig())
	if err != nil {
		return nil, err
	}

	sos, eos := trg.SOSID(), trg.EOSID()
	trainer := engine.NewTrainer(m, lossFn, encSolver, decSolver, sos, eos)
	evaluator := engine.NewEvaluator(m, lossFn, sos, eos)

	base := filepath.Join(cfg.Logging.Dir, cfg.Name)
	trainJSONL, err := metrics.NewJSONLWriter(filepath.Join(base, "train"), id)
	if err != nil {
		return nil, err
	}
	valJSONL, err := metrics.NewJSONLWriter(filepath.Join(base, "val"), id)
	if err != nil {
		trainJSONL.Close()
		return nil, err
	}
	trainLog := metrics.Multi{trainJSONL, metrics.NewLogWriter(logger.With().Str("writer", "train").Logger(), zerolog.DebugLevel)}
	valLog := metrics.Multi{valJSONL, metrics.NewLogWriter(logger.With().Str("writer", "val").Logger(), zerolog.InfoLevel)}

	loop, err := engine.NewLoop(cfg.LoopConfig(), trainer, evaluator, train, val, src, trg, trainLog, valLog, logger)
	if err != nil {
		trainLog.Close()
		valLog.Close()
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	logger.Info().
		Int("source_vocab", src.Size()).
		Int("target_vocab", trg.Size()).
		Int("params", m.NumParams()).
		Int("train_examples", train.Len()).
		Int("val_examples", val.Len()).
		Msg("run initialised")

	return &run{
		id:        id,
		model:     m,
		evaluator: evaluator,
		loop:      loop,
		writers:   metrics.Multi{trainLog, valLog},
	}, nil
}

func (r *run) Close() error {
	return r.writers.Close()
}
