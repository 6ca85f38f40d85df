package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"tinynmt/internal/data"
	"tinynmt/internal/metrics"
	"tinynmt/internal/vocab"
)

// DefaultSampleCount is how many validation examples a sampling pass renders.
const DefaultSampleCount = 5

// LoopConfig schedules a training run.
type LoopConfig struct {
	Epochs      int
	EvalEvery   int
	SampleEvery int
	SampleCount int
	// EvalWorkers bounds the goroutines used for a validation pass.
	EvalWorkers int
}

func (c LoopConfig) validate() error {
	if c.Epochs <= 0 || c.EvalEvery <= 0 || c.SampleEvery <= 0 {
		return fmt.Errorf("epochs, eval_every and sample_every must be positive: %+v", c)
	}
	return nil
}

// Loop drives training epochs, periodic validation and periodic sampling.
type Loop struct {
	cfg       LoopConfig
	trainer   *Trainer
	evaluator *Evaluator
	train     data.Stream
	val       data.Stream
	src, trg  *vocab.Vocabulary
	trainLog  metrics.Writer
	valLog    metrics.Writer
	logger    zerolog.Logger
	now       func() time.Time

	// step is the global example counter and the x value of every record.
	// It starts at 1 and is never reset. Validation and sampling are
	// scheduled on the position within the epoch instead.
	step int
}

// NewLoop assembles a training loop.
func NewLoop(cfg LoopConfig, trainer *Trainer, evaluator *Evaluator, train, val data.Stream,
	src, trg *vocab.Vocabulary, trainLog, valLog metrics.Writer, logger zerolog.Logger) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.SampleCount <= 0 {
		cfg.SampleCount = DefaultSampleCount
	}
	if cfg.EvalWorkers <= 0 {
		cfg.EvalWorkers = 1
	}
	return &Loop{
		cfg:       cfg,
		trainer:   trainer,
		evaluator: evaluator,
		train:     train,
		val:       val,
		src:       src,
		trg:       trg,
		trainLog:  trainLog,
		valLog:    valLog,
		logger:    logger,
		now:       time.Now,
		step:      1,
	}, nil
}

// Step returns the global step the next training example will get.
func (l *Loop) Step() int { return l.step }

// Run trains for the configured number of epochs. The first error stops the
// run.
func (l *Loop) Run() error {
	for epoch := 0; epoch < l.cfg.Epochs; epoch++ {
		l.logger.Info().Int("epoch", epoch).Int("step", l.step).Msg("epoch started")
		var epochLoss float64
		var n int
		for i, ex := range l.train.All() {
			loss, err := l.trainOne(i, ex)
			if err != nil {
				return fmt.Errorf("epoch %d step %d example %d: %w", epoch, l.step, i, err)
			}
			epochLoss += loss
			n++
			l.step++
		}
		if n > 0 {
			epochLoss /= float64(n)
		}
		l.logger.Info().Int("epoch", epoch).Int("examples", n).Float64("mean_loss", epochLoss).Msg("epoch finished")
	}
	return nil
}

// trainOne trains on the example at position i of the current epoch.
func (l *Loop) trainOne(i int, ex data.Example) (float64, error) {
	loss, err := l.trainer.Step(ex)
	if err != nil {
		return 0, err
	}
	at := l.now()
	if err := l.trainLog.AddScalar("loss", loss, l.step, at); err != nil {
		return 0, fmt.Errorf("log train loss: %w", err)
	}
	l.logger.Debug().Int("step", l.step).Float64("loss", loss).Msg("train step")

	if (i+1)%l.cfg.EvalEvery == 0 {
		valLoss, err := l.Validate()
		if err != nil {
			return 0, fmt.Errorf("validation: %w", err)
		}
		if err := l.valLog.AddScalar("loss", valLoss, l.step, at); err != nil {
			return 0, fmt.Errorf("log validation loss: %w", err)
		}
		l.logger.Info().Int("step", l.step).Float64("val_loss", valLoss).Msg("validation")
	}

	if (i+1)%l.cfg.SampleEvery == 0 {
		if err := l.sample(at); err != nil {
			return 0, fmt.Errorf("sampling: %w", err)
		}
	}
	return loss, nil
}

// Validate evaluates the whole validation stream and returns the mean
// monitoring loss. Per-example results are reduced in stream order so the
// mean does not depend on the worker count.
func (l *Loop) Validate() (float64, error) {
	examples := data.Collect(l.val)
	if len(examples) == 0 {
		return 0, errors.New("validation stream is empty")
	}
	losses := make([]float64, len(examples))

	p := pool.New().WithErrors().WithMaxGoroutines(l.cfg.EvalWorkers)
	for i, ex := range examples {
		p.Go(func() error {
			res, err := l.evaluator.Evaluate(ex)
			if err != nil {
				return fmt.Errorf("validation example %d: %w", i, err)
			}
			losses[i] = res.Loss
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return 0, err
	}

	var sum float64
	for _, v := range losses {
		sum += v
	}
	return sum / float64(len(losses)), nil
}

func (l *Loop) sample(at time.Time) error {
	for i, ex := range data.Take(l.val, l.cfg.SampleCount) {
		res, err := l.evaluator.Evaluate(ex)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		text, err := RenderTranslation(l.src, l.trg, ex.Source, ex.Target, res.Tokens)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		if err := l.valLog.AddText("translation", text, l.step, at); err != nil {
			return fmt.Errorf("log sample %d: %w", i, err)
		}
	}
	l.logger.Debug().Int("step", l.step).Msg("samples written")
	return nil
}
