package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	internal "tinynmt/internal"
	"tinynmt/internal/checkpoint"
	"tinynmt/internal/config"
	"tinynmt/internal/data"
)

// trainFlags maps config keys to the flags that override them.
var trainFlags = map[string]string{
	"epochs":                  "epochs",
	"optimizer.learning_rate": "lr",
	"optimizer.name":          "optimizer",
	"data.train":              "train",
	"data.val":                "val",
	"training.eval_workers":   "eval-workers",
	"logging.level":           "log-level",
	"logging.console":         "console",
}

func runTrain(args []string) error {
	fs := pflag.NewFlagSet("train", pflag.ExitOnError)
	configPath := fs.String("config", internal.DefaultConfigPath, "Path to the config file")
	out := fs.String("out", "", "Directory for the trained model (default <logging.dir>/<name>/model)")
	fs.Int("epochs", 0, "Number of epochs")
	fs.Float64("lr", 0, "Learning rate")
	fs.String("optimizer", "", "Optimizer: sgd, momentum, adam or rmsprop")
	fs.String("train", "", "Training corpus (source<TAB>target per line)")
	fs.String("val", "", "Validation corpus; split from training data when empty")
	fs.Int("eval-workers", 0, "Goroutines used for validation passes")
	fs.String("log-level", "", "Log level")
	fs.Bool("console", false, "Human readable log output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := config.New()
	for key, name := range trainFlags {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return err
		}
	}
	cfg, err := config.Load(v, *configPath)
	if err != nil {
		return err
	}
	logger := internal.GetLogger(cfg.Logging.Level, cfg.Logging.Console)

	if cfg.Data.Train == "" {
		return fmt.Errorf("%w: missing required key %q", config.ErrConfiguration, "data.train")
	}
	opts := data.CorpusOptions{Lowercase: cfg.Data.Lowercase, MaxLength: cfg.Data.MaxLength}
	trainPairs, err := data.ReadPairs(cfg.Data.Train, opts)
	if err != nil {
		return err
	}
	var valPairs []data.Pair
	if cfg.Data.Val != "" {
		if valPairs, err = data.ReadPairs(cfg.Data.Val, opts); err != nil {
			return err
		}
	} else {
		trainPairs, valPairs = data.SplitPairs(trainPairs, cfg.Data.ValSplit, cfg.Seed)
	}
	if len(trainPairs) == 0 || len(valPairs) == 0 {
		return fmt.Errorf("need training and validation pairs, got %d and %d", len(trainPairs), len(valPairs))
	}
	logger.Info().Int("train_pairs", len(trainPairs)).Int("val_pairs", len(valPairs)).Msg("corpus loaded")

	src, trg := data.BuildVocabularies(trainPairs, cfg.Data.MinFreq)
	train := data.NewSliceStream(data.Numericalize(trainPairs, src, trg))
	if cfg.Data.Shuffle {
		train.Shuffled(cfg.Seed)
	}
	val := data.NewSliceStream(data.Numericalize(valPairs, src, trg))

	r, err := newRun(cfg, src, trg, train, val, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	start := time.Now()
	if err := r.loop.Run(); err != nil {
		return err
	}
	logger.Info().Dur("elapsed", time.Since(start)).Int("steps", r.loop.Step()-1).Msg("training complete")

	dir := *out
	if dir == "" {
		dir = filepath.Join(cfg.Logging.Dir, cfg.Name, internal.DefaultModelDir)
	}
	manifest := checkpoint.Manifest{
		Run:       r.id.String(),
		Name:      cfg.Name,
		Steps:     r.loop.Step() - 1,
		Lowercase: cfg.Data.Lowercase,
		TrainedAt: time.Now(),
	}
	if err := checkpoint.Save(dir, r.model, src, trg, manifest); err != nil {
		return err
	}
	logger.Info().Str("dir", dir).Msg("model saved")
	return nil
}
