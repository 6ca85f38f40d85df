package main

import (
	"fmt"

	"github.com/spf13/pflag"

	internal "tinynmt/internal"
	"tinynmt/internal/config"
	"tinynmt/internal/data"
	"tinynmt/internal/engine"
)

func runDemo(args []string) error {
	fs := pflag.NewFlagSet("demo", pflag.ExitOnError)
	epochs := fs.Int("epochs", 150, "Passes over the two toy pairs")
	optimizer := fs.String("optimizer", "adam", "Optimizer: sgd, momentum, adam or rmsprop")
	lr := fs.Float64("lr", 0.01, "Learning rate")
	hidden := fs.Int("hidden", 32, "Hidden size")
	logLevel := fs.String("log-level", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := config.New()
	v.Set("name", "demo")
	v.Set("epochs", *epochs)
	v.Set("optimizer.name", *optimizer)
	v.Set("optimizer.learning_rate", *lr)
	v.Set("model.embedding_size", 16)
	v.Set("model.hidden_size", *hidden)
	v.Set("training.eval_every", 2)
	v.Set("training.sample_every", 2)
	v.Set("training.sample_count", 2)
	v.Set("logging.level", *logLevel)
	v.Set("logging.console", true)
	cfg, err := config.Load(v, "")
	if err != nil {
		return err
	}
	logger := internal.GetLogger(cfg.Logging.Level, cfg.Logging.Console)

	voc := data.ToyVocabulary()
	examples := data.ToyExamples()
	train := data.NewSliceStream(examples).Shuffled(cfg.Seed)
	val := data.NewSliceStream(examples)

	r, err := newRun(cfg, voc, voc, train, val, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.loop.Run(); err != nil {
		return err
	}
	valLoss, err := r.loop.Validate()
	if err != nil {
		return err
	}
	fmt.Printf("steps: %d  validation loss: %.4f\n\n", r.loop.Step()-1, valLoss)
	for _, ex := range examples {
		res, err := r.evaluator.Evaluate(ex)
		if err != nil {
			return err
		}
		text, err := engine.RenderTranslation(voc, voc, ex.Source, ex.Target, res.Tokens)
		if err != nil {
			return err
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
