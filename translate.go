package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	internal "tinynmt/internal"
	"tinynmt/internal/checkpoint"
	"tinynmt/internal/engine"
	"tinynmt/internal/model"
)

func runTranslate(args []string) error {
	fs := pflag.NewFlagSet("translate", pflag.ExitOnError)
	dir := fs.String("model", "", "Directory written by train")
	showSpecials := fs.Bool("specials", false, "Keep <sos> and <eos> in the output")
	logLevel := fs.String("log-level", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("--model is required")
	}
	logger := internal.GetLogger(*logLevel, true)

	m, src, trg, manifest, err := checkpoint.Load(*dir)
	if err != nil {
		return err
	}
	logger.Info().Str("run", manifest.Run).Int("params", manifest.NumParams).Msg("model loaded")

	// Translation needs no loss, but the evaluator carries one for
	// monitoring.
	evaluator := engine.NewEvaluator(m, model.NLLLoss{}, trg.SOSID(), trg.EOSID())

	scanner := bufio.NewScanner(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if manifest.Lowercase {
			line = strings.ToLower(line)
		}
		ids, err := evaluator.Translate(src.Encode(strings.Fields(line)))
		if err != nil {
			return err
		}
		if *showSpecials {
			ids = append(append([]int{trg.SOSID()}, ids...), trg.EOSID())
		}
		text, err := trg.Decode(ids)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
	}
	return scanner.Err()
}
