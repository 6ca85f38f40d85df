package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	internal "tinynmt/internal"
	"tinynmt/internal/engine"
	"tinynmt/internal/model"
)

var (
	ErrConfiguration = errors.New("configuration error")
)

// Config is the resolved run configuration.
// The values are read by viper from a config file, environment variables
// (TINYNMT_ prefix, dots become underscores) and bound command line flags.
type Config struct {
	Name      string          `mapstructure:"name"`
	Seed      int64           `mapstructure:"seed"`
	Epochs    int             `mapstructure:"epochs"`
	Data      DataConfig      `mapstructure:"data"`
	Model     ModelConfig     `mapstructure:"model"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Loss      LossConfig      `mapstructure:"loss"`
	Training  TrainingConfig  `mapstructure:"training"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DataConfig locates and filters the parallel corpus.
type DataConfig struct {
	Train     string  `mapstructure:"train"`
	Val       string  `mapstructure:"val"`
	ValSplit  float64 `mapstructure:"val_split"`
	MaxLength int     `mapstructure:"max_length"`
	MinFreq   int     `mapstructure:"min_freq"`
	Lowercase bool    `mapstructure:"lowercase"`
	Shuffle   bool    `mapstructure:"shuffle"`
}

type ModelConfig struct {
	EmbeddingSize int `mapstructure:"embedding_size"`
	HiddenSize    int `mapstructure:"hidden_size"`
	AttentionSize int `mapstructure:"attention_size"`
}

type OptimizerConfig struct {
	Name         string  `mapstructure:"name"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Momentum     float64 `mapstructure:"momentum"`
	Clip         float64 `mapstructure:"clip"`
	L2           float64 `mapstructure:"l2"`
}

type LossConfig struct {
	Name      string  `mapstructure:"name"`
	Smoothing float64 `mapstructure:"smoothing"`
}

type TrainingConfig struct {
	EvalEvery   int `mapstructure:"eval_every"`
	SampleEvery int `mapstructure:"sample_every"`
	SampleCount int `mapstructure:"sample_count"`
	EvalWorkers int `mapstructure:"eval_workers"`
}

type LoggingConfig struct {
	Dir     string `mapstructure:"dir"`
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// requiredKeys must be set and positive; there are no defaults for them.
var requiredKeys = []string{"epochs", "training.eval_every", "training.sample_every"}

// New returns a viper instance with the defaults applied and environment
// overrides enabled. Callers may bind flags before passing it to Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("name", "default")
	v.SetDefault("seed", 1337)
	v.SetDefault("data.val_split", 0.1)
	v.SetDefault("data.max_length", 50)
	v.SetDefault("data.min_freq", 1)
	v.SetDefault("data.lowercase", true)
	v.SetDefault("data.shuffle", true)
	v.SetDefault("model.embedding_size", 64)
	v.SetDefault("model.hidden_size", 128)
	v.SetDefault("model.attention_size", 0)
	v.SetDefault("optimizer.name", "sgd")
	v.SetDefault("optimizer.learning_rate", 0.01)
	v.SetDefault("optimizer.clip", 5.0)
	v.SetDefault("loss.name", "nll")
	v.SetDefault("training.sample_count", engine.DefaultSampleCount)
	v.SetDefault("training.eval_workers", 1)
	v.SetDefault("logging.dir", internal.DefaultLogDir)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix(internal.DefaultAppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configPath (JSON, YAML or TOML by extension) into v and
// decodes and validates the result. An empty path reads nothing from disk.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}
	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			return nil, fmt.Errorf("%w: missing required key %q", ErrConfiguration, key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	positive := map[string]int{
		"epochs":                c.Epochs,
		"training.eval_every":   c.Training.EvalEvery,
		"training.sample_every": c.Training.SampleEvery,
		"model.embedding_size":  c.Model.EmbeddingSize,
		"model.hidden_size":     c.Model.HiddenSize,
	}
	for _, key := range append(requiredKeys, "model.embedding_size", "model.hidden_size") {
		if positive[key] <= 0 {
			return fmt.Errorf("%w: %q must be a positive integer, got %d", ErrConfiguration, key, positive[key])
		}
	}
	if c.Data.ValSplit < 0 || c.Data.ValSplit >= 1 {
		return fmt.Errorf("%w: %q must be in [0, 1), got %v", ErrConfiguration, "data.val_split", c.Data.ValSplit)
	}
	if _, err := model.NewSolver(c.SolverConfig()); err != nil {
		return fmt.Errorf("%w: optimizer: %v", ErrConfiguration, err)
	}
	if _, err := model.NewLoss(c.Loss.Name, c.Loss.Smoothing); err != nil {
		return fmt.Errorf("%w: loss: %v", ErrConfiguration, err)
	}
	return nil
}

// SolverConfig converts the optimizer section.
func (c *Config) SolverConfig() model.SolverConfig {
	return model.SolverConfig{
		Name:         c.Optimizer.Name,
		LearningRate: c.Optimizer.LearningRate,
		Momentum:     c.Optimizer.Momentum,
		Clip:         c.Optimizer.Clip,
		L2:           c.Optimizer.L2,
	}
}

// LoopConfig converts the training schedule.
func (c *Config) LoopConfig() engine.LoopConfig {
	return engine.LoopConfig{
		Epochs:      c.Epochs,
		EvalEvery:   c.Training.EvalEvery,
		SampleEvery: c.Training.SampleEvery,
		SampleCount: c.Training.SampleCount,
		EvalWorkers: c.Training.EvalWorkers,
	}
}
