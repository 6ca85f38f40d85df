package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	internal "tinynmt/internal"
)

// ConfigTestSuite tests loading and validating run configuration
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *ConfigTestSuite) writeConfig(name, content string) string {
	path := filepath.Join(suite.tempDir, name)
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (suite *ConfigTestSuite) TestLoadWithDefaults() {
	path := suite.writeConfig("config.json", `{
  "epochs": 3,
  "training": {"eval_every": 10, "sample_every": 20}
}`)

	cfg, err := Load(New(), path)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 3, cfg.Epochs)
	assert.Equal(suite.T(), "default", cfg.Name)
	assert.Equal(suite.T(), int64(1337), cfg.Seed)
	assert.Equal(suite.T(), 64, cfg.Model.EmbeddingSize)
	assert.Equal(suite.T(), 128, cfg.Model.HiddenSize)
	assert.Equal(suite.T(), "sgd", cfg.Optimizer.Name)
	assert.Equal(suite.T(), 0.01, cfg.Optimizer.LearningRate)
	assert.Equal(suite.T(), 5, cfg.Training.SampleCount)
	assert.Equal(suite.T(), internal.DefaultLogDir, cfg.Logging.Dir)
	assert.True(suite.T(), cfg.Data.Lowercase)
}

func (suite *ConfigTestSuite) TestLoadYAML() {
	path := suite.writeConfig("config.yaml", `
name: fr-en
epochs: 2
model:
  hidden_size: 32
optimizer:
  name: adam
  learning_rate: 0.001
loss:
  name: label_smoothing
  smoothing: 0.1
training:
  eval_every: 5
  sample_every: 7
  eval_workers: 4
`)

	cfg, err := Load(New(), path)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "fr-en", cfg.Name)
	assert.Equal(suite.T(), 32, cfg.Model.HiddenSize)
	assert.Equal(suite.T(), "adam", cfg.SolverConfig().Name)
	assert.Equal(suite.T(), 0.001, cfg.SolverConfig().LearningRate)
	assert.Equal(suite.T(), 0.1, cfg.Loss.Smoothing)

	lc := cfg.LoopConfig()
	assert.Equal(suite.T(), 2, lc.Epochs)
	assert.Equal(suite.T(), 5, lc.EvalEvery)
	assert.Equal(suite.T(), 7, lc.SampleEvery)
	assert.Equal(suite.T(), 4, lc.EvalWorkers)
}

func (suite *ConfigTestSuite) TestMissingRequiredKey() {
	path := suite.writeConfig("config.json", `{"epochs": 3, "training": {"eval_every": 10}}`)

	_, err := Load(New(), path)
	assert.ErrorIs(suite.T(), err, ErrConfiguration)
	assert.ErrorContains(suite.T(), err, "training.sample_every")
}

func (suite *ConfigTestSuite) TestInvalidValues() {
	cases := map[string]string{
		"zero epochs":   `{"epochs": 0, "training": {"eval_every": 1, "sample_every": 1}}`,
		"bad split":     `{"epochs": 1, "data": {"val_split": 1.5}, "training": {"eval_every": 1, "sample_every": 1}}`,
		"bad optimizer": `{"epochs": 1, "optimizer": {"name": "lbfgs"}, "training": {"eval_every": 1, "sample_every": 1}}`,
		"bad loss":      `{"epochs": 1, "loss": {"name": "hinge"}, "training": {"eval_every": 1, "sample_every": 1}}`,
	}
	for name, content := range cases {
		path := suite.writeConfig("config.json", content)
		_, err := Load(New(), path)
		assert.ErrorIs(suite.T(), err, ErrConfiguration, name)
	}
}

func (suite *ConfigTestSuite) TestEnvironmentOverride() {
	suite.T().Setenv("TINYNMT_OPTIMIZER_LEARNING_RATE", "0.5")
	suite.T().Setenv("TINYNMT_EPOCHS", "9")
	path := suite.writeConfig("config.json", `{"epochs": 3, "training": {"eval_every": 1, "sample_every": 1}}`)

	cfg, err := Load(New(), path)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0.5, cfg.Optimizer.LearningRate)
	assert.Equal(suite.T(), 9, cfg.Epochs)
}

func (suite *ConfigTestSuite) TestMissingFile() {
	_, err := Load(New(), filepath.Join(suite.tempDir, "nope.json"))
	assert.Error(suite.T(), err)
}

func TestLoadWithoutFile(t *testing.T) {
	v := New()
	v.Set("epochs", 1)
	v.Set("training.eval_every", 1)
	v.Set("training.sample_every", 1)
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Epochs)
}
