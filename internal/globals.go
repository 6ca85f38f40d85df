package internal

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	DefaultAppName    = "tinynmt"
	DefaultConfigPath = filepath.Join("configs", "default.json")
	DefaultLogDir     = ".logs"
	DefaultModelDir   = "model"

	// Special tokens shared by every vocabulary.
	UnkToken = "<unk>"
	PadToken = "<pad>"
	SOSToken = "<sos>"
	EOSToken = "<eos>"
)

// GetLogger returns a zerolog logger writing to stderr at the given level.
// Unknown levels fall back to info.
func GetLogger(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if console {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}
