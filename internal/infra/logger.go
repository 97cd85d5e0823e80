package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the daemon's zerolog root logger. Development runs log at
// debug level through the console writer so every controller tick decision is
// visible while watching a generation; anything else emits JSON at info.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases zerolog.Logger so the controller, repos and handlers can take
// a logger without importing the third-party module themselves.
type Logger = zerolog.Logger
