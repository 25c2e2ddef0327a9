package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName identifies this service in logs and health responses.
const ServiceName = "narrator"

// NewLogger constructs a zerolog.Logger with sane defaults for the service.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases the zerolog.Logger so pipeline packages can accept a logger
// without importing the third-party module directly.
type Logger = zerolog.Logger
