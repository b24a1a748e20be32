package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/config"
)

// NewLogger creates a JSON zerolog.Logger tagged with the service name.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return ctx.Logger().Level(level)
}
