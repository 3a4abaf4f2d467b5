package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"facestream/internal/config"
)

// Setup configures the global zerolog logger: console output on stderr, the
// configured level, and an optional Logdy tee.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.LogdyEnabled {
		ld, _, err := StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy UI unavailable, logging to console only")
		} else {
			out = zerolog.MultiLevelWriter(out, ld)
		}
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("instance_id", cfg.InstanceID).Str("service", service).Logger()
}

func WithConnection(base zerolog.Logger, connID, remote string) zerolog.Logger {
	return base.With().Str("conn_id", connID).Str("remote", remote).Logger()
}
