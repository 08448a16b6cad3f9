package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"hookflo/internal/platform/config"
)

// Init configures the global zerolog logger for one binary. Every line carries
// the service name so server, worker and CLI output can share a sink.
func Init(cfg config.LoggingConfig, service string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	log.Logger = New(output(cfg), cfg.Format).With().Str("service", service).Logger()
}

// New builds a logger writing to w; format "text" selects the console writer.
func New(w io.Writer, format string) zerolog.Logger {
	if format == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

func output(cfg config.LoggingConfig) io.Writer {
	if cfg.Output != "file" || cfg.FilePath == "" {
		return os.Stdout
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		log.Error().Err(err).Msg("failed to create log directory, logging to stdout")
		return os.Stdout
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		log.Error().Err(err).Msg("failed to open log file, logging to stdout")
		return os.Stdout
	}
	return file
}
