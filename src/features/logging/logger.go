package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/contre95/musicdex/src/features/config"
)

// SetupLogger builds the process logger from the logger section of the config.
func SetupLogger(cfg *config.Manager) *slog.Logger {
	return NewLogger(os.Stderr, cfg.Get().Logger)
}

// NewLogger returns a slog logger backed by a charmbracelet handler writing to w.
func NewLogger(w io.Writer, opts config.Logger) *slog.Logger {
	if !opts.Enabled {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var formatter log.Formatter
	switch opts.Format {
	case "json":
		formatter = log.JSONFormatter
	case "text":
		formatter = log.TextFormatter
	default:
		formatter = log.LogfmtFormatter
	}

	level := log.InfoLevel
	switch opts.Level {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "Musicdex",
		Formatter:       formatter,
		Level:           level,
	})

	logger := slog.New(handler)
	logger.Info("Logger initialized", "time", time.Now().Format(time.RFC3339))
	return logger
}
