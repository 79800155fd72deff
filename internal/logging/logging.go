// Package logging installs the process-wide slog logger from the viper
// configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/dusk-indust/gdgraph/internal/config"
)

type DefaultLogHandler struct {
	*slog.TextHandler
}

type DiscardLogHandler struct {
	*slog.TextHandler
}

func newDefaultLogHandler(opts *slog.HandlerOptions) slog.Handler {
	return &DefaultLogHandler{
		TextHandler: slog.NewTextHandler(os.Stderr, opts),
	}
}

func newDiscardLogHandler(opts *slog.HandlerOptions) slog.Handler {
	return &DiscardLogHandler{
		TextHandler: slog.NewTextHandler(io.Discard, opts),
	}
}

// InitLogging sets the default logger. An empty or "off" logLevel discards
// all output; any other value logs to stderr at that level, with unknown
// names falling back to info.
func InitLogging() {
	logLevel := viper.GetString(config.KeyLogLevel)

	if logLevel == "" || strings.EqualFold(logLevel, "off") {
		slog.SetDefault(slog.New(newDiscardLogHandler(nil)))
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	slog.SetDefault(slog.New(newDefaultLogHandler(opts)))
}
