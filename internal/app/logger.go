package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the service logger. JSON output is opt-in via
// LOG_FORMAT for deployed environments; the default text handler is
// for local development.
func NewLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	return slog.New(handler).With(slog.String("service", "unclefab-auth"))
}
