// Package logging builds the slog logger used by the abstract command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
)

// New returns a logger writing to w. level is one of debug, info, warn or
// error (empty means info). format is text, json or pterm; empty means
// text. The pterm format is meant for interactive terminals.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "pterm":
		pl := pterm.DefaultLogger.WithWriter(w).WithLevel(ptermLevel(lvl))
		return slog.New(pterm.NewSlogHandler(pl)), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptermLevel(l slog.Level) pterm.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case l <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case l <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
