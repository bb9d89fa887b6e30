// Package logging builds the zerolog logger shared by the CLI and the
// topology builders.
package logging

import (
	"io"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/lex00/wetwire-rds-go/internal/config"
)

// NewLogger creates a structured logger writing to w with the stack context
// fields from cfg. Non-empty fields are added automatically. An unknown level
// falls back to info.
func NewLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.StackName != "" {
		ctx = ctx.Str("stack", cfg.StackName)
	}
	if cfg.Account != "" {
		ctx = ctx.Str("account", cfg.Account)
	}
	if cfg.Region != "" {
		ctx = ctx.Str("region", cfg.Region)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}

// NewConsoleLogger is NewLogger with human-readable output.
func NewConsoleLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	return NewLogger(zerolog.ConsoleWriter{Out: w, NoColor: true}, cfg)
}

// IsTerminal reports whether w is a file descriptor attached to a terminal.
// Buffers, pipes and redirected files are not.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
