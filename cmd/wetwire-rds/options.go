package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/logging"
	"github.com/lex00/wetwire-rds-go/internal/template"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

// globalOptions holds the persistent root flags.
type globalOptions struct {
	configPath string
	verbose    bool
	jsonLogs   bool
}

// load reads the configuration and builds the logger every command uses.
// Logs always go to stderr so stdout stays machine-readable.
func (g *globalOptions) load(stderr io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, newLogger(stderr, cfg, g.jsonLogs), nil
}

// newLogger writes console text to a terminal and JSON everywhere else, or
// JSON always when jsonLogs is set.
func newLogger(w io.Writer, cfg *config.Config, jsonLogs bool) zerolog.Logger {
	if jsonLogs || !logging.IsTerminal(w) {
		return logging.NewLogger(w, cfg)
	}
	return logging.NewConsoleLogger(w, cfg)
}

// synthesize builds the template for cfg.
func synthesize(cfg *config.Config, logger zerolog.Logger) (*wetwire.Template, error) {
	return topology.Synthesize(cfg, logger)
}

// encodeTemplate serializes a template as json or yaml.
func encodeTemplate(t *wetwire.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(t)
	case "yaml":
		return template.ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown format: %s (use 'json' or 'yaml')", format)
	}
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
