package main

import (
	"io"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/config"
)

func newSynthCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
		envelope     bool
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate the CloudFormation template",
		Long: `Synth declares the topology from the configuration and writes the
CloudFormation template.

Examples:
    wetwire-rds synth
    wetwire-rds synth -f yaml -o template.yaml
    wetwire-rds synth --config prod.yaml --result`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runSynth(cmd.OutOrStdout(), cfg, logger, synthOptions{
				format:   outputFormat,
				output:   outputFile,
				envelope: envelope,
			})
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&envelope, "result", false, "Wrap the template in a JSON build result")

	return cmd
}

type synthOptions struct {
	format   string
	output   string
	envelope bool
}

func runSynth(w io.Writer, cfg *config.Config, logger zerolog.Logger, opts synthOptions) error {
	tmpl, err := synthesize(cfg, logger)
	if err != nil {
		if opts.envelope {
			_ = writeJSON(w, wetwire.BuildResult{Success: false, Errors: []string{err.Error()}})
			return &exitError{code: 1}
		}
		return err
	}

	if opts.envelope {
		result := wetwire.BuildResult{Success: true, Template: *tmpl}
		for name := range tmpl.Resources {
			result.Resources = append(result.Resources, name)
		}
		sort.Strings(result.Resources)
		return writeJSON(w, result)
	}

	data, err := encodeTemplate(tmpl, opts.format)
	if err != nil {
		return err
	}

	logger.Info().Int("resources", len(tmpl.Resources)).Int("outputs", len(tmpl.Outputs)).Msg("synthesized")
	return writeOutput(w, opts.output, data)
}
