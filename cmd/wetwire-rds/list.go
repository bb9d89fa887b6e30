package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared resources",
		Long: `List displays every resource the topology declares with its CloudFormation
type and the resources it depends on.

Examples:
    wetwire-rds list
    wetwire-rds list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runList(cmd.OutOrStdout(), cfg, logger, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(w io.Writer, cfg *config.Config, logger zerolog.Logger, format string) error {
	top, err := topology.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("declaring topology: %w", err)
	}
	resources, err := top.Stack.Resources()
	if err != nil {
		return err
	}

	result := wetwire.ListResult{
		Resources: make([]wetwire.ListResource, 0, len(resources)),
	}
	for _, res := range resources {
		result.Resources = append(result.Resources, wetwire.ListResource{
			Name:         res.Name,
			Type:         res.Type,
			Dependencies: res.Dependencies,
		})
	}

	return outputListResult(w, result, format)
}

func outputListResult(w io.Writer, result wetwire.ListResult, format string) error {
	switch format {
	case "json":
		return writeJSON(w, result)

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources declared.")
			return nil
		}

		fmt.Fprintf(w, "Declared resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
