package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/graph"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat  string
		clusterByType bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    wetwire-rds graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    wetwire-rds graph -f mermaid

Examples:
    wetwire-rds graph
    wetwire-rds graph -c              # cluster by service
    wetwire-rds graph -f mermaid      # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runGraph(cmd.OutOrStdout(), cfg, logger, outputFormat, clusterByType)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service type")

	return cmd
}

func runGraph(w io.Writer, cfg *config.Config, logger zerolog.Logger, format string, cluster bool) error {
	var graphFormat graph.Format
	switch format {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	top, err := topology.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("declaring topology: %w", err)
	}
	resources, err := top.Stack.Resources()
	if err != nil {
		return err
	}

	gen := &graph.Generator{
		Format:        graphFormat,
		ClusterByType: cluster,
	}
	return gen.Generate(resources, w)
}
