package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-rds-go/internal/differ"
)

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> [template2]",
		Short: "Compare two CloudFormation templates",
		Long: `Diff compares two templates semantically, resource by resource.

With a single template, it is compared against the template synthesized
from the current configuration, which previews what a deployment of the
current configuration would change.

Examples:
    wetwire-rds diff deployed.json
    wetwire-rds diff old.yaml new.yaml --format json
    wetwire-rds diff a.json b.json --ignore-order`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diffOpts := differ.Options{IgnoreOrder: ignoreOrder}

			var (
				result *differ.Result
				err    error
			)
			if len(args) == 2 {
				result, err = differ.CompareFiles(args[0], args[1], diffOpts)
			} else {
				result, err = diffAgainstSynthesized(cmd, opts, args[0], diffOpts)
			}
			if err != nil {
				return fmt.Errorf("diff failed: %w", err)
			}
			return outputDiffResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore ordering of list elements")

	return cmd
}

func diffAgainstSynthesized(cmd *cobra.Command, opts *globalOptions, path string, diffOpts differ.Options) (*differ.Result, error) {
	previous, err := differ.LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	cfg, logger, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	current, err := synthesize(cfg, logger)
	if err != nil {
		return nil, err
	}
	return differ.Compare(previous, current, diffOpts)
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, result.ToDiffResult())

	case "text":
		if result.Empty() {
			fmt.Fprintln(w, "No differences.")
			return nil
		}

		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, change := range e.Changes {
				fmt.Fprintf(w, "    %s\n", change)
			}
		}
		fmt.Fprintf(w, "\nSummary: %d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
