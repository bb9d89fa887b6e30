package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/linter"
)

func newLintCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		enable       []string
		disable      []string
	)

	cmd := &cobra.Command{
		Use:   "lint [template]",
		Short: "Audit the synthesized template",
		Long: `Lint audits the synthesized template, or an existing JSON or YAML template
file, for network reachability and data-safety problems.

Rules:
    WRD001: Subnet ranges inside the VPC block and non-overlapping
    WRD002: NACL rule numbers unique per direction within an ACL
    WRD003: Private ACL ingress source inside the VPC block
    WRD004: Private ACL ingress covers at least one subnet
    WRD005: Database security group allows only the DB port from the VPC
    WRD006: Generated password is 16 characters and excludes / and @
    WRD007: Publicly accessible database placed in private subnets
    WRD008: Database has no deletion safety net
    WRD009: DB subnet group references only private subnets
    WRD010: DB subnet group spans at least two availability zones

Examples:
    wetwire-rds lint
    wetwire-rds lint template.json --format json
    wetwire-rds lint --disable WRD008`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lintOpts := linter.Options{EnabledRules: enable, DisabledRules: disable}

			var (
				result linter.Result
				err    error
			)
			if len(args) == 1 {
				result, err = linter.LintFile(args[0], lintOpts)
			} else {
				result, err = lintSynthesized(cmd, opts, lintOpts)
			}
			if err != nil {
				return fmt.Errorf("lint failed: %w", err)
			}
			return outputLintResult(cmd.OutOrStdout(), result.ToLintResult(), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Only run these rules")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Skip these rules")

	return cmd
}

func lintSynthesized(cmd *cobra.Command, opts *globalOptions, lintOpts linter.Options) (linter.Result, error) {
	cfg, logger, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return linter.Result{}, err
	}
	tmpl, err := synthesize(cfg, logger)
	if err != nil {
		return linter.Result{}, err
	}
	return linter.Lint(tmpl, lintOpts), nil
}

func outputLintResult(w io.Writer, result wetwire.LintResult, format string) error {
	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}

	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}

		for _, issue := range result.Issues {
			if issue.Resource != "" {
				fmt.Fprintf(w, "%s: %s: %s [%s]\n", issue.Resource, issue.Severity, issue.Message, issue.Rule)
			} else {
				fmt.Fprintf(w, "%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return &exitError{code: 2}
	}

	return nil
}
