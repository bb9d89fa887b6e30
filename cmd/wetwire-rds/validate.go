package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-rds-go/internal/linter"
	"github.com/lex00/wetwire-rds-go/internal/validation"
)

// newValidateCmd creates the "validate" subcommand, which runs the audit
// rules and cfn-lint-go together.
func newValidateCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "validate [template]",
		Short: "Validate the template with the audit rules and cfn-lint",
		Long: `Validate checks the synthesized template, or an existing template file,
with two passes:

  - Audit: the wetwire-rds lint rules
  - cfn-lint: CloudFormation schema and best-practice checks

Warnings are reported but only errors fail validation.

Examples:
    wetwire-rds validate
    wetwire-rds validate template.yaml --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				result *validation.Result
				err    error
			)
			if len(args) == 1 {
				result, err = validation.ValidateFile(args[0], linter.Options{})
			} else {
				cfg, logger, loadErr := opts.load(cmd.ErrOrStderr())
				if loadErr != nil {
					return loadErr
				}
				tmpl, synthErr := synthesize(cfg, logger)
				if synthErr != nil {
					return synthErr
				}
				result, err = validation.Validate(tmpl, linter.Options{})
			}
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			return outputValidateResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputValidateResult(w io.Writer, result *validation.Result, format string) error {
	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}

	case "text":
		if result.Passed() {
			fmt.Fprintf(w, "Validation passed: %d audit findings, %d cfn-lint findings\n",
				len(result.Audit.Issues), result.CfnLint.TotalIssues())
		} else {
			fmt.Fprintln(w, "Validation FAILED:")
		}
		for _, issue := range result.Audit.Issues {
			fmt.Fprintf(w, "  %s: %s: %s [%s]\n", upper(issue.Severity), issue.Resource, issue.Message, issue.Rule)
		}
		if result.CfnLint != nil {
			for _, msg := range result.CfnLint.Errors {
				fmt.Fprintf(w, "  ERROR: %s\n", msg)
			}
			for _, msg := range result.CfnLint.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", msg)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Passed() {
		return &exitError{code: 1}
	}

	return nil
}

func upper(severity string) string {
	switch severity {
	case "error":
		return "ERROR"
	case "warning":
		return "WARNING"
	default:
		return "INFO"
	}
}
