// Package validation checks synthesized templates before they are handed to
// CloudFormation.
//
// Two passes run over a template:
//   - the topology audit rules from internal/linter
//   - cfn-lint-go, which checks the template against the resource schemas
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/linter"
	"github.com/lex00/wetwire-rds-go/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Result contains both validation passes for a template.
type Result struct {
	Audit   wetwire.LintResult `json:"audit"`
	CfnLint *CfnLintResult     `json:"cfn_lint"`
}

// Passed reports whether neither pass found an error.
func (r Result) Passed() bool {
	return r.Audit.Success && r.CfnLint != nil && r.CfnLint.Passed
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	l := lint.New(lint.Options{})
	matches, err := l.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)
		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable.
	result.Passed = len(result.Errors) == 0
	return result, nil
}

// CfnLintTemplate writes t to a temporary file and runs cfn-lint-go on it.
func CfnLintTemplate(t *wetwire.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}

	dir, err := os.MkdirTemp("", "wetwire-rds-validate-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// Validate runs the audit rules and cfn-lint-go over a synthesized template.
func Validate(t *wetwire.Template, opts linter.Options) (*Result, error) {
	cfn, err := CfnLintTemplate(t)
	if err != nil {
		return nil, err
	}
	return &Result{
		Audit:   linter.Lint(t, opts).ToLintResult(),
		CfnLint: cfn,
	}, nil
}

// ValidateFile runs both passes over a template file on disk.
func ValidateFile(path string, opts linter.Options) (*Result, error) {
	audit, err := linter.LintFile(path, opts)
	if err != nil {
		return nil, err
	}
	cfn, err := RunCfnLint(path)
	if err != nil {
		return nil, err
	}
	return &Result{Audit: audit.ToLintResult(), CfnLint: cfn}, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
