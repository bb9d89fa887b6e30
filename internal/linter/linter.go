// Package linter audits synthesized templates for the invariants of the RDS
// topology: address containment, NACL rule numbering, the database firewall,
// the password policy and database placement.
package linter

import (
	"fmt"
	"sort"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/differ"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single rule violation.
type Issue struct {
	Rule       string
	Resource   string
	Message    string
	Suggestion string
	Severity   Severity
}

// Result contains the outcome of linting.
type Result struct {
	// Success is false when any error-severity issue was found. Warnings do
	// not fail a lint run.
	Success bool
	Issues  []Issue
}

// Errors returns the error-severity issues.
func (r Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// ToLintResult converts to the CLI JSON contract.
func (r Result) ToLintResult() wetwire.LintResult {
	out := wetwire.LintResult{Success: r.Success}
	for _, i := range r.Issues {
		out.Issues = append(out.Issues, wetwire.LintIssue{
			Resource: i.Resource,
			Severity: string(i.Severity),
			Message:  i.Message,
			Rule:     i.Rule,
		})
	}
	return out
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// Rules to skip.
	DisabledRules []string
}

// Lint runs the selected rules against a template. Issues are ordered by
// rule, then resource.
func Lint(t *wetwire.Template, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(t)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Rule != issues[j].Rule {
			return issues[i].Rule < issues[j].Rule
		}
		return issues[i].Resource < issues[j].Resource
	})

	success := true
	for _, i := range issues {
		if i.Severity == SeverityError {
			success = false
			break
		}
	}
	return Result{Success: success, Issues: issues}
}

// LintFile loads a JSON or YAML template and lints it.
func LintFile(path string, opts Options) (Result, error) {
	t, err := differ.LoadTemplate(path)
	if err != nil {
		return Result{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return Lint(t, opts), nil
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()

	disabled := make(map[string]bool)
	for _, id := range opts.DisabledRules {
		disabled[id] = true
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if disabled[r.ID()] {
			continue
		}
		if len(enabled) > 0 && !enabled[r.ID()] {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
