// Package differ provides semantic comparison of CloudFormation templates.
//
// It is used to check that re-synthesis is deterministic and to preview what
// a configuration change does to the deployed topology before CloudFormation
// computes its change set.
package differ

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	cfntemplate "github.com/lex00/cloudformation-schema-go/template"

	wetwire "github.com/lex00/wetwire-rds-go"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    wetwire.TemplateDiff
	Summary wetwire.DiffSummary
}

// Empty reports whether the templates were equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// ToDiffResult converts to the CLI JSON contract.
func (r *Result) ToDiffResult() wetwire.DiffResult {
	return wetwire.DiffResult{Success: true, Diff: r.Diff, Summary: r.Summary}
}

// Compare compares two CloudFormation templates and returns differences.
// Both templates are normalized through JSON first so that a synthesized
// template and the same template loaded from disk compare equal.
func Compare(template1, template2 *wetwire.Template, opts Options) (*Result, error) {
	res1, err := normalizeResources(template1)
	if err != nil {
		return nil, err
	}
	res2, err := normalizeResources(template2)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = wetwire.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a JSON or YAML CloudFormation template from a file.
// YAML short-form tags (!Ref, !GetAtt, !Sub) are accepted.
func LoadTemplate(path string) (*wetwire.Template, error) {
	parsed, err := cfntemplate.ParseTemplate(path)
	if err != nil {
		return nil, err
	}
	return FromTemplate(parsed), nil
}

// LoadTemplateContent parses template content. The name selects the format
// by extension.
func LoadTemplateContent(content []byte, name string) (*wetwire.Template, error) {
	parsed, err := cfntemplate.ParseTemplateContent(content, name)
	if err != nil {
		return nil, err
	}
	return FromTemplate(parsed), nil
}

// FromTemplate converts a parsed template into the synthesized form, with
// intrinsic functions turned back into their map representation.
func FromTemplate(parsed *cfntemplate.Template) *wetwire.Template {
	out := &wetwire.Template{
		AWSTemplateFormatVersion: parsed.AWSTemplateFormatVersion,
		Description:              parsed.Description,
		Resources:                make(map[string]wetwire.ResourceDef, len(parsed.Resources)),
	}

	for id, res := range parsed.Resources {
		def := wetwire.ResourceDef{
			Type:                res.ResourceType,
			DependsOn:           res.DependsOn,
			DeletionPolicy:      wetwire.DeletionPolicy(res.DeletionPolicy),
			UpdateReplacePolicy: wetwire.DeletionPolicy(res.UpdateReplacePolicy),
		}
		if len(res.Properties) > 0 {
			def.Properties = make(map[string]any, len(res.Properties))
			for name, prop := range res.Properties {
				def.Properties[name] = plain(prop.Value)
			}
		}
		out.Resources[id] = def
	}

	if len(parsed.Outputs) > 0 {
		out.Outputs = make(map[string]wetwire.Output, len(parsed.Outputs))
		for id, o := range parsed.Outputs {
			output := wetwire.Output{Description: o.Description, Value: plain(o.Value)}
			if o.ExportName != nil {
				output.Export = &wetwire.Export{Name: plain(o.ExportName)}
			}
			out.Outputs[id] = output
		}
	}

	return out
}

// plain rewrites parsed intrinsics as single-key maps, recursively.
func plain(v any) any {
	switch val := v.(type) {
	case *cfntemplate.Intrinsic:
		if val == nil {
			return nil
		}
		if val.Type == cfntemplate.IntrinsicGetAtt {
			if s, ok := val.Args.(string); ok {
				resource, attr, _ := strings.Cut(s, ".")
				return map[string]any{"Fn::GetAtt": []any{resource, attr}}
			}
		}
		return map[string]any{intrinsicKey(val.Type): plain(val.Args)}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	default:
		return v
	}
}

func intrinsicKey(t cfntemplate.IntrinsicType) string {
	switch t {
	case cfntemplate.IntrinsicRef:
		return "Ref"
	case cfntemplate.IntrinsicGetAtt:
		return "Fn::GetAtt"
	case cfntemplate.IntrinsicSub:
		return "Fn::Sub"
	case cfntemplate.IntrinsicJoin:
		return "Fn::Join"
	case cfntemplate.IntrinsicSelect:
		return "Fn::Select"
	case cfntemplate.IntrinsicGetAZs:
		return "Fn::GetAZs"
	case cfntemplate.IntrinsicSplit:
		return "Fn::Split"
	case cfntemplate.IntrinsicIf:
		return "Fn::If"
	case cfntemplate.IntrinsicEquals:
		return "Fn::Equals"
	case cfntemplate.IntrinsicAnd:
		return "Fn::And"
	case cfntemplate.IntrinsicOr:
		return "Fn::Or"
	case cfntemplate.IntrinsicNot:
		return "Fn::Not"
	case cfntemplate.IntrinsicCondition:
		return "Condition"
	case cfntemplate.IntrinsicFindInMap:
		return "Fn::FindInMap"
	case cfntemplate.IntrinsicBase64:
		return "Fn::Base64"
	case cfntemplate.IntrinsicCidr:
		return "Fn::Cidr"
	case cfntemplate.IntrinsicImportValue:
		return "Fn::ImportValue"
	case cfntemplate.IntrinsicTransform:
		return "Fn::Transform"
	case cfntemplate.IntrinsicValueOf:
		return "Fn::ValueOf"
	default:
		return fmt.Sprint(t)
	}
}

// normalizeResources round-trips the resources through JSON so that typed
// values (ints, AttrRef, intrinsics structs) compare equal to parsed ones.
func normalizeResources(t *wetwire.Template) (map[string]wetwire.ResourceDef, error) {
	if t == nil || len(t.Resources) == 0 {
		return map[string]wetwire.ResourceDef{}, nil
	}
	data, err := json.Marshal(t.Resources)
	if err != nil {
		return nil, fmt.Errorf("normalizing resources: %w", err)
	}
	var out map[string]wetwire.ResourceDef
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalizing resources: %w", err)
	}
	for name, def := range out {
		def.Properties = plain(def.Properties).(map[string]any)
		out[name] = def
	}
	return out, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 wetwire.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(sortedCopy(def1.DependsOn), sortedCopy(def2.DependsOn)) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %s → %s", orNone(def1.DeletionPolicy), orNone(def2.DeletionPolicy)))
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %s → %s", orNone(def1.UpdateReplacePolicy), orNone(def2.UpdateReplacePolicy)))
	}

	return changes
}

// compareProperties recursively compares property maps.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || k == "Condition" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by their JSON encoding so order is ignored.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = normalizeValue(item)
		}
		sort.SliceStable(result, func(i, j int) bool {
			return encodeKey(result[i]) < encodeKey(result[j])
		})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = normalizeValue(item)
		}
		return result
	default:
		return v
	}
}

func encodeKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func orNone(p wetwire.DeletionPolicy) string {
	if p == "" {
		return "(none)"
	}
	return string(p)
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []wetwire.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
