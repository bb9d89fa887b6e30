// Package template assembles CloudFormation templates from declared resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/serialize"
)

// FormatVersion is the only template format version CloudFormation accepts.
const FormatVersion = "2010-09-09"

// Attributes are the resource-level template attributes that sit next to
// Properties.
type Attributes struct {
	DependsOn           []string
	DeletionPolicy      wetwire.DeletionPolicy
	UpdateReplacePolicy wetwire.DeletionPolicy
}

// Builder constructs CloudFormation templates from declared resources.
type Builder struct {
	description string
	resources   map[string]wetwire.DeclaredResource
	values      map[string]wetwire.Resource
	attributes  map[string]Attributes
	outputs     map[string]wetwire.Output
}

// NewBuilder creates a template builder from declared resources.
func NewBuilder(resources map[string]wetwire.DeclaredResource) *Builder {
	return &Builder{
		resources:  resources,
		values:     make(map[string]wetwire.Resource),
		attributes: make(map[string]Attributes),
		outputs:    make(map[string]wetwire.Output),
	}
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// SetValue associates a resource value with its logical name.
func (b *Builder) SetValue(name string, value wetwire.Resource) {
	b.values[name] = value
}

// SetAttributes sets DependsOn and the deletion policies for a resource.
func (b *Builder) SetAttributes(name string, attrs Attributes) {
	b.attributes[name] = attrs
}

// SetOutput adds an output. The value is serialized during Build.
func (b *Builder) SetOutput(name string, output wetwire.Output) {
	b.outputs[name] = output
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*wetwire.Template, error) {
	order, err := b.Order()
	if err != nil {
		return nil, err
	}

	tmpl := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]wetwire.ResourceDef, len(order)),
	}

	for _, name := range order {
		res := b.resources[name]
		value, ok := b.values[name]
		if !ok {
			return nil, fmt.Errorf("resource %s has no value", name)
		}

		resourceType := value.ResourceType()
		if res.Type != "" && res.Type != resourceType {
			return nil, fmt.Errorf("resource %s: declared as %s but value is %s", name, res.Type, resourceType)
		}
		if !isResourceType(resourceType) {
			return nil, fmt.Errorf("resource %s: invalid resource type %q", name, resourceType)
		}

		props, err := serialize.Resource(value)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}

		attrs := b.attributes[name]
		def := wetwire.ResourceDef{
			Type:                resourceType,
			Properties:          props,
			DeletionPolicy:      attrs.DeletionPolicy,
			UpdateReplacePolicy: attrs.UpdateReplacePolicy,
		}
		if len(attrs.DependsOn) > 0 {
			def.DependsOn = append([]string(nil), attrs.DependsOn...)
			sort.Strings(def.DependsOn)
		}
		tmpl.Resources[name] = def
	}

	if len(b.outputs) > 0 {
		tmpl.Outputs = make(map[string]wetwire.Output, len(b.outputs))
		for name, out := range b.outputs {
			value, err := serialize.Value(out.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			out.Value = value
			if out.Export != nil {
				exportName, err := serialize.Value(out.Export.Name)
				if err != nil {
					return nil, fmt.Errorf("serializing output %s export: %w", name, err)
				}
				out.Export = &wetwire.Export{Name: exportName}
			}
			tmpl.Outputs[name] = out
		}
	}

	return tmpl, nil
}

// Order returns the logical names in dependency order. Ties are broken
// alphabetically so the order is stable across runs.
func (b *Builder) Order() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, res := range b.resources {
		for _, dep := range uniq(res.Dependencies) {
			if _, exists := b.resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack, cycle []string

	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		for _, dep := range uniq(b.resources[node].Dependencies) {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
			if onStack[dep] {
				for i, name := range stack {
					if name == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						break
					}
				}
				return true
			}
			if !visited[dep] && findCycle(dep) {
				return true
			}
		}

		onStack[node] = false
		stack = stack[:len(stack)-1]
		return false
	}

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) == 0 {
		return errors.New("circular dependency detected")
	}

	parts := make([]string, len(cycle))
	for i, name := range cycle {
		parts[i] = fmt.Sprintf("%s (%s)", name, b.resources[name].Type)
	}
	return fmt.Errorf("circular dependency detected: %s", strings.Join(parts, " → "))
}

// isResourceType reports whether t has the AWS::Service::Resource shape.
func isResourceType(t string) bool {
	parts := strings.Split(t, "::")
	if len(parts) != 3 || parts[0] != "AWS" {
		return false
	}
	return parts[1] != "" && parts[2] != ""
}

// uniq returns the sorted, de-duplicated names.
func uniq(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := append([]string(nil), names...)
	sort.Strings(out)
	j := 0
	for i := range out {
		if i == 0 || out[i] != out[i-1] {
			out[j] = out[i]
			j++
		}
	}
	return out[:j]
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
