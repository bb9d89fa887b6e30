// Package stack registers resource declarations under logical IDs and
// synthesizes them into a CloudFormation template.
//
//	s := stack.New("RdsStack", stack.Environment{Account: "123456789012", Region: "us-east-1"})
//	vpc := s.Add("RDSVPC", &ec2.VPC{CidrBlock: "10.0.0.0/16"})
//	s.Add("RdsSecurityGroup", &ec2.SecurityGroup{VpcId: vpc.Ref()})
//	tmpl, err := s.Synthesize()
package stack

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/rs/zerolog"

	wetwire "github.com/lex00/wetwire-rds-go"
	"github.com/lex00/wetwire-rds-go/internal/serialize"
	"github.com/lex00/wetwire-rds-go/internal/template"
	"github.com/lex00/wetwire-rds-go/intrinsics"
)

var logicalIDRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidLogicalID reports whether id is usable as a CloudFormation logical ID.
func ValidLogicalID(id string) bool {
	return len(id) <= 255 && logicalIDRegex.MatchString(id)
}

// Environment is the deployment target of a stack.
type Environment struct {
	Account string
	Region  string
}

// Handle refers to a declared resource.
type Handle struct {
	name string
	typ  string
}

// Name returns the logical ID.
func (h Handle) Name() string { return h.name }

// Type returns the CloudFormation resource type.
func (h Handle) Type() string { return h.typ }

// Ref returns a Ref to the resource.
func (h Handle) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: h.name}
}

// Attr returns an Fn::GetAtt reference to one of the resource's attributes.
func (h Handle) Attr(attribute string) wetwire.AttrRef {
	return wetwire.AttrRef{Resource: h.name, Attribute: attribute}
}

// Option adjusts resource-level attributes at declaration time.
type Option func(*entry)

// DependsOn adds explicit dependencies for ordering that is not visible
// through references.
func DependsOn(handles ...Handle) Option {
	return func(e *entry) {
		for _, h := range handles {
			e.attrs.DependsOn = append(e.attrs.DependsOn, h.name)
		}
	}
}

// WithDeletionPolicy sets both DeletionPolicy and UpdateReplacePolicy.
func WithDeletionPolicy(policy wetwire.DeletionPolicy) Option {
	return func(e *entry) {
		e.attrs.DeletionPolicy = policy
		e.attrs.UpdateReplacePolicy = policy
	}
}

type entry struct {
	resource wetwire.Resource
	attrs    template.Attributes
}

// Stack is an ordered registry of resource declarations and outputs.
type Stack struct {
	name        string
	env         Environment
	description string
	logger      zerolog.Logger

	order   []string
	entries map[string]*entry
	outputs map[string]wetwire.Output
	errs    []error
}

// New creates an empty stack.
func New(name string, env Environment) *Stack {
	return &Stack{
		name:    name,
		env:     env,
		logger:  zerolog.Nop(),
		entries: make(map[string]*entry),
		outputs: make(map[string]wetwire.Output),
	}
}

// Name returns the stack name.
func (s *Stack) Name() string { return s.name }

// Environment returns the deployment target.
func (s *Stack) Environment() Environment { return s.env }

// SetDescription sets the template description.
func (s *Stack) SetDescription(description string) { s.description = description }

// SetLogger sets the logger used for declaration events.
func (s *Stack) SetLogger(logger zerolog.Logger) { s.logger = logger }

// Add declares a resource under id and returns a handle to it. Invalid or
// duplicate IDs are recorded and reported by Synthesize; the returned handle
// is still usable so declaration code does not need to branch.
func (s *Stack) Add(id string, resource wetwire.Resource, opts ...Option) Handle {
	if resource == nil {
		s.errs = append(s.errs, fmt.Errorf("resource %s: nil declaration", id))
		return Handle{name: id}
	}
	h := Handle{name: id, typ: resource.ResourceType()}

	switch {
	case !ValidLogicalID(id):
		s.errs = append(s.errs, fmt.Errorf("invalid logical ID %q: must be alphanumeric", id))
		return h
	case s.entries[id] != nil:
		s.errs = append(s.errs, fmt.Errorf("duplicate logical ID: %s", id))
		return h
	}

	e := &entry{resource: resource}
	for _, opt := range opts {
		opt(e)
	}
	s.entries[id] = e
	s.order = append(s.order, id)

	s.logger.Debug().Str("logical_id", id).Str("type", h.typ).Msg("declared resource")
	return h
}

// Output declares a template output.
func (s *Stack) Output(id string, out wetwire.Output) {
	switch {
	case !ValidLogicalID(id):
		s.errs = append(s.errs, fmt.Errorf("invalid output ID %q: must be alphanumeric", id))
	case s.hasOutput(id):
		s.errs = append(s.errs, fmt.Errorf("duplicate output ID: %s", id))
	default:
		s.outputs[id] = out
	}
}

func (s *Stack) hasOutput(id string) bool {
	_, ok := s.outputs[id]
	return ok
}

// Len returns the number of declared resources.
func (s *Stack) Len() int { return len(s.order) }

// Resources returns the declared resources in declaration order with their
// dependency edges.
func (s *Stack) Resources() ([]wetwire.DeclaredResource, error) {
	out := make([]wetwire.DeclaredResource, 0, len(s.order))
	var errs []error

	for _, id := range s.order {
		e := s.entries[id]
		props, err := serialize.Resource(e.resource)
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing %s: %w", id, err))
			continue
		}

		refs := collectRefs(props)
		deps := append(refs.all(), e.attrs.DependsOn...)
		for _, dep := range deps {
			if s.entries[dep] == nil {
				errs = append(errs, fmt.Errorf("resource %s references undeclared resource %s", id, dep))
			}
		}

		out = append(out, wetwire.DeclaredResource{
			Name:         id,
			Type:         e.resource.ResourceType(),
			Dependencies: sortedUniq(deps),
			AttrRefs:     sortedUniq(refs.getAtt),
		})
	}

	return out, errors.Join(errs...)
}

// Synthesize validates the declarations and builds the template. All
// declaration errors are returned together.
func (s *Stack) Synthesize() (*wetwire.Template, error) {
	errs := append([]error(nil), s.errs...)

	declared, err := s.Resources()
	if err != nil {
		errs = append(errs, err)
	}

	for _, id := range sortedKeys(s.outputs) {
		value, err := serialize.Value(s.outputs[id].Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing output %s: %w", id, err))
			continue
		}
		for _, dep := range collectRefs(value).all() {
			if s.entries[dep] == nil {
				errs = append(errs, fmt.Errorf("output %s references undeclared resource %s", id, dep))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	resources := make(map[string]wetwire.DeclaredResource, len(declared))
	for _, d := range declared {
		resources[d.Name] = d
	}

	b := template.NewBuilder(resources)
	b.SetDescription(s.description)
	for _, id := range s.order {
		e := s.entries[id]
		b.SetValue(id, e.resource)
		b.SetAttributes(id, e.attrs)
	}
	for id, out := range s.outputs {
		b.SetOutput(id, out)
	}

	tmpl, err := b.Build()
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int("resources", len(tmpl.Resources)).Int("outputs", len(tmpl.Outputs)).Msg("synthesized template")
	return tmpl, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
