// Package stack declares the resources and exports of one CloudFormation stack.
package stack

import (
	"errors"
	"fmt"
	"regexp"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/exports"
	"github.com/lex00/ou-network-go/internal/serialize"
	"github.com/lex00/ou-network-go/internal/template"
	"github.com/lex00/ou-network-go/intrinsics"
)

// Env is the account and region a stack deploys to.
type Env struct {
	Account string
	Region  string
}

// Stack collects resource declarations. Declaration errors are recorded and
// reported together by Build.
type Stack struct {
	Name        string
	Env         Env
	Description string

	builder   *template.Builder
	registry  *exports.Registry
	exports   []string
	resources int
	errs      []error
}

// New returns an empty stack registering its exports in registry.
func New(name string, env Env, description string, registry *exports.Registry) *Stack {
	return &Stack{
		Name:        name,
		Env:         env,
		Description: description,
		builder:     template.NewBuilder(description),
		registry:    registry,
	}
}

// Ref is a handle to a declared resource.
type Ref struct {
	name string
}

// Name returns the logical name.
func (r Ref) Name() string { return r.name }

// Ref returns {"Ref": name}.
func (r Ref) Ref() intrinsics.Ref { return intrinsics.Ref{LogicalName: r.name} }

// GetAtt returns {"Fn::GetAtt": [name, attr]}.
func (r Ref) GetAtt(attr string) ounet.AttrRef {
	return ounet.AttrRef{Resource: r.name, Attribute: attr}
}

// Option adjusts a resource declaration.
type Option func(*template.Entry)

// DependsOn adds explicit dependencies.
func DependsOn(refs ...Ref) Option {
	return func(e *template.Entry) {
		for _, r := range refs {
			e.DependsOn = append(e.DependsOn, r.name)
		}
	}
}

// DeletionPolicy sets DeletionPolicy and UpdateReplacePolicy to policy.
func DeletionPolicy(policy string) Option {
	return func(e *template.Entry) {
		e.DeletionPolicy = policy
		e.UpdateReplacePolicy = policy
	}
}

var logicalID = regexp.MustCompile(`^[A-Za-z0-9]{1,255}$`)

// Add declares res under the logical ID id.
func (s *Stack) Add(id string, res ounet.Resource, opts ...Option) Ref {
	if !logicalID.MatchString(id) {
		s.errs = append(s.errs, fmt.Errorf("%s: invalid logical ID %q", s.Name, id))
		return Ref{name: id}
	}
	entry := template.Entry{Name: id, Resource: res}
	for _, opt := range opts {
		opt(&entry)
	}
	if err := s.builder.AddResource(entry); err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", s.Name, err))
		return Ref{name: id}
	}
	s.resources++
	return Ref{name: id}
}

// Export publishes value under name, both as a template output and in the
// app's registry. The name is registered only once the output is declared.
func (s *Stack) Export(name string, value any) {
	out := ounet.Output{Value: value, Export: &ounet.Export{Name: name}}
	if err := s.builder.AddOutput(serialize.LogicalID("Export", name), out); err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: export %q: %w", s.Name, name, err))
		return
	}
	if err := s.registry.Put(name, s.Name, value); err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", s.Name, err))
		return
	}
	s.exports = append(s.exports, name)
}

// Fail records an error found while declaring the stack.
func (s *Stack) Fail(err error) {
	s.errs = append(s.errs, err)
}

// Exports returns the export names in declaration order.
func (s *Stack) Exports() []string {
	return append([]string(nil), s.exports...)
}

// Resources returns the number of declared resources.
func (s *Stack) Resources() int {
	return s.resources
}

// Build returns the stack's template or every error found while declaring it.
func (s *Stack) Build() (*ounet.Template, error) {
	if len(s.errs) > 0 {
		return nil, errors.Join(s.errs...)
	}
	t, err := s.builder.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return t, nil
}
