// Package exports is the synth-time registry of cross-stack values.
//
// Every value a stack exports is registered under its export name. Names are
// written once; a second Put with the same name is a configuration error,
// mirroring CloudFormation's per-region uniqueness of export names.
package exports

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lex00/ou-network-go/intrinsics"
)

// ErrCollision is returned when an export name is registered twice.
var ErrCollision = errors.New("export name already registered")

// Entry is one registered export.
type Entry struct {
	Name  string
	Stack string
	Value any
}

// Registry holds the exports of one app.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Put registers value under name on behalf of stack.
func (r *Registry) Put(name, stack string, value any) error {
	if name == "" {
		return errors.New("export name is empty")
	}
	if existing, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %q exported by %s and %s", ErrCollision, name, existing.Stack, stack)
	}
	r.entries[name] = Entry{Name: name, Stack: stack, Value: value}
	return nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByStack returns the sorted names exported by stack.
func (r *Registry) ByStack(stack string) []string {
	var names []string
	for name, e := range r.entries {
		if e.Stack == stack {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Conflict is a registered export already published by a stack outside the app.
type Conflict struct {
	Name      string
	Stack     string
	LiveStack string
}

// Conflicts compares the registry with the exports live in the target region,
// keyed by export name to the exporting stack name. Exports published by the
// registering stack itself are not conflicts.
func (r *Registry) Conflicts(live map[string]string) []Conflict {
	var conflicts []Conflict
	for _, name := range r.Names() {
		liveStack, ok := live[name]
		if !ok {
			continue
		}
		if e := r.entries[name]; e.Stack != liveStack {
			conflicts = append(conflicts, Conflict{Name: name, Stack: e.Stack, LiveStack: liveStack})
		}
	}
	return conflicts
}

// Import returns the Fn::ImportValue reading name in a consuming stack.
// The name does not have to be registered: values exported by other apps,
// like the GHE connection ARN, are imported by name only.
func Import(name string) intrinsics.ImportValue {
	return intrinsics.ImportValue{ExportName: name}
}
