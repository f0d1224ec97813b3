// Package template provides CloudFormation template building from declared resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/serialize"
)

// Entry is a resource declared in a stack.
type Entry struct {
	Name                string
	Resource            ounet.Resource
	DependsOn           []string
	DeletionPolicy      string
	UpdateReplacePolicy string
}

// Builder constructs a CloudFormation template from declared resources.
type Builder struct {
	description string
	entries     map[string]Entry
	outputs     map[string]ounet.Output
}

// NewBuilder creates an empty template builder.
func NewBuilder(description string) *Builder {
	return &Builder{
		description: description,
		entries:     make(map[string]Entry),
		outputs:     make(map[string]ounet.Output),
	}
}

// AddResource declares a resource. Logical names must be unique.
func (b *Builder) AddResource(e Entry) error {
	if e.Name == "" {
		return errors.New("resource has an empty logical name")
	}
	if _, exists := b.entries[e.Name]; exists {
		return fmt.Errorf("duplicate logical name %q", e.Name)
	}
	if e.Resource == nil {
		return fmt.Errorf("resource %q is nil", e.Name)
	}
	b.entries[e.Name] = e
	return nil
}

// AddOutput declares a template output.
func (b *Builder) AddOutput(name string, out ounet.Output) error {
	if _, exists := b.outputs[name]; exists {
		return fmt.Errorf("duplicate output %q", name)
	}
	b.outputs[name] = out
	return nil
}

// Build constructs the CloudFormation template. It fails on dangling
// references and dependency cycles.
func (b *Builder) Build() (*ounet.Template, error) {
	template := &ounet.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.description,
		Resources:                make(map[string]ounet.ResourceDef),
	}

	var errs []error
	for name, e := range b.entries {
		props, err := serialize.Resource(e.Resource)
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing %s: %w", name, err))
			continue
		}
		var dependsOn []string
		if len(e.DependsOn) > 0 {
			dependsOn = append([]string(nil), e.DependsOn...)
			sort.Strings(dependsOn)
		}
		template.Resources[name] = ounet.ResourceDef{
			Type:                e.Resource.ResourceType(),
			Properties:          props,
			DependsOn:           dependsOn,
			DeletionPolicy:      e.DeletionPolicy,
			UpdateReplacePolicy: e.UpdateReplacePolicy,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]ounet.Output, len(b.outputs))
		for name, out := range b.outputs {
			value, err := normalize(out.Value)
			if err != nil {
				errs = append(errs, fmt.Errorf("serializing output %s: %w", name, err))
				continue
			}
			out.Value = value
			template.Outputs[name] = out
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := checkReferences(template); err != nil {
		return nil, err
	}
	if _, err := Order(template); err != nil {
		return nil, err
	}
	return template, nil
}

// normalize round-trips a value through JSON so outputs hold plain maps.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DanglingRefError reports a reference to a resource that is not in the template.
type DanglingRefError struct {
	From   string
	Target string
}

func (e *DanglingRefError) Error() string {
	return fmt.Sprintf("%s references undeclared resource %q", e.From, e.Target)
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Path, " → ")
}

func checkReferences(t *ounet.Template) error {
	var errs []error
	deps := Dependencies(t)
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, dep := range deps[name] {
			if _, ok := t.Resources[dep]; !ok {
				errs = append(errs, &DanglingRefError{From: name, Target: dep})
			}
		}
	}

	outputNames := make([]string, 0, len(t.Outputs))
	for name := range t.Outputs {
		outputNames = append(outputNames, name)
	}
	sort.Strings(outputNames)
	for _, name := range outputNames {
		for _, dep := range References(t.Outputs[name].Value) {
			if _, ok := t.Resources[dep]; !ok {
				errs = append(errs, &DanglingRefError{From: "output " + name, Target: dep})
			}
		}
	}
	return errors.Join(errs...)
}

// Dependencies returns, for each resource, the sorted logical names it depends
// on through Ref, Fn::GetAtt, Fn::Sub or DependsOn.
func Dependencies(t *ounet.Template) map[string][]string {
	result := make(map[string][]string, len(t.Resources))
	for name, res := range t.Resources {
		seen := make(map[string]bool)
		for _, dep := range References(res.Properties) {
			seen[dep] = true
		}
		for _, dep := range res.DependsOn {
			seen[dep] = true
		}
		delete(seen, name)
		deps := make([]string, 0, len(seen))
		for dep := range seen {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		result[name] = deps
	}
	return result
}

var subVariable = regexp.MustCompile(`\$\{([^}!.]+)(?:\.[^}]+)?\}`)

// References returns the sorted logical names referenced by a serialized value.
// Pseudo parameters (AWS::*) and Fn::Sub map variables are not references.
func References(v any) []string {
	seen := make(map[string]bool)
	collectRefs(v, seen)
	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func collectRefs(v any, seen map[string]bool) {
	switch val := v.(type) {
	case map[string]any:
		if ref, ok := val["Ref"].(string); ok && len(val) == 1 {
			if !strings.HasPrefix(ref, "AWS::") {
				seen[ref] = true
			}
			return
		}
		if getAtt, ok := val["Fn::GetAtt"]; ok && len(val) == 1 {
			switch args := getAtt.(type) {
			case []any:
				if len(args) > 0 {
					if name, ok := args[0].(string); ok {
						seen[name] = true
					}
				}
			case string:
				seen[strings.SplitN(args, ".", 2)[0]] = true
			}
			return
		}
		if sub, ok := val["Fn::Sub"]; ok && len(val) == 1 {
			collectSubRefs(sub, seen)
			return
		}
		for _, child := range val {
			collectRefs(child, seen)
		}
	case []any:
		for _, child := range val {
			collectRefs(child, seen)
		}
	}
}

func collectSubRefs(sub any, seen map[string]bool) {
	var (
		format string
		vars   map[string]any
	)
	switch s := sub.(type) {
	case string:
		format = s
	case []any:
		if len(s) > 0 {
			format, _ = s[0].(string)
		}
		if len(s) > 1 {
			vars, _ = s[1].(map[string]any)
			collectRefs(s[1], seen)
		}
	}
	for _, m := range subVariable.FindAllStringSubmatch(format, -1) {
		name := m[1]
		if strings.HasPrefix(name, "AWS::") {
			continue
		}
		if _, local := vars[name]; local {
			continue
		}
		seen[name] = true
	}
}

// Order returns the template's resources in dependency order using Kahn's
// algorithm. Ties are broken alphabetically.
func Order(t *ounet.Template) ([]string, error) {
	deps := Dependencies(t)

	graph := make(map[string][]string)
	inDegree := make(map[string]int)
	for name := range t.Resources {
		graph[name] = nil
		inDegree[name] = 0
	}
	for name, nodeDeps := range deps {
		for _, dep := range nodeDeps {
			if _, exists := t.Resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

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

	if len(result) != len(t.Resources) {
		return nil, detectCycle(t, deps)
	}
	return result, nil
}

// detectCycle finds one cycle in the dependency graph.
func detectCycle(t *ounet.Template, deps map[string][]string) error {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		visited[node] = true
		onPath[node] = true
		stack = append(stack, node)

		for _, dep := range deps[node] {
			if _, exists := t.Resources[dep]; !exists {
				continue
			}
			if onPath[dep] {
				for i, n := range stack {
					if n == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						break
					}
				}
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}

		stack = stack[:len(stack)-1]
		onPath[node] = false
		return false
	}

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] && visit(name) {
			return &CycleError{Path: cycle}
		}
	}
	return &CycleError{}
}

// ToJSON serializes the template to JSON.
func ToJSON(t *ounet.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *ounet.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Render serializes the template in the named format ("json" or "yaml").
func Render(t *ounet.Template, format string) ([]byte, error) {
	switch format {
	case "", "json":
		return ToJSON(t)
	case "yaml", "yml":
		return ToYAML(t)
	default:
		return nil, fmt.Errorf("unsupported template format %q", format)
	}
}

// Parse reads a JSON or YAML template.
func Parse(data []byte) (*ounet.Template, error) {
	var t ounet.Template
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing JSON template: %w", err)
		}
		return &t, nil
	}
	// yaml.v3 decodes nested mappings as map[string]interface{}, matching
	// what the JSON path produces.
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing YAML template: %w", err)
	}
	return &t, nil
}
