// Package graph renders the resource dependencies of a synthesized template as
// DOT or Mermaid.
package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat validates a --format value. Empty selects DOT.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatDOT:
		return FormatDOT, nil
	case FormatMermaid:
		return FormatMermaid, nil
	default:
		return "", fmt.Errorf("unknown graph format %q (use dot or mermaid)", s)
	}
}

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeExports adds a node per export, linked to the resources its value reads.
	IncludeExports bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph of t and writes it to w.
func (g *Generator) Generate(t *ounet.Template, w io.Writer) error {
	graph := g.buildGraph(t)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(t *ounet.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(t, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(t *ounet.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := sortedKeys(t.Resources)
	if g.ClusterByType {
		g.addClusteredNodes(graph, t, names)
	} else {
		for _, name := range names {
			graph.Node(name).Label(label(name, t.Resources[name].Type))
		}
	}

	deps := template.Dependencies(t)
	for _, name := range names {
		res := t.Resources[name]
		getAtts := getAttTargets(res.Properties)
		explicit := make(map[string]bool, len(res.DependsOn))
		for _, d := range res.DependsOn {
			explicit[d] = true
		}
		for _, dep := range deps[name] {
			if _, ok := t.Resources[dep]; !ok {
				continue
			}
			e := graph.Edge(graph.Node(name), graph.Node(dep))
			switch {
			case getAtts[dep]:
				e.Attr("color", "blue")
			case explicit[dep]:
				e.Attr("style", "dashed")
			}
		}
	}

	if g.IncludeExports {
		for _, outName := range sortedKeys(t.Outputs) {
			out := t.Outputs[outName]
			if out.Export == nil {
				continue
			}
			n := graph.Node(outName)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(out.Export.Name)
			for _, ref := range template.References(out.Value) {
				if _, ok := t.Resources[ref]; ok {
					graph.Edge(n, graph.Node(ref))
				}
			}
		}
	}

	return graph
}

// addClusteredNodes groups resources by AWS service. Services with a single
// resource are not clustered.
func (g *Generator) addClusteredNodes(graph *dot.Graph, t *ounet.Template, names []string) {
	byService := make(map[string][]string)
	for _, name := range names {
		service := Service(t.Resources[name].Type)
		byService[service] = append(byService[service], name)
	}

	for _, service := range sortedKeys(byService) {
		members := byService[service]
		if len(members) == 1 {
			graph.Node(members[0]).Label(label(members[0], t.Resources[members[0]].Type))
			continue
		}
		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, name := range members {
			cluster.Node(name).Label(label(name, t.Resources[name].Type))
		}
	}
}

// Service extracts the service of a CloudFormation type.
// e.g., "AWS::EC2::Subnet" -> "EC2"
func Service(cfnType string) string {
	parts := strings.Split(cfnType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	if strings.HasPrefix(cfnType, "Custom::") {
		return "Custom"
	}
	return "Other"
}

func label(name, cfnType string) string {
	return name + "\\n[" + cfnType + "]"
}

// getAttTargets returns the resources read through Fn::GetAtt anywhere in v.
func getAttTargets(v any) map[string]bool {
	targets := make(map[string]bool)
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if args, ok := val["Fn::GetAtt"].([]any); ok && len(args) > 0 {
				if name, ok := args[0].(string); ok {
					targets[name] = true
				}
				return
			}
			for _, child := range val {
				walk(child)
			}
		case []any:
			for _, child := range val {
				walk(child)
			}
		}
	}
	walk(v)
	return targets
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
