// Package optimizer reports security, cost and reliability improvements for
// synthesized templates.
package optimizer

import (
	"fmt"
	"sort"

	ounet "github.com/lex00/ou-network-go"
)

// Categories accepted by Options.Category besides "all".
var Categories = []string{"security", "cost", "reliability"}

// Options configures the optimizer.
type Options struct {
	// Category filters suggestions: "all", "security", "cost" or "reliability".
	Category string
}

// Result contains optimization suggestions.
type Result struct {
	Suggestions []ounet.OptimizeSuggestion
	Summary     ounet.OptimizeSummary
}

// Rule checks one resource of a template.
type Rule struct {
	ID       string
	Category string
	Severity string
	// Types lists the resource types the rule applies to; empty means all.
	Types []string
	Check func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding
}

// Finding is what a rule reports about a resource.
type Finding struct {
	Title       string
	Description string
	Suggestion  string
}

// Optimize applies every rule to the resources of t in name order.
func Optimize(stackName string, t *ounet.Template, opts Options) (*Result, error) {
	if err := checkCategory(opts.Category); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &Result{}
	for _, name := range names {
		res := t.Resources[name]
		for _, rule := range rulesForType(res.Type) {
			if opts.Category != "" && opts.Category != "all" && rule.Category != opts.Category {
				continue
			}
			f := rule.Check(name, res, t)
			if f == nil {
				continue
			}
			result.Suggestions = append(result.Suggestions, ounet.OptimizeSuggestion{
				Stack:       stackName,
				Resource:    name,
				Rule:        rule.ID,
				Category:    rule.Category,
				Severity:    rule.Severity,
				Title:       f.Title,
				Description: f.Description,
				Suggestion:  f.Suggestion,
			})
		}
	}
	result.Summary = Summarize(result.Suggestions)
	return result, nil
}

// Summarize tallies suggestions by category.
func Summarize(suggestions []ounet.OptimizeSuggestion) ounet.OptimizeSummary {
	summary := ounet.OptimizeSummary{}
	for _, s := range suggestions {
		switch s.Category {
		case "security":
			summary.Security++
		case "cost":
			summary.Cost++
		case "reliability":
			summary.Reliability++
		}
		summary.Total++
	}
	return summary
}

func checkCategory(category string) error {
	if category == "" || category == "all" {
		return nil
	}
	for _, c := range Categories {
		if c == category {
			return nil
		}
	}
	return fmt.Errorf("unknown category %q: use all, security, cost or reliability", category)
}

func rulesForType(resourceType string) []Rule {
	var rules []Rule
	for _, r := range allRules {
		if len(r.Types) == 0 {
			rules = append(rules, r)
			continue
		}
		for _, t := range r.Types {
			if t == resourceType {
				rules = append(rules, r)
				break
			}
		}
	}
	return rules
}
