// Package validation lints synthesized CloudFormation templates with cfn-lint-go.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"
	"go.uber.org/zap"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/logging"
	"github.com/lex00/ou-network-go/internal/template"
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

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
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

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}

// ValidateTemplate lints an in-memory template under the stack name.
func ValidateTemplate(stackName string, t *ounet.Template) (*ounet.ValidateResult, error) {
	data, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stackName, err)
	}
	dir, err := os.MkdirTemp("", "ou-network-validate-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, app.TemplateFile(stackName, "json"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return validateFile(stackName, path)
}

// ValidateApp lints every template of a.
func ValidateApp(a *app.App) ([]ounet.ValidateResult, error) {
	templates, err := a.Templates()
	if err != nil {
		return nil, err
	}
	var results []ounet.ValidateResult
	for _, st := range a.Stacks() {
		result, err := ValidateTemplate(st.Name, templates[st.Name])
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// ValidateDir lints the templates listed in the manifest of a synth output directory.
func ValidateDir(dir string) ([]ounet.ValidateResult, error) {
	manifest, err := app.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	var results []ounet.ValidateResult
	for _, st := range manifest.Stacks {
		result, err := validateFile(st.Name, filepath.Join(dir, st.TemplateFile))
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

func validateFile(stackName, path string) (*ounet.ValidateResult, error) {
	lintResult, err := RunCfnLint(path)
	if err != nil {
		return nil, err
	}
	logging.Debug("linted template",
		zap.String("stack", stackName),
		zap.Int("errors", len(lintResult.Errors)),
		zap.Int("warnings", len(lintResult.Warnings)),
	)
	return &ounet.ValidateResult{
		Success:  lintResult.Passed,
		Stack:    stackName,
		Errors:   lintResult.Errors,
		Warnings: lintResult.Warnings,
	}, nil
}

// Passed reports whether every result succeeded.
func Passed(results []ounet.ValidateResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}
