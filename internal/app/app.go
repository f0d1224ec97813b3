// Package app groups the stacks of one deployable application and writes
// their synthesized templates.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/exports"
	"github.com/lex00/ou-network-go/internal/logging"
	"github.com/lex00/ou-network-go/internal/stack"
	"github.com/lex00/ou-network-go/internal/template"
)

// ManifestFile is written next to the templates by Synth.
const ManifestFile = "manifest.json"

// Skipped is a stack left out of the app.
type Skipped struct {
	Name   string
	Reason string
}

// App is an ordered set of stacks sharing one export registry.
type App struct {
	Registry *exports.Registry
	stacks   []*stack.Stack
	skipped  []Skipped
}

// New returns an empty app.
func New() *App {
	return &App{Registry: exports.NewRegistry()}
}

// NewStack creates a stack and appends it to the app.
func (a *App) NewStack(name string, env stack.Env, description string) *stack.Stack {
	st := stack.New(name, env, description, a.Registry)
	a.stacks = append(a.stacks, st)
	return st
}

// Skip records that a stack was not declared.
func (a *App) Skip(name, reason string) {
	logging.Warn("skipping stack", zap.String("stack", name), zap.String("reason", reason))
	a.skipped = append(a.skipped, Skipped{Name: name, Reason: reason})
}

// Stacks returns the declared stacks in declaration order.
func (a *App) Stacks() []*stack.Stack {
	return append([]*stack.Stack(nil), a.stacks...)
}

// Skipped returns the stacks left out.
func (a *App) Skipped() []Skipped {
	return append([]Skipped(nil), a.skipped...)
}

// Stack returns the stack named name.
func (a *App) Stack(name string) (*stack.Stack, bool) {
	for _, st := range a.stacks {
		if st.Name == name {
			return st, true
		}
	}
	return nil, false
}

// Templates builds every stack. Errors of all stacks are joined.
func (a *App) Templates() (map[string]*ounet.Template, error) {
	templates := make(map[string]*ounet.Template, len(a.stacks))
	var errs []error
	for _, st := range a.stacks {
		t, err := st.Build()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		templates[st.Name] = t
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return templates, nil
}

// TemplateFile returns the file name Synth uses for stack.
func TemplateFile(stackName, format string) string {
	ext := "json"
	if format == "yaml" || format == "yml" {
		ext = "yaml"
	}
	return fmt.Sprintf("%s.template.%s", stackName, ext)
}

// Synth writes one template per stack and a manifest into dir.
func (a *App) Synth(dir, format string) (*ounet.BuildResult, error) {
	templates, err := a.Templates()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &ounet.BuildResult{Success: true}
	for _, st := range a.stacks {
		data, err := template.Render(templates[st.Name], format)
		if err != nil {
			return nil, err
		}
		file := TemplateFile(st.Name, format)
		if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", file, err)
		}
		logging.Info("synthesized stack",
			zap.String("stack", st.Name),
			zap.String("account", st.Env.Account),
			zap.String("file", file),
			zap.Int("resources", st.Resources()),
		)
		result.Stacks = append(result.Stacks, ounet.StackResult{
			Name:         st.Name,
			Account:      st.Env.Account,
			Region:       st.Env.Region,
			TemplateFile: file,
			Resources:    st.Resources(),
			Exports:      st.Exports(),
		})
	}
	for _, s := range a.skipped {
		result.Skipped = append(result.Skipped, s.Name)
	}

	manifest, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifest, 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return result, nil
}

// ReadManifest loads the manifest written by Synth.
func ReadManifest(dir string) (*ounet.BuildResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var result ounet.BuildResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &result, nil
}
