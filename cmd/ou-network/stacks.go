package main

import (
	"fmt"
	"strings"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/stack"
)

// stackTemplate returns the declared stack called name and its template.
func stackTemplate(a *app.App, name string) (*stack.Stack, *ounet.Template, error) {
	st, ok := a.Stack(name)
	if !ok {
		for _, s := range a.Skipped() {
			if s.Name == name {
				return nil, nil, fmt.Errorf("stack %s is skipped: %s", name, s.Reason)
			}
		}
		names := make([]string, 0, len(a.Stacks()))
		for _, s := range a.Stacks() {
			names = append(names, s.Name)
		}
		return nil, nil, fmt.Errorf("unknown stack %q (declared: %s)", name, strings.Join(names, ", "))
	}
	t, err := st.Build()
	if err != nil {
		return nil, nil, err
	}
	return st, t, nil
}
