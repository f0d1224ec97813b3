package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	ounet "github.com/lex00/ou-network-go"
)

// WriteResult prints a synth result as indented JSON or as a short summary.
func WriteResult(w io.Writer, result *ounet.BuildResult, dir string, asJSON bool) error {
	if asJSON {
		return writeJSON(w, result)
	}
	for _, st := range result.Stacks {
		fmt.Fprintf(w, "%s → %s/%s (%d resources)\n", st.Name, dir, st.TemplateFile, st.Resources)
	}
	for _, name := range result.Skipped {
		fmt.Fprintf(w, "%s skipped\n", name)
	}
	return nil
}

// StackSummary describes one declared or skipped stack.
type StackSummary struct {
	Name      string   `json:"name"`
	Account   string   `json:"account,omitempty"`
	Region    string   `json:"region,omitempty"`
	Resources int      `json:"resources"`
	Exports   []string `json:"exports,omitempty"`
	Skipped   string   `json:"skipped,omitempty"`
}

// Summaries lists the declared stacks in order, then the skipped ones.
func (a *App) Summaries() []StackSummary {
	summaries := make([]StackSummary, 0, len(a.stacks)+len(a.skipped))
	for _, st := range a.stacks {
		summaries = append(summaries, StackSummary{
			Name:      st.Name,
			Account:   st.Env.Account,
			Region:    st.Env.Region,
			Resources: st.Resources(),
			Exports:   st.Exports(),
		})
	}
	for _, s := range a.skipped {
		summaries = append(summaries, StackSummary{Name: s.Name, Skipped: s.Reason})
	}
	return summaries
}

// WriteStacks prints the app's stacks as JSON or as a table.
func WriteStacks(w io.Writer, a *App, asJSON bool) error {
	summaries := a.Summaries()
	if asJSON {
		return writeJSON(w, summaries)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STACK\tACCOUNT\tREGION\tRESOURCES\tEXPORTS")
	for _, s := range summaries {
		if s.Skipped != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t-\tskipped: %s\n", s.Name, s.Skipped)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Name, s.Account, s.Region, s.Resources, strings.Join(s.Exports, ","))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
