package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/optimizer"
)

func newOptimizeCmd(root *rootOptions) *cobra.Command {
	var (
		category     string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "optimize [stack]",
		Short: "Suggest security, cost and reliability improvements",
		Long: `Optimize checks the synthesized templates, or one stack, against a set of
rules and prints the suggested improvements. Suggestions do not fail the
command.

Examples:
    ou-network optimize
    ou-network optimize ProdVpcStack --category reliability`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := root.loadApp(cmd.Context())
			if err != nil {
				return err
			}

			names := make([]string, 0, len(a.Stacks()))
			if len(args) == 1 {
				names = append(names, args[0])
			} else {
				for _, st := range a.Stacks() {
					names = append(names, st.Name)
				}
			}

			var suggestions []ounet.OptimizeSuggestion
			for _, name := range names {
				_, t, err := stackTemplate(a, name)
				if err != nil {
					return err
				}
				result, err := optimizer.Optimize(name, t, optimizer.Options{Category: category})
				if err != nil {
					return err
				}
				suggestions = append(suggestions, result.Suggestions...)
			}
			return writeSuggestions(cmd.OutOrStdout(), suggestions, outputFormat == "json")
		},
	}

	cmd.Flags().StringVar(&category, "category", "all", "Category: all, security, cost or reliability")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func writeSuggestions(w io.Writer, suggestions []ounet.OptimizeSuggestion, asJSON bool) error {
	summary := optimizer.Summarize(suggestions)
	if asJSON {
		data, err := json.MarshalIndent(struct {
			Suggestions []ounet.OptimizeSuggestion `json:"suggestions"`
			Summary     ounet.OptimizeSummary      `json:"summary"`
		}{suggestions, summary}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	for _, s := range suggestions {
		fmt.Fprintf(w, "[%s] %s/%s %s (%s)\n", s.Severity, s.Stack, s.Resource, s.Title, s.Rule)
		fmt.Fprintf(w, "    %s\n", s.Description)
		if s.Suggestion != "" {
			fmt.Fprintf(w, "    → %s\n", s.Suggestion)
		}
	}
	fmt.Fprintf(w, "%d suggestion(s): %d security, %d cost, %d reliability\n",
		summary.Total, summary.Security, summary.Cost, summary.Reliability)
	return nil
}
