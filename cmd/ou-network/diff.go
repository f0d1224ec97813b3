package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/awsclient"
	"github.com/lex00/ou-network-go/internal/differ"
	"github.com/lex00/ou-network-go/internal/template"
)

func newDiffCmd(root *rootOptions) *cobra.Command {
	var (
		against      string
		deployed     bool
		ignoreOrder  bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "diff <stack>",
		Short: "Compare a synthesized stack with a template file or the deployed stack",
		Long: `Diff synthesizes one stack and compares it, resource by resource, with
either a template file or the template of the deployed stack.

Examples:
    ou-network diff DevVpcStack --against cdk.out/DevVpcStack.template.json
    ou-network diff SharedTgwStack --deployed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (against == "") == !deployed {
				return errors.New("pass exactly one of --against or --deployed")
			}
			ctx := cmd.Context()
			_, a, err := root.loadApp(ctx)
			if err != nil {
				return err
			}
			st, current, err := stackTemplate(a, args[0])
			if err != nil {
				return err
			}

			var previous *ounet.Template
			if deployed {
				clients, err := root.clients(ctx, st.Env.Region)
				if err != nil {
					return err
				}
				body, err := awsclient.DeployedTemplate(ctx, clients.CloudFormation, st.Name)
				if err != nil {
					return err
				}
				if previous, err = template.Parse(body); err != nil {
					return err
				}
			} else if previous, err = differ.LoadTemplate(against); err != nil {
				return err
			}

			result, err := differ.Compare(previous, current, differ.Options{IgnoreOrder: ignoreOrder})
			if err != nil {
				return err
			}
			return writeDiff(cmd.OutOrStdout(), result, outputFormat == "json")
		},
	}

	cmd.Flags().StringVar(&against, "against", "", "Template file to compare with")
	cmd.Flags().BoolVar(&deployed, "deployed", false, "Compare with the deployed stack")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore the order of list elements")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func writeDiff(w io.Writer, result *differ.Result, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(struct {
			Diff    ounet.TemplateDiff `json:"diff"`
			Summary ounet.DiffSummary  `json:"summary"`
			Outputs []string           `json:"outputs,omitempty"`
		}{result.Diff, result.Summary, result.Outputs}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if result.Empty() {
		fmt.Fprintln(w, "No differences.")
		return nil
	}
	for _, e := range result.Diff.Added {
		fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Removed {
		fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Modified {
		fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Fprintf(w, "    %s\n", c)
		}
	}
	for _, o := range result.Outputs {
		fmt.Fprintf(w, "output %s\n", o)
	}
	fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n", result.Summary.Added, result.Summary.Removed, result.Summary.Modified)
	return nil
}
