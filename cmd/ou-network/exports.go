package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lex00/ou-network-go/internal/awsclient"
	"github.com/lex00/ou-network-go/internal/exports"
)

func newExportsCmd(root *rootOptions) *cobra.Command {
	var (
		live         bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List the exports published by the stacks",
		Long: `Exports lists every export name registered by the declared stacks.

With --live the exports of the configured region are read from
CloudFormation and any name already published by a stack outside the
app is reported as a conflict.

Examples:
    ou-network exports
    ou-network exports --live --profile shared`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, a, err := root.loadApp(ctx)
			if err != nil {
				return err
			}

			var conflicts []exports.Conflict
			if live {
				clients, err := root.clients(ctx, cfg.Region)
				if err != nil {
					return err
				}
				deployed, err := awsclient.ListExports(ctx, clients.CloudFormation)
				if err != nil {
					return err
				}
				conflicts = a.Registry.Conflicts(awsclient.ExportingStacks(deployed))
			}

			if err := writeExports(cmd.OutOrStdout(), a.Registry, conflicts, outputFormat == "json"); err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return fmt.Errorf("%d export name(s) already published by other stacks", len(conflicts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Check the names against the exports of the deployed stacks")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

type exportReport struct {
	Name      string `json:"name"`
	Stack     string `json:"stack"`
	LiveStack string `json:"live_stack,omitempty"`
}

func writeExports(w io.Writer, registry *exports.Registry, conflicts []exports.Conflict, asJSON bool) error {
	conflicting := make(map[string]string, len(conflicts))
	for _, c := range conflicts {
		conflicting[c.Name] = c.LiveStack
	}

	var reports []exportReport
	for _, name := range registry.Names() {
		e, _ := registry.Get(name)
		reports = append(reports, exportReport{Name: name, Stack: e.Stack, LiveStack: conflicting[name]})
	}

	if asJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EXPORT\tSTACK\tCONFLICT")
	for _, r := range reports {
		conflict := "-"
		if r.LiveStack != "" {
			conflict = "published by " + r.LiveStack
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Stack, conflict)
	}
	return tw.Flush()
}
