package main

import (
	"github.com/spf13/cobra"

	"github.com/lex00/ou-network-go/internal/app"
)

func newSynthCmd(root *rootOptions) *cobra.Command {
	var (
		outputDir    string
		outputFormat string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write one CloudFormation template per stack",
		Long: `Synth declares every stack whose inputs are known and writes its template,
plus a manifest.json describing the stacks, into the output directory.

Stacks that need outputs of an earlier deployment phase are reported as
skipped until SHARED_TGW_ID or SHARED_VPC_ID is set.

Examples:
    ou-network synth
    ou-network synth -o out -f yaml
    ou-network synth --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := root.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := a.Synth(outputDir, outputFormat)
			if err != nil {
				return err
			}
			return app.WriteResult(cmd.OutOrStdout(), result, outputDir, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "cdk.out", "Output directory")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the synth result as JSON")

	return cmd
}

func newListCmd(root *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stacks of the OU network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := root.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			return app.WriteStacks(cmd.OutOrStdout(), a, outputFormat == "json")
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}
