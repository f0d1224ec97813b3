package main

import (
	"github.com/spf13/cobra"

	"github.com/lex00/ou-network-go/internal/graph"
)

func newGraphCmd(root *rootOptions) *cobra.Command {
	var (
		format         string
		includeExports bool
		clusterByType  bool
	)

	cmd := &cobra.Command{
		Use:   "graph <stack>",
		Short: "Render the resource dependencies of a stack",
		Long: `Graph prints the dependency graph of one stack in DOT or Mermaid format.

GetAtt references are drawn in blue, explicit DependsOn edges dashed.

Examples:
    ou-network graph ProdVpcStack | dot -Tsvg > prod.svg
    ou-network graph SharedTgwStack -f mermaid --exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := graph.ParseFormat(format)
			if err != nil {
				return err
			}
			_, a, err := root.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			_, t, err := stackTemplate(a, args[0])
			if err != nil {
				return err
			}
			gen := &graph.Generator{Format: f, IncludeExports: includeExports, ClusterByType: clusterByType}
			return gen.Generate(t, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVar(&includeExports, "exports", false, "Include the stack's exports")
	cmd.Flags().BoolVar(&clusterByType, "cluster", false, "Group resources by AWS service")

	return cmd
}
