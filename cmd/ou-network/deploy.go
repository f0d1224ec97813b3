package main

import (
	"context"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/lex00/ou-network-go/internal/awsclient"
	"github.com/lex00/ou-network-go/internal/deploy"
	"github.com/lex00/ou-network-go/internal/template"
)

// confirmDeploy asks before a change set is executed.
var confirmDeploy = func(stackName string, changes int) (bool, error) {
	ok := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Execute %d change(s) on %s?", changes, stackName),
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func newDeployCmd(root *rootOptions) *cobra.Command {
	var (
		yes    bool
		bucket string
	)

	cmd := &cobra.Command{
		Use:   "deploy <stack>",
		Short: "Deploy a stack through a CloudFormation change set",
		Long: `Deploy synthesizes one stack, creates a change set against the stack's
account and region, prints the planned changes and executes them after
confirmation.

The credentials of --profile must belong to the stack's account.
Templates larger than 51200 bytes are uploaded to --bucket first.

Examples:
    ou-network deploy SharedTgwStack --profile shared
    ou-network deploy ProdVpcStack --profile prod --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, a, err := root.loadApp(ctx)
			if err != nil {
				return err
			}
			st, t, err := stackTemplate(a, args[0])
			if err != nil {
				return err
			}
			body, err := template.ToJSON(t)
			if err != nil {
				return err
			}

			clients, err := root.clients(ctx, st.Env.Region)
			if err != nil {
				return err
			}
			caller, err := awsclient.CallerAccount(ctx, clients.STS)
			if err != nil {
				return err
			}

			d := &deploy.Deployer{
				CloudFormation: clients.CloudFormation,
				Bucket:         bucket,
				Region:         st.Env.Region,
			}
			if bucket != "" {
				d.S3 = clients.S3
			}
			return runDeploy(ctx, cmd.OutOrStdout(), d, deploy.Request{
				StackName:     st.Name,
				Account:       st.Env.Account,
				CallerAccount: caller,
				Template:      body,
			}, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Execute without asking for confirmation")
	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket the template is uploaded to")

	return cmd
}

func runDeploy(ctx context.Context, w io.Writer, d *deploy.Deployer, req deploy.Request, yes bool) error {
	plan, err := d.Plan(ctx, req)
	if err != nil {
		return err
	}
	if plan.NoChanges {
		fmt.Fprintf(w, "%s is up to date.\n", plan.StackName)
		return nil
	}
	writePlan(w, plan)

	if !yes {
		ok, err := confirmDeploy(plan.StackName, len(plan.Changes))
		if err != nil {
			return err
		}
		if !ok {
			if err := d.Discard(ctx, plan); err != nil {
				return err
			}
			return deploy.ErrDeclined
		}
	}
	if err := d.Execute(ctx, plan); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s deployed.\n", plan.StackName)
	return nil
}

func writePlan(w io.Writer, plan *deploy.Plan) {
	fmt.Fprintf(w, "Change set %s (%s) for %s:\n", plan.ChangeSetName, plan.ChangeSetType, plan.StackName)
	for _, c := range plan.Changes {
		line := fmt.Sprintf("  %-8s %s (%s)", c.Action, c.LogicalID, c.Type)
		if c.Replacement == "True" || c.Replacement == "Conditional" {
			line += " replacement: " + c.Replacement
		}
		fmt.Fprintln(w, line)
	}
}
