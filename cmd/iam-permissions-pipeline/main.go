// Command iam-permissions-pipeline synthesizes the CodePipeline that deploys a
// read-only IAM role into the dev and prod accounts of an Organizational Unit.
//
// Usage:
//
//	iam-permissions-pipeline synth -o cdk.out   Write the pipeline and stage templates
//	iam-permissions-pipeline list               List the stacks
//	iam-permissions-pipeline validate           Lint the templates with cfn-lint
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/logging"
	"github.com/lex00/ou-network-go/internal/pipeline"
	"github.com/lex00/ou-network-go/internal/validation"
)

func main() {
	err := newRootCmd(os.Getenv).Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string
	getenv    config.Getenv
}

func newRootCmd(getenv config.Getenv) *cobra.Command {
	opts := &rootOptions{getenv: getenv}

	rootCmd := &cobra.Command{
		Use:   "iam-permissions-pipeline",
		Short: "Synthesize the IAM permissions pipeline",
		Long: `iam-permissions-pipeline declares a CodePipeline in the shared account that
builds this repository and deploys a read-only IAM role to the dev stage,
then to the prod stage.

Required settings: SHARED_ACCOUNT_ID, DEV_ACCOUNT_ID, PROD_ACCOUNT_ID and
CREDENTIALS_ACCOUNT_ID, read from the environment and a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := logging.DefaultConfig()
			cfg.Level = opts.logLevel
			cfg.Format = opts.logFormat
			if err := logging.Initialize(cfg); err != nil {
				return err
			}
			return config.LoadEnvFile(opts.envFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Env file loaded before reading settings")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "console", "Log format: console or json")

	rootCmd.AddCommand(
		newSynthCmd(opts),
		newListCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func (o *rootOptions) loadApp() (*app.App, error) {
	cfg, err := config.LoadPipeline(o.getenv)
	if err != nil {
		return nil, err
	}
	logging.Debug("pipeline settings",
		zap.String("region", cfg.Region),
		zap.String("repository", cfg.Repository),
		zap.String("branch", cfg.Branch))
	return pipeline.NewApp(cfg)
}

func newSynthCmd(root *rootOptions) *cobra.Command {
	var (
		outputDir    string
		outputFormat string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write the pipeline and stage templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.loadApp()
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

	cmd.Flags().StringVarP(&outputDir, "output", "o", pipeline.SynthOutputDir, "Output directory")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the synth result as JSON")

	return cmd
}

func newListCmd(root *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the pipeline stacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.loadApp()
			if err != nil {
				return err
			}
			return app.WriteStacks(cmd.OutOrStdout(), a, outputFormat == "json")
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Lint the pipeline templates with cfn-lint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.loadApp()
			if err != nil {
				return err
			}
			results, err := validation.ValidateApp(a)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d error(s), %d warning(s)\n", r.Stack, len(r.Errors), len(r.Warnings))
				for _, e := range r.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
				}
			}
			if !validation.Passed(results) {
				return errors.New("validation failed")
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "iam-permissions-pipeline %s\n", getVersion())
		},
	}
}
