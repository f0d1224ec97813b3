// Command ou-network synthesizes and deploys the CloudFormation stacks of an
// Organizational Unit's network.
//
// Usage:
//
//	ou-network synth -o cdk.out        Write one template per stack
//	ou-network decide                  Show the derived topology per account
//	ou-network deploy SharedTgwStack   Deploy a stack through a change set
//	ou-network version                 Show version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/awsclient"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/logging"
	"github.com/lex00/ou-network-go/internal/network"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string
	profile   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "ou-network",
		Short: "Synthesize the network stacks of an Organizational Unit",
		Long: `ou-network declares the network of an Organizational Unit as CloudFormation stacks:

    SharedTgwStack       Transit Gateway hub in the shared account
    SharedVpcStack       VPC of the shared account
    ProdVpcStack         VPC of the prod account
    DevVpcStack          VPC of the dev account
    GheConnectionStack   CodeStar connection to GitHub Enterprise

Settings are read from the environment and from a .env file:

    ou-network synth -o cdk.out`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Env file loaded before reading settings")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "console", "Log format: console or json")
	flags.StringVar(&opts.profile, "profile", "", "AWS shared config profile")

	rootCmd.AddCommand(
		newSynthCmd(opts),
		newListCmd(opts),
		newDecideCmd(opts),
		newGraphCmd(opts),
		newDiffCmd(opts),
		newValidateCmd(opts),
		newOptimizeCmd(opts),
		newExportsCmd(opts),
		newDeployCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func (o *rootOptions) setup() error {
	cfg := logging.DefaultConfig()
	cfg.Level = o.logLevel
	cfg.Format = o.logFormat
	if err := logging.Initialize(cfg); err != nil {
		return err
	}
	return config.LoadEnvFile(o.envFile)
}

// network loads the settings from the process environment.
func (o *rootOptions) network() (*config.Network, error) {
	return config.LoadNetwork(os.Getenv)
}

func (o *rootOptions) clients(ctx context.Context, region string) (*awsclient.Clients, error) {
	return awsclient.Load(ctx, o.profile, region)
}

// buildApp declares the network stacks. The GHE connection stack needs the
// shared VPC's subnets, which are looked up with the current credentials.
func (o *rootOptions) buildApp(ctx context.Context, cfg *config.Network) (*app.App, error) {
	var opts network.Options
	if cfg.SharedVpcID != "" {
		clients, err := o.clients(ctx, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("looking up subnets of %s: %w", cfg.SharedVpcID, err)
		}
		opts.Subnets = awsclient.SubnetFinder{EC2: clients.EC2}
	}
	return network.NewApp(ctx, cfg, opts)
}

// loadApp loads the settings and declares the stacks.
func (o *rootOptions) loadApp(ctx context.Context) (*config.Network, *app.App, error) {
	cfg, err := o.network()
	if err != nil {
		return nil, nil, err
	}
	a, err := o.buildApp(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ou-network %s\n", getVersion())
		},
	}
}
