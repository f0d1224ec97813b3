package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/cost"
	"github.com/lex00/ou-network-go/internal/logging"
	"github.com/lex00/ou-network-go/internal/topology"
)

func newDecideCmd(root *rootOptions) *cobra.Command {
	var (
		accountID    string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Show the network topology derived for each account",
		Long: `Decide prints, per account of the OU, the availability zones, NAT gateways,
private subnet mode and egress destination the VPC stack will use, with an
estimate of the fixed monthly charges.

Examples:
    ou-network decide
    ou-network decide --account 222222222222 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.network()
			if err != nil {
				return err
			}
			reports, err := decide(cfg, accountID)
			if err != nil {
				return err
			}
			return writeDecisions(cmd.OutOrStdout(), reports, outputFormat == "json")
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Only the account with this ID")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

// decisionReport is one row of the decide output.
type decisionReport struct {
	Role                  string         `json:"role"`
	Account               string         `json:"account"`
	VPCCIDR               string         `json:"vpc_cidr"`
	AZCount               int            `json:"az_count"`
	NATGatewayCount       int            `json:"nat_gateway_count"`
	PrivateSubnetMode     string         `json:"private_subnet_mode"`
	EgressDestinationCIDR string         `json:"egress_destination_cidr"`
	Cost                  *cost.Estimate `json:"cost,omitempty"`
}

// decide derives the topology of every account, or of accountID only.
func decide(cfg *config.Network, accountID string) ([]decisionReport, error) {
	roles := topology.Roles
	if accountID != "" {
		role, err := topology.ResolveRole(accountID, cfg.OU.Accounts())
		if err != nil {
			return nil, err
		}
		roles = []topology.Role{role}
	}

	reports := make([]decisionReport, 0, len(roles))
	for _, role := range roles {
		account := cfg.OU.Account(role)
		d := topology.Decide(cfg.TopologyConfig(role), cfg.Host.TgwCIDR)
		report := decisionReport{
			Role:                  role.String(),
			Account:               account.AccountID,
			VPCCIDR:               account.VPCCIDR,
			AZCount:               d.AZCount,
			NATGatewayCount:       d.NATGatewayCount,
			PrivateSubnetMode:     string(d.PrivateSubnetMode),
			EgressDestinationCIDR: d.EgressDestinationCIDR,
		}
		if est, err := cost.ForDecision(d, account.Region); err != nil {
			logging.Warn("no cost estimate", zap.String("role", role.String()), zap.Error(err))
		} else {
			report.Cost = est
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func writeDecisions(w io.Writer, reports []decisionReport, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tACCOUNT\tVPC CIDR\tAZS\tNATS\tPRIVATE SUBNETS\tEGRESS\tMONTHLY USD")
	for _, r := range reports {
		monthly := "-"
		if r.Cost != nil {
			monthly = r.Cost.Monthly.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.Role, r.Account, r.VPCCIDR, r.AZCount, r.NATGatewayCount, r.PrivateSubnetMode, r.EgressDestinationCIDR, monthly)
	}
	return tw.Flush()
}
