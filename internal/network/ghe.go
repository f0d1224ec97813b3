package network

import (
	"context"
	"fmt"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/naming"
	"github.com/lex00/ou-network-go/internal/serialize"
	"github.com/lex00/ou-network-go/internal/stack"
	"github.com/lex00/ou-network-go/internal/topology"
	"github.com/lex00/ou-network-go/intrinsics"
	"github.com/lex00/ou-network-go/resources/codestarconnections"
	"github.com/lex00/ou-network-go/resources/ec2"
)

// GheConnectionExportName is the export pipelines import the connection ARN from.
const GheConnectionExportName = "gheConnectionArn"

const (
	maxConnectionNameLength = 32
	maxHostNameLength       = 64
)

// ConnectionName returns the CodeStar connection name of org.
func ConnectionName(org, ouName, accountID string) string {
	return naming.Truncate(fmt.Sprintf("%s+%s-%s", org, ouName, accountID), maxConnectionNameLength)
}

// GheConnectionStack declares a CodeStar host reaching the GitHub Enterprise
// server through the shared VPC, and one connection per organization.
func GheConnectionStack(ctx context.Context, a *app.App, cfg *config.Network, names naming.Producer, env stack.Env, lookup SubnetLookup) error {
	if err := topology.ExpectRole(env.Account, cfg.OU.Accounts(), topology.RoleShared); err != nil {
		return fmt.Errorf("%s must be deployed in the shared account: %w", GheConnectionStackName, err)
	}
	produce := func(human string) string { return names.Produce(human, env.Account, env.Region) }

	subnetIDs, err := lookup.PrivateSubnets(ctx, cfg.SharedVpcID)
	if err != nil {
		return fmt.Errorf("%s: looking up private subnets of %s: %w", GheConnectionStackName, cfg.SharedVpcID, err)
	}
	if len(subnetIDs) == 0 {
		return fmt.Errorf("%s: VPC %s has no private subnets", GheConnectionStackName, cfg.SharedVpcID)
	}

	st := a.NewStack(GheConnectionStackName, env, fmt.Sprintf("GitHub Enterprise connection of OU %s", cfg.OU.Name))

	sg := st.Add("SecurityGroupForGHE", ec2.SecurityGroup{
		GroupDescription:     "security group for a GHE host which communicates with the GHE server",
		VpcId:                cfg.SharedVpcID,
		SecurityGroupIngress: []ec2.SecurityGroupRule{ec2.TCPIngress(cfg.Host.TgwCIDR, 443, "allow HTTPS traffic from GHE")},
		SecurityGroupEgress:  []ec2.SecurityGroupRule{ec2.AllowAllEgress},
	})

	subnets := make([]any, len(subnetIDs))
	for i, id := range subnetIDs {
		subnets[i] = id
	}
	host := st.Add("CodestarHost", codestarconnections.Host{
		HostName:         naming.Truncate(produce("CodestarHost"), maxHostNameLength),
		ProviderEndpoint: cfg.GitHubEndpoint,
		ProviderType:     codestarconnections.ProviderGitHubEnterpriseServer,
		VpcConfiguration: &codestarconnections.VpcConfiguration{
			VpcId:            cfg.SharedVpcID,
			SubnetIds:        subnets,
			SecurityGroupIds: []any{sg.GetAtt("GroupId")},
			TlsCertificate:   cfg.GitHubCertificatePEM,
		},
	})

	for i, org := range cfg.GitHubOrgNames {
		conn := st.Add(serialize.LogicalID("ConnToGHEFor", org), codestarconnections.Connection{
			ConnectionName: ConnectionName(org, cfg.OU.Name, env.Account),
			HostArn:        host.GetAtt("HostArn"),
		})
		arn := conn.GetAtt("ConnectionArn")

		if i == 0 {
			st.Export(GheConnectionExportName, arn)
		}
		st.Export(produce("ConnArnFor-"+org), arn)
		st.Export(produce("ConnUrlFor-"+org), intrinsics.SubWithMap{
			String: "https://${AWS::Region}.console.aws.amazon.com/codesuite/settings/${AWS::AccountId}/${AWS::Region}/connections/${ConnectionId}",
			Variables: map[string]any{
				"ConnectionId": intrinsics.Select{
					Index: 1,
					List:  intrinsics.Split{Delimiter: "/", Source: arn},
				},
			},
		})
	}
	return nil
}
