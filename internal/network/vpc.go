package network

import (
	"fmt"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/naming"
	"github.com/lex00/ou-network-go/internal/stack"
	"github.com/lex00/ou-network-go/internal/topology"
	"github.com/lex00/ou-network-go/intrinsics"
	"github.com/lex00/ou-network-go/resources/ec2"
	"github.com/lex00/ou-network-go/resources/iam"
	"github.com/lex00/ou-network-go/resources/logs"
)

// subnetRefs is a declared subnet and its route table.
type subnetRefs struct {
	planned    PlannedSubnet
	subnet     stack.Ref
	routeTable stack.Ref
}

// VpcStack declares the VPC of the account env.Account.
//
// The VPC spans Decision.AZCount zones with public, private and isolated
// tiers. Private subnets are attached to the shared Transit Gateway and route
// Decision.EgressDestinationCIDR to it.
func VpcStack(a *app.App, name string, cfg *config.Network, names naming.Producer, env stack.Env) error {
	role, err := topology.ResolveRole(env.Account, cfg.OU.Accounts())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	vpcCIDR, err := cfg.OU.VPCCIDR(env.Account)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	decision := topology.Decide(cfg.TopologyConfig(role), cfg.Host.TgwCIDR)
	tiers := Tiers(decision)
	plan, err := PlanSubnets(vpcCIDR, tiers, decision.AZCount)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	produce := func(human string) string { return names.Produce(human, env.Account, env.Region) }
	st := a.NewStack(name, env, fmt.Sprintf("%s VPC of OU %s", role, cfg.OU.Name))

	vpcName := produce("Vpc")
	vpc := st.Add("Vpc", ec2.VPC{
		CidrBlock:          vpcCIDR,
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		InstanceTenancy:    "default",
		Tags:               []any{intrinsics.NameTag(vpcName)},
	})

	subnets := declareSubnets(st, vpc, vpcName, plan)
	publicSubnets := filterTier(subnets, TierPublic)
	privateSubnets := filterTier(subnets, TierPrivate)

	igw := st.Add("InternetGateway", ec2.InternetGateway{Tags: []any{intrinsics.NameTag(vpcName)}})
	igwAttachment := st.Add("VPCGW", ec2.VPCGatewayAttachment{
		VpcId:             vpc.Ref(),
		InternetGatewayId: igw.Ref(),
	})

	publicRoutes := make([]stack.Ref, len(publicSubnets))
	for i, s := range publicSubnets {
		publicRoutes[i] = st.Add(subnetID(s.planned)+"DefaultRoute", ec2.Route{
			RouteTableId:         s.routeTable.Ref(),
			DestinationCidrBlock: topology.AnyIPv4,
			GatewayId:            igw.Ref(),
		}, stack.DependsOn(igwAttachment))
	}

	natGateways := declareNATGateways(st, publicSubnets, publicRoutes, decision.NATGatewayCount)
	if decision.PrivateSubnetMode == topology.ModeWithEgress && len(natGateways) > 0 {
		for _, s := range privateSubnets {
			nat := natGateways[0]
			if s.planned.AZIndex < len(natGateways) {
				nat = natGateways[s.planned.AZIndex]
			}
			st.Add(subnetID(s.planned)+"DefaultRoute", ec2.Route{
				RouteTableId:         s.routeTable.Ref(),
				DestinationCidrBlock: topology.AnyIPv4,
				NatGatewayId:         nat.Ref(),
			})
		}
	}

	routeTables := make([]any, len(subnets))
	for i, s := range subnets {
		routeTables[i] = s.routeTable.Ref()
	}
	for _, endpoint := range []struct{ id, service string }{
		{"S3Endpoint", "s3"},
		{"DynamoDBEndpoint", "dynamodb"},
	} {
		st.Add(endpoint.id, ec2.VPCEndpoint{
			VpcId:           vpc.Ref(),
			ServiceName:     intrinsics.Sub{String: "com.amazonaws.${AWS::Region}." + endpoint.service},
			VpcEndpointType: "Gateway",
			RouteTableIds:   routeTables,
		})
	}

	privateSubnetIDs := make([]any, len(privateSubnets))
	for i, s := range privateSubnets {
		privateSubnetIDs[i] = s.subnet.Ref()
	}
	attachment := st.Add("VpcAttachmentToSharedTgw", ec2.TransitGatewayVpcAttachment{
		TransitGatewayId: cfg.SharedTgwID,
		VpcId:            vpc.Ref(),
		SubnetIds:        privateSubnetIDs,
		Tags:             []any{intrinsics.NameTag(fmt.Sprintf("attach-to-%s-private", env.Account))},
	})
	for i, s := range privateSubnets {
		st.Add(fmt.Sprintf("RouteToHostViaSharedTgw%d", i), ec2.Route{
			RouteTableId:         s.routeTable.Ref(),
			DestinationCidrBlock: decision.EgressDestinationCIDR,
			TransitGatewayId:     cfg.SharedTgwID,
		}, stack.DependsOn(attachment))
	}

	declareFlowLogs(st, vpc, cfg, produce)

	st.Export(produce("VpcId"), vpc.Ref())
	return nil
}

func subnetID(s PlannedSubnet) string {
	return fmt.Sprintf("%sSubnet%d", capitalize(s.Tier.Name), s.AZIndex+1)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func declareSubnets(st *stack.Stack, vpc stack.Ref, vpcName string, plan []PlannedSubnet) []subnetRefs {
	refs := make([]subnetRefs, 0, len(plan))
	for _, p := range plan {
		id := subnetID(p)
		subnetName := fmt.Sprintf("%s/%s-%d", vpcName, p.Tier.Name, p.AZIndex+1)
		subnet := st.Add(id, ec2.Subnet{
			VpcId:               vpc.Ref(),
			CidrBlock:           p.CIDR,
			AvailabilityZone:    intrinsics.AvailabilityZone(p.AZIndex),
			MapPublicIpOnLaunch: p.Tier.Type == SubnetPublic,
			Tags: []any{
				intrinsics.NameTag(subnetName),
				intrinsics.Tag{Key: "SubnetTier", Value: p.Tier.Name},
				intrinsics.Tag{Key: "SubnetType", Value: string(p.Tier.Type)},
			},
		})
		routeTable := st.Add(id+"RouteTable", ec2.RouteTable{
			VpcId: vpc.Ref(),
			Tags:  []any{intrinsics.NameTag(subnetName)},
		})
		st.Add(id+"RouteTableAssociation", ec2.SubnetRouteTableAssociation{
			SubnetId:     subnet.Ref(),
			RouteTableId: routeTable.Ref(),
		})
		refs = append(refs, subnetRefs{planned: p, subnet: subnet, routeTable: routeTable})
	}
	return refs
}

func filterTier(subnets []subnetRefs, tier string) []subnetRefs {
	var result []subnetRefs
	for _, s := range subnets {
		if s.planned.Tier.Name == tier {
			result = append(result, s)
		}
	}
	return result
}

// declareNATGateways places count NAT gateways in the first public subnets.
func declareNATGateways(st *stack.Stack, public []subnetRefs, publicRoutes []stack.Ref, count int) []stack.Ref {
	if count > len(public) {
		count = len(public)
	}
	nats := make([]stack.Ref, 0, count)
	for i := 0; i < count; i++ {
		id := subnetID(public[i].planned)
		eip := st.Add(id+"EIP", ec2.EIP{Domain: "vpc"})
		nats = append(nats, st.Add(id+"NATGateway", ec2.NatGateway{
			SubnetId:     public[i].subnet.Ref(),
			AllocationId: eip.GetAtt("AllocationId"),
		}, stack.DependsOn(publicRoutes[i])))
	}
	return nats
}

func declareFlowLogs(st *stack.Stack, vpc stack.Ref, cfg *config.Network, produce func(string) string) {
	group := logs.LogGroup{
		LogGroupName:    produce("FlowLogsGroup"),
		RetentionInDays: cfg.FlowLogsRetentionDays,
	}
	if cfg.FlowLogsKMSArn != "" {
		group.KmsKeyId = cfg.FlowLogsKMSArn
	}
	logGroup := st.Add("FlowLogsGroup", group, stack.DeletionPolicy("Delete"))

	role := st.Add("FlowLogIAMRole", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleStatement(intrinsics.ServicePrincipal{"vpc-flow-logs.amazonaws.com"}),
		),
		Policies: []iam.Policy{{
			PolicyName: "FlowLogDelivery",
			PolicyDocument: intrinsics.NewPolicyDocument(
				intrinsics.Allow([]any{
					"logs:CreateLogStream",
					"logs:PutLogEvents",
					"logs:DescribeLogStreams",
				}, logGroup.GetAtt("Arn")),
			),
		}},
	})

	st.Add("FlowLog", ec2.FlowLog{
		ResourceId:               vpc.Ref(),
		FlowResourceType:         "VPC",
		TrafficType:              "ALL",
		LogDestinationType:       "cloud-watch-logs",
		LogGroupName:             logGroup.Ref(),
		DeliverLogsPermissionArn: role.GetAtt("Arn"),
		Tags:                     []any{intrinsics.NameTag(produce("FlowLog"))},
	})
}
