package network

import (
	_ "embed"
	"fmt"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/naming"
	"github.com/lex00/ou-network-go/internal/stack"
	"github.com/lex00/ou-network-go/internal/topology"
	"github.com/lex00/ou-network-go/intrinsics"
	"github.com/lex00/ou-network-go/resources/cloudformation"
	"github.com/lex00/ou-network-go/resources/ec2"
	"github.com/lex00/ou-network-go/resources/iam"
	"github.com/lex00/ou-network-go/resources/lambda"
	"github.com/lex00/ou-network-go/resources/logs"
	"github.com/lex00/ou-network-go/resources/ram"
)

//go:embed tgw_route_table.py
var tgwRouteTableFunction string

// RouteTableLookupFunctionName is the Lambda reading the TGW default route table.
const RouteTableLookupFunctionName = "getSharedTgwDefaultRouteTableId"

// SharedTgwStack declares the OU's Transit Gateway in the shared account,
// shares it with the prod and dev accounts and peers it with the host network.
func SharedTgwStack(a *app.App, cfg *config.Network, names naming.Producer, env stack.Env) error {
	if err := topology.ExpectRole(env.Account, cfg.OU.Accounts(), topology.RoleShared); err != nil {
		return fmt.Errorf("%s must be deployed in the shared account: %w", SharedTgwStackName, err)
	}
	produce := func(human string) string { return names.Produce(human, env.Account, env.Region) }

	st := a.NewStack(SharedTgwStackName, env, fmt.Sprintf("Shared Transit Gateway of OU %s", cfg.OU.Name))

	tgw := st.Add("SharedTgw", ec2.TransitGateway{
		Description:                  produce("SharedTgw"),
		AutoAcceptSharedAttachments:  "enable",
		DefaultRouteTableAssociation: "enable",
		DefaultRouteTablePropagation: "enable",
		Tags:                         []any{intrinsics.NameTag(produce("SharedTgw"))},
	})

	routeTableID := declareRouteTableLookup(st, tgw)

	allowExternal := false
	st.Add("TgwShare", ram.ResourceShare{
		Name:                    produce("TgwShare"),
		AllowExternalPrincipals: &allowExternal,
		Principals:              []any{cfg.OU.Dev.AccountID, cfg.OU.Prod.AccountID},
		ResourceArns: []any{intrinsics.Sub{
			String: "arn:${AWS::Partition}:ec2:${AWS::Region}:${AWS::AccountId}:transit-gateway/${" + tgw.Name() + "}",
		}},
	})

	hostAttachment := st.Add("HostTgwAttachment", ec2.TransitGatewayPeeringAttachment{
		TransitGatewayId:     tgw.GetAtt("Id"),
		PeerTransitGatewayId: cfg.Host.TgwID,
		PeerAccountId:        cfg.Host.AccountID,
		PeerRegion:           cfg.Host.TgwRegion,
		Tags:                 []any{intrinsics.NameTag("attach-to-host-network")},
	})

	// The peering attachment must be accepted by the host network before a
	// route can target it.
	if cfg.AttachedToHost {
		st.Add("StaticRouteToHostWithinTGW", ec2.TransitGatewayRoute{
			TransitGatewayRouteTableId: routeTableID,
			DestinationCidrBlock:       topology.DeriveEgressDestinationCIDR(cfg.ForceOutboundThroughHost, cfg.Host.TgwCIDR),
			TransitGatewayAttachmentId: hostAttachment.GetAtt("TransitGatewayAttachmentId"),
		})
	}

	st.Export(produce("SharedTgwId"), tgw.GetAtt("Id"))
	st.Export(produce("HostAttachmentId"), hostAttachment.GetAtt("TransitGatewayAttachmentId"))
	st.Export(produce("SharedTgwRouteTableId"), routeTableID)
	return nil
}

// declareRouteTableLookup adds a Lambda-backed custom resource returning the
// TGW's default association route table, which CloudFormation does not expose.
func declareRouteTableLookup(st *stack.Stack, tgw stack.Ref) ounet.AttrRef {
	logGroup := st.Add("RouteTableLookupLogGroup", logs.LogGroup{
		LogGroupName:    "/aws/lambda/" + RouteTableLookupFunctionName,
		RetentionInDays: 1,
	}, stack.DeletionPolicy("Delete"))

	role := st.Add("RouteTableLookupRole", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleStatement(intrinsics.ServicePrincipal{"lambda.amazonaws.com"}),
		),
		ManagedPolicyArns: []any{iam.AWSManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole")},
		Policies: []iam.Policy{{
			PolicyName: "DescribeTransitGateways",
			PolicyDocument: intrinsics.NewPolicyDocument(
				intrinsics.Allow([]any{"ec2:DescribeTransitGateways"}, "*"),
			),
		}},
	})

	fn := st.Add("RouteTableLookupFunction", lambda.Function{
		FunctionName: RouteTableLookupFunctionName,
		Description:  "Reads the association default route table of the shared Transit Gateway",
		Handler:      "index.handler",
		Runtime:      "python3.12",
		Role:         role.GetAtt("Arn"),
		Timeout:      60,
		Code:         lambda.Code{ZipFile: tgwRouteTableFunction},
	}, stack.DependsOn(logGroup))

	lookup := st.Add("GetSharedTgwDefaultRouteTableId", cloudformation.CustomResource{
		Type:         "Custom::TgwDefaultRouteTable",
		ServiceToken: fn.GetAtt("Arn"),
		Fields: map[string]any{
			"TransitGatewayId": tgw.GetAtt("Id"),
		},
	})
	return lookup.GetAtt("AssociationDefaultRouteTableId")
}
