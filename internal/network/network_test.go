package network

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/naming"
	"github.com/lex00/ou-network-go/internal/topology"
)

const (
	sharedAccount = "111111111111"
	prodAccount   = "222222222222"
	devAccount    = "333333333333"
)

type fakeSubnets struct {
	ids   []string
	err   error
	calls []string
}

func (f *fakeSubnets) PrivateSubnets(_ context.Context, vpcID string) ([]string, error) {
	f.calls = append(f.calls, vpcID)
	return f.ids, f.err
}

func testConfig(t *testing.T, overrides map[string]string) *config.Network {
	t.Helper()
	env := map[string]string{
		config.EnvOUName:                "acme",
		config.EnvSharedAccountID:       sharedAccount,
		config.EnvProdAccountID:         prodAccount,
		config.EnvDevAccountID:          devAccount,
		config.EnvForceOutbound:         "false",
		config.EnvGitHubEndpoint:        "https://ghe.example.com",
		config.EnvGitHubOrgNames:        "platform,a-very-long-organization-name",
		config.EnvSharedTgwID:           "tgw-0123456789abcdef0",
		config.EnvSharedTgwRouteTableID: "tgw-rtb-0123456789abcdef0",
		config.EnvSharedVpcID:           "vpc-0123456789abcdef0",
	}
	for k, v := range overrides {
		if v == "" {
			delete(env, k)
			continue
		}
		env[k] = v
	}
	cfg, err := config.LoadNetwork(func(key string) string { return env[key] })
	require.NoError(t, err)
	return cfg
}

func namesFor(cfg *config.Network) naming.Producer {
	return naming.NewProducer(cfg.OU.Name)
}

func buildApp(t *testing.T, cfg *config.Network) (*app.App, map[string]*ounet.Template) {
	t.Helper()
	a, err := NewApp(context.Background(), cfg, Options{Subnets: &fakeSubnets{ids: []string{"subnet-a", "subnet-b"}}})
	require.NoError(t, err)
	templates, err := a.Templates()
	require.NoError(t, err)
	return a, templates
}

func resourcesOfType(tmpl *ounet.Template, cfnType string) map[string]ounet.ResourceDef {
	result := make(map[string]ounet.ResourceDef)
	for name, res := range tmpl.Resources {
		if res.Type == cfnType {
			result[name] = res
		}
	}
	return result
}

func exportNames(tmpl *ounet.Template) []string {
	var names []string
	for _, out := range tmpl.Outputs {
		if out.Export != nil {
			names = append(names, out.Export.Name)
		}
	}
	return names
}

func TestNewApp_AllStacks(t *testing.T) {
	a, templates := buildApp(t, testConfig(t, nil))

	var names []string
	for _, st := range a.Stacks() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{SharedTgwStackName, SharedVpcStackName, ProdVpcStackName, DevVpcStackName, GheConnectionStackName}, names)
	assert.Empty(t, a.Skipped())
	assert.Len(t, templates, 5)

	prod, _ := a.Stack(ProdVpcStackName)
	assert.Equal(t, prodAccount, prod.Env.Account)
	assert.Equal(t, "us-west-2", prod.Env.Region)
}

func TestNewApp_FirstPhase(t *testing.T) {
	cfg := testConfig(t, map[string]string{config.EnvSharedTgwID: "", config.EnvSharedVpcID: ""})
	lookup := &fakeSubnets{}

	a, err := NewApp(context.Background(), cfg, Options{Subnets: lookup})
	require.NoError(t, err)

	require.Len(t, a.Stacks(), 1)
	assert.Equal(t, SharedTgwStackName, a.Stacks()[0].Name)

	var skipped []string
	for _, s := range a.Skipped() {
		skipped = append(skipped, s.Name)
	}
	assert.Equal(t, []string{SharedVpcStackName, ProdVpcStackName, DevVpcStackName, GheConnectionStackName}, skipped)
	assert.Empty(t, lookup.calls)
}

func TestNewApp_MissingSubnetLookup(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig(t, nil), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subnet lookup")
}

func TestSharedTgwStack(t *testing.T) {
	_, templates := buildApp(t, testConfig(t, nil))
	tmpl := templates[SharedTgwStackName]

	tgw := tmpl.Resources["SharedTgw"]
	assert.Equal(t, "AWS::EC2::TransitGateway", tgw.Type)
	assert.Equal(t, "enable", tgw.Properties["AutoAcceptSharedAttachments"])
	assert.Equal(t, "enable", tgw.Properties["DefaultRouteTableAssociation"])
	assert.Equal(t, "enable", tgw.Properties["DefaultRouteTablePropagation"])

	share := tmpl.Resources["TgwShare"]
	assert.Equal(t, "AWS::RAM::ResourceShare", share.Type)
	assert.Equal(t, false, share.Properties["AllowExternalPrincipals"])
	assert.Equal(t, []any{devAccount, prodAccount}, share.Properties["Principals"])
	assert.Equal(t, "acme-111111111111-us-west-2-TgwShare", share.Properties["Name"])

	peering := tmpl.Resources["HostTgwAttachment"]
	assert.Equal(t, "tgw-0c488e5cbd4d589e5", peering.Properties["PeerTransitGatewayId"])
	assert.Equal(t, "662350212343", peering.Properties["PeerAccountId"])
	assert.Equal(t, "us-west-2", peering.Properties["PeerRegion"])

	lookup := tmpl.Resources["GetSharedTgwDefaultRouteTableId"]
	assert.Equal(t, "Custom::TgwDefaultRouteTable", lookup.Type)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"SharedTgw", "Id"}}, lookup.Properties["TransitGatewayId"])

	fn := tmpl.Resources["RouteTableLookupFunction"]
	assert.Equal(t, RouteTableLookupFunctionName, fn.Properties["FunctionName"])
	code := fn.Properties["Code"].(map[string]any)
	assert.Contains(t, code["ZipFile"], "AssociationDefaultRouteTableId")

	logGroup := tmpl.Resources["RouteTableLookupLogGroup"]
	assert.Equal(t, int64(1), logGroup.Properties["RetentionInDays"])

	assert.NotContains(t, tmpl.Resources, "StaticRouteToHostWithinTGW")
	assert.ElementsMatch(t, []string{
		"acme-111111111111-us-west-2-SharedTgwId",
		"acme-111111111111-us-west-2-HostAttachmentId",
		"acme-111111111111-us-west-2-SharedTgwRouteTableId",
	}, exportNames(tmpl))
}

func TestSharedTgwStack_AttachedToHost(t *testing.T) {
	tests := []struct {
		force       string
		destination string
	}{
		{"false", "172.16.0.0/24"},
		{"true", "0.0.0.0/0"},
	}

	for _, tt := range tests {
		t.Run("force="+tt.force, func(t *testing.T) {
			cfg := testConfig(t, map[string]string{config.EnvAttachedToHost: "true", config.EnvForceOutbound: tt.force})
			_, templates := buildApp(t, cfg)

			route, ok := templates[SharedTgwStackName].Resources["StaticRouteToHostWithinTGW"]
			require.True(t, ok)
			assert.Equal(t, tt.destination, route.Properties["DestinationCidrBlock"])
			assert.Equal(t,
				map[string]any{"Fn::GetAtt": []any{"GetSharedTgwDefaultRouteTableId", "AssociationDefaultRouteTableId"}},
				route.Properties["TransitGatewayRouteTableId"])
			assert.Equal(t,
				map[string]any{"Fn::GetAtt": []any{"HostTgwAttachment", "TransitGatewayAttachmentId"}},
				route.Properties["TransitGatewayAttachmentId"])
		})
	}
}

func TestSharedTgwStack_WrongAccount(t *testing.T) {
	cfg := testConfig(t, nil)
	a := app.New()

	err := SharedTgwStack(a, cfg, namesFor(cfg), envFor(cfg.OU.Prod))
	var cfgErr *topology.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), SharedTgwStackName)
	assert.Empty(t, a.Stacks())
}

func TestVpcStack_ProdWithNATPerAZ(t *testing.T) {
	_, templates := buildApp(t, testConfig(t, map[string]string{config.EnvMaxAzsInProd: "3"}))
	tmpl := templates[ProdVpcStackName]

	vpc := tmpl.Resources["Vpc"]
	assert.Equal(t, "10.1.0.0/16", vpc.Properties["CidrBlock"])

	assert.Len(t, resourcesOfType(tmpl, "AWS::EC2::Subnet"), 9)
	assert.Len(t, resourcesOfType(tmpl, "AWS::EC2::NatGateway"), 3)
	assert.Len(t, resourcesOfType(tmpl, "AWS::EC2::EIP"), 3)

	assert.Equal(t, "10.1.96.0/20", tmpl.Resources["PrivateSubnet1"].Properties["CidrBlock"])
	assert.Equal(t, map[string]any{"Ref": "PublicSubnet2NATGateway"}, tmpl.Resources["PrivateSubnet2DefaultRoute"].Properties["NatGatewayId"])
	assert.Equal(t, map[string]any{"Ref": "PublicSubnet3NATGateway"}, tmpl.Resources["PrivateSubnet3DefaultRoute"].Properties["NatGatewayId"])
	assert.NotContains(t, tmpl.Resources, "IsolatedSubnet1DefaultRoute")

	for i := 0; i < 3; i++ {
		route := tmpl.Resources["RouteToHostViaSharedTgw"+string(rune('0'+i))]
		assert.Equal(t, "172.16.0.0/24", route.Properties["DestinationCidrBlock"])
		assert.Equal(t, "tgw-0123456789abcdef0", route.Properties["TransitGatewayId"])
		assert.Equal(t, []string{"VpcAttachmentToSharedTgw"}, route.DependsOn)
	}

	attachment := tmpl.Resources["VpcAttachmentToSharedTgw"]
	assert.Equal(t, []any{
		map[string]any{"Ref": "PrivateSubnet1"},
		map[string]any{"Ref": "PrivateSubnet2"},
		map[string]any{"Ref": "PrivateSubnet3"},
	}, attachment.Properties["SubnetIds"])
}

func TestVpcStack_DevSingleNAT(t *testing.T) {
	_, templates := buildApp(t, testConfig(t, map[string]string{config.EnvMaxAzsInProd: "3"}))
	tmpl := templates[DevVpcStackName]

	assert.Equal(t, "10.2.0.0/16", tmpl.Resources["Vpc"].Properties["CidrBlock"])
	assert.Len(t, resourcesOfType(tmpl, "AWS::EC2::Subnet"), 3)
	assert.Len(t, resourcesOfType(tmpl, "AWS::EC2::NatGateway"), 1)
	assert.Equal(t, map[string]any{"Ref": "PublicSubnet1NATGateway"}, tmpl.Resources["PrivateSubnet1DefaultRoute"].Properties["NatGatewayId"])
}

func TestVpcStack_ForcedThroughHost(t *testing.T) {
	_, templates := buildApp(t, testConfig(t, map[string]string{config.EnvForceOutbound: "true"}))

	for _, name := range []string{SharedVpcStackName, ProdVpcStackName, DevVpcStackName} {
		tmpl := templates[name]
		assert.Empty(t, resourcesOfType(tmpl, "AWS::EC2::NatGateway"), name)
		assert.NotContains(t, tmpl.Resources, "PrivateSubnet1DefaultRoute", name)
		assert.Equal(t, "0.0.0.0/0", tmpl.Resources["RouteToHostViaSharedTgw0"].Properties["DestinationCidrBlock"], name)
		assert.Contains(t, tmpl.Resources, "PublicSubnet1DefaultRoute", name)
	}

	sharedTags := templates[SharedVpcStackName].Resources["PrivateSubnet1"].Properties["Tags"]
	assert.Contains(t, sharedTags, map[string]any{"Key": "SubnetType", "Value": "PrivateWithEgress"})
	devTags := templates[DevVpcStackName].Resources["PrivateSubnet1"].Properties["Tags"]
	assert.Contains(t, devTags, map[string]any{"Key": "SubnetType", "Value": "Isolated"})
	assert.Contains(t, devTags, map[string]any{"Key": "SubnetTier", "Value": "private"})
}

func TestVpcStack_EndpointsAndFlowLogs(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		config.EnvFlowLogsRetentionDays: "7",
		config.EnvFlowLogsKMSArn:        "arn:aws:kms:us-west-2:111111111111:key/abc",
	})
	_, templates := buildApp(t, cfg)
	tmpl := templates[SharedVpcStackName]

	s3 := tmpl.Resources["S3Endpoint"]
	assert.Equal(t, "Gateway", s3.Properties["VpcEndpointType"])
	assert.Equal(t, map[string]any{"Fn::Sub": "com.amazonaws.${AWS::Region}.s3"}, s3.Properties["ServiceName"])
	assert.Len(t, s3.Properties["RouteTableIds"], 3)
	assert.Contains(t, tmpl.Resources, "DynamoDBEndpoint")

	group := tmpl.Resources["FlowLogsGroup"]
	assert.Equal(t, int64(7), group.Properties["RetentionInDays"])
	assert.Equal(t, "arn:aws:kms:us-west-2:111111111111:key/abc", group.Properties["KmsKeyId"])
	assert.Equal(t, "acme-111111111111-us-west-2-FlowLogsGroup", group.Properties["LogGroupName"])
	assert.Equal(t, "Delete", group.DeletionPolicy)

	flowLog := tmpl.Resources["FlowLog"]
	assert.Equal(t, "VPC", flowLog.Properties["ResourceType"])
	assert.Equal(t, map[string]any{"Ref": "FlowLogsGroup"}, flowLog.Properties["LogGroupName"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"FlowLogIAMRole", "Arn"}}, flowLog.Properties["DeliverLogsPermissionArn"])

	assert.Equal(t, []string{"acme-111111111111-us-west-2-VpcId"}, exportNames(tmpl))
}

func TestVpcStack_AccountOutsideOU(t *testing.T) {
	cfg := testConfig(t, nil)
	a := app.New()

	err := VpcStack(a, "StrayVpcStack", cfg, namesFor(cfg), envFor(config.AccountInfo{AccountID: "999999999999", Region: "us-west-2"}))
	var cfgErr *topology.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, a.Stacks())
}

func TestGheConnectionStack(t *testing.T) {
	certCfg := testConfig(t, nil)
	certCfg.GitHubCertificatePEM = "-----BEGIN CERTIFICATE-----"
	lookup := &fakeSubnets{ids: []string{"subnet-a", "subnet-b"}}

	a, err := NewApp(context.Background(), certCfg, Options{Subnets: lookup})
	require.NoError(t, err)
	templates, err := a.Templates()
	require.NoError(t, err)
	tmpl := templates[GheConnectionStackName]

	assert.Equal(t, []string{"vpc-0123456789abcdef0"}, lookup.calls)

	sg := tmpl.Resources["SecurityGroupForGHE"]
	ingress := sg.Properties["SecurityGroupIngress"].([]any)[0].(map[string]any)
	assert.Equal(t, "172.16.0.0/24", ingress["CidrIp"])
	assert.Equal(t, int64(443), ingress["FromPort"])

	host := tmpl.Resources["CodestarHost"]
	assert.Equal(t, "GitHubEnterpriseServer", host.Properties["ProviderType"])
	assert.Equal(t, "https://ghe.example.com", host.Properties["ProviderEndpoint"])
	vpcConfig := host.Properties["VpcConfiguration"].(map[string]any)
	assert.Equal(t, []any{"subnet-a", "subnet-b"}, vpcConfig["SubnetIds"])
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", vpcConfig["TlsCertificate"])

	platform := tmpl.Resources["ConnToGHEForPlatform"]
	assert.Equal(t, "platform+acme-111111111111", platform.Properties["ConnectionName"])
	long := tmpl.Resources["ConnToGHEForAVeryLongOrganizationName"]
	assert.Len(t, long.Properties["ConnectionName"], 32)

	exports := exportNames(tmpl)
	assert.Contains(t, exports, GheConnectionExportName)
	assert.Contains(t, exports, "acme-111111111111-us-west-2-ConnArnFor-platform")
	assert.Contains(t, exports, "acme-111111111111-us-west-2-ConnUrlFor-a-very-long-organization-name")
	assert.Len(t, exports, 5)

	first := tmpl.Outputs["ExportGheConnectionArn"]
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"ConnToGHEForPlatform", "ConnectionArn"}}, first.Value)

	url := tmpl.Outputs["ExportAcme111111111111UsWest2ConnUrlForPlatform"].Value.(map[string]any)["Fn::Sub"].([]any)
	assert.True(t, strings.HasPrefix(url[0].(string), "https://${AWS::Region}.console.aws.amazon.com/codesuite/settings/"))
}

func TestGheConnectionStack_LookupErrors(t *testing.T) {
	cfg := testConfig(t, nil)

	_, err := NewApp(context.Background(), cfg, Options{Subnets: &fakeSubnets{err: errors.New("access denied")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = NewApp(context.Background(), cfg, Options{Subnets: &fakeSubnets{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no private subnets")
}

func TestConnectionName(t *testing.T) {
	assert.Equal(t, "platform+acme-111111111111", ConnectionName("platform", "acme", sharedAccount))
	assert.Equal(t, "a-very-long-organization-name+ac", ConnectionName("a-very-long-organization-name", "acme", sharedAccount))
}
