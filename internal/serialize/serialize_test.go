package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/intrinsics"
	"github.com/lex00/ou-network-go/resources/cloudformation"
	"github.com/lex00/ou-network-go/resources/ec2"
	"github.com/lex00/ou-network-go/resources/ram"
)

func TestResource_OmitsZeroValues(t *testing.T) {
	props, err := Resource(ec2.Subnet{
		VpcId:     intrinsics.Ref{LogicalName: "Vpc"},
		CidrBlock: "10.1.0.0/19",
	})
	require.NoError(t, err)

	assert.Equal(t, "10.1.0.0/19", props["CidrBlock"])
	assert.Equal(t, map[string]any{"Ref": "Vpc"}, props["VpcId"])
	assert.NotContains(t, props, "MapPublicIpOnLaunch")
	assert.NotContains(t, props, "Tags")
	assert.NotContains(t, props, "AvailabilityZone")
}

func TestResource_JSONTagOverridesFieldName(t *testing.T) {
	props, err := Resource(ec2.FlowLog{
		ResourceId:       intrinsics.Ref{LogicalName: "Vpc"},
		FlowResourceType: "VPC",
		TrafficType:      "ALL",
	})
	require.NoError(t, err)

	assert.Equal(t, "VPC", props["ResourceType"])
	assert.NotContains(t, props, "FlowResourceType")
}

func TestResource_FalsePointerIsKept(t *testing.T) {
	allow := false
	props, err := Resource(ram.ResourceShare{
		Name:                    "share",
		AllowExternalPrincipals: &allow,
	})
	require.NoError(t, err)

	assert.Equal(t, false, props["AllowExternalPrincipals"])
}

func TestResource_NestedStructsAndSlices(t *testing.T) {
	props, err := Resource(ec2.SecurityGroup{
		GroupDescription:     "ghe",
		SecurityGroupIngress: []ec2.SecurityGroupRule{ec2.TCPIngress("172.16.0.0/24", 443, "https")},
	})
	require.NoError(t, err)

	ingress := props["SecurityGroupIngress"].([]any)
	require.Len(t, ingress, 1)
	rule := ingress[0].(map[string]any)
	assert.Equal(t, "tcp", rule["IpProtocol"])
	assert.Equal(t, int64(443), rule["FromPort"])
	assert.Equal(t, int64(443), rule["ToPort"])
	assert.Equal(t, "172.16.0.0/24", rule["CidrIp"])
}

func TestResource_AttrRef(t *testing.T) {
	props, err := Resource(ec2.Route{
		RouteTableId:     ounet.AttrRef{Resource: "Lookup", Attribute: "RouteTableId"},
		NatGatewayId:     intrinsics.Ref{LogicalName: "NatGateway1"},
		GatewayId:        ounet.AttrRef{},
		TransitGatewayId: nil,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Lookup", "RouteTableId"}}, props["RouteTableId"])
	assert.NotContains(t, props, "GatewayId")
	assert.NotContains(t, props, "TransitGatewayId")
}

func TestResource_PropertyMapper(t *testing.T) {
	props, err := Resource(cloudformation.CustomResource{
		Type:         "Custom::TgwRouteTable",
		ServiceToken: ounet.AttrRef{Resource: "Fn", Attribute: "Arn"},
		Fields: map[string]any{
			"TransitGatewayId": intrinsics.Ref{LogicalName: "SharedTgw"},
			"Unset":            nil,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Fn", "Arn"}}, props["ServiceToken"])
	assert.Equal(t, map[string]any{"Ref": "SharedTgw"}, props["TransitGatewayId"])
	assert.NotContains(t, props, "Unset")
	assert.NotContains(t, props, "Type")
}

func TestResource_NonStruct(t *testing.T) {
	props, err := Resource("not a struct")
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestLogicalID(t *testing.T) {
	tests := []struct {
		parts    []string
		expected string
	}{
		{[]string{"ConnToGHEFor", "my-org"}, "ConnToGHEForMyOrg"},
		{[]string{"RouteToHostViaSharedTgw", "0"}, "RouteToHostViaSharedTgw0"},
		{[]string{"Export", "acme-111111111111-us-west-2-VpcId"}, "ExportAcme111111111111UsWest2VpcId"},
		{[]string{"plain"}, "Plain"},
		{[]string{"ümlaut"}, "Mlaut"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, LogicalID(tt.parts...))
		})
	}
}

type taggable struct {
	Tags []any
}

type hostedZone struct {
	taggable
	Name   string
	Config *zoneConfig `json:"HostedZoneConfig"`
}

type zoneConfig struct {
	Comment string
}

func TestResource_EmbeddedStructIsPromoted(t *testing.T) {
	props, err := Resource(&hostedZone{
		taggable: taggable{Tags: []any{intrinsics.NameTag("corp")}},
		Name:     "corp.example.com",
		Config:   &zoneConfig{},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{map[string]any{"Key": "Name", "Value": "corp"}}, props["Tags"])
	assert.NotContains(t, props, "taggable")
	assert.Equal(t, "corp.example.com", props["Name"])
	assert.Equal(t, map[string]any{}, props["HostedZoneConfig"])
}

type portMap struct {
	Ports map[int]string
}

func TestResource_NonStringMapKeyFails(t *testing.T) {
	_, err := Resource(portMap{Ports: map[int]string{443: "https"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portMap.Ports")
}

func TestResource_ArraysSerializeAsLists(t *testing.T) {
	props, err := Resource(struct{ Zones [2]string }{Zones: [2]string{"us-west-2a", "us-west-2b"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"us-west-2a", "us-west-2b"}, props["Zones"])
}
