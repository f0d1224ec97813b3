// Package ec2 contains the AWS::EC2 CloudFormation resource types used by the
// OU network stacks.
//
// Property fields carry CloudFormation property names and accept literals or
// intrinsics:
//
//	ec2.Subnet{
//	    VpcId:            vpc.Ref(),
//	    CidrBlock:        "10.1.0.0/19",
//	    AvailabilityZone: intrinsics.AvailabilityZone(0),
//	}
package ec2

// VPC is AWS::EC2::VPC.
type VPC struct {
	CidrBlock          any
	EnableDnsHostnames bool
	EnableDnsSupport   bool
	InstanceTenancy    string
	Tags               []any
}

func (VPC) ResourceType() string { return "AWS::EC2::VPC" }

// Subnet is AWS::EC2::Subnet.
type Subnet struct {
	VpcId               any
	CidrBlock           any
	AvailabilityZone    any
	MapPublicIpOnLaunch bool
	Tags                []any
}

func (Subnet) ResourceType() string { return "AWS::EC2::Subnet" }

// RouteTable is AWS::EC2::RouteTable.
type RouteTable struct {
	VpcId any
	Tags  []any
}

func (RouteTable) ResourceType() string { return "AWS::EC2::RouteTable" }

// SubnetRouteTableAssociation is AWS::EC2::SubnetRouteTableAssociation.
type SubnetRouteTableAssociation struct {
	SubnetId     any
	RouteTableId any
}

func (SubnetRouteTableAssociation) ResourceType() string {
	return "AWS::EC2::SubnetRouteTableAssociation"
}

// Route is AWS::EC2::Route. Exactly one target field should be set.
type Route struct {
	RouteTableId         any
	DestinationCidrBlock any
	GatewayId            any
	NatGatewayId         any
	TransitGatewayId     any
}

func (Route) ResourceType() string { return "AWS::EC2::Route" }

// InternetGateway is AWS::EC2::InternetGateway.
type InternetGateway struct {
	Tags []any
}

func (InternetGateway) ResourceType() string { return "AWS::EC2::InternetGateway" }

// VPCGatewayAttachment is AWS::EC2::VPCGatewayAttachment.
type VPCGatewayAttachment struct {
	VpcId             any
	InternetGatewayId any
}

func (VPCGatewayAttachment) ResourceType() string { return "AWS::EC2::VPCGatewayAttachment" }

// EIP is AWS::EC2::EIP.
type EIP struct {
	Domain string
	Tags   []any
}

func (EIP) ResourceType() string { return "AWS::EC2::EIP" }

// NatGateway is AWS::EC2::NatGateway.
type NatGateway struct {
	SubnetId     any
	AllocationId any
	Tags         []any
}

func (NatGateway) ResourceType() string { return "AWS::EC2::NatGateway" }

// VPCEndpoint is AWS::EC2::VPCEndpoint.
type VPCEndpoint struct {
	VpcId           any
	ServiceName     any
	VpcEndpointType string
	RouteTableIds   []any
}

func (VPCEndpoint) ResourceType() string { return "AWS::EC2::VPCEndpoint" }

// FlowLog is AWS::EC2::FlowLog.
type FlowLog struct {
	ResourceId               any
	FlowResourceType         string `json:"ResourceType"`
	TrafficType              string
	LogDestinationType       string
	LogGroupName             any
	DeliverLogsPermissionArn any
	Tags                     []any
}

func (FlowLog) ResourceType() string { return "AWS::EC2::FlowLog" }

// SecurityGroup is AWS::EC2::SecurityGroup.
type SecurityGroup struct {
	GroupDescription     string
	VpcId                any
	SecurityGroupIngress []SecurityGroupRule
	SecurityGroupEgress  []SecurityGroupRule
	Tags                 []any
}

func (SecurityGroup) ResourceType() string { return "AWS::EC2::SecurityGroup" }

// SecurityGroupRule is an inline ingress or egress rule.
type SecurityGroupRule struct {
	IpProtocol  string
	CidrIp      any
	FromPort    *int
	ToPort      *int
	Description string
}

// TCPIngress returns a rule allowing TCP traffic on port from cidr.
func TCPIngress(cidr any, port int, description string) SecurityGroupRule {
	return SecurityGroupRule{
		IpProtocol:  "tcp",
		CidrIp:      cidr,
		FromPort:    &port,
		ToPort:      &port,
		Description: description,
	}
}

// AllowAllEgress is the rule CloudFormation creates when no egress rule is given.
var AllowAllEgress = SecurityGroupRule{
	IpProtocol:  "-1",
	CidrIp:      "0.0.0.0/0",
	Description: "Allow all outbound traffic by default",
}
