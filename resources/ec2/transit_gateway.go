package ec2

// TransitGateway is AWS::EC2::TransitGateway.
type TransitGateway struct {
	Description                  string
	AutoAcceptSharedAttachments  string
	DefaultRouteTableAssociation string
	DefaultRouteTablePropagation string
	Tags                         []any
}

func (TransitGateway) ResourceType() string { return "AWS::EC2::TransitGateway" }

// TransitGatewayPeeringAttachment is AWS::EC2::TransitGatewayPeeringAttachment.
type TransitGatewayPeeringAttachment struct {
	TransitGatewayId     any
	PeerTransitGatewayId any
	PeerAccountId        any
	PeerRegion           any
	Tags                 []any
}

func (TransitGatewayPeeringAttachment) ResourceType() string {
	return "AWS::EC2::TransitGatewayPeeringAttachment"
}

// TransitGatewayRoute is AWS::EC2::TransitGatewayRoute.
type TransitGatewayRoute struct {
	TransitGatewayRouteTableId any
	DestinationCidrBlock       any
	TransitGatewayAttachmentId any
	Blackhole                  bool
}

func (TransitGatewayRoute) ResourceType() string { return "AWS::EC2::TransitGatewayRoute" }

// TransitGatewayVpcAttachment is AWS::EC2::TransitGatewayVpcAttachment.
type TransitGatewayVpcAttachment struct {
	TransitGatewayId any
	VpcId            any
	SubnetIds        []any
	Tags             []any
}

func (TransitGatewayVpcAttachment) ResourceType() string {
	return "AWS::EC2::TransitGatewayVpcAttachment"
}
