// Package codestarconnections contains AWS::CodeStarConnections CloudFormation resource types.
package codestarconnections

// Host is AWS::CodeStarConnections::Host.
type Host struct {
	HostName         any
	ProviderEndpoint string
	ProviderType     string
	VpcConfiguration *VpcConfiguration
}

func (Host) ResourceType() string { return "AWS::CodeStarConnections::Host" }

// VpcConfiguration places the host's endpoint inside a VPC.
type VpcConfiguration struct {
	VpcId            any
	SubnetIds        []any
	SecurityGroupIds []any
	TlsCertificate   string
}

// Connection is AWS::CodeStarConnections::Connection.
type Connection struct {
	ConnectionName string
	HostArn        any
	ProviderType   string
}

func (Connection) ResourceType() string { return "AWS::CodeStarConnections::Connection" }

// ProviderGitHubEnterpriseServer is the provider type for GHE hosts.
const ProviderGitHubEnterpriseServer = "GitHubEnterpriseServer"
