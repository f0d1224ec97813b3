// Package ram contains AWS::RAM CloudFormation resource types.
package ram

// ResourceShare is AWS::RAM::ResourceShare.
type ResourceShare struct {
	Name                    any
	AllowExternalPrincipals *bool
	Principals              []any
	ResourceArns            []any
}

func (ResourceShare) ResourceType() string { return "AWS::RAM::ResourceShare" }
