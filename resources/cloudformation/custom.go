// Package cloudformation contains AWS::CloudFormation and custom resource types.
package cloudformation

// CustomResource is a Lambda-backed custom resource. Type must start with
// "Custom::"; Fields are passed to the provider as ResourceProperties.
type CustomResource struct {
	Type         string
	ServiceToken any
	Fields       map[string]any
}

func (c CustomResource) ResourceType() string {
	if c.Type == "" {
		return "AWS::CloudFormation::CustomResource"
	}
	return c.Type
}

// PropertyMap flattens ServiceToken and Fields into one property map.
func (c CustomResource) PropertyMap() map[string]any {
	props := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		props[k] = v
	}
	props["ServiceToken"] = c.ServiceToken
	return props
}
