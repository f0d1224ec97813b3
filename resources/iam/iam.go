// Package iam contains AWS::IAM CloudFormation resource types.
package iam

// Role is AWS::IAM::Role.
type Role struct {
	RoleName                 any
	Description              string
	AssumeRolePolicyDocument any
	ManagedPolicyArns        []any
	Policies                 []Policy
}

func (Role) ResourceType() string { return "AWS::IAM::Role" }

// Policy is an inline policy attached to a Role.
type Policy struct {
	PolicyName     string
	PolicyDocument any
}

// AWSManagedPolicyArn returns the partition-aware ARN of an AWS managed policy.
func AWSManagedPolicyArn(name string) any {
	return map[string]any{
		"Fn::Sub": "arn:${AWS::Partition}:iam::aws:policy/" + name,
	}
}
