// Package intrinsics provides the CloudFormation intrinsic functions used by the
// OU network stacks.
//
// The core types are re-exported from cloudformation-schema-go:
//
//	Ref{LogicalName: "Vpc"} → {"Ref": "Vpc"}
//	Sub{String: "arn:${AWS::Partition}:ec2:${AWS::Region}:${AWS::AccountId}:*"}
//	ImportValue{ExportName: "gheConnectionArn"} → {"Fn::ImportValue": "gheConnectionArn"}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_PARTITION, AWS_STACK_NAME
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// SubWithMap is Fn::Sub with a variable map.
	SubWithMap = intrinsics.SubWithMap

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// Split represents a CloudFormation Fn::Split intrinsic function.
	Split = intrinsics.Split

	// GetAZs represents a CloudFormation Fn::GetAZs intrinsic function.
	GetAZs = intrinsics.GetAZs

	// ImportValue represents a CloudFormation Fn::ImportValue intrinsic function.
	ImportValue = intrinsics.ImportValue

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// AvailabilityZone selects the index-th availability zone of the stack's region.
func AvailabilityZone(index int) Select {
	return Select{Index: index, List: GetAZs{Region: ""}}
}

// NameTag returns the conventional "Name" tag.
func NameTag(value any) Tag {
	return Tag{Key: "Name", Value: value}
}
