// Package kms contains AWS::KMS CloudFormation resource types.
package kms

// Key is AWS::KMS::Key.
type Key struct {
	Description       string
	EnableKeyRotation bool
	KeyPolicy         any
}

func (Key) ResourceType() string { return "AWS::KMS::Key" }
