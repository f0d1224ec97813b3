// Package logs contains AWS::Logs CloudFormation resource types.
package logs

// LogGroup is AWS::Logs::LogGroup.
type LogGroup struct {
	LogGroupName    any
	RetentionInDays int
	KmsKeyId        any
}

func (LogGroup) ResourceType() string { return "AWS::Logs::LogGroup" }
