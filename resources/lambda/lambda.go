// Package lambda contains AWS::Lambda CloudFormation resource types.
package lambda

// Function is AWS::Lambda::Function.
type Function struct {
	FunctionName any
	Description  string
	Handler      string
	Runtime      string
	Role         any
	Timeout      int
	Code         Code
}

func (Function) ResourceType() string { return "AWS::Lambda::Function" }

// Code holds the function source. Only inline ZipFile code is used here.
type Code struct {
	ZipFile string
}
