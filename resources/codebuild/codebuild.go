// Package codebuild contains AWS::CodeBuild CloudFormation resource types.
package codebuild

// Project is AWS::CodeBuild::Project.
type Project struct {
	Name          any
	ServiceRole   any
	EncryptionKey any
	Source        Source
	Artifacts     Artifacts
	Environment   Environment
}

func (Project) ResourceType() string { return "AWS::CodeBuild::Project" }

// Source describes where the build reads its input.
type Source struct {
	Type      string
	BuildSpec string
}

// Artifacts describes the build output.
type Artifacts struct {
	Type string
}

// Environment describes the build container.
type Environment struct {
	Type                 string
	ComputeType          string
	Image                string
	EnvironmentVariables []EnvironmentVariable
}

// EnvironmentVariable is set in the build container.
type EnvironmentVariable struct {
	Name  string
	Value any
	// Type is PLAINTEXT, PARAMETER_STORE or SECRETS_MANAGER.
	Type string
}
