// Package pipeline declares the IAM permissions pipeline: a CodePipeline in
// the shared account that deploys a read-only IAM role to each stage account.
package pipeline

import (
	"fmt"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/stack"
	"github.com/lex00/ou-network-go/intrinsics"
	"github.com/lex00/ou-network-go/resources/iam"
)

// Stage is one deployment target of the pipeline.
type Stage struct {
	Name    string
	Account string
	Region  string
}

// StackName returns the name of the stage's IAM permissions stack.
func (s Stage) StackName() string {
	return fmt.Sprintf("%s-IamPermissionsStack", s.Name)
}

// ReadOnlyRoleName returns the role name deployed to stage.
func ReadOnlyRoleName(stage string) string {
	return "read-only-iam-role-" + stage
}

// IamPermissionsStack declares the read-only role of stage, assumable from
// the credentials account.
func IamPermissionsStack(a *app.App, stage Stage, credentialsAccount string) *stack.Stack {
	st := a.NewStack(stage.StackName(), stack.Env{Account: stage.Account, Region: stage.Region},
		fmt.Sprintf("IAM permissions of the %s stage", stage.Name))

	st.Add("ReadOnlyIamRole", iam.Role{
		RoleName:    ReadOnlyRoleName(stage.Name),
		Description: "Provides read only access to resources",
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleStatement(intrinsics.AccountRootPrincipal(credentialsAccount)),
		),
		ManagedPolicyArns: []any{iam.AWSManagedPolicyArn("ReadOnlyAccess")},
	})
	return st
}
