package pipeline

import (
	"fmt"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/exports"
	"github.com/lex00/ou-network-go/internal/network"
	"github.com/lex00/ou-network-go/internal/stack"
	"github.com/lex00/ou-network-go/intrinsics"
	"github.com/lex00/ou-network-go/resources/codebuild"
	"github.com/lex00/ou-network-go/resources/codepipeline"
	"github.com/lex00/ou-network-go/resources/iam"
	"github.com/lex00/ou-network-go/resources/kms"
	"github.com/lex00/ou-network-go/resources/s3"
)

const (
	// StackName is the name of the pipeline stack.
	StackName = "IamPermissionsPipelineStack"
	// PipelineName is the CodePipeline name.
	PipelineName = "iam-permissions-pipeline"

	sourceArtifact = "Source"
	synthArtifact  = "SynthOutput"

	// bootstrapQualifier is the default qualifier of bootstrapped accounts.
	bootstrapQualifier = "hnb659fds"
)

// Stages returns the deployment stages of cfg in deployment order.
func Stages(cfg *config.Pipeline) []Stage {
	return []Stage{
		{Name: "dev", Account: cfg.DevAccountID, Region: cfg.Region},
		{Name: "prod", Account: cfg.ProdAccountID, Region: cfg.Region},
	}
}

// DeployRoleArn returns the bootstrap role the pipeline assumes in account.
func DeployRoleArn(account, region string) intrinsics.Sub {
	return intrinsics.Sub{String: fmt.Sprintf("arn:${AWS::Partition}:iam::%s:role/cdk-%s-deploy-role-%s-%s", account, bootstrapQualifier, account, region)}
}

// ExecutionRoleArn returns the role CloudFormation uses in account.
func ExecutionRoleArn(account, region string) intrinsics.Sub {
	return intrinsics.Sub{String: fmt.Sprintf("arn:${AWS::Partition}:iam::%s:role/cdk-%s-cfn-exec-role-%s-%s", account, bootstrapQualifier, account, region)}
}

// NewApp declares the pipeline stack and one IAM permissions stack per stage.
func NewApp(cfg *config.Pipeline) (*app.App, error) {
	a := app.New()
	stages := Stages(cfg)
	if err := PipelineStack(a, cfg, stages); err != nil {
		return nil, err
	}
	for _, stage := range stages {
		IamPermissionsStack(a, stage, cfg.CredentialsAccountID)
	}
	return a, nil
}

// PipelineStack declares the pipeline in the shared account. Artifacts are
// encrypted with a KMS key the stage accounts may use.
func PipelineStack(a *app.App, cfg *config.Pipeline, stages []Stage) error {
	buildSpec, err := BuildSpec()
	if err != nil {
		return err
	}
	st := a.NewStack(StackName, stack.Env{Account: cfg.SharedAccountID, Region: cfg.Region},
		"Pipeline deploying IAM permissions to the OU accounts")

	stagePrincipals := make(intrinsics.AWSPrincipal, 0, len(stages))
	deployRoles := make([]any, 0, len(stages))
	for _, s := range stages {
		stagePrincipals = append(stagePrincipals, intrinsics.Sub{String: "arn:${AWS::Partition}:iam::" + s.Account + ":root"})
		deployRoles = append(deployRoles, DeployRoleArn(s.Account, s.Region))
	}

	key := st.Add("ArtifactsBucketEncryptionKey", kms.Key{
		Description:       "Encrypts the artifacts of " + PipelineName,
		EnableKeyRotation: true,
		KeyPolicy: intrinsics.NewPolicyDocument(
			intrinsics.PolicyStatement{
				Effect:    "Allow",
				Principal: intrinsics.AccountRootPrincipal(cfg.SharedAccountID),
				Action:    "kms:*",
				Resource:  "*",
			},
			intrinsics.PolicyStatement{
				Effect:    "Allow",
				Principal: stagePrincipals,
				Action:    []any{"kms:Decrypt", "kms:DescribeKey"},
				Resource:  "*",
			},
		),
	}, stack.DeletionPolicy("Delete"))

	bucket := st.Add("ArtifactsBucket", s3.Bucket{
		BucketEncryption:               s3.KMSEncryption(key.GetAtt("Arn")),
		PublicAccessBlockConfiguration: s3.BlockAllPublicAccess,
	}, stack.DeletionPolicy("Retain"))

	artifactAccess := intrinsics.Allow(
		[]any{"s3:GetObject*", "s3:GetBucket*", "s3:List*", "s3:PutObject", "s3:DeleteObject*", "kms:Decrypt", "kms:Encrypt", "kms:GenerateDataKey*", "kms:ReEncrypt*"},
		bucket.GetAtt("Arn"),
		intrinsics.Sub{String: "${" + bucket.Name() + ".Arn}/*"},
		key.GetAtt("Arn"),
	)

	connectionArn := exports.Import(network.GheConnectionExportName)
	buildRole := st.Add("BuildProjectRole", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleStatement(intrinsics.ServicePrincipal{"codebuild.amazonaws.com"}),
		),
		Policies: []iam.Policy{{
			PolicyName: "Synth",
			PolicyDocument: intrinsics.NewPolicyDocument(
				artifactAccess,
				intrinsics.Allow(
					[]any{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
					intrinsics.Sub{String: "arn:${AWS::Partition}:logs:${AWS::Region}:${AWS::AccountId}:log-group:/aws/codebuild/*"},
				),
				intrinsics.Allow([]any{"codestar-connections:UseConnection"}, connectionArn),
			),
		}},
	})

	project := st.Add("BuildProject", codebuild.Project{
		Name:          PipelineName + "-synth",
		ServiceRole:   buildRole.GetAtt("Arn"),
		EncryptionKey: key.GetAtt("Arn"),
		Source:        codebuild.Source{Type: "CODEPIPELINE", BuildSpec: buildSpec},
		Artifacts:     codebuild.Artifacts{Type: "CODEPIPELINE"},
		Environment: codebuild.Environment{
			Type:                 "LINUX_CONTAINER",
			ComputeType:          "BUILD_GENERAL1_SMALL",
			Image:                "aws/codebuild/standard:7.0",
			EnvironmentVariables: buildEnvironment(cfg),
		},
	})

	pipelineRole := st.Add("PipelineRole", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleStatement(intrinsics.ServicePrincipal{"codepipeline.amazonaws.com"}),
		),
		Policies: []iam.Policy{{
			PolicyName: "Pipeline",
			PolicyDocument: intrinsics.NewPolicyDocument(
				artifactAccess,
				intrinsics.Allow([]any{"codestar-connections:UseConnection"}, connectionArn),
				intrinsics.Allow([]any{"codebuild:StartBuild", "codebuild:BatchGetBuilds"}, project.GetAtt("Arn")),
				intrinsics.Allow([]any{"sts:AssumeRole"}, deployRoles...),
			),
		}},
	})

	pipelineStages := []codepipeline.Stage{
		{
			Name: "Source",
			Actions: []codepipeline.Action{{
				Name:         "GitHubEnterprise",
				ActionTypeId: codepipeline.ActionTypeId{Category: "Source", Owner: "AWS", Provider: "CodeStarSourceConnection", Version: "1"},
				Configuration: map[string]any{
					"ConnectionArn":        connectionArn,
					"FullRepositoryId":     cfg.Repository,
					"BranchName":           cfg.Branch,
					"OutputArtifactFormat": "CODEBUILD_CLONE_REF",
				},
				OutputArtifacts: []codepipeline.Artifact{{Name: sourceArtifact}},
			}},
		},
		{
			Name: "Build",
			Actions: []codepipeline.Action{{
				Name:            "Synth",
				ActionTypeId:    codepipeline.ActionTypeId{Category: "Build", Owner: "AWS", Provider: "CodeBuild", Version: "1"},
				Configuration:   map[string]any{"ProjectName": project.Ref()},
				InputArtifacts:  []codepipeline.Artifact{{Name: sourceArtifact}},
				OutputArtifacts: []codepipeline.Artifact{{Name: synthArtifact}},
			}},
		},
	}
	for _, s := range stages {
		pipelineStages = append(pipelineStages, deployStage(s))
	}

	st.Add("Pipeline", codepipeline.Pipeline{
		Name:                     PipelineName,
		RoleArn:                  pipelineRole.GetAtt("Arn"),
		PipelineType:             "V2",
		RestartExecutionOnUpdate: true,
		ArtifactStore: codepipeline.ArtifactStore{
			Type:          "S3",
			Location:      bucket.Ref(),
			EncryptionKey: &codepipeline.EncryptionKey{Id: key.GetAtt("Arn"), Type: "KMS"},
		},
		Stages: pipelineStages,
	})
	return nil
}

// buildEnvironment passes the settings the synth command reads to the build container.
func buildEnvironment(cfg *config.Pipeline) []codebuild.EnvironmentVariable {
	vars := []struct{ name, value string }{
		{config.EnvSharedAccountID, cfg.SharedAccountID},
		{config.EnvDevAccountID, cfg.DevAccountID},
		{config.EnvProdAccountID, cfg.ProdAccountID},
		{config.EnvCredentialsAccountID, cfg.CredentialsAccountID},
		{config.EnvGitHubRepository, cfg.Repository},
		{config.EnvGitHubBranch, cfg.Branch},
	}
	env := make([]codebuild.EnvironmentVariable, 0, len(vars))
	for _, v := range vars {
		env = append(env, codebuild.EnvironmentVariable{Name: v.name, Value: v.value, Type: "PLAINTEXT"})
	}
	return env
}

// deployStage replaces and executes a change set of the stage's stack using
// the bootstrap roles of the stage account.
func deployStage(s Stage) codepipeline.Stage {
	deployRole := DeployRoleArn(s.Account, s.Region)
	changeSet := "PipelineChange"
	actionType := codepipeline.ActionTypeId{Category: "Deploy", Owner: "AWS", Provider: "CloudFormation", Version: "1"}

	return codepipeline.Stage{
		Name: s.Name,
		Actions: []codepipeline.Action{
			{
				Name:         "PrepareChanges",
				ActionTypeId: actionType,
				Configuration: map[string]any{
					"ActionMode":    "CHANGE_SET_REPLACE",
					"StackName":     s.StackName(),
					"ChangeSetName": changeSet,
					"TemplatePath":  fmt.Sprintf("%s::%s.template.json", synthArtifact, s.StackName()),
					"Capabilities":  "CAPABILITY_NAMED_IAM,CAPABILITY_AUTO_EXPAND",
					"RoleArn":       ExecutionRoleArn(s.Account, s.Region),
				},
				InputArtifacts: []codepipeline.Artifact{{Name: synthArtifact}},
				RoleArn:        deployRole,
				Region:         s.Region,
				RunOrder:       1,
			},
			{
				Name:         "ExecuteChanges",
				ActionTypeId: actionType,
				Configuration: map[string]any{
					"ActionMode":    "CHANGE_SET_EXECUTE",
					"StackName":     s.StackName(),
					"ChangeSetName": changeSet,
				},
				RoleArn:  deployRole,
				Region:   s.Region,
				RunOrder: 2,
			},
		},
	}
}
