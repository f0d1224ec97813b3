package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/config"
)

func testConfig() *config.Pipeline {
	return &config.Pipeline{
		Region:               "us-west-2",
		SharedAccountID:      "111111111111",
		ProdAccountID:        "222222222222",
		DevAccountID:         "333333333333",
		CredentialsAccountID: "444444444444",
		Repository:           "platform/iam-permissions-pipeline",
		Branch:               "main",
	}
}

func templates(t *testing.T) map[string]*ounet.Template {
	t.Helper()
	a, err := NewApp(testConfig())
	require.NoError(t, err)
	tmpls, err := a.Templates()
	require.NoError(t, err)
	return tmpls
}

// toMap normalizes a resource definition to plain JSON values.
func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestNewApp_Stacks(t *testing.T) {
	a, err := NewApp(testConfig())
	require.NoError(t, err)

	var names []string
	for _, st := range a.Stacks() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{StackName, "dev-IamPermissionsStack", "prod-IamPermissionsStack"}, names)

	st, ok := a.Stack(StackName)
	require.True(t, ok)
	assert.Equal(t, "111111111111", st.Env.Account)

	dev, ok := a.Stack("dev-IamPermissionsStack")
	require.True(t, ok)
	assert.Equal(t, "333333333333", dev.Env.Account)
	assert.Equal(t, "us-west-2", dev.Env.Region)
}

func TestIamPermissionsStack(t *testing.T) {
	tmpl := templates(t)["prod-IamPermissionsStack"]
	require.NotNil(t, tmpl)

	role, ok := tmpl.Resources["ReadOnlyIamRole"]
	require.True(t, ok)
	assert.Equal(t, "AWS::IAM::Role", role.Type)

	props := toMap(t, role.Properties)
	assert.Equal(t, "read-only-iam-role-prod", props["RoleName"])
	assert.Equal(t, "Provides read only access to resources", props["Description"])
	assert.Equal(t, []any{map[string]any{"Fn::Sub": "arn:${AWS::Partition}:iam::aws:policy/ReadOnlyAccess"}}, props["ManagedPolicyArns"])

	statement := props["AssumeRolePolicyDocument"].(map[string]any)["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, "sts:AssumeRole", statement["Action"])
	assert.Equal(t, map[string]any{"AWS": map[string]any{"Fn::Sub": "arn:${AWS::Partition}:iam::444444444444:root"}}, statement["Principal"])
}

func TestPipelineStack_Resources(t *testing.T) {
	tmpl := templates(t)[StackName]
	require.NotNil(t, tmpl)

	types := map[string]string{}
	for name, r := range tmpl.Resources {
		types[name] = r.Type
	}
	assert.Equal(t, map[string]string{
		"ArtifactsBucketEncryptionKey": "AWS::KMS::Key",
		"ArtifactsBucket":              "AWS::S3::Bucket",
		"BuildProjectRole":             "AWS::IAM::Role",
		"BuildProject":                 "AWS::CodeBuild::Project",
		"PipelineRole":                 "AWS::IAM::Role",
		"Pipeline":                     "AWS::CodePipeline::Pipeline",
	}, types)

	assert.Equal(t, "Retain", tmpl.Resources["ArtifactsBucket"].DeletionPolicy)
	bucket := toMap(t, tmpl.Resources["ArtifactsBucket"].Properties)
	block := bucket["PublicAccessBlockConfiguration"].(map[string]any)
	assert.Equal(t, true, block["BlockPublicPolicy"])

	project := toMap(t, tmpl.Resources["BuildProject"].Properties)
	env := project["Environment"].(map[string]any)
	vars := map[string]any{}
	for _, v := range env["EnvironmentVariables"].([]any) {
		m := v.(map[string]any)
		assert.Equal(t, "PLAINTEXT", m["Type"])
		vars[m["Name"].(string)] = m["Value"]
	}
	assert.Equal(t, map[string]any{
		config.EnvSharedAccountID:      "111111111111",
		config.EnvDevAccountID:         "333333333333",
		config.EnvProdAccountID:        "222222222222",
		config.EnvCredentialsAccountID: "444444444444",
		config.EnvGitHubRepository:     "platform/iam-permissions-pipeline",
		config.EnvGitHubBranch:         "main",
	}, vars)

	// The build reads the source through the connection.
	role := toMap(t, tmpl.Resources["BuildProjectRole"].Properties)
	doc := role["Policies"].([]any)[0].(map[string]any)["PolicyDocument"].(map[string]any)
	var useConnection map[string]any
	for _, stmt := range doc["Statement"].([]any) {
		m := stmt.(map[string]any)
		if actions, ok := m["Action"].([]any); ok && len(actions) == 1 && actions[0] == "codestar-connections:UseConnection" {
			useConnection = m
		}
	}
	require.NotNil(t, useConnection)
	assert.Equal(t, map[string]any{"Fn::ImportValue": "gheConnectionArn"}, useConnection["Resource"])
}

func TestBuildEnvironment_SatisfiesLoadPipeline(t *testing.T) {
	env := map[string]string{}
	for _, v := range buildEnvironment(testConfig()) {
		env[v.Name] = v.Value.(string)
	}
	cfg, err := config.LoadPipeline(func(key string) string { return env[key] })
	require.NoError(t, err)

	want := testConfig()
	want.Region = config.DefaultRegion
	assert.Equal(t, want, cfg)
}

func TestPipelineStack_Stages(t *testing.T) {
	tmpl := templates(t)[StackName]
	props := toMap(t, tmpl.Resources["Pipeline"].Properties)

	assert.Equal(t, PipelineName, props["Name"])
	assert.Equal(t, "V2", props["PipelineType"])

	stages := props["Stages"].([]any)
	var names []string
	for _, s := range stages {
		names = append(names, s.(map[string]any)["Name"].(string))
	}
	assert.Equal(t, []string{"Source", "Build", "dev", "prod"}, names)

	source := stages[0].(map[string]any)["Actions"].([]any)[0].(map[string]any)
	cfg := source["Configuration"].(map[string]any)
	assert.Equal(t, map[string]any{"Fn::ImportValue": "gheConnectionArn"}, cfg["ConnectionArn"])
	assert.Equal(t, "platform/iam-permissions-pipeline", cfg["FullRepositoryId"])
	assert.Equal(t, "main", cfg["BranchName"])

	dev := stages[2].(map[string]any)["Actions"].([]any)
	require.Len(t, dev, 2)
	prepare := dev[0].(map[string]any)
	execute := dev[1].(map[string]any)
	assert.Equal(t, "CHANGE_SET_REPLACE", prepare["Configuration"].(map[string]any)["ActionMode"])
	assert.Equal(t, "SynthOutput::dev-IamPermissionsStack.template.json", prepare["Configuration"].(map[string]any)["TemplatePath"])
	assert.Equal(t, "CHANGE_SET_EXECUTE", execute["Configuration"].(map[string]any)["ActionMode"])
	assert.Equal(t, map[string]any{
		"Fn::Sub": "arn:${AWS::Partition}:iam::333333333333:role/cdk-hnb659fds-deploy-role-333333333333-us-west-2",
	}, prepare["RoleArn"])
	assert.EqualValues(t, 1, prepare["RunOrder"])
	assert.EqualValues(t, 2, execute["RunOrder"])
}

func TestPipelineStack_KeyPolicyGrantsStages(t *testing.T) {
	tmpl := templates(t)[StackName]
	props := toMap(t, tmpl.Resources["ArtifactsBucketEncryptionKey"].Properties)

	statements := props["KeyPolicy"].(map[string]any)["Statement"].([]any)
	require.Len(t, statements, 2)
	stagePrincipal := statements[1].(map[string]any)["Principal"].(map[string]any)["AWS"].([]any)
	assert.Len(t, stagePrincipal, 2)
	assert.Equal(t, true, props["EnableKeyRotation"])
}

func TestBuildSpec(t *testing.T) {
	spec, err := BuildSpec()
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(spec), &parsed))
	assert.Equal(t, "0.2", parsed["version"])

	build := parsed["phases"].(map[string]any)["build"].(map[string]any)
	assert.Equal(t, []any{"go run ./cmd/iam-permissions-pipeline synth -o cdk.out"}, build["commands"])
	assert.Equal(t, "cdk.out", parsed["artifacts"].(map[string]any)["base-directory"])
}

func TestRoleArns(t *testing.T) {
	assert.Equal(t,
		"arn:${AWS::Partition}:iam::222222222222:role/cdk-hnb659fds-cfn-exec-role-222222222222-eu-west-1",
		ExecutionRoleArn("222222222222", "eu-west-1").String)
	assert.Equal(t, "read-only-iam-role-dev", ReadOnlyRoleName("dev"))
}
