// Package codepipeline contains AWS::CodePipeline CloudFormation resource types.
package codepipeline

// Pipeline is AWS::CodePipeline::Pipeline.
type Pipeline struct {
	Name                     any
	RoleArn                  any
	PipelineType             string
	RestartExecutionOnUpdate bool
	ArtifactStore            ArtifactStore
	Stages                   []Stage
}

func (Pipeline) ResourceType() string { return "AWS::CodePipeline::Pipeline" }

// ArtifactStore is the S3 location holding artifacts between actions.
type ArtifactStore struct {
	Type          string
	Location      any
	EncryptionKey *EncryptionKey
}

// EncryptionKey is the KMS key encrypting the artifact store.
type EncryptionKey struct {
	Id   any
	Type string
}

// Stage is a named group of actions.
type Stage struct {
	Name    string
	Actions []Action
}

// Action is a single pipeline step.
type Action struct {
	Name            string
	ActionTypeId    ActionTypeId
	Configuration   map[string]any
	InputArtifacts  []Artifact
	OutputArtifacts []Artifact
	RoleArn         any
	Region          string
	RunOrder        int
}

// ActionTypeId identifies the action provider.
type ActionTypeId struct {
	Category string
	Owner    string
	Provider string
	Version  string
}

// Artifact names an action input or output.
type Artifact struct {
	Name string
}
