package config

import "strings"

// Pipeline is the configuration of the iam-permissions-pipeline app.
type Pipeline struct {
	Region               string
	SharedAccountID      string
	DevAccountID         string
	ProdAccountID        string
	CredentialsAccountID string
	Repository           string
	Branch               string
}

// LoadPipeline reads the pipeline configuration from getenv.
func LoadPipeline(getenv Getenv) (*Pipeline, error) {
	if absent := missing(getenv, RequiredPipelineParameters); len(absent) > 0 {
		return nil, requiredError(RequiredPipelineParameters, absent)
	}
	return &Pipeline{
		Region:               getOr(getenv, EnvAWSRegion, DefaultRegion),
		SharedAccountID:      strings.TrimSpace(getenv(EnvSharedAccountID)),
		DevAccountID:         strings.TrimSpace(getenv(EnvDevAccountID)),
		ProdAccountID:        strings.TrimSpace(getenv(EnvProdAccountID)),
		CredentialsAccountID: strings.TrimSpace(getenv(EnvCredentialsAccountID)),
		Repository:           getOr(getenv, EnvGitHubRepository, DefaultPipelineRepository),
		Branch:               getOr(getenv, EnvGitHubBranch, DefaultPipelineBranch),
	}, nil
}
