package pipeline

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SynthOutputDir is where the build writes templates.
const SynthOutputDir = "cdk.out"

type buildSpec struct {
	Version   string                `yaml:"version"`
	Phases    map[string]buildPhase `yaml:"phases"`
	Artifacts buildArtifacts        `yaml:"artifacts"`
}

type buildPhase struct {
	RuntimeVersions map[string]string `yaml:"runtime-versions,omitempty"`
	Commands        []string          `yaml:"commands"`
}

type buildArtifacts struct {
	BaseDirectory string   `yaml:"base-directory"`
	Files         []string `yaml:"files"`
}

// BuildSpec returns the CodeBuild buildspec synthesizing the stage templates.
func BuildSpec() (string, error) {
	spec := buildSpec{
		Version: "0.2",
		Phases: map[string]buildPhase{
			"install": {
				RuntimeVersions: map[string]string{"golang": "1.24"},
				Commands:        []string{"go mod download"},
			},
			"build": {
				Commands: []string{
					"go run ./cmd/iam-permissions-pipeline synth -o " + SynthOutputDir,
				},
			},
		},
		Artifacts: buildArtifacts{
			BaseDirectory: SynthOutputDir,
			Files:         []string{"**/*"},
		},
	}
	data, err := yaml.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("rendering buildspec: %w", err)
	}
	return string(data), nil
}
