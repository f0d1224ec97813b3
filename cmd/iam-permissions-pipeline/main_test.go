package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
)

func pipelineEnv(key string) string {
	return map[string]string{
		config.EnvSharedAccountID:      "111111111111",
		config.EnvProdAccountID:        "222222222222",
		config.EnvDevAccountID:         "333333333333",
		config.EnvCredentialsAccountID: "444444444444",
	}[key]
}

func run(t *testing.T, getenv config.Getenv, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(getenv)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	envFile := filepath.Join(t.TempDir(), "empty.env")
	require.NoError(t, os.WriteFile(envFile, nil, 0o644))
	cmd.SetArgs(append(args, "--env-file", envFile))
	err := cmd.Execute()
	return out.String(), err
}

func TestSynth(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, pipelineEnv, "synth", "-o", dir)
	require.NoError(t, err)

	manifest, err := app.ReadManifest(dir)
	require.NoError(t, err)
	require.Len(t, manifest.Stacks, 3)
	assert.Equal(t, "IamPermissionsPipelineStack", manifest.Stacks[0].Name)

	for _, s := range manifest.Stacks {
		_, err := os.Stat(filepath.Join(dir, s.TemplateFile))
		assert.NoError(t, err, s.Name)
	}
}

func TestSynth_JSONResult(t *testing.T) {
	out, err := run(t, pipelineEnv, "synth", "-o", t.TempDir(), "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, "dev-IamPermissionsStack")
}

func TestSynth_MissingSettings(t *testing.T) {
	_, err := run(t, func(string) string { return "" }, "synth", "-o", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvCredentialsAccountID)
}

func TestList(t *testing.T) {
	out, err := run(t, pipelineEnv, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "IamPermissionsPipelineStack")
	assert.Contains(t, out, "prod-IamPermissionsStack")
}

func TestVersion(t *testing.T) {
	out, err := run(t, pipelineEnv, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "iam-permissions-pipeline ")
}
