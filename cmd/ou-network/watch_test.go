package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/ou-network-go/internal/config"
)

func TestOverlayEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("OU_NAME=acme\nAWS_REGION=us-east-1\n"), 0o644))

	process := map[string]string{"OU_NAME": "old", "DEV_ACCOUNT_ID": "333333333333"}
	getenv, err := overlayEnv(path, func(key string) string { return process[key] })
	require.NoError(t, err)

	assert.Equal(t, "acme", getenv("OU_NAME"))
	assert.Equal(t, "us-east-1", getenv("AWS_REGION"))
	assert.Equal(t, "333333333333", getenv("DEV_ACCOUNT_ID"))
	assert.Empty(t, getenv("PROD_ACCOUNT_ID"))
}

func TestOverlayEnv_MissingFile(t *testing.T) {
	getenv, err := overlayEnv(filepath.Join(t.TempDir(), ".env"), func(key string) string { return "process" })
	require.NoError(t, err)
	assert.Equal(t, "process", getenv("OU_NAME"))
}

func TestWatchedFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	cert := filepath.Join(dir, "certs", "ghe.pem")

	files := watchedFiles(envFile, func(key string) string {
		if key == config.EnvGitHubTLSCertFile {
			return cert
		}
		return ""
	})
	assert.Equal(t, []string{envFile, cert}, files)

	assert.Equal(t, []string{envFile}, watchedFiles(envFile, func(string) string { return "" }))
}

func TestIsRelevant(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	files := []string{envFile}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "write", event: fsnotify.Event{Name: envFile, Op: fsnotify.Write}, want: true},
		{name: "create", event: fsnotify.Event{Name: envFile, Op: fsnotify.Create}, want: true},
		{name: "rename", event: fsnotify.Event{Name: envFile, Op: fsnotify.Rename}, want: true},
		{name: "chmod", event: fsnotify.Event{Name: envFile, Op: fsnotify.Chmod}, want: false},
		{name: "other file", event: fsnotify.Event{Name: filepath.Join(dir, "main.go"), Op: fsnotify.Write}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRelevant(tt.event, files))
		})
	}
}

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&rootOptions{})

	flag := cmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "500ms", flag.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("format"))
}
