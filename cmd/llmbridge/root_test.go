package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmbridge/llmbridge/proxy"
)

func TestBuildConfigDefaults(t *testing.T) {
	cmder := &serveCommander{}

	cfg, err := cmder.buildConfig()
	require.NoError(t, err)

	assert.Equal(t, proxy.DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, proxy.DefaultUpstreamURL, cfg.UpstreamURL)
}

func TestBuildConfigFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmbridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream = "http://file:1/v1"
model = "file-model"
`), 0o644))
	t.Setenv("OPENAI_MODEL", "env-model")

	cmder := &serveCommander{
		configPath: path,
		model:      "flag-model",
		listenAddr: ":9999",
	}

	cfg, err := cmder.buildConfig()
	require.NoError(t, err)

	// Flags beat env beats file.
	assert.Equal(t, "flag-model", cfg.Model)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "http://file:1/v1", cfg.UpstreamURL)
}

func TestBuildConfigBadFile(t *testing.T) {
	cmder := &serveCommander{configPath: filepath.Join(t.TempDir(), "missing.toml")}

	_, err := cmder.buildConfig()
	assert.Error(t, err)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"config", "listen", "upstream", "api-key", "model", "static", "debug"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}
