package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leonardo4312/filesearch/configs"
)

func TestConfigInit_CreatesUserConfig(t *testing.T) {
	// Given: no user config
	env := newTestEnv(t)
	userPath := filepath.Join(env.dir, "xdg", "filesearch", "config.yaml")

	// When: running config init
	out, err := env.run(t, "", "config", "init")

	// Then: the template is written to the user config path
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration")
	data, err := os.ReadFile(userPath)
	require.NoError(t, err)
	assert.Equal(t, configs.ConfigTemplate, string(data))
}

func TestConfigInit_ExistingNeedsForce(t *testing.T) {
	env := newTestEnv(t)
	userPath := filepath.Join(env.dir, "xdg", "filesearch", "config.yaml")
	writeTestFile(t, filepath.Dir(userPath), "config.yaml", "version: 1\n")

	out, err := env.run(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration already exists")
	data, _ := os.ReadFile(userPath)
	assert.Equal(t, "version: 1\n", string(data))

	_, err = env.run(t, "", "config", "init", "--force")
	require.NoError(t, err)
	data, _ = os.ReadFile(userPath)
	assert.Equal(t, configs.ConfigTemplate, string(data))
}

func TestConfigInit_Project(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "config", "init", "--project")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(env.dir, ".filesearch.yaml"))
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: bleve")
	assert.Contains(t, out, "name: files")

	out, err = env.run(t, "", "config", "show", "--source", "defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: elasticsearch")
	assert.Contains(t, out, "batch_size: 500")

	out, err = env.run(t, "", "config", "show", "--json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
	assert.Contains(t, out, `"backend": "bleve"`)

	_, err = env.run(t, "", "config", "show", "--source", "nope")
	assert.Error(t, err)
}

func TestConfigTemplate_LoadsCleanly(t *testing.T) {
	env := newTestEnv(t)
	writeTestFile(t, env.dir, "template.yaml", configs.ConfigTemplate)

	cmd := NewRootCmd()
	buf := &strings.Builder{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--config", filepath.Join(env.dir, "template.yaml"), "config", "show"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "backend: elasticsearch")
	assert.Contains(t, buf.String(), "timeout: 30s")
}

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "config", "path")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.dir, "xdg", "filesearch", "config.yaml"), strings.TrimSpace(out))
}
