package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is an isolated workspace: a bleve-backed config, a root with
// text files, and no user config.
type testEnv struct {
	dir        string
	root       string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{"BACKEND", "ENGINE_URL", "DATA_DIR", "INDEX", "ROOT", "BATCH_SIZE", "MAX_RESULTS", "LOG_LEVEL", "TELEMETRY"} {
		// Setenv registers the restore; the variable must be absent, not empty.
		t.Setenv("FILESEARCH_"+key, "")
		require.NoError(t, os.Unsetenv("FILESEARCH_"+key))
	}
	t.Chdir(dir)

	root := filepath.Join(dir, "docs")
	writeTestFile(t, root, "a.txt", "Ciao mondo")
	writeTestFile(t, root, "notes/b.txt", "Il gatto dorme sul divano")
	writeTestFile(t, root, "notes/ignored.md", "Ciao mondo")

	cfg := strings.Join([]string{
		"engine:",
		"  backend: bleve",
		"  data_dir: " + filepath.Join(dir, "indexes"),
		"index:",
		"  name: files",
		"  root: " + root,
		"  batch_size: 1",
		"  lock_dir: " + filepath.Join(dir, "locks"),
		"query:",
		"  history_file: " + filepath.Join(dir, "history"),
		"telemetry:",
		"  path: " + filepath.Join(dir, "telemetry.db"),
		"logging:",
		"  file_path: " + filepath.Join(dir, "logs", "filesearch.log"),
		"",
	}, "\n")
	configPath := filepath.Join(dir, "test-config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))

	return &testEnv{dir: dir, root: root, configPath: configPath}
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// run executes the root command with args and stdin, returning stdout+stderr.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.Execute()
	return buf.String(), err
}
