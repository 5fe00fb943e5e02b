//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/kattouf/mise/internal/engine"
	"github.com/kattouf/mise/internal/install"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	Root       string // ceiling for discovery
	DataDir    string // installs/ and plugins/
	CacheDir   string // remote version cache
	GlobalFile string // per-user config layer
	ProjectDir string // a mock project directory
	Registry   *install.Local
	Engine     *engine.Engine
}

// setupTestEnv creates isolated temp directories and an engine backed by the
// on-disk registry, so nothing outside the test's temp dir is touched.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("plugin hooks are shell scripts")
	}

	root := t.TempDir()
	env := &testEnv{
		Root:       root,
		DataDir:    filepath.Join(root, "data"),
		CacheDir:   filepath.Join(root, "cache"),
		GlobalFile: filepath.Join(root, "config", "config.toml"),
		ProjectDir: filepath.Join(root, "work", "project"),
	}
	if err := os.MkdirAll(env.ProjectDir, 0755); err != nil {
		t.Fatalf("creating project dir: %v", err)
	}

	env.Registry = install.NewLocal(env.DataDir, env.CacheDir, 0, nil)
	env.Engine = engine.New(env.Registry, engine.Options{
		GlobalConfigFile: env.GlobalFile,
		Ceilings:         []string{root},
	}, nil)
	return env
}

// setupPlugin creates a script plugin for tool that lists versions and
// installs by writing a marker binary. Each install appends to a log so tests
// can count installs.
func setupPlugin(t *testing.T, env *testEnv, tool string, versions ...string) string {
	t.Helper()

	pluginDir := filepath.Join(env.DataDir, "plugins", tool)
	logPath := filepath.Join(env.Root, tool+"-installs.log")

	writeScript(t, filepath.Join(pluginDir, "bin", "list-all"),
		"#!/bin/sh\necho "+strings.Join(versions, " ")+"\n")
	writeScript(t, filepath.Join(pluginDir, "bin", "install"), `#!/bin/sh
set -e
mkdir -p "$MISE_INSTALL_PATH/bin"
printf '#!/bin/sh\necho %s %s\n' "$MISE_TOOL_NAME" "$MISE_TOOL_VERSION" > "$MISE_INSTALL_PATH/bin/$MISE_TOOL_NAME"
chmod +x "$MISE_INSTALL_PATH/bin/$MISE_TOOL_NAME"
echo "$MISE_TOOL_VERSION" >> "`+logPath+`"
`)
	return logPath
}

func writeScript(t *testing.T, path, content string) {
	t.Helper()
	writeFile(t, path, content)
	if err := os.Chmod(path, 0755); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// installLog returns the versions a plugin installed, in order.
func installLog(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Fields(string(data))
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s", path)
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file to not exist: %s", path)
	}
}

func assertFileEquals(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if string(data) != want {
		t.Errorf("%s:\ngot:  %q\nwant: %q", path, string(data), want)
	}
}
