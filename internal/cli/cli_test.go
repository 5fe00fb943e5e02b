package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/kattouf/mise/internal/config"
	"github.com/kattouf/mise/internal/layer"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// sandbox isolates settings and data under a temp dir and returns a project
// directory inside it.
type sandbox struct {
	root    string
	data    string
	global  string
	project string
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	root := t.TempDir()
	s := &sandbox{
		root:    root,
		data:    filepath.Join(root, "data", "mise"),
		global:  filepath.Join(root, "cfg", "mise", "config.toml"),
		project: filepath.Join(root, "proj"),
	}
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	for _, k := range config.Keys() {
		t.Setenv("MISE_"+strings.ToUpper(k), "")
		os.Unsetenv("MISE_" + strings.ToUpper(k))
	}
	t.Setenv("MISE_CEILING_PATHS", root)
	viper.Reset()
	t.Cleanup(viper.Reset)

	color.NoColor = true
	if err := os.MkdirAll(s.project, 0o755); err != nil {
		t.Fatal(err)
	}
	return s
}

// installed fakes an installed version and an empty plugin so the registry
// never runs a backend.
func (s *sandbox) installed(t *testing.T, tool string, versions ...string) {
	t.Helper()
	for _, v := range versions {
		if err := os.MkdirAll(filepath.Join(s.data, "installs", tool, v), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.data, "plugins", tool), 0o755); err != nil {
		t.Fatal(err)
	}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command in dir and returns stdout and stderr.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(dir)
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestUseWritesProjectFile(t *testing.T) {
	s := newSandbox(t)
	s.installed(t, "tiny", "1.2.3", "1.10.0", "2.0.0")

	out, _, err := run(t, s.project, "use", "tiny@1")
	if err != nil {
		t.Fatalf("use error = %v", err)
	}
	if !strings.Contains(out, "tiny@1.10.0") {
		t.Errorf("output = %q, want it to mention tiny@1.10.0", out)
	}

	got := readFile(t, filepath.Join(s.project, "mise.toml"))
	if want := "[tools]\ntiny = \"1.10.0\"\n"; got != want {
		t.Errorf("mise.toml = %q, want %q", got, want)
	}
}

func TestUseTargets(t *testing.T) {
	tests := []struct {
		name string
		args []string
		file func(s *sandbox) string
	}{
		{"global", []string{"use", "-g", "tiny@2.0.0"}, func(s *sandbox) string { return s.global }},
		{"local", []string{"use", "--local", "tiny@2.0.0"}, func(s *sandbox) string { return filepath.Join(s.project, "mise.local.toml") }},
		{"env flag", []string{"-E", "ci", "use", "tiny@2.0.0"}, func(s *sandbox) string { return filepath.Join(s.project, "mise.ci.toml") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSandbox(t)
			s.installed(t, "tiny", "2.0.0")

			if _, _, err := run(t, s.project, tt.args...); err != nil {
				t.Fatalf("use error = %v", err)
			}
			if got := readFile(t, tt.file(s)); !strings.Contains(got, `tiny = "2.0.0"`) {
				t.Errorf("%s = %q", tt.file(s), got)
			}
			if _, err := os.Stat(filepath.Join(s.project, "mise.toml")); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("mise.toml should not be written, stat error = %v", err)
			}
		})
	}
}

func TestUseGlobalAndLocalConflict(t *testing.T) {
	s := newSandbox(t)
	if _, _, err := run(t, s.project, "use", "-g", "-l", "tiny"); err == nil {
		t.Fatal("expected error for --global with --local")
	}
}

func TestUseRemove(t *testing.T) {
	s := newSandbox(t)
	s.installed(t, "tiny", "1.2.3")
	path := filepath.Join(s.project, "mise.toml")
	if err := os.WriteFile(path, []byte("[tools]\ntiny = \"1.2.3\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, s.project, "use", "--rm", "tiny")
	if err != nil {
		t.Fatalf("use --rm error = %v", err)
	}
	if !strings.Contains(out, "file deleted") {
		t.Errorf("output = %q, want file deleted", out)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("mise.toml still exists, stat error = %v", err)
	}

	out, _, err = run(t, s.project, "use", "--rm", "tiny")
	if err != nil {
		t.Fatalf("second use --rm error = %v", err)
	}
	if !strings.Contains(out, "nothing to remove") {
		t.Errorf("output = %q, want nothing to remove", out)
	}
}

func TestUseMalformedTarget(t *testing.T) {
	s := newSandbox(t)
	s.installed(t, "tiny", "1.2.3")
	path := filepath.Join(s.project, "mise.toml")
	bad := "[tools\ntiny = 1\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := run(t, s.project, "use", "tiny@1.2.3")
	if !errors.Is(err, layer.ErrParse) {
		t.Fatalf("use error = %v, want ErrParse", err)
	}
	if got := readFile(t, path); got != bad {
		t.Errorf("malformed file was modified: %q", got)
	}
}

func TestCurrent(t *testing.T) {
	s := newSandbox(t)
	s.installed(t, "tiny", "1.2.3", "2.0.0")
	s.installed(t, "other", "0.1.0")
	if err := os.MkdirAll(filepath.Dir(s.global), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.global, []byte("[tools]\ntiny = \"1\"\nother = \"0.1.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.project, "mise.toml"), []byte("[tools]\ntiny = \"2\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, s.project, "current")
	if err != nil {
		t.Fatalf("current error = %v", err)
	}
	if want := "tiny 2.0.0\nother 0.1.0\n"; out != want {
		t.Errorf("current = %q, want %q", out, want)
	}

	out, _, err = run(t, s.project, "current", "other")
	if err != nil {
		t.Fatalf("current other error = %v", err)
	}
	if want := "other 0.1.0\n"; out != want {
		t.Errorf("current other = %q, want %q", out, want)
	}
}

func TestCurrentNotInstalled(t *testing.T) {
	s := newSandbox(t)
	if err := os.WriteFile(filepath.Join(s.project, "mise.toml"), []byte("[tools]\nghost = \"9\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errOut, err := run(t, s.project, "current")
	if err != nil {
		t.Fatalf("current error = %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
	if !strings.Contains(errOut, "ghost@9") || !strings.Contains(errOut, "not installed") {
		t.Errorf("stderr = %q, want a not installed warning", errOut)
	}
}

func TestCurrentStructuredOutput(t *testing.T) {
	s := newSandbox(t)
	s.installed(t, "tiny", "1.2.3")
	if err := os.WriteFile(filepath.Join(s.project, "mise.toml"), []byte("[tools]\ntiny = [\"1.2\", \"latest\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, s.project, "current", "--json")
	if err != nil {
		t.Fatalf("current --json error = %v", err)
	}
	var entries []currentEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decoding JSON %q: %v", out, err)
	}
	if len(entries) != 1 || entries[0].Version != "1.2.3" || !entries[0].Installed || entries[0].Scope != "project" {
		t.Errorf("entries = %+v", entries)
	}
	if got := strings.Join(entries[0].Requested, ","); got != "1.2,latest" {
		t.Errorf("Requested = %q, want 1.2,latest", got)
	}

	out, _, err = run(t, s.project, "current", "--yaml")
	if err != nil {
		t.Fatalf("current --yaml error = %v", err)
	}
	entries = nil
	if err := yaml.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decoding YAML %q: %v", out, err)
	}
	if len(entries) != 1 || entries[0].Tool != "tiny" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestConfigLs(t *testing.T) {
	s := newSandbox(t)
	if err := os.WriteFile(filepath.Join(s.project, "mise.toml"), []byte("[tools]\ntiny = \"1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, s.project, "config", "ls", "--no-header")
	if err != nil {
		t.Fatalf("config ls error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("config ls = %q, want 3 layers", out)
	}
	for i, prefix := range []string{"global\t", "project\t", "local\t"} {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
	if !strings.HasSuffix(lines[1], "\ttiny") {
		t.Errorf("project line = %q, want tools tiny", lines[1])
	}
	if !strings.HasSuffix(lines[0], "(missing)") {
		t.Errorf("global line = %q, want (missing)", lines[0])
	}
}

func TestSettingsSetGet(t *testing.T) {
	s := newSandbox(t)

	if _, _, err := run(t, s.project, "settings", "set", "keep_empty_config", "true"); err != nil {
		t.Fatalf("settings set error = %v", err)
	}
	viper.Reset()
	out, _, err := run(t, s.project, "settings", "get", "keep_empty_config")
	if err != nil {
		t.Fatalf("settings get error = %v", err)
	}
	if strings.TrimSpace(out) != "true" {
		t.Errorf("settings get = %q, want true", out)
	}

	if _, _, err := run(t, s.project, "settings", "get", "nope"); !errors.Is(err, config.ErrUnknownKey) {
		t.Errorf("settings get nope error = %v, want ErrUnknownKey", err)
	}
	if _, _, err := run(t, s.project, "settings", "set", "stop_at_vcs", "maybe"); err == nil {
		t.Error("settings set with a bad bool should fail")
	}
}

func TestDoctorReportsBrokenLayer(t *testing.T) {
	s := newSandbox(t)
	if err := os.WriteFile(filepath.Join(s.project, "mise.toml"), []byte("[tools\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, s.project, "doctor", "--check-layers")
	if !errors.Is(err, errDoctor) {
		t.Fatalf("doctor error = %v, want errDoctor", err)
	}
	if !strings.Contains(out, "▸ Config layers") {
		t.Errorf("doctor output = %q, want a Config layers heading", out)
	}
	if !strings.Contains(out, "[FAIL] project") {
		t.Errorf("doctor output = %q, want a project failure", out)
	}
}

func TestVersion(t *testing.T) {
	s := newSandbox(t)
	buildVersion, buildCommit, buildDate = "1.2.3", "abc", "today"

	out, _, err := run(t, s.project, "version", "--short")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if out != "1.2.3\n" {
		t.Errorf("version --short = %q", out)
	}

	out, _, err = run(t, s.project, "version", "--json")
	if err != nil {
		t.Fatalf("version --json error = %v", err)
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if info.Version != "1.2.3" || info.ProjectFile != "mise.toml" || info.LocalFile != "mise.local.toml" {
		t.Errorf("version --json = %+v", info)
	}
	if info.DataDir != s.data || info.GlobalFile != s.global {
		t.Errorf("paths = %s, %s; want %s, %s", info.DataDir, info.GlobalFile, s.data, s.global)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 tools"},
		{1, "1 tool"},
		{1200, "1,200 tools"},
	}
	for _, tt := range tests {
		if got := Count(tt.n, "tool", "tools"); got != tt.want {
			t.Errorf("Count(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
