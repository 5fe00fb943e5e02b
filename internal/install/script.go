package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kattouf/mise/internal/branding"
)

// ScriptBackend drives a plugin directory holding executable hooks:
//
//	bin/list-all   prints available versions separated by whitespace
//	bin/install    installs the version named by the environment
//
// The install hook receives <PREFIX>_TOOL_NAME, <PREFIX>_TOOL_VERSION and
// <PREFIX>_INSTALL_PATH.
type ScriptBackend struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// ListRemote runs bin/list-all. A plugin without the hook lists nothing.
func (s *ScriptBackend) ListRemote(ctx context.Context, tool string) ([]string, error) {
	if err := s.checkPlugin(tool); err != nil {
		return nil, err
	}
	hook := filepath.Join(s.Dir, "bin", "list-all")
	if _, err := os.Stat(hook); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, hook)
	cmd.Dir = s.Dir
	cmd.Env = s.env(tool, "", "")
	cmd.Stdout = &out
	cmd.Stderr = s.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w", hook, err)
	}
	return strings.Fields(out.String()), nil
}

// Install runs bin/install with dest as the install path.
func (s *ScriptBackend) Install(ctx context.Context, tool, version, dest string) error {
	if err := s.checkPlugin(tool); err != nil {
		return err
	}
	hook := filepath.Join(s.Dir, "bin", "install")
	if _, err := os.Stat(hook); err != nil {
		return fmt.Errorf("plugin %s has no install hook: %w", tool, err)
	}

	cmd := exec.CommandContext(ctx, hook)
	cmd.Dir = s.Dir
	cmd.Env = s.env(tool, version, dest)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("install hook for %s@%s exited with code %d", tool, version, exitErr.ExitCode())
		}
		return fmt.Errorf("running %s: %w", hook, err)
	}
	return nil
}

func (s *ScriptBackend) checkPlugin(tool string) error {
	info, err := os.Stat(s.Dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("no plugin for %s in %s", tool, s.Dir)
	}
	return nil
}

// env builds the hook environment on top of the current process's.
func (s *ScriptBackend) env(tool, version, dest string) []string {
	env := os.Environ()
	env = setEnv(env, branding.EnvVar("TOOL_NAME"), tool)
	if version != "" {
		env = setEnv(env, branding.EnvVar("TOOL_VERSION"), version)
	}
	if dest != "" {
		env = setEnv(env, branding.EnvVar("INSTALL_PATH"), dest)
	}
	return env
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
