package discover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kattouf/mise/internal/branding"
)

// ErrInvalidEnv is returned for environment names that cannot name an
// overlay file.
var ErrInvalidEnv = errors.New("invalid environment name")

// ProjectPath returns the project layer path in dir.
func ProjectPath(dir string) string {
	return filepath.Join(dir, branding.ProjectFile())
}

// LocalPath returns the local layer path in dir.
func LocalPath(dir string) string {
	return filepath.Join(dir, branding.LocalFile())
}

// EnvPath returns the overlay path for the named environment in dir.
func EnvPath(dir, name string) string {
	return filepath.Join(dir, branding.EnvFile(name))
}

// GlobalPath returns the default per-user layer path:
// $XDG_CONFIG_HOME/<config_dir>/config.toml, falling back to ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, branding.ConfigDir(), "config.toml"), nil
}

// ValidateEnvName rejects names that are empty, contain path separators,
// traverse directories, or would collide with the local layer's file name.
func ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEnv)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, string(filepath.Separator)) {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidEnv, name)
	}
	if name == "." || name == ".." || strings.HasPrefix(name, "..") {
		return fmt.Errorf("%w: %q: path traversal not allowed", ErrInvalidEnv, name)
	}
	if name == "local" {
		return fmt.Errorf("%w: %q is reserved for %s", ErrInvalidEnv, name, branding.LocalFile())
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidEnv, name)
	}
	return nil
}

// FindVCSRoot walks up from dir to the nearest directory holding a .git
// entry. .git may be a directory or, for worktrees and submodules, a file.
// It returns "" when dir is not inside a repository.
func FindVCSRoot(dir string) string {
	current, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		if hasVCSMarker(current) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

func hasVCSMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
