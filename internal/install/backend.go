package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Backend fetches and installs versions of one kind of tool.
type Backend interface {
	// ListRemote returns the versions available for installation. An empty
	// list means the backend cannot enumerate versions.
	ListRemote(ctx context.Context, tool string) ([]string, error)
	// Install places version into dest, which already exists and is empty.
	Install(ctx context.Context, tool, version, dest string) error
}

// Backend name prefixes.
const (
	PrefixSPM = "spm:"
)

// pluginName matches tool names served by a plugin script directory.
var pluginName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// BackendOptions configures the backends returned by DispatchBackend.
type BackendOptions struct {
	// PluginsDir holds one directory per plugin-script tool.
	PluginsDir string
	// Experimental enables backends that are not yet stable (spm).
	Experimental bool
	// Stdout and Stderr receive build output; default to os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

func (o BackendOptions) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stderr
	}
	return o.Stdout
}

func (o BackendOptions) stderr() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// DispatchBackend returns the Backend for tool. Tools named spm:<repo> build
// Swift packages; plain lowercase names use a plugin script directory; any
// other name yields a backend that reports the name as unsupported.
func DispatchBackend(tool string, opts BackendOptions) Backend {
	switch {
	case strings.HasPrefix(tool, PrefixSPM):
		return &SPMBackend{Experimental: opts.Experimental, Stdout: opts.stdout(), Stderr: opts.stderr()}
	case pluginName.MatchString(tool):
		return &ScriptBackend{
			Dir:    filepath.Join(opts.PluginsDir, tool),
			Stdout: opts.stdout(),
			Stderr: opts.stderr(),
		}
	default:
		return &unknownBackend{name: tool}
	}
}

// unknownBackend is returned when no backend recognizes the tool name.
type unknownBackend struct {
	name string
}

func (u *unknownBackend) ListRemote(context.Context, string) ([]string, error) {
	return nil, u.err()
}

func (u *unknownBackend) Install(context.Context, string, string, string) error {
	return u.err()
}

func (u *unknownBackend) err() error {
	return fmt.Errorf("unknown backend for %q: use a plugin name or %s<owner>/<repo>", u.name, PrefixSPM)
}
