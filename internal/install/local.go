package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kattouf/mise/internal/platform"
	"github.com/kattouf/mise/internal/version"
)

// latestLink names the per-tool symlink to the highest installed version.
const latestLink = "latest"

// Local is the on-disk Registry. Versions live at
// <Root>/installs/<tool>/<version>.
type Local struct {
	Root     string
	CacheDir string
	TTL      time.Duration
	Logger   *log.Logger
	// Experimental enables experimental backends in the default dispatch.
	Experimental bool

	// Backend returns the backend for a tool. Defaults to DispatchBackend
	// with plugins under <Root>/plugins.
	Backend func(tool string) Backend
}

// NewLocal returns a Local registry rooted at dataDir.
func NewLocal(dataDir, cacheDir string, ttl time.Duration, logger *log.Logger) *Local {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if ttl <= 0 {
		ttl = DefaultCacheMaxAge
	}
	l := &Local{Root: dataDir, CacheDir: cacheDir, TTL: ttl, Logger: logger}
	l.Backend = func(tool string) Backend {
		return DispatchBackend(tool, BackendOptions{
			PluginsDir:   filepath.Join(dataDir, "plugins"),
			Experimental: l.Experimental,
		})
	}
	return l
}

// toolDir maps a tool name to a single path element.
func toolDir(tool string) string {
	r := strings.NewReplacer(":", "-", "/", "-", `\`, "-")
	dir := r.Replace(tool)
	if strings.HasPrefix(dir, ".") {
		dir = "_" + dir
	}
	return dir
}

// ToolPath returns the directory holding every installed version of tool.
func (l *Local) ToolPath(tool string) string {
	return filepath.Join(l.Root, "installs", toolDir(tool))
}

// InstallPath returns the directory of one installed version.
func (l *Local) InstallPath(tool, ver string) string {
	return filepath.Join(l.ToolPath(tool), ver)
}

// InstalledVersions lists the installed versions of tool in ascending order.
// Hidden entries (in-progress installs) and links are skipped.
func (l *Local) InstalledVersions(_ context.Context, tool string) ([]string, error) {
	entries, err := os.ReadDir(l.ToolPath(tool))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing installs of %s: %w", tool, err)
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || platform.IsLink(filepath.Join(l.ToolPath(tool), e.Name())) {
			continue
		}
		versions = append(versions, e.Name())
	}
	version.Sort(versions)
	return versions, nil
}

// EnsureInstalled resolves spec against the remote versions (or, when the
// backend lists none, the installed ones) and installs the result if it is
// not already present.
func (l *Local) EnsureInstalled(ctx context.Context, tool string, spec version.Spec) (string, error) {
	fail := func(err error) (string, error) {
		return "", &Error{Tool: tool, Spec: spec, Err: err}
	}

	installed, err := l.InstalledVersions(ctx, tool)
	if err != nil {
		return fail(err)
	}
	if spec.Kind() == version.Exact && slices.Contains(installed, spec.String()) {
		return spec.String(), nil
	}

	remote, err := l.remoteVersions(ctx, tool)
	if err != nil {
		return fail(err)
	}

	var ver string
	switch {
	case spec.Kind() == version.Exact:
		if len(remote) > 0 && !slices.Contains(remote, spec.String()) {
			return fail(fmt.Errorf("%w: %s is not a known version", ErrNoMatch, spec))
		}
		ver = spec.String()
	default:
		candidates := remote
		if len(candidates) == 0 {
			candidates = installed
		}
		v, ok := version.Select(spec, candidates)
		if !ok {
			return fail(fmt.Errorf("%w for %s", ErrNoMatch, spec))
		}
		ver = v
	}

	if slices.Contains(installed, ver) {
		return ver, nil
	}
	if ver == "." || ver == ".." || strings.ContainsAny(ver, `/\`) {
		return fail(fmt.Errorf("version %q cannot name an install directory", ver))
	}
	if err := l.install(ctx, tool, ver); err != nil {
		return fail(err)
	}
	return ver, nil
}

// install builds ver in a hidden staging directory and renames it into
// place, so a failed or cancelled install leaves nothing behind.
func (l *Local) install(ctx context.Context, tool, ver string) error {
	dest := l.InstallPath(tool, ver)
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating install directory: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+ver+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	l.Logger.Printf("installing %s@%s into %s", tool, ver, dest)
	start := time.Now()
	if err := l.Backend(tool).Install(ctx, tool, ver, staging); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("moving install into place: %w", err)
	}
	committed = true
	l.Logger.Printf("installed %s@%s in %s", tool, ver, time.Since(start).Round(time.Millisecond))

	if err := l.refreshLatest(ctx, tool); err != nil {
		l.Logger.Printf("warning: updating %s link for %s: %v", latestLink, tool, err)
	}
	return nil
}

// refreshLatest points <tool>/latest at the highest installed stable version.
func (l *Local) refreshLatest(ctx context.Context, tool string) error {
	installed, err := l.InstalledVersions(ctx, tool)
	if err != nil {
		return err
	}
	best, ok := version.Select(version.MustParse(version.LatestToken), installed)
	if !ok {
		return nil
	}
	link := filepath.Join(l.ToolPath(tool), latestLink)
	if cur, err := platform.ReadSymlinkTarget(link); err == nil && cur == best {
		return nil
	}
	return platform.ReplaceSymlink(best, link)
}

// remoteVersions lists the backend's versions through the on-disk cache.
// A stale cache is still used when listing fails.
func (l *Local) remoteVersions(ctx context.Context, tool string) ([]string, error) {
	var cached *VersionCache
	if l.CacheDir != "" {
		c, err := LoadCache(l.CacheDir, tool)
		if err != nil {
			l.Logger.Printf("warning: ignoring version cache for %s: %v", tool, err)
		}
		if !IsCacheStale(c, l.TTL) {
			return c.Versions, nil
		}
		cached = c
	}

	versions, err := l.Backend(tool).ListRemote(ctx, tool)
	if err != nil {
		if cached != nil && ctx.Err() == nil {
			l.Logger.Printf("warning: listing %s failed, using cached versions: %v", tool, err)
			return cached.Versions, nil
		}
		return nil, err
	}

	if l.CacheDir != "" {
		c := &VersionCache{Tool: tool, Versions: versions, CheckedAt: time.Now()}
		if err := SaveCache(l.CacheDir, c); err != nil {
			l.Logger.Printf("warning: %v", err)
		}
	}
	return versions, nil
}
