package install

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kattouf/mise/internal/branding"
	"github.com/kattouf/mise/internal/platform"
	"github.com/kattouf/mise/internal/version"
)

// SPMBackend builds executables from Swift packages hosted on GitHub.
// Tools are named spm:<owner>/<repo> or spm:https://github.com/<owner>/<repo>.git,
// and remote versions are the repository's tags.
type SPMBackend struct {
	// Experimental must be set for Install to run.
	Experimental bool
	Stdout       io.Writer
	Stderr       io.Writer
	// TempDir is where packages are cloned; defaults to os.TempDir().
	TempDir string
}

var repoShorthand = regexp.MustCompile(`^[a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+$`)

// SwiftPackageURL returns the clone URL for an spm tool name.
func SwiftPackageURL(tool string) (string, error) {
	name := strings.TrimPrefix(tool, PrefixSPM)
	if u, err := url.Parse(name); err == nil && u.Scheme != "" &&
		u.Host == "github.com" && strings.HasSuffix(u.Path, ".git") {
		return name, nil
	}
	if repoShorthand.MatchString(name) {
		return "https://github.com/" + name + ".git", nil
	}
	return "", fmt.Errorf("invalid swift package repo %q: want <owner>/<repo> or https://github.com/<owner>/<repo>.git", name)
}

// ListRemote returns the repository's tags, oldest first.
func (b *SPMBackend) ListRemote(ctx context.Context, tool string) ([]string, error) {
	repo, err := SwiftPackageURL(tool)
	if err != nil {
		return nil, err
	}
	out, err := b.output(ctx, "git", "ls-remote", "--tags", "--refs", repo)
	if err != nil {
		return nil, fmt.Errorf("listing tags of %s: %w", repo, err)
	}
	tags := parseTags(out)
	version.Sort(tags)
	return tags, nil
}

// Install clones the package at the version tag, builds every executable
// product in release mode and copies the binaries with their dynamic
// libraries and resource bundles into dest/bin.
func (b *SPMBackend) Install(ctx context.Context, tool, ver, dest string) error {
	if !b.Experimental {
		return fmt.Errorf("spm: %w; enable it with `%s settings set experimental true`", ErrExperimental, branding.CLIName())
	}
	repo, err := SwiftPackageURL(tool)
	if err != nil {
		return err
	}

	work, err := os.MkdirTemp(b.TempDir, "spm-*")
	if err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}
	defer os.RemoveAll(work)

	src := filepath.Join(work, "src")
	if err := b.run(ctx, "git", "clone", "--quiet", "--depth", "1", "--branch", ver, repo, src); err != nil {
		return fmt.Errorf("cloning %s at %s: %w", repo, ver, err)
	}

	desc, err := b.output(ctx, "swift", "package", "dump-package", "--package-path", src)
	if err != nil {
		return fmt.Errorf("describing package: %w", err)
	}
	executables, err := executableProducts([]byte(desc))
	if err != nil {
		return err
	}
	if len(executables) == 0 {
		return fmt.Errorf("no executables found in %s", repo)
	}

	binDir := filepath.Join(dest, "bin")
	for _, exe := range executables {
		args := []string{"build", "--configuration", "release", "--product", exe, "--package-path", src}
		if err := b.run(ctx, "swift", args...); err != nil {
			return fmt.Errorf("building %s: %w", exe, err)
		}
		binPath, err := b.output(ctx, "swift", append(args, "--show-bin-path")...)
		if err != nil {
			return fmt.Errorf("locating build output for %s: %w", exe, err)
		}
		if err := copyArtifacts(strings.TrimSpace(binPath), exe, binDir); err != nil {
			return fmt.Errorf("copying %s: %w", exe, err)
		}
	}
	return nil
}

func (b *SPMBackend) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr
	return cmd.Run()
}

func (b *SPMBackend) output(ctx context.Context, name string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = b.Stderr
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// parseTags extracts tag names from `git ls-remote --tags` output.
func parseTags(out string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		tag, ok := strings.CutPrefix(fields[1], "refs/tags/")
		if !ok {
			continue
		}
		tag = strings.TrimSuffix(tag, "^{}")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// packageDescription is the subset of `swift package dump-package` output
// needed to find executables. A product's type is a single-key object such
// as {"executable": null} or {"library": ["automatic"]}.
type packageDescription struct {
	Products []struct {
		Name string                     `json:"name"`
		Type map[string]json.RawMessage `json:"type"`
	} `json:"products"`
}

func executableProducts(data []byte) ([]string, error) {
	var desc packageDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing package description: %w", err)
	}
	var names []string
	for _, p := range desc.Products {
		if _, ok := p.Type["executable"]; ok {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

// copyArtifacts copies the executable and any .dylib or .bundle entries
// from binPath into installBin, keeping their relative layout.
func copyArtifacts(binPath, exe, installBin string) error {
	if err := os.MkdirAll(installBin, 0o755); err != nil {
		return err
	}
	if err := copyFile(filepath.Join(binPath, exe), filepath.Join(installBin, exe)); err != nil {
		return err
	}
	if err := platform.MakeExecutable(filepath.Join(installBin, exe)); err != nil {
		return err
	}

	return filepath.WalkDir(binPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch filepath.Ext(path) {
		case ".dylib", ".bundle":
		default:
			return nil
		}
		rel, err := filepath.Rel(binPath, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(installBin, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if d.IsDir() {
			if err := copyDir(path, dst); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		return copyFile(path, dst)
	})
}
