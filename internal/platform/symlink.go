package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// sidecarSuffix marks the file that stands in for a link where native
// symlinks are not available.
const sidecarSuffix = ".target"

// ReplaceSymlink points link at target, replacing whatever link currently
// points at. Targets are written verbatim, so relative targets resolve
// against the link's directory. On Windows without developer mode the link
// is recorded in a <link>.target sidecar instead.
func ReplaceSymlink(target, link string) error {
	if err := RemoveSymlink(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old link %s: %w", link, err)
	}

	err := os.Symlink(target, link)
	if err == nil || runtime.GOOS != "windows" {
		return err
	}

	if werr := os.WriteFile(link+sidecarSuffix, []byte(target), 0o644); werr != nil {
		return fmt.Errorf("symlink unavailable (%v) and sidecar write failed: %w", err, werr)
	}
	return nil
}

// RemoveSymlink removes a link and its sidecar, if any.
func RemoveSymlink(path string) error {
	_ = os.Remove(path + sidecarSuffix)
	return os.Remove(path)
}

// ReadSymlinkTarget returns the target of a link, falling back to the
// sidecar written by ReplaceSymlink on Windows.
func ReadSymlinkTarget(path string) (string, error) {
	target, err := os.Readlink(path)
	if err == nil {
		return target, nil
	}
	if runtime.GOOS != "windows" {
		return "", err
	}

	data, readErr := os.ReadFile(path + sidecarSuffix)
	if readErr != nil {
		return "", fmt.Errorf("readlink failed and no sidecar found: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// IsLink reports whether the directory entry at path is a symlink or a
// link sidecar, i.e. an alias rather than real content.
func IsLink(path string) bool {
	if strings.HasSuffix(path, sidecarSuffix) {
		return true
	}
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}
