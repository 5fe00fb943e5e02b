package platform

import (
	"os"
	"runtime"
)

// Chmod sets file permissions. It is a no-op on Windows, which has no
// Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// MakeExecutable adds the execute bits wherever the read bits are set, the
// way chmod +x does under a typical umask.
func MakeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	return Chmod(path, mode|(mode&0o444)>>2)
}
