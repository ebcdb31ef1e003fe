// Package tmproot manages the process-wide temp-directory layout:
//
//	<OS tmp>/<prefix><uuid>/
//	  tmp/    # spill files from sort/serialize operations
//	  ans/    # files saved by File.SavedAs with no explicit folder
//
// The root directory is created lazily, once per process, the first time
// either TmpDir or AnsDir is called, under a per-process unique suffix so
// concurrent processes never collide on the same root.
package tmproot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var (
	once    sync.Once
	root    string
	tmpDir  string
	ansDir  string
	initErr error
)

// Prefix is the directory-name prefix used for the per-process root.
// Exposed as a var, not a const, so a
// host process can rename it before the root is created (the first call to
// Init, TmpDir, or AnsDir); doing so afterward has no effect since the
// root is only ever created once.
var Prefix = "synchrony-"

// Init creates (if needed) and returns the process-wide root, tmp, and ans
// directories. Safe to call repeatedly and concurrently; the actual
// directory creation happens exactly once.
func Init() (rootDir, tmp, ans string, err error) {
	once.Do(func() {
		base := findUsableBase()
		root = filepath.Join(base, Prefix+uuid.NewString())
		tmpDir = filepath.Join(root, "tmp")
		ansDir = filepath.Join(root, "ans")
		if mkErr := os.MkdirAll(tmpDir, 0o755); mkErr != nil {
			initErr = fmt.Errorf("tmproot: creating tmp dir: %w", mkErr)
			return
		}
		if mkErr := os.MkdirAll(ansDir, 0o755); mkErr != nil {
			initErr = fmt.Errorf("tmproot: creating ans dir: %w", mkErr)
			return
		}
	})
	return root, tmpDir, ansDir, initErr
}

// TmpDir returns the process-wide spill directory, creating the root on
// first call.
func TmpDir() (string, error) {
	_, tmp, _, err := Init()
	return tmp, err
}

// AnsDir returns the process-wide persisted-answer directory, creating the
// root on first call.
func AnsDir() (string, error) {
	_, _, ans, err := Init()
	return ans, err
}

// findUsableBase prefers the OS default temp directory, falling back to
// the working directory if the OS temp directory is somehow unusable.
func findUsableBase() string {
	candidate := os.TempDir()
	if isDirectoryUsable(candidate) {
		return candidate
	}
	if wd, err := os.Getwd(); err == nil && isDirectoryUsable(wd) {
		return wd
	}
	return "."
}

// isDirectoryUsable reports whether dir can serve as a temp root: a
// non-existent directory is usable (it can be created on demand); an
// existing path is usable only if it is actually a directory.
func isDirectoryUsable(dir string) bool {
	stat, err := os.Stat(dir)
	if err != nil {
		return os.IsNotExist(err)
	}
	return stat.IsDir()
}
