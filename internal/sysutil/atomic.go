package sysutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicSymlink replaces the symlink at linkPath so that it points at
// target, without ever leaving linkPath missing or pointing at a partially
// written target. It creates a temporary symlink next to linkPath and
// renames it into place, relying on rename(2) being atomic within a
// directory.
func AtomicSymlink(target, linkPath string) error {
	tmp := linkPath + ".tmp-" + procSuffix()
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("create temp symlink: %w", err)
	}
	if err := os.Rename(tmp, linkPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp symlink: %w", err)
	}
	return nil
}

// AtomicWriteFile writes data to path by writing a temp file in the same
// directory and renaming it over path, so readers never observe a partial
// write.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".tmp-"+filepath.Base(path)+"-"+procSuffix())
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// EnsureDir recursively creates dir (and any missing parents) with mode,
// returning nil if it already exists.
func EnsureDir(dir string, mode os.FileMode) error {
	return os.MkdirAll(dir, mode)
}

// procSuffix disambiguates a temp-file name by pid. Uniqueness against the
// process's own earlier temp files doesn't need randomness: the daemon is
// single-threaded and single-instance, so no two callers ever race to
// create the same tmp path at once.
func procSuffix() string {
	return fmt.Sprintf("%d", os.Getpid())
}
