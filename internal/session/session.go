// Package session manages the daemon's log session directories: creating a
// fresh timestamped directory on startup, publishing a "latest" symlink to
// it, and pruning older sessions to a configured retention count.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgarske/uart-monitor/internal/sysutil"
)

const (
	dirPrefix  = "session-"
	latestName = "latest"
	// maxPruneScan bounds how many session directories a single prune pass
	// will consider.
	maxPruneScan = 256
)

// New creates "<base>/session-<YYYYMMDD-HHMMSS>" (local time) with mode
// 0755 and atomically publishes "<base>/latest" pointing at it.
func New(base string, now time.Time) (string, error) {
	name := dirPrefix + sysutil.SessionTimestamp(now)
	path := filepath.Join(base, name)
	if err := sysutil.EnsureDir(path, 0755); err != nil {
		return "", fmt.Errorf("create session dir %s: %w", path, err)
	}
	if err := sysutil.AtomicSymlink(name, filepath.Join(base, latestName)); err != nil {
		return "", fmt.Errorf("publish latest symlink: %w", err)
	}
	return path, nil
}

// Prune enumerates session directories in base matching the "session-"
// prefix, sorts them ascending lexicographically (equivalent to
// chronological given the timestamp format), and removes every entry past
// the keep most recent. At most maxPruneScan entries are considered.
func Prune(base string, keep int) error {
	entries, err := os.ReadDir(base)
	if err != nil {
		return fmt.Errorf("read base dir %s: %w", base, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		names = append(names, e.Name())
		if len(names) >= maxPruneScan {
			break
		}
	}
	sort.Strings(names)

	if len(names) <= keep {
		return nil
	}
	victims := names[:len(names)-keep]
	for _, name := range victims {
		if err := removeSession(filepath.Join(base, name)); err != nil {
			return err
		}
	}
	return nil
}

// removeSession deletes every non-dot-prefixed file directly inside dir,
// then removes dir itself.
func removeSession(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read session dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("remove session dir %s: %w", dir, err)
	}
	return nil
}

// LatestTarget reads the "latest" symlink in base and returns the session
// directory name it points at.
func LatestTarget(base string) (string, error) {
	target, err := os.Readlink(filepath.Join(base, latestName))
	if err != nil {
		return "", fmt.Errorf("read latest symlink: %w", err)
	}
	return target, nil
}
