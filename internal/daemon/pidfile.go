package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/dgarske/uart-monitor/internal/sysutil"
)

// ErrAlreadyRunning is returned by AcquirePidFile when a live daemon
// already holds the pid file.
var ErrAlreadyRunning = fmt.Errorf("daemon already running")

// pidFileName is the exclusive-lock file's basename under the base
// directory.
const pidFileName = "uart-monitor.pid"

// AcquirePidFile reads any existing pid file, probes the referenced pid
// with signal 0, aborts if it is alive, otherwise unlinks it and writes
// our own pid.
func AcquirePidFile(baseDir string) error {
	path := pidFilePath(baseDir)

	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid > 0 {
			if unix.Kill(pid, 0) == nil {
				return ErrAlreadyRunning
			}
		}
		os.Remove(path)
	}

	return sysutil.AtomicWriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// ReleasePidFile removes the pid file on clean shutdown.
func ReleasePidFile(baseDir string) {
	os.Remove(pidFilePath(baseDir))
}

func pidFilePath(baseDir string) string {
	return filepath.Join(baseDir, pidFileName)
}
