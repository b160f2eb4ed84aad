package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Cross-process write exclusion. Several trail processes can share one
// database (a CLI invocation racing the background agent is the common
// case), so every write section first claims an OS-level file lock that
// the kernel drops automatically if the holder dies.

const (
	lockFileName    = "store.lock"
	lockWaitDefault = 500 * time.Millisecond
	lockPollFloor   = 5 * time.Millisecond
	lockPollCeil    = 50 * time.Millisecond
)

type storeLock struct {
	path string
	f    *os.File
}

// acquireStoreLock claims the exclusive write lock under baseDir, polling
// with backoff until wait elapses. On timeout the error names the current
// holder so the user can tell a busy agent from a wedged one.
func acquireStoreLock(baseDir string, wait time.Duration) (*storeLock, error) {
	sl := &storeLock{path: filepath.Join(baseDir, ".trail", lockFileName)}

	f, err := os.OpenFile(sl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	sl.f = f

	deadline := time.Now().Add(wait)
	for pause := lockPollFloor; ; {
		if err := flockExclusive(f); err == nil {
			sl.stampHolder()
			return sl, nil
		}
		if time.Now().After(deadline) {
			holder := describeHolder(sl.path)
			f.Close()
			return nil, fmt.Errorf("write lock busy after %v (held by %s)", wait, holder)
		}
		time.Sleep(pause)
		if pause *= 2; pause > lockPollCeil {
			pause = lockPollCeil
		}
	}
}

func (sl *storeLock) release() {
	if sl.f == nil {
		return
	}
	sl.f.Truncate(0)
	flockRelease(sl.f)
	sl.f.Close()
	sl.f = nil
}

// stampHolder records who holds the lock, purely for the timeout message.
func (sl *storeLock) stampHolder() {
	sl.f.Truncate(0)
	sl.f.Seek(0, 0)
	fmt.Fprintf(sl.f, "%d %s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	sl.f.Sync()
}

func describeHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown process"
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return "unknown process"
	}
	pid, since := fields[0], fields[1]
	if n, err := strconv.Atoi(pid); err == nil && !processRunning(n) {
		return fmt.Sprintf("dead pid %s, stale since %s", pid, since)
	}
	return fmt.Sprintf("pid %s since %s", pid, since)
}
