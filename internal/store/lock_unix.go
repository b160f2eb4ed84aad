//go:build unix

package store

import (
	"os"
	"syscall"
)

func flockExclusive(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func flockRelease(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

// processRunning reports whether pid refers to a live process. FindProcess
// never fails on Unix, so probe with the null signal instead.
func processRunning(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
