//go:build unix

package store

import (
	"os"
	"syscall"
)

// lockFileHandle takes a non-blocking exclusive flock on f.
func lockFileHandle(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func unlockFileHandle(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

// isProcessAlive probes pid with signal 0. FindProcess always succeeds on
// Unix, so only the signal result matters.
func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
