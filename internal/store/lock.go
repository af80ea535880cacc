package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockFile     = "feed.lock"
	lockWait     = 750 * time.Millisecond
	lockPollBase = 8 * time.Millisecond
	lockPollCap  = 64 * time.Millisecond
)

// cacheLock is an exclusive cross-process lock on the cache directory. WAL
// lets readers proceed; the lock serializes writers so a running watch
// session and a one-shot command never interleave mutations. The OS drops
// the lock if the holding process dies.
type cacheLock struct {
	f    *os.File
	path string
}

// lockCache acquires the cache lock, polling with backoff until wait
// elapses. The error on timeout names the current holder.
func lockCache(dir string, wait time.Duration) (*cacheLock, error) {
	path := filepath.Join(dir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(wait)
	pause := lockPollBase
	for {
		if err := lockFileHandle(f); err == nil {
			stampOwner(f)
			return &cacheLock{f: f, path: path}, nil
		}
		if time.Now().After(deadline) {
			owner := describeOwner(path)
			f.Close()
			return nil, fmt.Errorf("cache is locked by %s (waited %v)", owner, wait)
		}
		time.Sleep(pause)
		if pause < lockPollCap {
			pause *= 2
		}
	}
}

// Unlock clears the owner stamp and releases the lock.
func (l *cacheLock) Unlock() {
	if l.f == nil {
		return
	}
	l.f.Truncate(0)
	unlockFileHandle(l.f)
	l.f.Close()
	l.f = nil
}

// stampOwner writes "pid timestamp" so a timeout error can say who holds
// the lock.
func stampOwner(f *os.File) {
	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	f.Sync()
}

func describeOwner(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "another process"
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "another process"
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return "another process"
	}

	desc := fmt.Sprintf("pid %d", pid)
	if len(fields) > 1 {
		desc += " since " + fields[1]
	}
	if !isProcessAlive(pid) {
		desc += " (gone)"
	}
	return desc
}
