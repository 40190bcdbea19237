package llkb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"journeykit/internal/logging"
)

// fileLock is an advisory sentinel-file lock guarding the store file against
// concurrent CLI invocations. It is deliberately best-effort, not
// linearizable: a writer that exhausts its wait budget proceeds unlocked with
// a warning, trading a small lost-update risk for liveness across parallel
// shards. Do not convert this into a blocking lock.
type fileLock struct {
	path     string        // sentinel path, <store>.lock
	wait     time.Duration // total wait budget
	poll     time.Duration // retry interval
	staleAge time.Duration // sentinels older than this are abandoned
}

func newFileLock(storePath string, wait, poll, staleAge time.Duration) *fileLock {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	if staleAge <= 0 {
		staleAge = 30 * time.Second
	}
	return &fileLock{
		path:     storePath + ".lock",
		wait:     wait,
		poll:     poll,
		staleAge: staleAge,
	}
}

// acquire tries to create the sentinel exclusively until the wait budget runs
// out. The return value reports whether the lock was actually held; callers
// proceed either way.
func (l *fileLock) acquire() bool {
	// The sentinel lives next to the store; on a fresh workspace neither
	// exists yet.
	_ = os.MkdirAll(filepath.Dir(l.path), 0755)

	deadline := time.Now().Add(l.wait)

	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d ts=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
			f.Close()
			return true
		}

		// Sentinel exists. A holder that died leaves it behind; treat old
		// sentinels as abandoned and take them over.
		if info, statErr := os.Stat(l.path); statErr == nil {
			if time.Since(info.ModTime()) > l.staleAge {
				logging.LLKBWarn("removing stale lock %s (age %v)", l.path, time.Since(info.ModTime()))
				_ = os.Remove(l.path)
				continue
			}
		}

		if time.Now().After(deadline) {
			logging.LLKBWarn("lock wait budget exhausted for %s; proceeding unlocked", l.path)
			return false
		}
		time.Sleep(l.poll)
	}
}

// release removes the sentinel. Safe to call when acquire returned false:
// removing a sentinel some other process holds is avoided by the caller only
// releasing what it acquired.
func (l *fileLock) release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logging.LLKBWarn("failed to remove lock %s: %v", l.path, err)
	}
}
