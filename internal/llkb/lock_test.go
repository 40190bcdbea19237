package llkb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	store := filepath.Join(t.TempDir(), "llkb.json")
	l := newFileLock(store, time.Second, 10*time.Millisecond, 30*time.Second)

	require.True(t, l.acquire())
	_, err := os.Stat(store + ".lock")
	assert.NoError(t, err, "sentinel should exist while held")

	l.release()
	_, err = os.Stat(store + ".lock")
	assert.True(t, os.IsNotExist(err), "sentinel should be gone after release")
}

func TestLockContentionProceedsUnlocked(t *testing.T) {
	store := filepath.Join(t.TempDir(), "llkb.json")
	holder := newFileLock(store, time.Second, 10*time.Millisecond, 30*time.Second)
	require.True(t, holder.acquire())
	defer holder.release()

	// A second acquirer with a tiny budget must give up, not block.
	waiter := newFileLock(store, 50*time.Millisecond, 10*time.Millisecond, 30*time.Second)
	start := time.Now()
	assert.False(t, waiter.acquire())
	assert.Less(t, time.Since(start), time.Second, "must not wait past the budget")
}

func TestLockStaleTakeover(t *testing.T) {
	store := filepath.Join(t.TempDir(), "llkb.json")
	sentinel := store + ".lock"

	// Simulate a crashed holder: a sentinel with an old mtime.
	require.NoError(t, os.WriteFile(sentinel, []byte("pid=0\n"), 0644))
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(sentinel, old, old))

	l := newFileLock(store, time.Second, 10*time.Millisecond, 30*time.Second)
	assert.True(t, l.acquire(), "stale sentinel should be taken over")
	l.release()
}
