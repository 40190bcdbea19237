package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordResolution("checkout", 12, 0, "core=10 learned=2"))
	require.NoError(t, s.RecordRun("checkout", "failed", 1, 40*time.Second))
	require.NoError(t, s.RecordHealing("checkout", "healed", 2, ".journeykit/healing/checkout-x.json"))

	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, KindHeal, entries[0].Kind)
	assert.Equal(t, "healed", entries[0].Status)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Equal(t, KindRun, entries[1].Kind)
	assert.Equal(t, KindResolve, entries[2].Kind)
	assert.Equal(t, 12, entries[2].Steps)
	assert.Equal(t, "core=10 learned=2", entries[2].Detail)
}

func TestResolutionStatusReflectsBlockedSteps(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordResolution("clean", 5, 0, ""))
	require.NoError(t, s.RecordResolution("messy", 5, 2, ""))

	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "partially-blocked", entries[0].Status)
	assert.Equal(t, "resolved", entries[1].Status)
}

func TestSummaries(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordResolution("checkout", 12, 0, ""))
	require.NoError(t, s.RecordHealing("checkout", "healed", 1, ""))
	require.NoError(t, s.RecordHealing("checkout", "exhausted", 5, ""))
	require.NoError(t, s.RecordResolution("login", 4, 1, ""))

	sums, err := s.Summaries()
	require.NoError(t, err)
	require.Len(t, sums, 2)

	byID := map[string]JourneySummary{}
	for _, js := range sums {
		byID[js.JourneyID] = js
	}

	checkout := byID["checkout"]
	assert.Equal(t, 3, checkout.Events)
	assert.Equal(t, 1, checkout.HealedRuns)
	assert.Equal(t, "exhausted", checkout.LastStatus)
	// LastSeen must survive the round trip as a real timestamp.
	assert.False(t, checkout.LastSeen.IsZero())
	assert.WithinDuration(t, time.Now(), checkout.LastSeen, time.Minute)

	login := byID["login"]
	assert.Equal(t, 1, login.Events)
	assert.Equal(t, "partially-blocked", login.LastStatus)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
