package healing

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeykit/internal/config"
)

const selectorError = "Error: strict mode violation: getByRole('button') resolved to 2 elements"

func failing(message string) VerifyOutcome {
	return VerifyOutcome{Failures: []FailureDetail{{Message: message}}}
}

func passing() VerifyOutcome {
	return VerifyOutcome{Passed: true}
}

// scriptedVerifier replays a fixed sequence of outcomes; the last entry
// repeats once the script runs out.
type scriptedVerifier struct {
	outcomes []VerifyOutcome
	err      error
	calls    int
}

func (v *scriptedVerifier) Verify(_ context.Context, _ string) (VerifyOutcome, error) {
	if v.err != nil {
		return VerifyOutcome{}, v.err
	}
	i := v.calls
	v.calls++
	if i >= len(v.outcomes) {
		i = len(v.outcomes) - 1
	}
	return v.outcomes[i], nil
}

type recordingApplier struct {
	applied []FixType
	err     error
}

func (a *recordingApplier) Apply(_ context.Context, _ string, fix FixType, _ ClassifiedFailure) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.applied = append(a.applied, fix)
	return "applied " + string(fix), nil
}

func orchCfg(t *testing.T) config.HealingConfig {
	t.Helper()
	cfg := config.Default().Healing
	cfg.LogDir = t.TempDir()
	return cfg
}

func TestHealAlreadyPassing(t *testing.T) {
	cfg := orchCfg(t)
	applier := &recordingApplier{}
	o := NewOrchestrator(cfg, &scriptedVerifier{outcomes: []VerifyOutcome{passing()}}, applier)

	res := o.Heal(context.Background(), "checkout")

	assert.True(t, res.Success)
	assert.Equal(t, StatusHealed, res.Status)
	assert.Equal(t, 0, res.Attempts)
	assert.Empty(t, applier.applied)
	assert.FileExists(t, res.LogPath)
}

func TestHealSucceedsAfterOneFix(t *testing.T) {
	cfg := orchCfg(t)
	verifier := &scriptedVerifier{outcomes: []VerifyOutcome{failing(selectorError), passing()}}
	applier := &recordingApplier{}
	o := NewOrchestrator(cfg, verifier, applier)

	res := o.Heal(context.Background(), "checkout")

	assert.True(t, res.Success)
	assert.Equal(t, StatusHealed, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, FixUpdateSelector, res.AppliedFix)
	assert.Equal(t, []FixType{FixUpdateSelector}, applier.applied)

	data, err := os.ReadFile(res.LogPath)
	require.NoError(t, err)
	var hl HealingLog
	require.NoError(t, json.Unmarshal(data, &hl))
	assert.Equal(t, "checkout", hl.JourneyID)
	assert.Equal(t, StatusHealed, hl.Status)
	require.Len(t, hl.Attempts, 1)
	assert.Equal(t, FixUpdateSelector, hl.Attempts[0].Fix)
	assert.Equal(t, CategorySelector, hl.Attempts[0].Category)
}

func TestHealRefusesAuthFailures(t *testing.T) {
	cfg := orchCfg(t)
	verifier := &scriptedVerifier{outcomes: []VerifyOutcome{
		failing("401 Unauthorized: session expired, login required"),
	}}
	applier := &recordingApplier{}
	o := NewOrchestrator(cfg, verifier, applier)

	res := o.Heal(context.Background(), "checkout")

	assert.False(t, res.Success)
	assert.Equal(t, StatusNotHealable, res.Status)
	assert.Contains(t, res.Reason, "auth")
	assert.NotEmpty(t, res.Recommendation)
	assert.Empty(t, applier.applied, "policy refusals never touch the source")
}

func TestHealRefusesWhenDisabled(t *testing.T) {
	cfg := orchCfg(t)
	cfg.Enabled = false
	verifier := &scriptedVerifier{outcomes: []VerifyOutcome{failing(selectorError)}}
	o := NewOrchestrator(cfg, verifier, &recordingApplier{})

	res := o.Heal(context.Background(), "checkout")

	assert.Equal(t, StatusNotHealable, res.Status)
	assert.Contains(t, res.Reason, "disabled")
}

func TestHealExhaustsCategoryFixes(t *testing.T) {
	cfg := orchCfg(t)
	// Script failures permit exactly one fix; a second round has nothing left.
	verifier := &scriptedVerifier{outcomes: []VerifyOutcome{
		failing("TypeError: page.clikc is not a function"),
	}}
	applier := &recordingApplier{}
	o := NewOrchestrator(cfg, verifier, applier)

	res := o.Heal(context.Background(), "checkout")

	assert.False(t, res.Success)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Contains(t, res.Reason, "all permitted fixes")
	assert.Equal(t, []FixType{FixRegenerateStep}, applier.applied)
}

func TestHealStopsOnStagnation(t *testing.T) {
	cfg := orchCfg(t)
	// Selector fixes keep the same single failure: no progress, escalate
	// before burning through the whole rule list.
	verifier := &scriptedVerifier{outcomes: []VerifyOutcome{failing(selectorError)}}
	applier := &recordingApplier{}
	o := NewOrchestrator(cfg, verifier, applier)

	res := o.Heal(context.Background(), "checkout")

	assert.Equal(t, StatusExhausted, res.Status)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, res.Reason, "no progress")
	assert.Contains(t, res.Recommendation, "data-testid")
	assert.FileExists(t, res.LogPath)
}

func TestHealFailsWhenVerifyCannotRun(t *testing.T) {
	cfg := orchCfg(t)
	verifier := &scriptedVerifier{err: errors.New("playwright not installed")}
	o := NewOrchestrator(cfg, verifier, &recordingApplier{})

	res := o.Heal(context.Background(), "checkout")

	assert.False(t, res.Success)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "playwright not installed")
}
