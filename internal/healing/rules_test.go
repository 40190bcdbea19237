package healing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeykit/internal/config"
)

func enabledCfg() config.HealingConfig {
	cfg := config.Default().Healing
	cfg.Enabled = true
	return cfg
}

func selectorFailure() ClassifiedFailure {
	return ClassifiedFailure{Category: CategorySelector, IsTestIssue: true}
}

func TestEvaluateHealing(t *testing.T) {
	t.Run("disabled refuses everything", func(t *testing.T) {
		cfg := enabledCfg()
		cfg.Enabled = false
		eval := NewEngine(cfg).EvaluateHealing(selectorFailure())
		assert.False(t, eval.CanHeal)
		assert.Contains(t, eval.Reason, "disabled")
	})

	t.Run("non-healable category refuses with reason", func(t *testing.T) {
		failure := ClassifiedFailure{
			Category:   CategoryAuth,
			Suggestion: suggestions[CategoryAuth],
		}
		eval := NewEngine(enabledCfg()).EvaluateHealing(failure)
		assert.False(t, eval.CanHeal)
		assert.Contains(t, eval.Reason, "auth")
	})

	t.Run("healable category lists fixes in rule order", func(t *testing.T) {
		eval := NewEngine(enabledCfg()).EvaluateHealing(selectorFailure())
		require.True(t, eval.CanHeal)
		assert.Equal(t, []FixType{FixUpdateSelector, FixAddWaitForSelector, FixRegenerateStep}, eval.ApplicableFixes)
	})

	t.Run("allow-list narrows the fixes", func(t *testing.T) {
		cfg := enabledCfg()
		cfg.AllowedFixes = []string{string(FixRegenerateStep)}
		eval := NewEngine(cfg).EvaluateHealing(selectorFailure())
		require.True(t, eval.CanHeal)
		assert.Equal(t, []FixType{FixRegenerateStep}, eval.ApplicableFixes)
	})

	t.Run("empty intersection refuses", func(t *testing.T) {
		cfg := enabledCfg()
		cfg.AllowedFixes = []string{string(FixUpdateURL)} // not a selector fix
		eval := NewEngine(cfg).EvaluateHealing(selectorFailure())
		assert.False(t, eval.CanHeal)
		assert.Contains(t, eval.Reason, "no permitted fix")
	})
}

func TestGetNextFixWalksRuleOrder(t *testing.T) {
	engine := NewEngine(enabledCfg())
	failure := selectorFailure()

	var attempted []FixType
	want := []FixType{FixUpdateSelector, FixAddWaitForSelector, FixRegenerateStep}
	for _, expected := range want {
		fix, ok := engine.GetNextFix(failure, attempted)
		require.True(t, ok)
		assert.Equal(t, expected, fix)
		attempted = append(attempted, fix)
	}

	_, ok := engine.GetNextFix(failure, attempted)
	assert.False(t, ok, "all fixes attempted")
}

// Deny-listed fixes are unreachable even when the operator explicitly lists
// them: the deny-list is a correctness invariant, not a default.
func TestDeniedFixesNeverSelected(t *testing.T) {
	cfg := enabledCfg()
	cfg.AllowedFixes = []string{
		"add-sleep", "remove-assertion", "weaken-assertion", "force-click", "bypass-auth",
	}
	engine := NewEngine(cfg)

	for cat := range healingRules {
		failure := ClassifiedFailure{Category: cat, IsTestIssue: true}

		eval := engine.EvaluateHealing(failure)
		assert.False(t, eval.CanHeal, "category %s must have no permitted fixes", cat)

		fix, ok := engine.GetNextFix(failure, nil)
		assert.False(t, ok)
		assert.Empty(t, fix)
	}
}
