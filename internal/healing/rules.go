package healing

import (
	"fmt"

	"journeykit/internal/config"
	"journeykit/internal/logging"
)

// FixType names one permitted repair strategy.
type FixType string

const (
	FixUpdateSelector       FixType = "update-selector"
	FixAddWaitForSelector   FixType = "add-wait-for-selector"
	FixIncreaseTimeout      FixType = "increase-timeout"
	FixWaitForNavigation    FixType = "wait-for-navigation"
	FixUpdateAssertionValue FixType = "update-assertion-value"
	FixRegenerateStep       FixType = "regenerate-step"
	FixUpdateURL            FixType = "update-url"
	FixReloadPage           FixType = "reload-page"
)

// deniedFixes can never be selected, regardless of configuration. Each one
// either hides a real bug or weakens the test until it stops testing. This is
// a correctness invariant, not a default.
var deniedFixes = map[FixType]bool{
	"add-sleep":        true,
	"remove-assertion": true,
	"weaken-assertion": true,
	"force-click":      true,
	"bypass-auth":      true,
}

// healingRules maps each healable category to its permitted fixes, in the
// order they should be tried.
var healingRules = map[Category][]FixType{
	CategorySelector:   {FixUpdateSelector, FixAddWaitForSelector, FixRegenerateStep},
	CategoryTiming:     {FixIncreaseTimeout, FixAddWaitForSelector, FixWaitForNavigation},
	CategoryNavigation: {FixWaitForNavigation, FixUpdateURL, FixReloadPage},
	CategoryData:       {FixUpdateAssertionValue, FixRegenerateStep},
	CategoryScript:     {FixRegenerateStep},
}

// Evaluation is the policy verdict on whether a classified failure may be
// auto-healed, and with which fixes.
type Evaluation struct {
	CanHeal         bool      `json:"canHeal"`
	ApplicableFixes []FixType `json:"applicableFixes,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

// Engine applies the static rule table under the operator's configuration.
type Engine struct {
	cfg config.HealingConfig
}

func NewEngine(cfg config.HealingConfig) *Engine {
	return &Engine{cfg: cfg}
}

// allowed reports whether the operator's allow-list admits the fix. An empty
// allow-list admits everything; the deny-list always wins.
func (e *Engine) allowed(fix FixType) bool {
	if deniedFixes[fix] {
		return false
	}
	if len(e.cfg.AllowedFixes) == 0 {
		return true
	}
	for _, f := range e.cfg.AllowedFixes {
		if FixType(f) == fix {
			return true
		}
	}
	return false
}

// EvaluateHealing decides whether the failure may be healed at all. Refusals
// carry the reason so the caller can surface it verbatim.
func (e *Engine) EvaluateHealing(failure ClassifiedFailure) Evaluation {
	if !e.cfg.Enabled {
		return Evaluation{Reason: "healing is disabled by configuration"}
	}
	if !failure.IsTestIssue {
		return Evaluation{Reason: fmt.Sprintf(
			"category %q is not auto-healable: %s", failure.Category, failure.Suggestion)}
	}

	var fixes []FixType
	for _, fix := range healingRules[failure.Category] {
		if e.allowed(fix) {
			fixes = append(fixes, fix)
		}
	}
	if len(fixes) == 0 {
		return Evaluation{Reason: fmt.Sprintf(
			"no permitted fix for category %q under the current allow-list", failure.Category)}
	}

	logging.Healing("category=%s healable with %d fix(es)", failure.Category, len(fixes))
	return Evaluation{CanHeal: true, ApplicableFixes: fixes}
}

// GetNextFix returns the first applicable fix not yet attempted, in rule
// order. The second return is false when the category's fixes are exhausted.
// Deny-listed fixes are unreachable from here by construction of allowed.
func (e *Engine) GetNextFix(failure ClassifiedFailure, attempted []FixType) (FixType, bool) {
	tried := make(map[FixType]bool, len(attempted))
	for _, f := range attempted {
		tried[f] = true
	}

	for _, fix := range healingRules[failure.Category] {
		if tried[fix] || !e.allowed(fix) {
			continue
		}
		return fix, true
	}
	return "", false
}
