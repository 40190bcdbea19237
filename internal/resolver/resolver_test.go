package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeykit/internal/action"
	"journeykit/internal/config"
)

func newTestResolver(learned LearnedSource) *Resolver {
	return New(config.Default().Resolver, learned)
}

// fakeLearned is a canned LearnedSource.
type fakeLearned struct {
	exact map[string]LearnedMatch
	fuzzy map[string]LearnedMatch
}

func (f *fakeLearned) ExactMatch(norm string, minConfidence float64) (LearnedMatch, bool) {
	m, ok := f.exact[norm]
	if !ok || m.Confidence < minConfidence {
		return LearnedMatch{}, false
	}
	return m, true
}

func (f *fakeLearned) FuzzyMatch(norm string, minSimilarity float64) (LearnedMatch, bool) {
	m, ok := f.fuzzy[norm]
	if !ok || m.Similarity < minSimilarity {
		return LearnedMatch{}, false
	}
	return m, true
}

func TestResolveClickRoleButton(t *testing.T) {
	r := newTestResolver(nil)

	res := r.Resolve(action.ParseStep("User clicks the 'Submit' button"))

	require.Equal(t, SourceCore, res.Source)
	want := action.Action{
		Type: action.Click,
		Locator: &action.LocatorSpec{
			Strategy: action.ByRole,
			Value:    "button",
			Options:  map[string]string{"name": "Submit"},
		},
	}
	if diff := cmp.Diff(want, res.Action); diff != "" {
		t.Errorf("action mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveExpectVisible(t *testing.T) {
	r := newTestResolver(nil)

	res := r.Resolve(action.ParseStep("User should see 'Welcome back'"))

	require.Equal(t, SourceCore, res.Source)
	assert.Equal(t, action.ExpectVisible, res.Action.Type)
	assert.Equal(t, action.ByText, res.Action.Locator.Strategy)
	assert.Equal(t, "Welcome back", res.Action.Locator.Value)
}

func TestNegativeFormsNeverFallIntoGenericBucket(t *testing.T) {
	r := newTestResolver(nil)

	res := r.Resolve(action.ParseStep("User should not see 'Error'"))
	assert.Equal(t, action.ExpectNotVisible, res.Action.Type)

	res = r.Resolve(action.ParseStep("'Spinner' should not be visible"))
	assert.Equal(t, action.ExpectNotVisible, res.Action.Type)

	res = r.Resolve(action.ParseStep("User should see 'Error'"))
	assert.Equal(t, action.ExpectVisible, res.Action.Type)
}

func TestResolveUnmappableStepBlocks(t *testing.T) {
	r := newTestResolver(nil)

	res := r.Resolve(action.ParseStep("User does the thing"))

	assert.Equal(t, SourceBlocked, res.Source)
	assert.True(t, res.Action.IsBlocked())
	assert.NotEmpty(t, res.Action.Reason)
	assert.NotEmpty(t, res.Action.Suggestion, "blocked steps carry a rewrite suggestion")
	assert.Equal(t, "User does the thing", res.Action.OriginalText)
}

func TestCoreWinsOverLearned(t *testing.T) {
	// The learned store claims the same normalized text with a conflicting
	// action; the core library must still win.
	learned := &fakeLearned{exact: map[string]LearnedMatch{
		"click 'Submit' button": {
			Action:     action.Action{Type: action.Navigate, URL: "/wrong"},
			Confidence: 0.99,
			PatternID:  "lp-1",
		},
	}}
	r := newTestResolver(learned)

	res := r.Resolve(action.ParseStep("User clicks the 'Submit' button"))

	assert.Equal(t, SourceCore, res.Source)
	assert.Equal(t, action.Click, res.Action.Type)
}

func TestLearnedTierUsedWhenCoreMisses(t *testing.T) {
	learned := &fakeLearned{exact: map[string]LearnedMatch{
		"dismisses onboarding tour": {
			Action: action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByTestID, Value: "tour-dismiss",
			}},
			Confidence: 0.91,
			PatternID:  "lp-7",
		},
	}}
	r := newTestResolver(learned)

	res := r.Resolve(action.ParseStep("User dismisses onboarding tour"))

	require.Equal(t, SourceLearned, res.Source)
	assert.Equal(t, "lp-7", res.Pattern)
	assert.Equal(t, 0.91, res.Confidence)
	assert.Equal(t, action.ByTestID, res.Action.Locator.Strategy)
}

func TestLearnedExactRespectsMinConfidence(t *testing.T) {
	learned := &fakeLearned{exact: map[string]LearnedMatch{
		"dismisses onboarding tour": {
			Action:     action.Action{Type: action.Click},
			Confidence: 0.2, // below the default 0.6 floor
			PatternID:  "lp-low",
		},
	}}
	r := newTestResolver(learned)

	res := r.Resolve(action.ParseStep("User dismisses onboarding tour"))
	assert.NotEqual(t, SourceLearned, res.Source)
}

func TestCorpusStrictMatch(t *testing.T) {
	r := newTestResolver(nil)

	// "User submits the form" normalizes to exactly the curated "submit form"
	// entry, so the strict builder runs.
	res := r.Resolve(action.ParseStep("User submits the form"))

	require.Equal(t, SourceCorpus, res.Source)
	assert.Equal(t, action.Click, res.Action.Type)
	assert.Equal(t, "Submit", res.Action.Locator.Options["name"])
	assert.GreaterOrEqual(t, res.Similarity, 0.98)
}

func TestCorpusMidBandSynthesizesGenericAction(t *testing.T) {
	r := newTestResolver(nil)

	// Close to the curated "click 'target' button to continue" entry but not
	// near-verbatim: the synthesized action keys off the step's own quote and
	// verb, not the example's strict extractor.
	res := r.Resolve(action.ParseStep("User clicks the 'Save' button to continue"))

	require.Equal(t, SourceSynthesized, res.Source)
	assert.Equal(t, action.Click, res.Action.Type)
	assert.Equal(t, action.ByText, res.Action.Locator.Strategy)
	assert.Equal(t, "Save", res.Action.Locator.Value)
	assert.GreaterOrEqual(t, res.Similarity, 0.85)
	assert.Less(t, res.Similarity, 0.98)
}

func TestCorpusMatchingKeepsStopWordsWhenConfigured(t *testing.T) {
	// Corpus keys are normalized under the same option as queries; with stop
	// words kept, a near-verbatim step must still clear the corpus band
	// instead of paying a stop-word penalty against dropped keys.
	cfg := config.Default().Resolver
	cfg.DropStopWords = false
	r := New(cfg, nil)

	res := r.Resolve(action.ParseStep("User clicks 'Save' button to continue"))

	require.Equal(t, SourceSynthesized, res.Source)
	assert.Equal(t, action.Click, res.Action.Type)
	assert.Equal(t, "Save", res.Action.Locator.Value)
	assert.GreaterOrEqual(t, res.Similarity, 0.85)
}

func TestHintsOverridePatternInference(t *testing.T) {
	r := newTestResolver(nil)

	res := r.Resolve(action.ParseStep("User clicks the 'Submit' button [locator=css:#submit, timeout=8000]"))

	require.Equal(t, SourceCore, res.Source)
	assert.Equal(t, action.ByCSS, res.Action.Locator.Strategy)
	assert.Equal(t, "#submit", res.Action.Locator.Value)
	assert.Equal(t, 8000, res.Action.TimeoutMs)
}

func TestResolveCoreVariety(t *testing.T) {
	r := newTestResolver(nil)

	tests := []struct {
		step string
		typ  action.Type
	}{
		{"User navigates to '/checkout'", action.Navigate},
		{"User reloads the page", action.Reload},
		{"User goes back", action.GoBack},
		{"User fills 'alice@test.io' into the email field", action.Fill},
		{"User selects 'Canada' from the country dropdown", action.SelectOption},
		{"User checks the 'Remember me' checkbox", action.Check},
		{"User unchecks the 'Subscribe' checkbox", action.Uncheck},
		{"User presses 'Enter'", action.Press},
		{"User hovers over 'Profile'", action.Hover},
		{"User uploads 'avatar.png' to 'Profile photo'", action.Upload},
		{"User waits for navigation", action.WaitForNavigation},
		{"User waits for 'Spinner' to disappear", action.WaitForHidden},
		{"User waits for 'Results'", action.WaitForSelector},
		{"The URL should contain '/dashboard'", action.ExpectURL},
		{"The title should be 'Home'", action.ExpectTitle},
		{"The 'Save' button should be disabled", action.ExpectDisabled},
		{"'Cart' should contain '3 items'", action.ExpectText},
		{"User should see 3 'result card'", action.ExpectCount},
		{"User runs journey 'login'", action.ModuleCall},
		{"User emits 'checkout-ready'", action.Signal},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			res := r.Resolve(action.ParseStep(tt.step))
			assert.Equal(t, tt.typ, res.Action.Type, "step %q resolved to %s (source=%s, norm=%q)",
				tt.step, res.Action.Type, res.Source, res.Normalized)
		})
	}
}

func TestResolveAllPreservesOrder(t *testing.T) {
	r := newTestResolver(nil)

	steps := []action.Step{
		action.ParseStep("User navigates to '/login'"),
		action.ParseStep("User fills 'alice' into the username field"),
		action.ParseStep("User does something inexplicable"),
		action.ParseStep("User should see 'Welcome back'"),
	}

	out := r.ResolveAll(steps)
	require.Len(t, out, 4)
	assert.Equal(t, action.Navigate, out[0].Action.Type)
	assert.Equal(t, action.Fill, out[1].Action.Type)
	assert.True(t, out[2].Action.IsBlocked(), "unresolvable step stays in place as blocked")
	assert.Equal(t, action.ExpectVisible, out[3].Action.Type)
}
