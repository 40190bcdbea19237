package healing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		message        string
		stack          string
		wantCategory   Category
		wantConfidence float64
		wantTestIssue  bool
	}{
		{
			name:           "strict mode violation is a selector failure",
			message:        "Error: strict mode violation: getByRole('button') resolved to 2 elements",
			wantCategory:   CategorySelector,
			wantConfidence: 2.0 / 3,
			wantTestIssue:  true,
		},
		{
			name:           "timeout while waiting caps at full confidence",
			message:        "Test timeout of 30000ms exceeded while waiting for element",
			wantCategory:   CategoryTiming,
			wantConfidence: 1,
			wantTestIssue:  true,
		},
		{
			name:           "auth failures are never a test issue",
			message:        "401 Unauthorized: session expired, login required",
			wantCategory:   CategoryAuth,
			wantConfidence: 1,
			wantTestIssue:  false,
		},
		{
			name:           "connection refusal is environmental",
			message:        "Error: connect ECONNREFUSED 127.0.0.1:3000",
			wantCategory:   CategoryEnvironment,
			wantConfidence: 1.0 / 3,
			wantTestIssue:  false,
		},
		{
			name:           "assertion mismatch is a data failure",
			message:        "expect(locator).toHaveText failed\nExpected: \"Welcome\"\nReceived: \"Hello\"",
			wantCategory:   CategoryData,
			wantConfidence: 1,
			wantTestIssue:  true,
		},
		{
			name:           "runtime error in generated code",
			message:        "TypeError: page.clikc is not a function",
			wantCategory:   CategoryScript,
			wantConfidence: 2.0 / 3,
			wantTestIssue:  true,
		},
		{
			name:           "signatures in the stack count too",
			message:        "test failed",
			stack:          "at page.goto (navigation failed: net::ERR_ABORTED)",
			wantCategory:   CategoryNavigation,
			wantConfidence: 1,
			wantTestIssue:  true,
		},
		{
			name:          "nothing recognizable is unknown",
			message:       "something completely inscrutable happened",
			wantCategory:  CategoryUnknown,
			wantTestIssue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message, tt.stack)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 0.001)
			assert.Equal(t, tt.wantTestIssue, got.IsTestIssue)
			assert.NotEmpty(t, got.Suggestion)
			if tt.wantCategory != CategoryUnknown {
				assert.NotEmpty(t, got.MatchedKeywords)
			}
		})
	}
}

func TestClassifyTieBreakIsDeterministic(t *testing.T) {
	// One selector signature and one timing signature: the earlier category
	// in the fixed order wins.
	got := Classify("timeout reaching selector", "")
	assert.Equal(t, CategorySelector, got.Category)
}

func TestClassifyConfidenceNeverExceedsOne(t *testing.T) {
	msg := "401 forbidden unauthorized invalid credentials session expired csrf login required"
	got := Classify(msg, "")
	assert.Equal(t, CategoryAuth, got.Category)
	assert.Equal(t, 1.0, got.Confidence)
}
