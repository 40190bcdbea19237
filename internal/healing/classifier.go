// Package healing implements the closed-loop repair pipeline for failing
// generated tests: classify the failure, pick a permitted fix, apply it,
// re-verify, and stop the moment progress stalls. Policy is deliberately
// conservative — anything that would mask a real product bug is refused.
package healing

import (
	"fmt"
	"strings"

	"journeykit/internal/logging"
)

// Category buckets a test failure by its most likely root cause.
type Category string

const (
	CategorySelector    Category = "selector"    // element not found / ambiguous locator
	CategoryTiming      Category = "timing"      // waits and timeouts
	CategoryNavigation  Category = "navigation"  // wrong page, redirect, load failure
	CategoryData        Category = "data"        // assertion value mismatch
	CategoryAuth        Category = "auth"        // credentials, sessions, permissions
	CategoryEnvironment Category = "environment" // infrastructure, network, browser crash
	CategoryScript      Category = "script"      // defective generated code
	CategoryUnknown     Category = "unknown"
)

// classifyOrder fixes the tie-break when two categories score equally.
var classifyOrder = []Category{
	CategorySelector,
	CategoryTiming,
	CategoryNavigation,
	CategoryData,
	CategoryAuth,
	CategoryEnvironment,
	CategoryScript,
}

// signatures are lowercase substrings voted against the combined
// error-message + stack text. Curated from real Playwright and Node failure
// output; each category needs three hits for full confidence.
var signatures = map[Category][]string{
	CategorySelector: {
		"no element matches",
		"strict mode violation",
		"element(s) not found",
		"locator resolved to",
		"not attached to the dom",
		"selector",
		"getbyrole",
		"getbytext",
		"getbylabel",
	},
	CategoryTiming: {
		"timed out",
		"timeout",
		"exceeded while waiting",
		"waiting for",
		"deadline exceeded",
		"still loading",
	},
	CategoryNavigation: {
		"navigation failed",
		"page.goto",
		"net::err_aborted",
		"err_too_many_redirects",
		"unexpected url",
		"page closed",
		"frame was detached",
	},
	CategoryData: {
		"tohavetext",
		"tohavevalue",
		"tobe(",
		"expected:",
		"received:",
		"expected string",
		"assertion failed",
	},
	CategoryAuth: {
		"401",
		"403",
		"unauthorized",
		"forbidden",
		"invalid credentials",
		"session expired",
		"csrf",
		"login required",
	},
	CategoryEnvironment: {
		"econnrefused",
		"enotfound",
		"net::err_connection",
		"net::err_name_not_resolved",
		"browser has been closed",
		"target crashed",
		"out of memory",
		"500 internal server error",
		"socket hang up",
	},
	CategoryScript: {
		"referenceerror",
		"typeerror",
		"syntaxerror",
		"is not a function",
		"cannot read properties of",
		"undefined is not",
		"unexpected token",
	},
}

// suggestions give the human escalation path per category.
var suggestions = map[Category]string{
	CategorySelector:    "inspect the page and add a stable attribute (data-testid) or an unambiguous role/name to the target element",
	CategoryTiming:      "check for slow network calls on this page; prefer event-based waits over larger timeouts if this recurs",
	CategoryNavigation:  "confirm the target URL, redirect chain and base URL configuration for this environment",
	CategoryData:        "compare the asserted value with the seeded test data; the expectation or the fixture is out of date",
	CategoryAuth:        "verify the test account credentials and session setup; authentication problems are never auto-healed",
	CategoryEnvironment: "the application or infrastructure is unhealthy; fix the environment and re-run before touching the test",
	CategoryScript:      "the generated test code is defective; regenerate the step or report the pattern that produced it",
	CategoryUnknown:     "no known failure signature matched; inspect the full error output manually",
}

// nonHealable categories are policy-refused regardless of confidence: the
// failure points at the app or its environment, not at the test.
var nonHealable = map[Category]bool{
	CategoryAuth:        true,
	CategoryEnvironment: true,
	CategoryUnknown:     true,
}

// ClassifiedFailure is the classifier verdict for one failing test.
type ClassifiedFailure struct {
	Category        Category `json:"category"`
	Confidence      float64  `json:"confidence"`
	Explanation     string   `json:"explanation"`
	Suggestion      string   `json:"suggestion"`
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
	// IsTestIssue reports whether the failure is attributable to the test
	// itself. App and environment problems are never auto-healed.
	IsTestIssue bool `json:"isTestIssue"`
}

// Classify votes every category's signatures against the combined error and
// stack text. Most matches wins; confidence is matches/3 capped at 1. Zero
// matches across the board yields CategoryUnknown at confidence 0.
func Classify(message, stack string) ClassifiedFailure {
	text := strings.ToLower(message + "\n" + stack)

	var (
		best        Category
		bestMatches []string
	)
	for _, cat := range classifyOrder {
		var matched []string
		for _, sig := range signatures[cat] {
			if strings.Contains(text, sig) {
				matched = append(matched, sig)
			}
		}
		if len(matched) > len(bestMatches) {
			best = cat
			bestMatches = matched
		}
	}

	if len(bestMatches) == 0 {
		logging.Classify("no signature matched; category=unknown")
		return ClassifiedFailure{
			Category:    CategoryUnknown,
			Explanation: "no known failure signature matched the error output",
			Suggestion:  suggestions[CategoryUnknown],
		}
	}

	confidence := float64(len(bestMatches)) / 3
	if confidence > 1 {
		confidence = 1
	}

	logging.Classify("category=%s confidence=%.2f matches=%v", best, confidence, bestMatches)
	return ClassifiedFailure{
		Category:        best,
		Confidence:      confidence,
		Explanation:     fmt.Sprintf("%d %s signature(s) matched: %s", len(bestMatches), best, strings.Join(bestMatches, ", ")),
		Suggestion:      suggestions[best],
		MatchedKeywords: bestMatches,
		IsTestIssue:     !nonHealable[best],
	}
}
