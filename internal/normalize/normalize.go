// Package normalize canonicalizes journey step text so that equivalent
// phrasings compare equal before pattern matching. The pipeline is fixed:
// protect quoted substrings, strip actor prefixes, lowercase, expand
// abbreviations and synonyms (longest match first), stem known verbs,
// optionally drop stop words, collapse whitespace, restore quotes.
//
// Stemming uses a fixed irregular-verb table rather than a general stemmer:
// a Porter-style stemmer merges words that must stay distinct ("testing" vs
// "test data") and would break idempotency.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"journeykit/internal/logging"
)

// quotePattern matches single- or double-quoted substrings, shortest match.
var quotePattern = regexp.MustCompile(`"[^"]*"|'[^']*'`)

// actorPrefix matches a leading actor reference ("User clicks ...",
// "The admin opens ...") which carries no matching signal.
var actorPrefix = regexp.MustCompile(`(?i)^(the |a |an )?(user|users|visitor|admin|customer|actor|tester|they)\b[\s,]*`)

var whitespace = regexp.MustCompile(`\s+`)

// synonyms maps surface phrases to their canonical form. Applied after
// lowercasing, longest key first, so "taps on" wins over "taps".
var synonyms = map[string]string{
	"taps on":        "clicks",
	"presses on":     "clicks",
	"clicks on":      "clicks",
	"taps":           "clicks",
	"pushes":         "clicks",
	"hits":           "clicks",
	"types in":       "fills",
	"types into":     "fills",
	"enters":         "fills",
	"inputs":         "fills",
	"types":          "fills",
	"chooses":        "selects",
	"picks":          "selects",
	"goes to":        "navigates to",
	"visits":         "navigates to",
	"opens up":       "opens",
	"should observe": "should see",
	"observes":       "sees",
	"btn":            "button",
	"msg":            "message",
	"pwd":            "password",
	"chk":            "checkbox",
	"ddl":            "dropdown",
}

// verbStems is a fixed irregular-verb table. Every value is its own fixed
// point, which keeps the whole pipeline idempotent.
var verbStems = map[string]string{
	"clicks": "click", "clicked": "click", "clicking": "click",
	"fills": "fill", "filled": "fill", "filling": "fill",
	"selects": "select", "selected": "select", "selecting": "select",
	"navigates": "navigate", "navigated": "navigate", "navigating": "navigate",
	"opens": "open", "opened": "open", "opening": "open",
	"sees": "see", "saw": "see", "seen": "see",
	"checks": "check", "checked": "check", "checking": "check",
	"unchecks": "uncheck", "unchecked": "uncheck",
	"waits": "wait", "waited": "wait", "waiting": "wait",
	"submits": "submit", "submitted": "submit", "submitting": "submit",
	"hovers": "hover", "hovered": "hover", "hovering": "hover",
	"scrolls": "scroll", "scrolled": "scroll", "scrolling": "scroll",
	"uploads": "upload", "uploaded": "upload", "uploading": "upload",
	"expects": "expect", "expected": "expect",
	"verifies": "verify", "verified": "verify",
	"confirms": "confirm", "confirmed": "confirm",
	"signs": "sign", "logs": "log", "logged": "log",
	"presses": "press", "pressed": "press", "pressing": "press",
	"reloads": "reload", "reloaded": "reload",
	"refreshes": "refresh", "refreshed": "refresh",
	"goes": "go", "went": "go", "gone": "go",
	"runs": "run", "ran": "run", "running": "run",
	"performs": "perform", "performed": "perform",
	"executes": "execute", "executed": "execute",
	"emits": "emit", "emitted": "emit",
	"signals": "signal", "signaled": "signal",
	"drags": "drag", "dragged": "drag",
	"double-clicks": "double-click", "right-clicks": "right-click",
	"clears": "clear", "cleared": "clear",
	"focuses": "focus", "focused": "focus",
}

// stopWords are dropped when the option is enabled. Deliberately small:
// aggressive stop-word removal destroys phrase shapes the pattern library
// depends on.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true,
	"then": true, "now": true, "please": true,
}

var (
	synonymKeys     []string
	synonymKeysOnce sync.Once
)

// sortedSynonymKeys returns synonym keys longest first for greedy expansion.
func sortedSynonymKeys() []string {
	synonymKeysOnce.Do(func() {
		synonymKeys = make([]string, 0, len(synonyms))
		for k := range synonyms {
			synonymKeys = append(synonymKeys, k)
		}
		sort.Slice(synonymKeys, func(i, j int) bool {
			if len(synonymKeys[i]) != len(synonymKeys[j]) {
				return len(synonymKeys[i]) > len(synonymKeys[j])
			}
			return synonymKeys[i] < synonymKeys[j]
		})
	})
	return synonymKeys
}

// Options controls optional pipeline stages.
type Options struct {
	DropStopWords bool
}

// Normalize canonicalizes step text with default options.
func Normalize(text string) string {
	return NormalizeWith(text, Options{DropStopWords: true})
}

// NormalizeWith canonicalizes step text. Quoted literals pass through
// untouched; the function is idempotent.
func NormalizeWith(text string, opts Options) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	// 1. Protect quoted substrings with placeholders.
	var quoted []string
	protected := quotePattern.ReplaceAllStringFunc(text, func(m string) string {
		quoted = append(quoted, m)
		return fmt.Sprintf("\x00%d\x00", len(quoted)-1)
	})

	// 2. Strip actor prefixes.
	protected = actorPrefix.ReplaceAllString(protected, "")

	// 3. Lowercase.
	protected = strings.ToLower(protected)

	// 4. Expand synonyms and abbreviations, longest match first.
	for _, key := range sortedSynonymKeys() {
		protected = replaceWholePhrase(protected, key, synonyms[key])
	}

	// 5. Stem verbs via the irregular table, 6. drop stop words.
	words := strings.Fields(protected)
	out := words[:0]
	for _, w := range words {
		if stem, ok := verbStems[w]; ok {
			w = stem
		}
		if opts.DropStopWords && stopWords[w] {
			continue
		}
		out = append(out, w)
	}

	// 7. Collapse whitespace.
	result := whitespace.ReplaceAllString(strings.Join(out, " "), " ")
	result = strings.TrimSpace(strings.Trim(result, ".,;:!"))

	// 8. Restore quoted literals verbatim.
	for i, q := range quoted {
		result = strings.Replace(result, fmt.Sprintf("\x00%d\x00", i), q, 1)
	}

	logging.ResolverDebug("normalize: %q -> %q", text, result)
	return result
}

// replaceWholePhrase replaces phrase with repl only at word boundaries.
func replaceWholePhrase(s, phrase, repl string) string {
	if !strings.Contains(s, phrase) {
		return s
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return s
	}
	return re.ReplaceAllString(s, repl)
}

// QuotedLiterals extracts the quoted substrings of a step, quotes stripped,
// in order of appearance.
func QuotedLiterals(text string) []string {
	matches := quotePattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) >= 2 {
			out = append(out, m[1:len(m)-1])
		}
	}
	return out
}
