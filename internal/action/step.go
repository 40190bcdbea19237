package action

import (
	"regexp"
	"strconv"
	"strings"
)

// hintPattern matches inline [key=value, key2=value2] hint groups.
var hintPattern = regexp.MustCompile(`\[([a-zA-Z][a-zA-Z0-9_-]*=[^\]]*)\]`)

// Step is one journey step: the raw sentence plus any inline hints the author
// attached. Steps are immutable once parsed.
type Step struct {
	Text  string            `json:"text"`
	Hints map[string]string `json:"hints,omitempty"`
}

// ParseStep splits inline hints out of a raw step sentence. Hints use the
// bracket form "User clicks 'Save' [locator=css:#save-btn, timeout=5000]";
// the bracket groups are removed from Text.
func ParseStep(raw string) Step {
	hints := map[string]string{}
	text := hintPattern.ReplaceAllStringFunc(raw, func(group string) string {
		inner := strings.Trim(group, "[]")
		for _, pair := range strings.Split(inner, ",") {
			k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}
			hints[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		return ""
	})

	step := Step{Text: strings.TrimSpace(strings.Join(strings.Fields(text), " "))}
	if len(hints) > 0 {
		step.Hints = hints
	}
	return step
}

// ApplyHints merges a step's explicit hints into a resolved action. Hints are
// authoritative: they override anything pattern inference produced.
//
// Recognized hints:
//   - locator: "strategy:value" (e.g. "css:#save", "testid:save-btn")
//   - timeout: milliseconds
//   - value:   overrides the action value verbatim
func ApplyHints(a Action, step Step) Action {
	if len(step.Hints) == 0 {
		return a
	}

	if loc, ok := step.Hints["locator"]; ok {
		if spec := parseLocatorHint(loc); spec != nil {
			a.Locator = spec
		}
	}
	if t, ok := step.Hints["timeout"]; ok {
		if ms, err := strconv.Atoi(t); err == nil && ms > 0 {
			a.TimeoutMs = ms
		}
	}
	if v, ok := step.Hints["value"]; ok {
		a.Value = ClassifyValue(v)
	}
	return a
}

func parseLocatorHint(hint string) *LocatorSpec {
	strategy, value, ok := strings.Cut(hint, ":")
	if !ok {
		// Bare hint defaults to CSS, the strategy authors reach for first.
		return &LocatorSpec{Strategy: ByCSS, Value: hint}
	}
	switch LocatorStrategy(strategy) {
	case ByRole, ByLabel, ByPlaceholder, ByText, ByTestID, ByCSS:
		return &LocatorSpec{Strategy: LocatorStrategy(strategy), Value: value}
	default:
		return &LocatorSpec{Strategy: ByCSS, Value: hint}
	}
}
