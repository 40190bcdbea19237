package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"journeykit/internal/action"
	"journeykit/internal/normalize"
)

// verbClass is the coarse intent bucket of a step's leading verb, used only
// to pick a blocked reason and rewrite suggestion.
type verbClass int

const (
	verbUnknown verbClass = iota
	verbInteraction
	verbAssertion
	verbNavigation
	verbWait
)

var interactionVerbs = map[string]bool{
	"click": true, "fill": true, "select": true, "check": true,
	"uncheck": true, "press": true, "hover": true, "upload": true,
	"clear": true, "drag": true, "scroll": true, "focus": true,
	"double-click": true, "right-click": true, "submit": true,
}

var assertionVerbs = map[string]bool{
	"should": true, "see": true, "expect": true, "verify": true,
	"confirm": true, "assert": true,
}

var navigationVerbs = map[string]bool{
	"navigate": true, "open": true, "go": true, "reload": true, "refresh": true,
}

var roleWordPattern = regexp.MustCompile(`\b(` + roleNames + `|field|dropdown|form|page|menu)\b`)

func classifyVerb(norm string) verbClass {
	fields := strings.Fields(norm)
	if len(fields) == 0 {
		return verbUnknown
	}
	head := fields[0]
	switch {
	case interactionVerbs[head]:
		return verbInteraction
	case assertionVerbs[head]:
		return verbAssertion
	case navigationVerbs[head]:
		return verbNavigation
	case head == "wait":
		return verbWait
	}
	return verbUnknown
}

// blockStep builds the blocked sentinel for a step nothing resolved. The
// reason comes from a small decision tree over verb class, quoted text and
// recognizable role words; the suggestion is a concrete rewrite the author
// can paste.
func blockStep(step action.Step, norm string) action.Action {
	quoted := normalize.QuotedLiterals(norm)
	hasQuote := len(quoted) > 0
	roleMatch := roleWordPattern.FindString(norm)

	var reason, suggestion string
	switch classifyVerb(norm) {
	case verbInteraction:
		switch {
		case hasQuote && roleMatch != "":
			reason = fmt.Sprintf("interaction verb recognized but the phrase shape around '%s' did not match any pattern", quoted[0])
			suggestion = fmt.Sprintf("Try: \"User clicks the '%s' %s\"", quoted[0], firstRoleOr(roleMatch, "button"))
		case hasQuote:
			reason = "interaction verb recognized but no element role found"
			suggestion = fmt.Sprintf("Name the element type, e.g. \"User clicks the '%s' button\"", quoted[0])
		default:
			reason = "interaction verb recognized but no quoted target"
			suggestion = "Quote the element label, e.g. \"User clicks the 'Save' button\""
		}
	case verbAssertion:
		if hasQuote {
			reason = "assertion verb recognized but the expectation shape did not match any pattern"
			suggestion = fmt.Sprintf("Try: \"User should see '%s'\"", quoted[0])
		} else {
			reason = "assertion verb recognized but nothing quoted to assert on"
			suggestion = "Quote the expected text, e.g. \"User should see 'Welcome back'\""
		}
	case verbNavigation:
		if hasQuote {
			reason = "navigation verb recognized but the destination shape did not match"
			suggestion = fmt.Sprintf("Try: \"User navigates to '%s'\"", quoted[0])
		} else {
			reason = "navigation verb recognized but no destination found"
			suggestion = "Name the destination, e.g. \"User navigates to '/settings'\""
		}
	case verbWait:
		reason = "wait step did not name a condition"
		suggestion = "Try: \"User waits for 'Loading' to disappear\" or \"User waits for navigation\""
	default:
		reason = "no recognizable verb; step cannot be mapped to an action"
		if hasQuote {
			suggestion = fmt.Sprintf("Start with an action verb, e.g. \"User clicks the '%s' button\"", quoted[0])
		} else {
			suggestion = "Start with an action verb and quote targets, e.g. \"User clicks the 'Save' button\""
		}
	}

	return action.Action{
		Type:         action.Blocked,
		Reason:       reason,
		Suggestion:   suggestion,
		OriginalText: step.Text,
	}
}

func firstRoleOr(role, fallback string) string {
	switch role {
	case "field", "dropdown", "form", "page", "menu":
		return fallback
	case "":
		return fallback
	default:
		return canonicalRole(role)
	}
}

// fillVerbs and clickish help generic synthesis pick an action type.
var fillWords = regexp.MustCompile(`\b(fill|type|enter|input)\b`)
var clickWords = regexp.MustCompile(`\b(click|tap|press|push|submit)\b`)
var expectWords = regexp.MustCompile(`\b(see|should|expect|verify|visible|contain)\b`)
var selectWords = regexp.MustCompile(`\b(select|choose|pick)\b`)
var navigateWords = regexp.MustCompile(`\b(navigate|open|visit|go)\b`)

// synthesizeGeneric builds a best-effort Action for a corpus match in the
// [corpusThreshold, strictThreshold) band. Rather than trusting the matched
// example's strict extractor at middling similarity, it keys off the step's
// own quoted substrings and verb keywords: first quoted string is the target,
// second is the value. Returns nil when no verb class is recognizable, which
// sends the step down the blocked path.
func synthesizeGeneric(norm string) *action.Action {
	quoted := normalize.QuotedLiterals(norm)

	textLoc := func(v string) *action.LocatorSpec {
		return &action.LocatorSpec{Strategy: action.ByText, Value: v}
	}

	switch {
	case fillWords.MatchString(norm) && len(quoted) >= 2:
		return &action.Action{
			Type:    action.Fill,
			Locator: &action.LocatorSpec{Strategy: action.ByLabel, Value: quoted[1]},
			Value:   action.ClassifyValue(quoted[0]),
		}
	case selectWords.MatchString(norm) && len(quoted) >= 2:
		return &action.Action{
			Type:    action.SelectOption,
			Locator: &action.LocatorSpec{Strategy: action.ByLabel, Value: quoted[1]},
			Value:   action.Literal(quoted[0]),
		}
	case clickWords.MatchString(norm) && len(quoted) >= 1:
		return &action.Action{Type: action.Click, Locator: textLoc(quoted[0])}
	case expectWords.MatchString(norm) && len(quoted) >= 1:
		return &action.Action{Type: action.ExpectVisible, Locator: textLoc(quoted[0])}
	case navigateWords.MatchString(norm) && len(quoted) >= 1:
		return &action.Action{Type: action.Navigate, URL: quoted[0]}
	}
	return nil
}
