// Package resolver maps normalized step text to structured Actions. Three
// tiers are tried in order: the deterministic core pattern library, the
// learned pattern store, and fuzzy matching against a curated example corpus.
// A step no tier accepts resolves to a blocked Action, never an error.
package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"journeykit/internal/action"
	"journeykit/internal/logging"
)

// q matches one quoted literal, single or double quoted.
const q = `['"]([^'"]+)['"]`

// Pattern pairs a shape matcher with an extractor. The matcher recognizes a
// phrase shape on normalized text; the extractor builds the Action, returning
// nil when the captured pieces fail its constraints.
type Pattern struct {
	Name    string
	re      *regexp.Regexp
	extract func(m []string) *action.Action
}

// Library is an ordered pattern list: first structural match whose extractor
// returns non-nil wins. Order encodes priority — negative and structured
// forms precede the generic catch-alls, so "is not visible" can never fall
// into the "is visible" bucket.
type Library struct {
	patterns []Pattern
}

// Match returns the first accepted Action and the name of the pattern that
// produced it.
func (l *Library) Match(norm string) (*action.Action, string) {
	for _, p := range l.patterns {
		m := p.re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		if a := p.extract(m); a != nil {
			logging.PatternsDebug("core pattern %q matched %q", p.Name, norm)
			return a, p.Name
		}
	}
	return nil, ""
}

// Names returns pattern names in priority order (diagnostics only).
func (l *Library) Names() []string {
	names := make([]string, len(l.patterns))
	for i, p := range l.patterns {
		names[i] = p.Name
	}
	return names
}

func pat(name, expr string, extract func(m []string) *action.Action) Pattern {
	return Pattern{Name: name, re: regexp.MustCompile(expr), extract: extract}
}

// roleNames are the element roles the click/assert patterns recognize.
const roleNames = `button|link|tab|checkbox|radio|option|menu item|menuitem|heading|row|cell|dialog|image`

// canonicalRole folds multi-word role spellings.
func canonicalRole(role string) string {
	if role == "menu item" {
		return "menuitem"
	}
	return role
}

// NewLibrary constructs the core pattern library.
func NewLibrary() *Library {
	roleLocator := func(role, name string) *action.LocatorSpec {
		return &action.LocatorSpec{
			Strategy: action.ByRole,
			Value:    canonicalRole(role),
			Options:  map[string]string{"name": name},
		}
	}
	textLocator := func(text string) *action.LocatorSpec {
		return &action.LocatorSpec{Strategy: action.ByText, Value: text}
	}
	labelLocator := func(label string) *action.LocatorSpec {
		return &action.LocatorSpec{Strategy: action.ByLabel, Value: label}
	}

	return &Library{patterns: []Pattern{
		// --- Navigation ------------------------------------------------
		pat("navigate-quoted", `^navigate to `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Navigate, URL: m[1]}
		}),
		pat("navigate-page", `^navigate to (?:the )?([a-z0-9 /_-]+?)(?: page)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Navigate, URL: pageSlug(m[1])}
		}),
		pat("reload", `^(?:reload|refresh)(?: (?:the )?page)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Reload}
		}),
		pat("go-back", `^go back$`, func(m []string) *action.Action {
			return &action.Action{Type: action.GoBack}
		}),
		pat("go-forward", `^go forward$`, func(m []string) *action.Action {
			return &action.Action{Type: action.GoForward}
		}),

		// --- Interaction (structured forms before generic) --------------
		pat("double-click-role", `^double[- ]?click `+q+` (`+roleNames+`)$`, func(m []string) *action.Action {
			return &action.Action{Type: action.DoubleClick, Locator: roleLocator(m[2], m[1])}
		}),
		pat("right-click-role", `^right[- ]?click `+q+` (`+roleNames+`)$`, func(m []string) *action.Action {
			return &action.Action{Type: action.RightClick, Locator: roleLocator(m[2], m[1])}
		}),
		pat("click-role", `^click `+q+` (`+roleNames+`)$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Click, Locator: roleLocator(m[2], m[1])}
		}),
		pat("click-text", `^click `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Click, Locator: textLocator(m[1])}
		}),
		pat("hover", `^hover (?:over )?`+q+`(?: (`+roleNames+`))?$`, func(m []string) *action.Action {
			if m[2] != "" {
				return &action.Action{Type: action.Hover, Locator: roleLocator(m[2], m[1])}
			}
			return &action.Action{Type: action.Hover, Locator: textLocator(m[1])}
		}),
		pat("focus", `^focus (?:on )?`+q+`(?: field)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Focus, Locator: labelLocator(m[1])}
		}),
		pat("press-key", `^press `+q+`(?: key)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Press, Key: m[1]}
		}),
		pat("fill-into-quoted", `^fill `+q+` (?:in|into) `+q+`(?: field)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Fill, Locator: labelLocator(m[2]), Value: action.ClassifyValue(m[1])}
		}),
		pat("fill-into-named", `^fill `+q+` (?:in|into) ([a-z0-9 _-]+?) field$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Fill, Locator: labelLocator(strings.TrimSpace(m[2])), Value: action.ClassifyValue(m[1])}
		}),
		pat("fill-field-with", `^fill (?:`+q+`|([a-z0-9 _-]+?)) field with `+q+`$`, func(m []string) *action.Action {
			label := m[1]
			if label == "" {
				label = strings.TrimSpace(m[2])
			}
			return &action.Action{Type: action.Fill, Locator: labelLocator(label), Value: action.ClassifyValue(m[3])}
		}),
		pat("clear-field", `^clear (?:`+q+`|([a-z0-9 _-]+?)) field$`, func(m []string) *action.Action {
			label := m[1]
			if label == "" {
				label = strings.TrimSpace(m[2])
			}
			return &action.Action{Type: action.Clear, Locator: labelLocator(label)}
		}),
		pat("select-from", `^select `+q+` from (?:`+q+`|([a-z0-9 _-]+?))(?: dropdown)?$`, func(m []string) *action.Action {
			label := m[2]
			if label == "" {
				label = strings.TrimSpace(m[3])
			}
			return &action.Action{Type: action.SelectOption, Locator: labelLocator(label), Value: action.Literal(m[1])}
		}),
		pat("uncheck", `^uncheck (?:the )?`+q+`(?: checkbox)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Uncheck, Locator: roleLocator("checkbox", m[1])}
		}),
		pat("check", `^check (?:the )?`+q+`(?: checkbox)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Check, Locator: roleLocator("checkbox", m[1])}
		}),
		pat("upload", `^upload `+q+` (?:to|into) `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Upload, Locator: labelLocator(m[2]), Value: action.Literal(m[1])}
		}),
		pat("scroll-to", `^scroll to `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ScrollTo, Locator: textLocator(m[1])}
		}),
		pat("drag-and-drop", `^drag `+q+` (?:to|onto) `+q+`$`, func(m []string) *action.Action {
			return &action.Action{
				Type:    action.DragAndDrop,
				Locator: textLocator(m[1]),
				Target:  textLocator(m[2]),
			}
		}),

		// --- Assertions: negative forms strictly before positive --------
		pat("expect-not-visible", `^should not see `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectNotVisible, Locator: textLocator(m[1])}
		}),
		pat("expect-not-visible-subject", `^`+q+` should not be visible$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectNotVisible, Locator: textLocator(m[1])}
		}),
		pat("expect-not-contain", `^`+q+` should not contain `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectNotText, Locator: textLocator(m[1]), Value: action.Literal(m[2])}
		}),
		pat("expect-count", `^should see (\d+) `+q+`(?: items?| rows?| elements?)?$`, func(m []string) *action.Action {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 0 {
				return nil
			}
			return &action.Action{Type: action.ExpectCount, Locator: textLocator(m[2]), Count: n}
		}),
		pat("expect-visible", `^should see `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectVisible, Locator: textLocator(m[1])}
		}),
		pat("expect-visible-subject", `^`+q+` should be visible$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectVisible, Locator: textLocator(m[1])}
		}),
		pat("expect-state", `^`+q+`(?: (`+roleNames+`))? should be (enabled|disabled|checked|unchecked)$`, func(m []string) *action.Action {
			var loc *action.LocatorSpec
			if m[2] != "" {
				loc = roleLocator(m[2], m[1])
			} else {
				loc = textLocator(m[1])
			}
			switch m[3] {
			case "enabled":
				return &action.Action{Type: action.ExpectEnabled, Locator: loc}
			case "disabled":
				return &action.Action{Type: action.ExpectDisabled, Locator: loc}
			case "checked":
				return &action.Action{Type: action.ExpectChecked, Locator: loc}
			case "unchecked":
				return &action.Action{Type: action.ExpectUnchecked, Locator: loc}
			}
			return nil
		}),
		pat("expect-field-value", `^`+q+` field should (?:have value|contain) `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectValue, Locator: labelLocator(m[1]), Value: action.Literal(m[2])}
		}),
		pat("expect-contain", `^`+q+` should contain `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectText, Locator: textLocator(m[1]), Value: action.Literal(m[2])}
		}),
		pat("expect-url", `^url should (?:be|contain) `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectURL, URL: m[1]}
		}),
		pat("expect-title", `^(?:page )?title should (?:be|contain) `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ExpectTitle, Value: action.Literal(m[1])}
		}),

		// --- Waits ------------------------------------------------------
		pat("wait-navigation", `^wait for (?:navigation|page load|page to load)$`, func(m []string) *action.Action {
			return &action.Action{Type: action.WaitForNavigation}
		}),
		pat("wait-url", `^wait for url `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.WaitForURL, URL: m[1]}
		}),
		pat("wait-hidden", `^wait for `+q+` to disappear$`, func(m []string) *action.Action {
			return &action.Action{Type: action.WaitForHidden, Locator: textLocator(m[1])}
		}),
		pat("wait-selector", `^wait for `+q+`(?: to appear)?$`, func(m []string) *action.Action {
			return &action.Action{Type: action.WaitForSelector, Locator: textLocator(m[1])}
		}),

		// --- Composition --------------------------------------------------
		pat("signal", `^(?:signal|emit) `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.Signal, Name: m[1]}
		}),
		pat("module-call", `^(?:run|perform|execute) (?:module|journey) `+q+`$`, func(m []string) *action.Action {
			return &action.Action{Type: action.ModuleCall, Name: m[1]}
		}),
	}}
}

// pageSlug turns a prose page name into a path: "settings page" -> "/settings".
func pageSlug(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "/") {
		return name
	}
	if name == "home" || name == "homepage" {
		return "/"
	}
	return "/" + strings.ReplaceAll(name, " ", "-")
}
