// Package action defines the structured representation of resolved journey
// steps: the Action tagged union, locator and value specifications, and the
// Step input type. Every downstream consumer (resolver, learned store,
// codegen, healing) shares these types so a new Action kind is a compile-time
// event across the system.
package action

import (
	"fmt"
	"sort"
	"strings"
)

// Type discriminates the Action union. The set is closed: codegen and the
// healing adapters switch over every member and reject unknown values.
type Type string

const (
	// Navigation
	Navigate  Type = "navigate"
	Reload    Type = "reload"
	GoBack    Type = "goBack"
	GoForward Type = "goForward"

	// Interaction
	Click        Type = "click"
	DoubleClick  Type = "dblclick"
	RightClick   Type = "rightClick"
	Hover        Type = "hover"
	Focus        Type = "focus"
	Fill         Type = "fill"
	Clear        Type = "clear"
	Press        Type = "press"
	SelectOption Type = "selectOption"
	Check        Type = "check"
	Uncheck      Type = "uncheck"
	Upload       Type = "upload"
	ScrollTo     Type = "scrollTo"
	DragAndDrop  Type = "dragAndDrop"

	// Assertions
	ExpectVisible    Type = "expectVisible"
	ExpectNotVisible Type = "expectNotVisible"
	ExpectText       Type = "expectText"
	ExpectNotText    Type = "expectNotText"
	ExpectValue      Type = "expectValue"
	ExpectEnabled    Type = "expectEnabled"
	ExpectDisabled   Type = "expectDisabled"
	ExpectChecked    Type = "expectChecked"
	ExpectUnchecked  Type = "expectUnchecked"
	ExpectURL        Type = "expectURL"
	ExpectTitle      Type = "expectTitle"
	ExpectCount      Type = "expectCount"

	// Waits
	WaitForSelector   Type = "waitForSelector"
	WaitForHidden     Type = "waitForHidden"
	WaitForURL        Type = "waitForURL"
	WaitForNavigation Type = "waitForNavigation"

	// Composition
	Signal     Type = "signal"
	ModuleCall Type = "moduleCall"

	// Blocked is the sentinel for an unresolvable step. It always renders as
	// code that fails at run time; it is never dropped.
	Blocked Type = "blocked"
)

// AllTypes lists every Action kind in declaration order.
var AllTypes = []Type{
	Navigate, Reload, GoBack, GoForward,
	Click, DoubleClick, RightClick, Hover, Focus, Fill, Clear, Press,
	SelectOption, Check, Uncheck, Upload, ScrollTo, DragAndDrop,
	ExpectVisible, ExpectNotVisible, ExpectText, ExpectNotText, ExpectValue,
	ExpectEnabled, ExpectDisabled, ExpectChecked, ExpectUnchecked,
	ExpectURL, ExpectTitle, ExpectCount,
	WaitForSelector, WaitForHidden, WaitForURL, WaitForNavigation,
	Signal, ModuleCall,
	Blocked,
}

// Known reports whether t is a member of the closed union.
func Known(t Type) bool {
	for _, k := range AllTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Action is the structured, executable representation of one resolved step.
// Which fields are populated depends on Type.
type Action struct {
	Type    Type         `json:"type"`
	Locator *LocatorSpec `json:"locator,omitempty"`
	Value   *ValueSpec   `json:"value,omitempty"`
	// Target is a second locator for two-element actions (dragAndDrop).
	Target *LocatorSpec `json:"target,omitempty"`
	// URL for navigate / expectURL / waitForURL.
	URL string `json:"url,omitempty"`
	// Key for press. Count for expectCount. TimeoutMs overrides the default
	// wait budget when an inline hint set one.
	Key       string `json:"key,omitempty"`
	Count     int    `json:"count,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
	// Name for signal and moduleCall.
	Name string `json:"name,omitempty"`
	// Reason and OriginalText are populated on blocked actions only.
	Reason       string `json:"reason,omitempty"`
	Suggestion   string `json:"suggestion,omitempty"`
	OriginalText string `json:"originalText,omitempty"`
}

// IsBlocked reports whether the action is the unresolved sentinel.
func (a Action) IsBlocked() bool {
	return a.Type == Blocked
}

// IsAssertion reports whether the action asserts state rather than mutating it.
func (a Action) IsAssertion() bool {
	switch a.Type {
	case ExpectVisible, ExpectNotVisible, ExpectText, ExpectNotText,
		ExpectValue, ExpectEnabled, ExpectDisabled, ExpectChecked,
		ExpectUnchecked, ExpectURL, ExpectTitle, ExpectCount:
		return true
	}
	return false
}

// String renders a compact human-readable form for logs.
func (a Action) String() string {
	var b strings.Builder
	b.WriteString(string(a.Type))
	if a.Locator != nil {
		fmt.Fprintf(&b, " %s", a.Locator.Canonical())
	}
	if a.Value != nil {
		fmt.Fprintf(&b, " value=%s", a.Value.Raw)
	}
	if a.URL != "" {
		fmt.Fprintf(&b, " url=%s", a.URL)
	}
	if a.Type == Blocked {
		fmt.Fprintf(&b, " reason=%q", a.Reason)
	}
	return b.String()
}

// LocatorStrategy enumerates how an element is found.
type LocatorStrategy string

const (
	ByRole        LocatorStrategy = "role"
	ByLabel       LocatorStrategy = "label"
	ByPlaceholder LocatorStrategy = "placeholder"
	ByText        LocatorStrategy = "text"
	ByTestID      LocatorStrategy = "testid"
	ByCSS         LocatorStrategy = "css"
)

// LocatorSpec identifies a page element. Equality is canonical-serialization
// equality: two specs locate the same element iff Canonical() matches.
type LocatorSpec struct {
	Strategy LocatorStrategy   `json:"strategy"`
	Value    string            `json:"value"`
	Options  map[string]string `json:"options,omitempty"`
}

// Canonical serializes the spec deterministically (options key-sorted) so it
// can drive dedup and map keys.
func (l *LocatorSpec) Canonical() string {
	if l == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", l.Strategy, l.Value)
	if len(l.Options) > 0 {
		keys := make([]string, 0, len(l.Options))
		for k := range l.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, ";%s=%s", k, l.Options[k])
		}
	}
	return b.String()
}

// Equal reports canonical equality.
func (l *LocatorSpec) Equal(other *LocatorSpec) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Canonical() == other.Canonical()
}

// ValueKind discriminates ValueSpec.
type ValueKind string

const (
	LiteralValue  ValueKind = "literal"  // verbatim string
	ActorValue    ValueKind = "actor"    // reference to an actor attribute, e.g. actor.email
	RunIDValue    ValueKind = "runId"    // the unique id of this run
	TemplateValue ValueKind = "template" // generated from a template, e.g. "user-{runId}@test.io"
	TestDataValue ValueKind = "testData" // reference into the external test-data set
)

// ValueSpec is the tagged value source for fill/select/assert actions.
type ValueSpec struct {
	Kind ValueKind `json:"kind"`
	Raw  string    `json:"raw"`
}

// Literal builds a literal ValueSpec.
func Literal(s string) *ValueSpec {
	return &ValueSpec{Kind: LiteralValue, Raw: s}
}

// ClassifyValue infers the value kind from its surface form. "actor.email"
// style references, "{runId}" templates and "testdata:" prefixes are
// recognized; everything else is a literal.
func ClassifyValue(raw string) *ValueSpec {
	switch {
	case strings.HasPrefix(raw, "actor."):
		return &ValueSpec{Kind: ActorValue, Raw: raw}
	case raw == "{runId}":
		return &ValueSpec{Kind: RunIDValue, Raw: raw}
	case strings.Contains(raw, "{runId}") || strings.Contains(raw, "{timestamp}"):
		return &ValueSpec{Kind: TemplateValue, Raw: raw}
	case strings.HasPrefix(raw, "testdata:"):
		return &ValueSpec{Kind: TestDataValue, Raw: strings.TrimPrefix(raw, "testdata:")}
	default:
		return &ValueSpec{Kind: LiteralValue, Raw: raw}
	}
}
