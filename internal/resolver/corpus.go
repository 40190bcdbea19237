package resolver

import (
	"journeykit/internal/action"
	"journeykit/internal/normalize"
)

// CorpusExample is one curated step phrasing with a strict builder. The
// builder receives the quoted literals of the *incoming* step (not the
// example's own), so a near-verbatim match reuses the example's structure
// with the step's arguments.
type CorpusExample struct {
	Text  string // canonical normalized phrasing
	Build func(literals []string) *action.Action
}

// curatedCorpus holds hand-picked phrasings that real journeys use but that
// sit outside the core library's strict shapes. Entries earn their place by
// showing up in the field; this is not a dumping ground for the library's
// own patterns.
var curatedCorpus = []CorpusExample{
	{
		Text: "click 'target' button to continue",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByRole, Value: "button", Options: map[string]string{"name": lits[0]},
			}}
		},
	},
	{
		Text: "click first 'target' in list",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByText, Value: lits[0], Options: map[string]string{"nth": "0"},
			}}
		},
	},
	{
		Text: "log in as 'user' with password 'secret'",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{Type: action.ModuleCall, Name: "login", Value: action.ClassifyValue(lits[0])}
		},
	},
	{
		Text: "fill 'value' in search box",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{
				Type:    action.Fill,
				Locator: &action.LocatorSpec{Strategy: action.ByPlaceholder, Value: "Search"},
				Value:   action.ClassifyValue(lits[0]),
			}
		},
	},
	{
		Text: "submit form",
		Build: func([]string) *action.Action {
			return &action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByRole, Value: "button", Options: map[string]string{"name": "Submit"},
			}}
		},
	},
	{
		Text: "accept cookies",
		Build: func([]string) *action.Action {
			return &action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByRole, Value: "button", Options: map[string]string{"name": "Accept"},
			}}
		},
	},
	{
		Text: "close 'name' dialog",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByRole, Value: "button", Options: map[string]string{"name": "Close"},
			}}
		},
	},
	{
		Text: "should see success message 'text'",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{Type: action.ExpectVisible, Locator: &action.LocatorSpec{
				Strategy: action.ByText, Value: lits[0],
			}}
		},
	},
	{
		Text: "should see error message 'text'",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{Type: action.ExpectVisible, Locator: &action.LocatorSpec{
				Strategy: action.ByText, Value: lits[0],
			}}
		},
	},
	{
		Text: "should be on 'path' page",
		Build: func(lits []string) *action.Action {
			if len(lits) < 1 {
				return nil
			}
			return &action.Action{Type: action.ExpectURL, URL: lits[0]}
		},
	},
	{
		Text: "wait until page settles",
		Build: func([]string) *action.Action {
			return &action.Action{Type: action.WaitForNavigation}
		},
	},
	{
		Text: "open user menu",
		Build: func([]string) *action.Action {
			return &action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByRole, Value: "button", Options: map[string]string{"name": "User menu"},
			}}
		},
	},
	{
		Text: "sign out",
		Build: func([]string) *action.Action {
			return &action.Action{Type: action.Click, Locator: &action.LocatorSpec{
				Strategy: action.ByRole, Value: "button", Options: map[string]string{"name": "Sign out"},
			}}
		},
	},
}

// corpusTexts returns the corpus texts normalized under opts, index-aligned
// with curatedCorpus. Queries and corpus keys must share one normalization
// or every similarity carries a stop-word penalty.
func corpusTexts(opts normalize.Options) []string {
	texts := make([]string, len(curatedCorpus))
	for i, ex := range curatedCorpus {
		texts[i] = normalize.NormalizeWith(ex.Text, opts)
	}
	return texts
}
