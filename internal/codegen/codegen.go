// Package codegen renders resolved journeys into Playwright TypeScript spec
// files. Output is deterministic: the same journey and resolutions always
// produce the same bytes, so generated specs diff cleanly in review.
package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"journeykit/internal/action"
	"journeykit/internal/journey"
	"journeykit/internal/logging"
	"journeykit/internal/resolver"
)

var specTemplate = template.Must(template.New("spec").Parse(`// Generated by journeykit from {{.SourcePath}} — do not edit by hand.
import { test, expect } from '@playwright/test';
{{if .HasModuleCalls}}import * as modules from './modules';
{{end}}
const runId = ` + "`run-${Date.now()}`" + `;
{{if .Actors}}const actors = {
{{range .Actors}}  {{.Key}}: '{{.Value}}',
{{end}}};
{{end}}
test.describe('{{.Title}}', () => {
  test('{{.ID}}', async ({ page }) => {
{{range .Steps}}    // Step {{.Number}}: {{.Text}}
{{range .Lines}}    {{.}}
{{end}}
{{end}}  });
});
`))

type actorEntry struct {
	Key   string
	Value string
}

type renderedStep struct {
	Number int
	Text   string
	Lines  []string
}

type specData struct {
	SourcePath     string
	ID             string
	Title          string
	Actors         []actorEntry
	HasModuleCalls bool
	Steps          []renderedStep
}

// Generate renders one journey and its resolutions into a TypeScript spec.
// The resolutions must be index-aligned with the journey's steps.
func Generate(j *journey.Journey, resolutions []resolver.Resolution) (string, error) {
	timer := logging.StartTimer(logging.CategoryCodegen, "Generate")
	defer timer.Stop()

	if len(resolutions) != len(j.Steps) {
		return "", fmt.Errorf("journey %s has %d steps but %d resolutions", j.ID, len(j.Steps), len(resolutions))
	}

	data := specData{
		SourcePath: j.Path,
		ID:         j.ID,
		Title:      tsEscape(j.Title),
	}
	for key, val := range j.Actors {
		data.Actors = append(data.Actors, actorEntry{Key: key, Value: tsEscape(val)})
	}
	sort.Slice(data.Actors, func(i, k int) bool { return data.Actors[i].Key < data.Actors[k].Key })

	for i, res := range resolutions {
		lines, err := renderAction(res.Action, j.BaseURL)
		if err != nil {
			return "", fmt.Errorf("step %d of journey %s: %w", i+1, j.ID, err)
		}
		if res.Action.Type == action.ModuleCall {
			data.HasModuleCalls = true
		}
		data.Steps = append(data.Steps, renderedStep{
			Number: i + 1,
			Text:   j.Steps[i].Text,
			Lines:  lines,
		})
	}

	var b strings.Builder
	if err := specTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render spec: %w", err)
	}

	logging.Codegen("rendered %s: %d step(s)", j.ID, len(data.Steps))
	return b.String(), nil
}

// Write renders the journey and writes <id>.spec.ts into dir, atomically.
func Write(j *journey.Journey, resolutions []resolver.Resolution, dir string) (string, error) {
	src, err := Generate(j, resolutions)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create spec directory: %w", err)
	}
	path := filepath.Join(dir, j.ID+".spec.ts")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(src), 0644); err != nil {
		return "", fmt.Errorf("failed to write spec: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to replace spec: %w", err)
	}
	return path, nil
}

// renderAction emits the TypeScript statement(s) for one action. The switch
// is exhaustive over the closed Type union; an unknown type is a bug in the
// resolver, not something to paper over.
func renderAction(a action.Action, baseURL string) ([]string, error) {
	switch a.Type {
	case action.Navigate:
		return one("await page.goto(%s);", tsString(resolveURL(a.URL, baseURL))), nil
	case action.Reload:
		return one("await page.reload();"), nil
	case action.GoBack:
		return one("await page.goBack();"), nil
	case action.GoForward:
		return one("await page.goForward();"), nil

	case action.Click:
		return locCall(a, "click")
	case action.DoubleClick:
		return locCall(a, "dblclick")
	case action.RightClick:
		loc, err := locator(a)
		if err != nil {
			return nil, err
		}
		return one("await %s.click(%s);", loc, callOpts(a, "button: 'right'")), nil
	case action.Hover:
		return locCall(a, "hover")
	case action.Focus:
		return locCall(a, "focus")
	case action.Clear:
		return locCall(a, "clear")
	case action.Check:
		return locCall(a, "check")
	case action.Uncheck:
		return locCall(a, "uncheck")
	case action.ScrollTo:
		return locCall(a, "scrollIntoViewIfNeeded")

	case action.Fill:
		return locValueCall(a, "fill")
	case action.SelectOption:
		return locValueCall(a, "selectOption")
	case action.Upload:
		return locValueCall(a, "setInputFiles")

	case action.Press:
		if a.Key == "" {
			return nil, fmt.Errorf("press action has no key")
		}
		if a.Locator != nil {
			loc, err := locator(a)
			if err != nil {
				return nil, err
			}
			return one("await %s.press(%s);", loc, tsString(a.Key)), nil
		}
		return one("await page.keyboard.press(%s);", tsString(a.Key)), nil

	case action.DragAndDrop:
		loc, err := locator(a)
		if err != nil {
			return nil, err
		}
		if a.Target == nil {
			return nil, fmt.Errorf("dragAndDrop action has no target")
		}
		return one("await %s.dragTo(%s);", loc, locatorExpr(*a.Target)), nil

	case action.ExpectVisible:
		return expectCall(a, "toBeVisible", "")
	case action.ExpectNotVisible:
		return expectCall(a, "not.toBeVisible", "")
	case action.ExpectText:
		return expectValueCall(a, "toContainText")
	case action.ExpectNotText:
		return expectValueCall(a, "not.toContainText")
	case action.ExpectValue:
		return expectValueCall(a, "toHaveValue")
	case action.ExpectEnabled:
		return expectCall(a, "toBeEnabled", "")
	case action.ExpectDisabled:
		return expectCall(a, "toBeDisabled", "")
	case action.ExpectChecked:
		return expectCall(a, "toBeChecked", "")
	case action.ExpectUnchecked:
		return expectCall(a, "not.toBeChecked", "")
	case action.ExpectCount:
		return expectCall(a, "toHaveCount", fmt.Sprintf("%d", a.Count))
	case action.ExpectURL:
		return one("await expect(page).toHaveURL(%s);", tsString(resolveURL(a.URL, baseURL))), nil
	case action.ExpectTitle:
		if a.Value == nil {
			return nil, fmt.Errorf("expectTitle action has no value")
		}
		return one("await expect(page).toHaveTitle(%s);", valueExpr(*a.Value)), nil

	case action.WaitForSelector:
		return waitForCall(a, "visible")
	case action.WaitForHidden:
		return waitForCall(a, "hidden")
	case action.WaitForURL:
		return one("await page.waitForURL(%s%s);", tsString(resolveURL(a.URL, baseURL)), timeoutArg(a)), nil
	case action.WaitForNavigation:
		return one("await page.waitForLoadState('load'%s);", timeoutArg(a)), nil

	case action.Signal:
		return one("console.log('[journeykit:signal] %s');", tsEscape(a.Name)), nil
	case action.ModuleCall:
		return one("await modules[%s](page, { actors, runId });", tsString(a.Name)), nil

	case action.Blocked:
		// A blocked step must fail the test loudly, never pass silently.
		return []string{
			fmt.Sprintf("// BLOCKED: %s", a.Reason),
			fmt.Sprintf("// Suggestion: %s", a.Suggestion),
			fmt.Sprintf("throw new Error(%s);", tsString(fmt.Sprintf("unresolvable step: %s (%s)", a.OriginalText, a.Reason))),
		}, nil
	}

	return nil, fmt.Errorf("unknown action type %q", a.Type)
}

func one(format string, args ...interface{}) []string {
	return []string{fmt.Sprintf(format, args...)}
}

// locCall renders `await <locator>.<method>();` with an optional timeout.
func locCall(a action.Action, method string) ([]string, error) {
	loc, err := locator(a)
	if err != nil {
		return nil, err
	}
	return one("await %s.%s(%s);", loc, method, callOpts(a, "")), nil
}

// locValueCall renders `await <locator>.<method>(<value>);`.
func locValueCall(a action.Action, method string) ([]string, error) {
	loc, err := locator(a)
	if err != nil {
		return nil, err
	}
	if a.Value == nil {
		return nil, fmt.Errorf("%s action has no value", a.Type)
	}
	args := valueExpr(*a.Value)
	if a.TimeoutMs > 0 {
		args += fmt.Sprintf(", { timeout: %d }", a.TimeoutMs)
	}
	return one("await %s.%s(%s);", loc, method, args), nil
}

// expectCall renders `await expect(<locator>).<matcher>(<arg>);`.
func expectCall(a action.Action, matcher, arg string) ([]string, error) {
	loc, err := locator(a)
	if err != nil {
		return nil, err
	}
	if a.TimeoutMs > 0 {
		if arg != "" {
			arg += ", "
		}
		arg += fmt.Sprintf("{ timeout: %d }", a.TimeoutMs)
	}
	return one("await expect(%s).%s(%s);", loc, matcher, arg), nil
}

func expectValueCall(a action.Action, matcher string) ([]string, error) {
	if a.Value == nil {
		return nil, fmt.Errorf("%s action has no value", a.Type)
	}
	return expectCall(a, matcher, valueExpr(*a.Value))
}

func waitForCall(a action.Action, state string) ([]string, error) {
	loc, err := locator(a)
	if err != nil {
		return nil, err
	}
	opts := fmt.Sprintf("state: '%s'", state)
	if a.TimeoutMs > 0 {
		opts += fmt.Sprintf(", timeout: %d", a.TimeoutMs)
	}
	return one("await %s.waitFor({ %s });", loc, opts), nil
}

func locator(a action.Action) (string, error) {
	if a.Locator == nil {
		return "", fmt.Errorf("%s action has no locator", a.Type)
	}
	return locatorExpr(*a.Locator), nil
}

// locatorExpr maps a LocatorSpec onto Playwright's locator API.
func locatorExpr(l action.LocatorSpec) string {
	switch l.Strategy {
	case action.ByRole:
		if len(l.Options) == 0 {
			return fmt.Sprintf("page.getByRole(%s)", tsString(l.Value))
		}
		return fmt.Sprintf("page.getByRole(%s, { %s })", tsString(l.Value), optionPairs(l.Options))
	case action.ByLabel:
		return fmt.Sprintf("page.getByLabel(%s)", tsString(l.Value))
	case action.ByPlaceholder:
		return fmt.Sprintf("page.getByPlaceholder(%s)", tsString(l.Value))
	case action.ByText:
		return fmt.Sprintf("page.getByText(%s)", tsString(l.Value))
	case action.ByTestID:
		return fmt.Sprintf("page.getByTestId(%s)", tsString(l.Value))
	default: // ByCSS and anything hint-supplied
		return fmt.Sprintf("page.locator(%s)", tsString(l.Value))
	}
}

// optionPairs renders locator options with sorted keys. Boolean-looking
// values stay bare so `exact: true` round-trips.
func optionPairs(opts map[string]string) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := opts[k]
		if v == "true" || v == "false" {
			pairs = append(pairs, fmt.Sprintf("%s: %s", k, v))
		} else {
			pairs = append(pairs, fmt.Sprintf("%s: %s", k, tsString(v)))
		}
	}
	return strings.Join(pairs, ", ")
}

// valueExpr maps a ValueSpec onto the TypeScript expression that produces it
// at run time.
func valueExpr(v action.ValueSpec) string {
	switch v.Kind {
	case action.ActorValue:
		// "actor.email" -> actors.email
		return "actors." + strings.TrimPrefix(v.Raw, "actor.")
	case action.RunIDValue:
		return "runId"
	case action.TemplateValue:
		expr := strings.ReplaceAll(v.Raw, "{runId}", "${runId}")
		expr = strings.ReplaceAll(expr, "{timestamp}", "${Date.now()}")
		return "`" + strings.ReplaceAll(expr, "`", "\\`") + "`"
	case action.TestDataValue:
		return fmt.Sprintf("testData[%s]", tsString(v.Raw))
	default:
		return tsString(v.Raw)
	}
}

// callOpts renders the options object for an interaction call: the extra
// entries plus a timeout when the action carries one. Empty when neither.
func callOpts(a action.Action, extra string) string {
	parts := []string{}
	if extra != "" {
		parts = append(parts, extra)
	}
	if a.TimeoutMs > 0 {
		parts = append(parts, fmt.Sprintf("timeout: %d", a.TimeoutMs))
	}
	if len(parts) == 0 {
		return ""
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// timeoutArg renders the trailing options argument for page-level waits.
func timeoutArg(a action.Action) string {
	if a.TimeoutMs <= 0 {
		return ""
	}
	return fmt.Sprintf(", { timeout: %d }", a.TimeoutMs)
}

// resolveURL joins a relative path onto the journey's base URL.
func resolveURL(url, baseURL string) string {
	if baseURL == "" || strings.Contains(url, "://") {
		return url
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(url, "/")
}

// tsString renders a single-quoted TypeScript string literal.
func tsString(s string) string {
	return "'" + tsEscape(s) + "'"
}

func tsEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
