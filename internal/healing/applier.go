package healing

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"journeykit/internal/logging"
)

// SpecApplier applies fixes to a generated spec file. Structural fixes
// (anything that changes what a step means) go through Regenerate, so the
// resolver — with whatever the learned store has picked up since — produces
// the new code; mechanical fixes are textual edits on the spec itself.
type SpecApplier struct {
	SpecPath string
	// Regenerate re-resolves the journey and returns fresh spec source.
	Regenerate func(ctx context.Context) (string, error)
}

var timeoutOption = regexp.MustCompile(`timeout: (\d+)`)

// Apply implements Applier.
func (s *SpecApplier) Apply(ctx context.Context, journeyID string, fix FixType, failure ClassifiedFailure) (string, error) {
	switch fix {
	case FixRegenerateStep, FixUpdateSelector, FixUpdateAssertionValue, FixUpdateURL:
		if s.Regenerate == nil {
			return "", fmt.Errorf("fix %s needs regeneration but no regenerator is wired", fix)
		}
		src, err := s.Regenerate(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to regenerate %s: %w", journeyID, err)
		}
		if err := s.write(src); err != nil {
			return "", err
		}
		return fmt.Sprintf("regenerated spec for %s", journeyID), nil

	case FixIncreaseTimeout:
		return s.edit(func(src string) (string, string) {
			if timeoutOption.MatchString(src) {
				src = timeoutOption.ReplaceAllStringFunc(src, func(m string) string {
					n, _ := strconv.Atoi(strings.TrimPrefix(m, "timeout: "))
					return fmt.Sprintf("timeout: %d", n*2)
				})
				return src, "doubled explicit timeouts"
			}
			return insertAfterTestOpen(src, "test.setTimeout(60000);"),
				"set a 60s test timeout"
		})

	case FixAddWaitForSelector:
		return s.edit(func(src string) (string, string) {
			return insertBeforeFirst(src, "await expect(",
					"await page.waitForLoadState('domcontentloaded');"),
				"wait for the document before the first assertion"
		})

	case FixWaitForNavigation:
		return s.edit(func(src string) (string, string) {
			return insertAfterEach(src, "await page.goto(",
					"await page.waitForLoadState('load');"),
				"wait for load after navigation"
		})

	case FixReloadPage:
		return s.edit(func(src string) (string, string) {
			return insertAfterTestOpen(src, "await page.reload();"),
				"reload before the first step"
		})
	}

	return "", fmt.Errorf("no application strategy for fix %q", fix)
}

// edit reads the spec, transforms it, and writes it back atomically.
func (s *SpecApplier) edit(transform func(string) (string, string)) (string, error) {
	data, err := os.ReadFile(s.SpecPath)
	if err != nil {
		return "", fmt.Errorf("failed to read spec: %w", err)
	}

	out, desc := transform(string(data))
	if out == string(data) {
		return "", fmt.Errorf("fix had no effect on %s", s.SpecPath)
	}
	if err := s.write(out); err != nil {
		return "", err
	}
	logging.Healing("edited %s: %s", s.SpecPath, desc)
	return desc, nil
}

func (s *SpecApplier) write(src string) error {
	tmp := s.SpecPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(src), 0644); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}
	if err := os.Rename(tmp, s.SpecPath); err != nil {
		return fmt.Errorf("failed to replace spec: %w", err)
	}
	return nil
}

// insertAfterTestOpen places a statement as the first line of the test body.
func insertAfterTestOpen(src, stmt string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if strings.Contains(line, "async ({ page })") {
			indent := leadingWhitespace(line) + "  "
			lines = append(lines[:i+1], append([]string{indent + stmt}, lines[i+1:]...)...)
			break
		}
	}
	return strings.Join(lines, "\n")
}

// insertBeforeFirst puts stmt on its own line before the first line
// containing marker.
func insertBeforeFirst(src, marker, stmt string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if strings.Contains(line, marker) {
			indent := leadingWhitespace(line)
			lines = append(lines[:i], append([]string{indent + stmt}, lines[i:]...)...)
			break
		}
	}
	return strings.Join(lines, "\n")
}

// insertAfterEach puts stmt after every line containing marker.
func insertAfterEach(src, marker, stmt string) string {
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
		if strings.Contains(line, marker) {
			out = append(out, leadingWhitespace(line)+stmt)
		}
	}
	return strings.Join(out, "\n")
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}
