// Package journey loads prose journey files: a YAML frontmatter block with
// identity and metadata, followed by a markdown body whose ordered list items
// are the steps.
package journey

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"journeykit/internal/action"
	"journeykit/internal/logging"
)

// Journey is one parsed journey file.
type Journey struct {
	ID      string            `yaml:"id"`
	Title   string            `yaml:"title"`
	BaseURL string            `yaml:"baseUrl"`
	Actors  map[string]string `yaml:"actors"`
	Tags    []string          `yaml:"tags"`

	Path  string        `yaml:"-"`
	Steps []action.Step `yaml:"-"`
}

// stepLine matches a numbered or bulleted list item; the capture is the step
// text with any inline hints still attached.
var stepLine = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+(.+?)\s*$`)

// Parse splits frontmatter from body and extracts the ordered steps. A
// journey without an id gets a generated one; a journey without steps is an
// error, since it can produce no test.
func Parse(data []byte, path string) (*Journey, error) {
	front, body := splitFrontmatter(string(data))

	j := &Journey{Path: path}
	if front != "" {
		if err := yaml.Unmarshal([]byte(front), j); err != nil {
			return nil, fmt.Errorf("failed to parse journey frontmatter: %w", err)
		}
	}
	if j.ID == "" {
		j.ID = deriveID(path)
	}
	if j.Title == "" {
		j.Title = j.ID
	}

	for _, line := range strings.Split(body, "\n") {
		m := stepLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		j.Steps = append(j.Steps, action.ParseStep(m[1]))
	}
	if len(j.Steps) == 0 {
		return nil, fmt.Errorf("journey %s has no steps", j.ID)
	}

	logging.Journeys("parsed %s: %d step(s)", j.ID, len(j.Steps))
	return j, nil
}

// Load reads and parses one journey file.
func Load(path string) (*Journey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journey: %w", err)
	}
	return Parse(data, path)
}

// LoadDir parses every *.md file under dir, sorted by path for a stable
// order. Files that fail to parse are skipped with a warning; one bad journey
// must not block the batch.
func LoadDir(dir string) ([]*Journey, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan journey directory: %w", err)
	}
	sort.Strings(paths)

	journeys := make([]*Journey, 0, len(paths))
	for _, p := range paths {
		j, err := Load(p)
		if err != nil {
			logging.JourneysWarn("skipping %s: %v", p, err)
			continue
		}
		journeys = append(journeys, j)
	}
	return journeys, nil
}

// splitFrontmatter separates a leading `---` delimited YAML block from the
// markdown body. No frontmatter means the whole input is body.
func splitFrontmatter(s string) (front, body string) {
	s = strings.TrimPrefix(s, "\uFEFF")
	if !strings.HasPrefix(s, "---") {
		return "", s
	}
	rest := s[3:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", s
	}
	front = strings.TrimPrefix(rest[:idx], "\n")
	body = rest[idx+4:]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return front, body
}

// deriveID turns a file path into a journey id, falling back to a uuid for
// pathless input.
func deriveID(path string) string {
	if path == "" {
		return uuid.NewString()
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, ".journey")
}
