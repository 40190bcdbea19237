package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, tempDir, content string) {
	t.Helper()
	configDir := filepath.Join(tempDir, ".journeykit")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func resetLogging() {
	CloseAll()
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	logLevel = LevelInfo
}

func TestCategoriesLogWhenDebugEnabled(t *testing.T) {
	defer resetLogging()
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `
logging:
  debug_mode: true
  level: debug
`)

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	Resolver("resolved %d steps", 3)
	LLKB("recorded success for %q", "user clicks submit")
	Healing("session %s healed", "abc")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".journeykit", "logs"))
	if err != nil {
		t.Fatalf("ReadDir error = %v", err)
	}

	found := map[string]bool{}
	for _, e := range entries {
		for _, cat := range []string{"resolver", "llkb", "healing"} {
			if strings.Contains(e.Name(), cat) {
				found[cat] = true
			}
		}
	}
	for _, cat := range []string{"resolver", "llkb", "healing"} {
		if !found[cat] {
			t.Errorf("expected log file for category %s", cat)
		}
	}
}

func TestNoLogsInProductionMode(t *testing.T) {
	defer resetLogging()
	tempDir := t.TempDir()

	// No config file at all = production mode
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	Resolver("should not be written")
	CloseAll()

	if _, err := os.Stat(filepath.Join(tempDir, ".journeykit", "logs")); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist in production mode")
	}
}

func TestCategoryFilter(t *testing.T) {
	defer resetLogging()
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `
logging:
  debug_mode: true
  level: debug
  categories:
    resolver: true
    llkb: false
`)

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if !IsCategoryEnabled(CategoryResolver) {
		t.Error("resolver category should be enabled")
	}
	if IsCategoryEnabled(CategoryLLKB) {
		t.Error("llkb category should be disabled")
	}
	// Unlisted categories default to enabled
	if !IsCategoryEnabled(CategoryHealing) {
		t.Error("healing category should default to enabled")
	}
}
