package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all journeykit configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Step resolution thresholds
	Resolver ResolverConfig `yaml:"resolver"`

	// Learned pattern store
	LLKB LLKBConfig `yaml:"llkb"`

	// Self-healing policy
	Healing HealingConfig `yaml:"healing"`

	// External test runner
	Runner RunnerConfig `yaml:"runner"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ResolverConfig configures the unified step resolver.
type ResolverConfig struct {
	// Minimum confidence for an exact learned-pattern match to be accepted.
	MinLearnedConfidence float64 `yaml:"min_learned_confidence"`
	// Minimum similarity for a fuzzy learned-pattern match.
	FuzzyLearnedThreshold float64 `yaml:"fuzzy_learned_threshold"`
	// Minimum similarity for a curated-corpus match to be accepted at all.
	CorpusThreshold float64 `yaml:"corpus_threshold"`
	// Similarity above which the matched corpus extractor is trusted verbatim.
	CorpusStrictThreshold float64 `yaml:"corpus_strict_threshold"`
	// Whether the normalizer drops stop words.
	DropStopWords bool `yaml:"drop_stop_words"`
}

// LLKBConfig configures the learned pattern store.
type LLKBConfig struct {
	Path          string        `yaml:"path"`            // JSON store path
	LockWait      time.Duration `yaml:"lock_wait"`       // bounded wait for the advisory lock
	LockPoll      time.Duration `yaml:"lock_poll"`       // poll interval while waiting
	LockStaleAge  time.Duration `yaml:"lock_stale_age"`  // locks older than this are abandoned
	CacheTTL      time.Duration `yaml:"cache_ttl"`       // read cache lifetime
	PruneMaxAge   int           `yaml:"prune_max_age"`   // days
	PruneMinConf  float64       `yaml:"prune_min_conf"`  // confidence floor for prune
	PruneMinSucc  int           `yaml:"prune_min_succ"`  // success floor for prune
	PromoteConf   float64       `yaml:"promote_conf"`    // promotion confidence threshold
	PromoteSucc   int           `yaml:"promote_succ"`    // promotion success threshold
	PromoteSrcMin int           `yaml:"promote_src_min"` // promotion distinct-source threshold
}

// HealingConfig configures the self-healing loop.
type HealingConfig struct {
	Enabled     bool     `yaml:"enabled"`
	MaxAttempts int      `yaml:"max_attempts"`
	// Fix types the operator permits. Empty means all non-deny-listed fixes.
	AllowedFixes []string `yaml:"allowed_fixes"`
	// Same-error repetitions before the circuit opens.
	RepeatThreshold int `yaml:"repeat_threshold"`
	// Wall-clock budget for a healing session.
	Timeout time.Duration `yaml:"timeout"`
	// Token budget for a healing session (0 = unlimited).
	TokenBudget int `yaml:"token_budget"`
	// Directory for per-session healing logs.
	LogDir string `yaml:"log_dir"`
}

// RunnerConfig configures the external test runner adapter.
type RunnerConfig struct {
	Command    string        `yaml:"command"`     // e.g. "npx"
	Args       []string      `yaml:"args"`        // e.g. ["playwright", "test"]
	Timeout    time.Duration `yaml:"timeout"`     // per-verify timeout
	ReportPath string        `yaml:"report_path"` // JSON report location
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Name:    "journeykit",
		Version: "0.3.0",
		Resolver: ResolverConfig{
			MinLearnedConfidence:  0.6,
			FuzzyLearnedThreshold: 0.7,
			CorpusThreshold:       0.85,
			CorpusStrictThreshold: 0.98,
			DropStopWords:         true,
		},
		LLKB: LLKBConfig{
			Path:          filepath.Join(".journeykit", "llkb.json"),
			LockWait:      10 * time.Second,
			LockPoll:      250 * time.Millisecond,
			LockStaleAge:  30 * time.Second,
			CacheTTL:      5 * time.Second,
			PruneMaxAge:   90,
			PruneMinConf:  0.3,
			PruneMinSucc:  1,
			PromoteConf:   0.9,
			PromoteSucc:   5,
			PromoteSrcMin: 2,
		},
		Healing: HealingConfig{
			Enabled:         true,
			MaxAttempts:     5,
			RepeatThreshold: 3,
			Timeout:         10 * time.Minute,
			TokenBudget:     0,
			LogDir:          filepath.Join(".journeykit", "healing"),
		},
		Runner: RunnerConfig{
			Command:    "npx",
			Args:       []string{"playwright", "test"},
			Timeout:    5 * time.Minute,
			ReportPath: filepath.Join(".journeykit", "report.json"),
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads .journeykit/config.yaml from the workspace, layering it over
// defaults. A missing file is not an error: defaults apply.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, ".journeykit", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .journeykit/config.yaml.
func Save(workspace string, cfg *Config) error {
	dir := filepath.Join(workspace, ".journeykit")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}

// Validate rejects configurations the core cannot operate under.
func (c *Config) Validate() error {
	r := c.Resolver
	for name, v := range map[string]float64{
		"resolver.min_learned_confidence":  r.MinLearnedConfidence,
		"resolver.fuzzy_learned_threshold": r.FuzzyLearnedThreshold,
		"resolver.corpus_threshold":        r.CorpusThreshold,
		"resolver.corpus_strict_threshold": r.CorpusStrictThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	if r.CorpusStrictThreshold < r.CorpusThreshold {
		return fmt.Errorf("resolver.corpus_strict_threshold (%v) must be >= corpus_threshold (%v)",
			r.CorpusStrictThreshold, r.CorpusThreshold)
	}
	if c.Healing.MaxAttempts < 1 {
		return fmt.Errorf("healing.max_attempts must be >= 1, got %d", c.Healing.MaxAttempts)
	}
	if c.LLKB.CacheTTL < 0 {
		return fmt.Errorf("llkb.cache_ttl must be non-negative")
	}
	return nil
}

// applyEnvOverrides lets CI shards tune hot knobs without editing config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNEYKIT_HEALING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Healing.Enabled = b
		}
	}
	if v := os.Getenv("JOURNEYKIT_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Healing.MaxAttempts = n
		}
	}
	if v := os.Getenv("JOURNEYKIT_LLKB_PATH"); v != "" {
		cfg.LLKB.Path = v
	}
	if v := os.Getenv("JOURNEYKIT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.DebugMode = b
		}
	}
}
