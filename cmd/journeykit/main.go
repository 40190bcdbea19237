package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"journeykit/internal/config"
	"journeykit/internal/llkb"
	"journeykit/internal/logging"
	"journeykit/internal/normalize"
	"journeykit/internal/resolver"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger for the command layer; library packages use category logging.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "journeykit",
	Short: "journeykit - prose journeys in, executable browser tests out",
	Long: `journeykit turns prose test scenarios ("journeys") into executable
Playwright tests, learns step phrasings that worked, and heals failing
tests inside strict policy limits.

Journeys are markdown files: YAML frontmatter plus an ordered list of
steps. Each step resolves through the core pattern library, the learned
pattern store, and a curated corpus; what cannot be resolved becomes a
blocked step that fails loudly instead of passing silently.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if workspace == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve working directory: %w", err)
			}
			workspace = cwd
		}
		if abs, err := filepath.Abs(workspace); err == nil {
			workspace = abs
		}

		if err := logging.Initialize(workspace); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// loadConfig reads the workspace config and anchors its relative paths.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	cfg.LLKB.Path = anchor(cfg.LLKB.Path)
	cfg.Healing.LogDir = anchor(cfg.Healing.LogDir)
	cfg.Runner.ReportPath = anchor(cfg.Runner.ReportPath)
	return cfg, nil
}

func anchor(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

// newStore opens the learned store with the resolver's normalization, so
// recorded keys and looked-up keys agree.
func newStore(cfg *config.Config) *llkb.Store {
	return llkb.NewStore(cfg.LLKB, normalize.Options{DropStopWords: cfg.Resolver.DropStopWords})
}

// newResolver wires the learned store into a resolver.
func newResolver(cfg *config.Config) (*resolver.Resolver, *llkb.Store) {
	store := newStore(cfg)
	return resolver.New(cfg.Resolver, store), store
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(healCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
