package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"journeykit/internal/history"
	"journeykit/internal/journey"
	"journeykit/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [path...]",
	Short: "Resolve journey steps to actions without generating code",
	Long: `Resolve parses journey files and maps every step through the
resolution tiers (core library, learned store, curated corpus), printing
each step's action, provenance tier, and confidence. Blocked steps are
listed with a rewrite suggestion.

Paths may be journey files or directories; the default is ./journeys.`,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, _ := newResolver(cfg)

	journeys, err := loadJourneys(args)
	if err != nil {
		return err
	}

	hist, err := openHistory()
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
	} else {
		defer hist.Close()
	}

	totalBlocked := 0
	for _, j := range journeys {
		rs := res.ResolveAll(j.Steps)
		blocked := printResolutions(j, rs)
		totalBlocked += blocked

		if hist != nil {
			if err := hist.RecordResolution(j.ID, len(rs), blocked, j.Path); err != nil {
				logger.Warn("failed to record resolution", zap.String("journey", j.ID), zap.Error(err))
			}
		}
	}

	if totalBlocked > 0 {
		return fmt.Errorf("%d step(s) blocked; rewrite them or add inline hints", totalBlocked)
	}
	return nil
}

// printResolutions writes the per-step resolution table for one journey and
// returns the number of blocked steps.
func printResolutions(j *journey.Journey, rs []resolver.Resolution) int {
	fmt.Printf("\n%s (%s) — %d steps\n", j.Title, j.ID, len(rs))

	blocked := 0
	for i, r := range rs {
		tier := string(r.Source)
		switch r.Source {
		case resolver.SourceLearned:
			tier = fmt.Sprintf("learned conf=%.2f sim=%.2f", r.Confidence, r.Similarity)
		case resolver.SourceCorpus, resolver.SourceSynthesized:
			tier = fmt.Sprintf("%s sim=%.2f", r.Source, r.Similarity)
		}

		if r.Source == resolver.SourceBlocked {
			blocked++
			fmt.Printf("  %2d. ✗ %s\n      %s\n", i+1, j.Steps[i].Text, r.Action.Suggestion)
			continue
		}
		fmt.Printf("  %2d. ✓ %-22s %s  [%s]\n", i+1, r.Action.Type, j.Steps[i].Text, tier)
	}
	return blocked
}

// loadJourneys resolves the argument list (files, directories, or the
// default journeys dir) into parsed journeys.
func loadJourneys(args []string) ([]*journey.Journey, error) {
	if len(args) == 0 {
		args = []string{filepath.Join(workspace, "journeys")}
	}

	var out []*journey.Journey
	for _, arg := range args {
		path := arg
		if !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if info.IsDir() {
			js, err := journey.LoadDir(path)
			if err != nil {
				return nil, err
			}
			out = append(out, js...)
			continue
		}
		if !strings.HasSuffix(path, ".md") {
			return nil, fmt.Errorf("%s is not a journey file (.md)", arg)
		}
		j, err := journey.Load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no journeys found")
	}
	return out, nil
}

// openHistory opens the workspace run-history database.
func openHistory() (*history.Store, error) {
	return history.Open(filepath.Join(workspace, ".journeykit", "history.db"))
}
