package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"journeykit/internal/codegen"
	"journeykit/internal/healing"
	"journeykit/internal/journey"
	"journeykit/internal/resolver"
	"journeykit/internal/runner"
)

var healSpecDir string

var healCmd = &cobra.Command{
	Use:   "heal <journey.md>",
	Short: "Run a journey's test and heal it if it fails",
	Long: `Heal runs the journey's generated spec through the external test
runner. On failure it classifies the error, picks a policy-allowed fix,
applies it, and re-verifies — repeating until the test passes or the circuit
breaker stops the session. Every session writes a healing log.

Structural fixes regenerate the spec from the journey, so anything the
learned store has picked up since the last generation is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runHeal,
}

func init() {
	healCmd.Flags().StringVar(&healSpecDir, "spec-dir", "tests", "Directory holding generated specs")
}

func runHeal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, store := newResolver(cfg)

	path := args[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspace, path)
	}
	j, err := journey.Load(path)
	if err != nil {
		return err
	}

	specDir := healSpecDir
	if !filepath.IsAbs(specDir) {
		specDir = filepath.Join(workspace, specDir)
	}

	// Make sure a current spec exists before verifying it.
	resolutions := res.ResolveAll(j.Steps)
	specPath, err := codegen.Write(j, resolutions, specDir)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", j.ID, err)
	}

	run := runner.New(cfg.Runner, workspace)
	verifier := runner.NewVerifyAdapter(run, specDir)
	applier := &healing.SpecApplier{
		SpecPath: specPath,
		Regenerate: func(ctx context.Context) (string, error) {
			fresh, err := journey.Load(path)
			if err != nil {
				return "", err
			}
			return codegen.Generate(fresh, res.ResolveAll(fresh.Steps))
		},
	}

	orch := healing.NewOrchestrator(cfg.Healing, verifier, applier)
	result := orch.Heal(cmd.Context(), j.ID)

	printHealResult(j.ID, result)

	if hist, err := openHistory(); err == nil {
		defer hist.Close()
		if err := hist.RecordHealing(j.ID, string(result.Status), result.Attempts, result.LogPath); err != nil {
			logger.Warn("failed to record healing", zap.String("journey", j.ID), zap.Error(err))
		}
	} else {
		logger.Warn("history unavailable", zap.Error(err))
	}

	// A passing run is the learning signal: every step that resolved through
	// a probabilistic tier gets a success mark, sharpening future resolution.
	if result.Success {
		for i, r := range resolutions {
			switch r.Source {
			case resolver.SourceLearned, resolver.SourceCorpus, resolver.SourceSynthesized:
				if err := store.RecordSuccess(j.Steps[i].Text, r.Action, j.ID); err != nil {
					logger.Warn("failed to record step success", zap.Error(err))
				}
			}
		}
	}

	if !result.Success {
		return fmt.Errorf("healing ended %s: %s", result.Status, result.Reason)
	}
	return nil
}

func printHealResult(journeyID string, r healing.Result) {
	fmt.Printf("\n%s: %s", journeyID, r.Status)
	if r.Attempts > 0 {
		fmt.Printf(" after %d attempt(s)", r.Attempts)
	}
	fmt.Println()
	if r.AppliedFix != "" {
		fmt.Printf("  applied fix: %s\n", r.AppliedFix)
	}
	if r.Reason != "" {
		fmt.Printf("  reason: %s\n", r.Reason)
	}
	if r.Recommendation != "" {
		fmt.Printf("  recommendation: %s\n", r.Recommendation)
	}
	if r.LogPath != "" {
		fmt.Printf("  log: %s\n", r.LogPath)
	}
}
