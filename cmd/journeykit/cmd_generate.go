package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"journeykit/internal/codegen"
	"journeykit/internal/resolver"
)

var generateOut string

var generateCmd = &cobra.Command{
	Use:   "generate [path...]",
	Short: "Generate Playwright specs from journey files",
	Long: `Generate resolves every journey step and writes one Playwright spec
file per journey to the output directory. Blocked steps are rendered as
guaranteed failures with the rewrite suggestion inline, so an unresolvable
journey never passes silently.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "tests", "Output directory for generated specs")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, _ := newResolver(cfg)

	journeys, err := loadJourneys(args)
	if err != nil {
		return err
	}

	outDir := generateOut
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(workspace, outDir)
	}

	hist, err := openHistory()
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
	} else {
		defer hist.Close()
	}

	for _, j := range journeys {
		rs := res.ResolveAll(j.Steps)

		path, err := codegen.Write(j, rs, outDir)
		if err != nil {
			return fmt.Errorf("failed to generate %s: %w", j.ID, err)
		}

		blocked := countBlocked(rs)
		if blocked > 0 {
			fmt.Printf("%s -> %s (%d/%d steps blocked)\n", j.ID, path, blocked, len(rs))
		} else {
			fmt.Printf("%s -> %s (%d steps)\n", j.ID, path, len(rs))
		}

		if hist != nil {
			if err := hist.RecordResolution(j.ID, len(rs), blocked, path); err != nil {
				logger.Warn("failed to record resolution", zap.String("journey", j.ID), zap.Error(err))
			}
		}
	}
	return nil
}

func countBlocked(rs []resolver.Resolution) int {
	n := 0
	for _, r := range rs {
		if r.Source == resolver.SourceBlocked {
			n++
		}
	}
	return n
}
