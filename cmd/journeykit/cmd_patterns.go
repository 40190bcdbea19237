package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"journeykit/internal/llkb"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and maintain the learned pattern store",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned patterns with their track record",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		patterns := store.All()
		if len(patterns) == 0 {
			fmt.Println("no learned patterns yet")
			return nil
		}
		for _, p := range patterns {
			flag := " "
			if p.PromotedToCore {
				flag = "*"
			}
			fmt.Printf("%s %-36s conf=%.3f succ=%d fail=%d srcs=%d %-10s %q\n",
				flag, p.ID, p.Confidence, p.SuccessCount, p.FailCount, len(p.Sources), p.Layer, p.Text)
		}
		return nil
	},
}

var promoteApply bool

var patternsPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Show patterns ready for core-library promotion",
	Long: `Promote lists learned patterns whose track record clears the
promotion bar, together with the generalized regex a core library entry
would use. With --apply the patterns are marked promoted, which retires
them from runtime matching.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		candidates := store.GetPromotablePatterns()
		if len(candidates) == 0 {
			fmt.Println("no patterns meet the promotion bar")
			return nil
		}
		for _, c := range candidates {
			fmt.Printf("%s  conf=%.3f succ=%d srcs=%d\n  text:  %q\n  regex: %s\n",
				c.Pattern.ID, c.Pattern.Confidence, c.Pattern.SuccessCount, len(c.Pattern.Sources), c.Pattern.Text, c.Regex)
			if promoteApply {
				if err := store.MarkPromoted(c.Pattern.ID); err != nil {
					return fmt.Errorf("failed to mark %s promoted: %w", c.Pattern.ID, err)
				}
			}
		}
		if promoteApply {
			fmt.Printf("\nmarked %d pattern(s) promoted\n", len(candidates))
		} else {
			fmt.Println("\nrun with --apply to mark these promoted")
		}
		return nil
	},
}

var patternsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove aged, low-confidence learned patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := newStore(cfg)
		n, err := store.Prune(cfg.LLKB.PruneMaxAge, cfg.LLKB.PruneMinConf, cfg.LLKB.PruneMinSucc)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d pattern(s)\n", n)
		return nil
	},
}

var clearForce bool

var patternsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all learned patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearForce {
			return fmt.Errorf("refusing to clear the learned store without --force")
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("learned store cleared")
		return nil
	},
}

func openStore() (*llkb.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newStore(cfg), nil
}

func init() {
	patternsPromoteCmd.Flags().BoolVar(&promoteApply, "apply", false, "Mark the listed patterns promoted")
	patternsClearCmd.Flags().BoolVar(&clearForce, "force", false, "Confirm deletion")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsPromoteCmd)
	patternsCmd.AddCommand(patternsPruneCmd)
	patternsCmd.AddCommand(patternsClearCmd)
}
