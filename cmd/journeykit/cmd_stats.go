package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsRecent int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-journey history and learned-store statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 10, "Number of recent events to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	hist, err := openHistory()
	if err != nil {
		return err
	}
	defer hist.Close()

	summaries, err := hist.Summaries()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no recorded activity")
	} else {
		fmt.Println("journeys:")
		for _, s := range summaries {
			fmt.Printf("  %-30s events=%-4d healed=%-3d last=%s at %s\n",
				s.JourneyID, s.Events, s.HealedRuns, s.LastStatus, s.LastSeen.Format("2006-01-02 15:04"))
		}
	}

	if statsRecent > 0 {
		entries, err := hist.Recent(statsRecent)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			fmt.Println("\nrecent events:")
			for _, e := range entries {
				fmt.Printf("  %s  %-8s %-14s %s\n",
					e.CreatedAt.Format("2006-01-02 15:04"), e.Kind, e.Status, e.JourneyID)
			}
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	stats := store.Stats()
	fmt.Printf("\nlearned store: %v patterns (%v promoted)\n", stats["total"], stats["promoted"])
	if avg, ok := stats["avg_confidence"].(float64); ok {
		fmt.Printf("average confidence: %.3f\n", avg)
	}
	return nil
}
