package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"journeykit/internal/codegen"
	"journeykit/internal/journey"
)

var (
	watchDir string
	watchOut string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the journeys directory and regenerate specs on change",
	Long: `Watch regenerates a journey's spec whenever its file is written.
Editors often emit several events per save, so events for the same file are
debounced before regeneration. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "journeys", "Journey directory to watch")
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "tests", "Output directory for generated specs")
}

const watchDebounce = 300 * time.Millisecond

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, _ := newResolver(cfg)

	dir := watchDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	outDir := watchOut
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(workspace, outDir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	regen := func(path string) {
		j, err := journey.Load(path)
		if err != nil {
			fmt.Printf("%s: %v\n", filepath.Base(path), err)
			return
		}
		rs := res.ResolveAll(j.Steps)
		spec, err := codegen.Write(j, rs, outDir)
		if err != nil {
			fmt.Printf("%s: %v\n", j.ID, err)
			return
		}
		if blocked := countBlocked(rs); blocked > 0 {
			fmt.Printf("%s -> %s (%d step(s) blocked)\n", j.ID, spec, blocked)
		} else {
			fmt.Printf("%s -> %s\n", j.ID, spec)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("watching %s (Ctrl-C to stop)\n", dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[ev.Name] = time.Now()

		case <-ticker.C:
			for path, at := range pending {
				if time.Since(at) < watchDebounce {
					continue
				}
				delete(pending, path)
				regen(path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case <-sig:
			fmt.Println("\nstopping")
			return nil
		}
	}
}
