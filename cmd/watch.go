package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/forgeworks/stencilforge/internal/pipeline"
	"github.com/forgeworks/stencilforge/internal/ui"
)

// Coalesce bursts of CAD-export writes into one regeneration.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [input-dir]",
	Short: "Regenerate the stencil whenever the Gerber export changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	addStencilFlags(watchCmd)
	watchCmd.Flags().StringP("output", "o", "", "output STL path (default <input>.stl)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	input, output, err := resolvePaths(cmd, args)
	if err != nil {
		return err
	}
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch needs a directory, got %s", input)
	}

	runner, closeRunner, err := buildRunner(cmd, cfg, output)
	if err != nil {
		return err
	}
	defer closeRunner()

	printer := ui.New()
	printer.Banner()
	runner.Hooks = pipeline.Hooks{Progress: printer.Stage, Log: printer.Log}

	ctx, cancel := setupSignalContext()
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(input); err != nil {
		return fmt.Errorf("watch %s: %w", input, err)
	}

	generate := func() {
		res, err := runner.Run(ctx, input, output)
		switch {
		case errors.Is(err, pipeline.ErrCanceled):
			printer.Warn("canceled")
		case err != nil:
			printer.Error(err.Error())
		default:
			printer.Done(res)
		}
	}

	// Initial build, then rebuild on changes.
	generate()
	fmt.Fprintf(os.Stderr, "watching %s for changes (ctrl-c to stop)\n", input)

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			generate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printer.Warn(err.Error())
		}
	}
}
