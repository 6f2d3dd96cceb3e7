package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/forgeworks/stencilforge/internal/config"
	"github.com/forgeworks/stencilforge/internal/history"
	"github.com/forgeworks/stencilforge/internal/pipeline"
	"github.com/forgeworks/stencilforge/internal/telemetry"
	"github.com/forgeworks/stencilforge/internal/tui"
	"github.com/forgeworks/stencilforge/internal/ui"
)

var generateCmd = &cobra.Command{
	Use:   "generate [input]",
	Short: "Generate a stencil STL from a Gerber export",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	addStencilFlags(generateCmd)
	generateCmd.Flags().StringP("output", "o", "", "output STL path (default <input>.stl)")
	generateCmd.Flags().Bool("plain", false, "line output instead of the progress TUI")
	generateCmd.Flags().Bool("telemetry", false, "write a JSONL event log next to the output")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	input, output, err := resolvePaths(cmd, args)
	if err != nil {
		return err
	}

	runner, closeRunner, err := buildRunner(cmd, cfg, output)
	if err != nil {
		return err
	}
	defer closeRunner()

	ctx, cancel := setupSignalContext()
	defer cancel()

	if plain, _ := cmd.Flags().GetBool("plain"); plain || cfg.Verbose {
		return runPlain(ctx, runner, input, output)
	}
	return runWithTUI(ctx, runner, input, output)
}

// resolvePaths picks input and output from the profile, flags, and args.
func resolvePaths(cmd *cobra.Command, args []string) (input, output string, err error) {
	if profilePath, _ := cmd.Flags().GetString("profile"); profilePath != "" {
		profile, err := config.LoadProfile(profilePath)
		if err != nil {
			return "", "", err
		}
		base := filepath.Dir(profilePath)
		if profile.Input != "" {
			input = joinIfRelative(base, profile.Input)
		}
		if profile.Output != "" {
			output = joinIfRelative(base, profile.Output)
		}
	}
	if len(args) > 0 {
		input = args[0]
	}
	if input == "" {
		return "", "", errors.New("no input: pass a Gerber directory/zip or a --profile with input set")
	}
	if flagOut, _ := cmd.Flags().GetString("output"); flagOut != "" {
		output = flagOut
	}
	if output == "" {
		output = defaultOutput(input)
	}
	return input, output, nil
}

func joinIfRelative(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func defaultOutput(input string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if name == "" || name == "." {
		name = "stencil"
	}
	return name + ".stl"
}

// buildRunner wires the logger, telemetry emitter, and history store.
func buildRunner(cmd *cobra.Command, cfg config.StencilConfig, output string) (*pipeline.Runner, func(), error) {
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger := log.Logger{
		Level:  level,
		Writer: &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: true},
	}

	var emitter *telemetry.Emitter
	if enabled, _ := cmd.Flags().GetBool("telemetry"); enabled {
		var err error
		emitter, err = telemetry.NewEmitter(output + ".telemetry.jsonl")
		if err != nil {
			return nil, nil, err
		}
	}

	store, err := openHistory(cmd.Context())
	if err != nil {
		// History is a convenience; a broken store must not block runs.
		logger.Warn().Err(err).Msg("run history unavailable")
	}

	runner := &pipeline.Runner{
		Config:    cfg,
		Logger:    logger,
		Telemetry: emitter,
		History:   store,
	}
	cleanup := func() {
		_ = emitter.Close()
		_ = store.Close()
	}
	return runner, cleanup, nil
}

func openHistory(ctx context.Context) (*history.Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".stencilforge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return history.Open(ctx, filepath.Join(dir, "history.db"))
}

func setupSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

// runPlain executes one run with line-based progress output.
func runPlain(ctx context.Context, runner *pipeline.Runner, input, output string) error {
	printer := ui.New()
	printer.Banner()
	runner.Hooks = pipeline.Hooks{
		Progress: printer.Stage,
		Log:      printer.Log,
	}
	res, err := runner.Run(ctx, input, output)
	if err != nil {
		if errors.Is(err, pipeline.ErrCanceled) {
			printer.Warn("canceled")
			return err
		}
		printer.Error(err.Error())
		return err
	}
	printer.Done(res)
	return nil
}

// runWithTUI executes one run behind the progress TUI. The pipeline
// runs on its own goroutine and feeds the program via Send.
func runWithTUI(ctx context.Context, runner *pipeline.Runner, input, output string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tui.NewProgram(fmt.Sprintf("%s -> %s", input, output))
	runner.Hooks = pipeline.Hooks{
		Progress: func(stage string, fraction float64) {
			program.Send(tui.MsgStage{Name: stage, Fraction: fraction})
		},
		Log: func(level, msg string) {
			program.Send(tui.MsgLog{Level: level, Text: msg})
		},
	}

	errCh := make(chan error, 1)
	go func() {
		res, err := runner.Run(ctx, input, output)
		if err != nil {
			program.Send(tui.MsgFailed{Err: err})
			errCh <- err
			return
		}
		program.Send(tui.MsgDone{Result: res})
		errCh <- nil
	}()

	final, err := program.Run()
	if err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("tui: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.Canceled() {
		cancel()
	}
	return <-errCh
}
