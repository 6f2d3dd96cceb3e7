// Package pipeline orchestrates a stencil run: normalize the input,
// classify layers, parse and assemble the paste geometry, resolve the
// board outline, synthesize the locator, extrude, and export. Stages
// run strictly forward and each run owns its geometry exclusively, so
// concurrent runs only need to avoid sharing an output path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/forgeworks/stencilforge/internal/archive"
	"github.com/forgeworks/stencilforge/internal/assemble"
	"github.com/forgeworks/stencilforge/internal/classify"
	"github.com/forgeworks/stencilforge/internal/config"
	"github.com/forgeworks/stencilforge/internal/geom"
	"github.com/forgeworks/stencilforge/internal/gerber"
	"github.com/forgeworks/stencilforge/internal/history"
	"github.com/forgeworks/stencilforge/internal/locator"
	"github.com/forgeworks/stencilforge/internal/outline"
	"github.com/forgeworks/stencilforge/internal/qfn"
	"github.com/forgeworks/stencilforge/internal/solid"
	"github.com/forgeworks/stencilforge/internal/stl"
	"github.com/forgeworks/stencilforge/internal/telemetry"
)

// ErrCanceled reports cooperative cancellation, distinct from failures.
var ErrCanceled = errors.New("pipeline: canceled")

// Stage names, in execution order.
var Stages = []string{
	"normalize",
	"classify",
	"parse",
	"assemble",
	"offset",
	"outline",
	"locator",
	"extrude",
	"export",
}

// Hooks let a caller observe a run without sharing state with it. Both
// callbacks may be nil. Progress receives the stage name and the run's
// fractional completion in [0, 1].
type Hooks struct {
	Progress func(stage string, fraction float64)
	Log      func(level, msg string)
}

// Result summarizes a completed run.
type Result struct {
	RunID           string
	Output          string
	Triangles       int
	Duration        time.Duration
	PasteFiles      []string
	OutlineFile     string
	OutlineFallback bool
	QFN             *qfn.Report
	DroppedRings    int
}

// Runner executes pipeline runs. Telemetry and History may be nil.
type Runner struct {
	Config    config.StencilConfig
	Logger    log.Logger
	Telemetry *telemetry.Emitter
	History   *history.Store
	Hooks     Hooks
}

// Run generates a stencil STL at output from the Gerber export at
// input (a directory or zip archive). The context cancels the run
// between stages and between files; a canceled run never touches the
// destination path.
func (r *Runner) Run(ctx context.Context, input, output string) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Output: output}

	if err := r.Config.Validate(); err != nil {
		return nil, err
	}
	r.emit(telemetry.Event{Kind: telemetry.KindRunStart, RunID: res.RunID, Data: map[string]any{
		"input":   input,
		"output":  output,
		"mode":    r.Config.OutputMode,
		"backend": r.Config.ModelBackend,
	}})

	err := r.run(ctx, input, output, res)
	res.Duration = time.Since(start)

	status := history.StatusOK
	switch {
	case errors.Is(err, ErrCanceled):
		status = history.StatusCanceled
		r.emit(telemetry.Event{Kind: telemetry.KindRunFailed, RunID: res.RunID, Data: "canceled"})
	case err != nil:
		status = history.StatusFailed
		r.emit(telemetry.Event{Kind: telemetry.KindRunFailed, RunID: res.RunID, Data: err.Error()})
	default:
		r.emit(telemetry.Event{Kind: telemetry.KindRunDone, RunID: res.RunID, Data: map[string]any{
			"triangles":   res.Triangles,
			"duration_ms": res.Duration.Milliseconds(),
		}})
	}
	r.record(res, input, status, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) run(ctx context.Context, input, output string, res *Result) error {
	workDir, err := os.MkdirTemp("", "stencilforge-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// normalize
	if err := r.stageStart(ctx, res.RunID, 0); err != nil {
		return err
	}
	in, err := archive.Normalize(input, workDir)
	if err != nil {
		return err
	}
	r.stageDone(res.RunID, 0)

	// classify
	if err := r.stageStart(ctx, res.RunID, 1); err != nil {
		return err
	}
	sel, err := classify.Classify(in.Files, r.Config.PastePatterns, r.Config.OutlinePatterns)
	if err != nil {
		return err
	}
	res.PasteFiles = sel.Paste
	res.OutlineFile = sel.Outline
	r.Logger.Info().Int("paste", len(sel.Paste)).Str("outline", sel.Outline).Msg("layers classified")
	r.stageDone(res.RunID, 1)

	// parse
	if err := r.stageStart(ctx, res.RunID, 2); err != nil {
		return err
	}
	pasteFiles := make([]*gerber.File, 0, len(sel.Paste))
	for _, path := range sel.Paste {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		f, err := parseFile(path)
		if err != nil {
			return err
		}
		pasteFiles = append(pasteFiles, f)
	}
	var outlineFile *gerber.File
	if sel.Outline != "" {
		outlineFile, err = parseFile(sel.Outline)
		if err != nil {
			return err
		}
	}
	r.stageDone(res.RunID, 2)

	// assemble
	if err := r.stageStart(ctx, res.RunID, 3); err != nil {
		return err
	}
	opts := assemble.Options{ArcSteps: r.Config.ArcSteps, CurveResolution: r.Config.CurveResolution}
	var paste geom.Shape
	for _, f := range pasteFiles {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		layer, err := assemble.Layer(f, opts)
		if err != nil {
			return err
		}
		paste = geom.Union(paste, layer)
	}
	if paste.IsEmpty() {
		return fmt.Errorf("paste layer %s contains no geometry", sel.Paste[0])
	}
	r.stageDone(res.RunID, 3)

	// offset (plus the optional QFN pre-pass, which must see the
	// original pad widths before the offset distorts them)
	if err := r.stageStart(ctx, res.RunID, 4); err != nil {
		return err
	}
	if r.Config.QFNRegenEnabled {
		regen, report := qfn.Regenerate(paste, qfn.Params{
			MinFeature:  r.Config.QFNMinFeatureMM,
			Confidence:  r.Config.QFNConfidenceThreshold,
			MaxPadWidth: r.Config.QFNMaxPadWidthMM,
		})
		if report != nil {
			paste = regen
			res.QFN = report
			r.Logger.Info().Int("pads", report.Pads).Float64("score", report.Score).Msg("qfn paste regenerated")
		}
	}
	if r.Config.PasteOffsetMM != 0 {
		off := geom.Offset(paste, r.Config.PasteOffsetMM, r.Config.CurveResolution)
		if off.Dropped > 0 {
			res.DroppedRings = off.Dropped
			r.warn(res.RunID, fmt.Sprintf("%d paste opening(s) collapsed under offset %.3fmm and were dropped", off.Dropped, r.Config.PasteOffsetMM))
		}
		if off.Shape.IsEmpty() {
			return fmt.Errorf("paste offset %.3fmm removed all openings", r.Config.PasteOffsetMM)
		}
		paste = off.Shape
	}
	r.stageDone(res.RunID, 4)

	// outline
	if err := r.stageStart(ctx, res.RunID, 5); err != nil {
		return err
	}
	board, err := r.resolveOutline(outlineFile, paste, res)
	if err != nil {
		return err
	}
	r.stageDone(res.RunID, 5)

	// locator
	if err := r.stageStart(ctx, res.RunID, 6); err != nil {
		return err
	}
	var fixture *locator.Structure
	if r.Config.LocatorEnabled {
		fixture, err = locator.Build(board, locator.Params{
			Mode:       r.Config.LocatorMode,
			Height:     r.Config.LocatorHeightMM,
			Width:      r.Config.LocatorWidthMM,
			Clearance:  r.Config.LocatorClearanceMM,
			StepHeight: r.Config.LocatorStepHeightMM,
			StepWidth:  r.Config.LocatorStepWidthMM,
			OpenSide:   r.Config.LocatorOpenSide,
			OpenWidth:  r.Config.LocatorOpenWidthMM,
		}, r.Config.ThicknessMM, r.Config.CurveResolution)
		if err != nil {
			return err
		}
		if fixture.Dropped > 0 {
			res.DroppedRings += fixture.Dropped
			r.warn(res.RunID, fmt.Sprintf("%d locator ring(s) collapsed and were dropped", fixture.Dropped))
		}
	}
	r.stageDone(res.RunID, 6)

	// extrude
	if err := r.stageStart(ctx, res.RunID, 7); err != nil {
		return err
	}
	mesh, err := r.buildMesh(board, paste, fixture)
	if err != nil {
		return err
	}
	mesh.TranslateToOrigin()
	res.Triangles = mesh.TriangleCount()
	r.stageDone(res.RunID, 7)

	// export
	if err := r.stageStart(ctx, res.RunID, 8); err != nil {
		return err
	}
	if err := stl.Write(output, mesh, r.Config.STLFormat); err != nil {
		return err
	}
	count, err := stl.TriangleCount(output)
	if err != nil {
		return &stl.ExportError{Path: output, Err: fmt.Errorf("verify: %w", err)}
	}
	if count == 0 {
		return &stl.ExportError{Path: output, Err: errors.New("exported file holds no triangles")}
	}
	r.Logger.Info().Str("path", output).Int("triangles", count).Msg("stencil exported")
	r.stageDone(res.RunID, 8)
	return nil
}

// resolveOutline prefers the outline layer and falls back to the paste
// bounding box grown by the configured margin.
func (r *Runner) resolveOutline(outlineFile *gerber.File, paste geom.Shape, res *Result) (geom.Shape, error) {
	if outlineFile != nil {
		board, err := outline.FromFile(outlineFile, r.Config.ArcSteps, r.Config.CurveResolution)
		if err == nil {
			return board, nil
		}
		if !errors.Is(err, outline.ErrNoOutline) {
			return nil, err
		}
		r.warn(res.RunID, "outline layer yielded no closed boundary, using paste bounds")
	}
	res.OutlineFallback = true
	return outline.Fallback(paste, r.Config.OutlineMarginMM)
}

// buildMesh composes the extrusion prisms for the selected output mode.
func (r *Runner) buildMesh(board, paste geom.Shape, fixture *locator.Structure) (*solid.Mesh, error) {
	opts := solid.Options{
		Backend:           r.Config.ModelBackend,
		LinearDeflection:  r.Config.STLLinearDeflectionMM,
		AngularDeflection: r.Config.STLAngularDeflectionRad,
	}
	var prisms []solid.Prism
	switch r.Config.OutputMode {
	case "holes_only":
		prisms = append(prisms, solid.Prism{Shape: paste, Z0: 0, Z1: r.Config.ThicknessMM})
	default:
		slab := board
		if fixture != nil && !fixture.Bridge.IsEmpty() {
			slab = geom.Union(slab, fixture.Bridge)
		}
		slab = geom.Difference(slab, paste)
		prisms = append(prisms, solid.Prism{Shape: slab, Z0: 0, Z1: r.Config.ThicknessMM})
	}
	if fixture != nil {
		prisms = append(prisms, solid.Prism{Shape: fixture.Footprint, Z0: fixture.ZMin, Z1: fixture.ZMax})
	}
	return solid.BuildMesh(prisms, opts)
}

func parseFile(path string) (*gerber.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return gerber.Parse(path, f)
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCanceled
	default:
		return nil
	}
}

func (r *Runner) stageStart(ctx context.Context, runID string, i int) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	stage := Stages[i]
	r.emit(telemetry.Event{Kind: telemetry.KindStageStart, RunID: runID, Stage: stage})
	if r.Hooks.Progress != nil {
		r.Hooks.Progress(stage, float64(i)/float64(len(Stages)))
	}
	if r.Hooks.Log != nil {
		r.Hooks.Log("info", "stage "+stage)
	}
	r.Logger.Debug().Str("stage", stage).Msg("stage start")
	return nil
}

func (r *Runner) stageDone(runID string, i int) {
	stage := Stages[i]
	r.emit(telemetry.Event{Kind: telemetry.KindStageDone, RunID: runID, Stage: stage})
	if r.Hooks.Progress != nil {
		r.Hooks.Progress(stage, float64(i+1)/float64(len(Stages)))
	}
}

func (r *Runner) warn(runID, msg string) {
	r.Logger.Warn().Msg(msg)
	r.emit(telemetry.Event{Kind: telemetry.KindWarning, RunID: runID, Data: msg})
	if r.Hooks.Log != nil {
		r.Hooks.Log("warn", msg)
	}
}

func (r *Runner) emit(evt telemetry.Event) {
	evt.Timestamp = time.Now().UTC()
	_ = r.Telemetry.Emit(evt)
}

// record appends the run to the history store, best effort.
func (r *Runner) record(res *Result, input, status string, runErr error) {
	if r.History == nil {
		return
	}
	rec := history.Run{
		ID:        res.RunID,
		StartedAt: time.Now().UTC().Add(-res.Duration),
		Input:     input,
		Output:    res.Output,
		Mode:      r.Config.OutputMode,
		Backend:   r.Config.ModelBackend,
		Triangles: res.Triangles,
		Duration:  res.Duration,
		Status:    status,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := r.History.Insert(context.Background(), rec); err != nil {
		r.Logger.Warn().Err(err).Msg("history record failed")
	}
}
