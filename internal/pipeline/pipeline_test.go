package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/phuslu/log"

	"github.com/forgeworks/stencilforge/internal/classify"
	"github.com/forgeworks/stencilforge/internal/config"
	"github.com/forgeworks/stencilforge/internal/geom"
	"github.com/forgeworks/stencilforge/internal/history"
	"github.com/forgeworks/stencilforge/internal/solid"
	"github.com/forgeworks/stencilforge/internal/stl"
)

const pasteLayer = `%FSLAX25Y25*%
%MOMM*%
%ADD10R,2X2*%
D10*
X500000Y500000D03*
X1500000Y500000D03*
X500000Y1500000D03*
X1500000Y1500000D03*
M02*
`

const outlineLayer = `%FSLAX25Y25*%
%MOMM*%
%ADD10C,0.1*%
D10*
X0Y0D02*
X2000000D01*
Y2000000D01*
X0D01*
Y0D01*
M02*
`

func writeBoard(t *testing.T, withOutline bool) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "board.gtp"), []byte(pasteLayer), 0o644); err != nil {
		t.Fatal(err)
	}
	if withOutline {
		if err := os.WriteFile(filepath.Join(dir, "board.gko"), []byte(outlineLayer), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testRunner(cfg config.StencilConfig) *Runner {
	return &Runner{
		Config: cfg,
		Logger: log.Logger{Level: log.ErrorLevel, Writer: log.IOWriter{Writer: io.Discard}},
	}
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()
	input := writeBoard(t, true)
	output := filepath.Join(t.TempDir(), "board.stl")

	r := testRunner(config.Default())
	var stages []string
	lastFraction := -1.0
	r.Hooks.Progress = func(stage string, fraction float64) {
		stages = append(stages, stage)
		if fraction < lastFraction {
			t.Errorf("progress went backwards: %v after %v", fraction, lastFraction)
		}
		lastFraction = fraction
	}

	res, err := r.Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Triangles == 0 {
		t.Errorf("Triangles = 0")
	}
	if res.OutlineFallback {
		t.Errorf("fell back to paste bounds despite an outline layer")
	}
	if filepath.Base(res.OutlineFile) != "board.gko" {
		t.Errorf("OutlineFile = %q", res.OutlineFile)
	}
	count, err := stl.TriangleCount(output)
	if err != nil {
		t.Fatalf("TriangleCount: %v", err)
	}
	if count != res.Triangles {
		t.Errorf("file holds %d triangles, result says %d", count, res.Triangles)
	}
	if len(stages) == 0 || stages[0] != Stages[0] || stages[len(stages)-1] != Stages[len(Stages)-1] {
		t.Errorf("stage order = %v", stages)
	}
	if lastFraction != 1 {
		t.Errorf("final fraction = %v, want 1", lastFraction)
	}
}

func TestRunHolesOnly(t *testing.T) {
	t.Parallel()
	input := writeBoard(t, false)
	output := filepath.Join(t.TempDir(), "board.stl")

	cfg := config.Default()
	cfg.OutputMode = "holes_only"
	res, err := testRunner(cfg).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Triangles == 0 {
		t.Errorf("Triangles = 0")
	}
	if !res.OutlineFallback {
		t.Errorf("expected outline fallback without an outline layer")
	}
}

func TestRunCanceledLeavesNoOutput(t *testing.T) {
	t.Parallel()
	input := writeBoard(t, true)
	output := filepath.Join(t.TempDir(), "board.stl")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testRunner(config.Default()).Run(ctx, input, output)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Errorf("canceled run touched the destination")
	}
}

func TestRunNoPasteLayer(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "board.gko"), []byte(outlineLayer), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := testRunner(config.Default()).Run(context.Background(), dir, filepath.Join(dir, "out.stl"))
	if !errors.Is(err, classify.ErrLayerNotFound) {
		t.Errorf("err = %v, want ErrLayerNotFound", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.ThicknessMM = 0
	_, err := testRunner(cfg).Run(context.Background(), t.TempDir(), "out.stl")
	var ve *config.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	input := writeBoard(t, true)
	output := filepath.Join(t.TempDir(), "board.stl")

	store, err := history.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()

	r := testRunner(config.Default())
	r.History = store
	res, err := r.Run(ctx, input, output)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("history holds %d runs, want 1", len(runs))
	}
	rec := runs[0]
	if rec.ID != res.RunID || rec.Status != history.StatusOK || rec.Triangles != res.Triangles {
		t.Errorf("recorded run = %+v", rec)
	}
}

// meshVolume sums the divergence-theorem contribution of every facet of
// a closed, outward-wound mesh.
func meshVolume(m *solid.Mesh) float64 {
	total := 0.0
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		total += a.X*(b.Y*c.Z-b.Z*c.Y) - a.Y*(b.X*c.Z-b.Z*c.X) + a.Z*(b.X*c.Y-b.Y*c.X)
	}
	return total / 6
}

func TestOutputModesShareCutouts(t *testing.T) {
	t.Parallel()
	board := geom.Shape{geom.RectRing(geom.Point{X: 10, Y: 10}, 20, 20)}
	paste := geom.Shape{
		geom.RectRing(geom.Point{X: 5, Y: 5}, 2, 2),
		geom.RectRing(geom.Point{X: 15, Y: 15}, 2, 2),
	}

	holes := testRunner(config.Default())
	holes.Config.OutputMode = "holes_only"
	holesMesh, err := holes.buildMesh(board, paste, nil)
	if err != nil {
		t.Fatalf("holes_only buildMesh: %v", err)
	}
	cutouts := testRunner(config.Default())
	cutoutsMesh, err := cutouts.buildMesh(board, paste, nil)
	if err != nil {
		t.Fatalf("solid_with_cutouts buildMesh: %v", err)
	}

	// The two modes are complements of each other within the board
	// slab, so their volumes sum to the full slab.
	slab := board.Area() * holes.Config.ThicknessMM
	got := meshVolume(holesMesh) + meshVolume(cutoutsMesh)
	if diff := got - slab; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("volumes sum to %v, want %v", got, slab)
	}
}

func TestRunWithLocator(t *testing.T) {
	t.Parallel()
	input := writeBoard(t, true)
	output := filepath.Join(t.TempDir(), "board.stl")

	cfg := config.Default()
	cfg.LocatorEnabled = true
	cfg.LocatorOpenSide = "top"
	cfg.LocatorOpenWidthMM = 5
	plain, err := testRunner(config.Default()).Run(context.Background(), input, filepath.Join(t.TempDir(), "plain.stl"))
	if err != nil {
		t.Fatalf("plain Run: %v", err)
	}
	withWall, err := testRunner(cfg).Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("locator Run: %v", err)
	}
	// The wall adds its own caps and sides.
	if withWall.Triangles <= plain.Triangles {
		t.Errorf("locator mesh has %d triangles, plain has %d", withWall.Triangles, plain.Triangles)
	}
}
