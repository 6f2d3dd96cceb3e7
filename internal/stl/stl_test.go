package stl

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgeworks/stencilforge/internal/geom"
	"github.com/forgeworks/stencilforge/internal/solid"
)

func testMesh(t *testing.T) *solid.Mesh {
	t.Helper()
	mesh, err := solid.BuildMesh(
		[]solid.Prism{{Shape: geom.Shape{geom.RectRing(geom.Point{}, 4, 2)}, Z0: 0, Z1: 1}},
		solid.Options{Backend: solid.BackendEarcut, LinearDeflection: 0.01, AngularDeflection: 0.5},
	)
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	return mesh
}

func TestWriteBinaryRoundTrip(t *testing.T) {
	t.Parallel()
	mesh := testMesh(t)
	path := filepath.Join(t.TempDir(), "out.stl")
	if err := Write(path, mesh, FormatBinary); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := TriangleCount(path)
	if err != nil {
		t.Fatalf("TriangleCount: %v", err)
	}
	if got != mesh.TriangleCount() {
		t.Errorf("TriangleCount = %d, want %d", got, mesh.TriangleCount())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := 84 + 50*mesh.TriangleCount(); len(raw) != want {
		t.Errorf("file size = %d, want %d", len(raw), want)
	}
	if count := binary.LittleEndian.Uint32(raw[80:]); int(count) != mesh.TriangleCount() {
		t.Errorf("header count = %d, want %d", count, mesh.TriangleCount())
	}
}

func TestWriteASCIIRoundTrip(t *testing.T) {
	t.Parallel()
	mesh := testMesh(t)
	path := filepath.Join(t.TempDir(), "out.stl")
	if err := Write(path, mesh, FormatASCII); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := TriangleCount(path)
	if err != nil {
		t.Fatalf("TriangleCount: %v", err)
	}
	if got != mesh.TriangleCount() {
		t.Errorf("TriangleCount = %d, want %d", got, mesh.TriangleCount())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.HasPrefix(text, "solid ") {
		t.Errorf("missing solid header")
	}
	if !strings.Contains(text, "endsolid") {
		t.Errorf("missing endsolid trailer")
	}
}

func TestWriteDefaultsToBinary(t *testing.T) {
	t.Parallel()
	mesh := testMesh(t)
	path := filepath.Join(t.TempDir(), "out.stl")
	if err := Write(path, mesh, ""); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(string(raw[:6]), "solid ") {
		t.Errorf("default format wrote ASCII")
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "out.stl")
	err := Write(path, testMesh(t), "amf")
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *ExportError
	if !errors.As(err, &ee) {
		t.Fatalf("error type %T, want *ExportError", err)
	}
	if ee.Path != path {
		t.Errorf("Path = %q, want %q", ee.Path, path)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("file created despite format error")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.stl")
	if err := Write(path, testMesh(t), FormatBinary); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.stl" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contents = %v, want only out.stl", names)
	}
}

func TestTriangleCountMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := TriangleCount(filepath.Join(t.TempDir(), "absent.stl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
