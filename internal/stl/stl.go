// Package stl writes triangle meshes in the binary and ASCII STL
// formats. Output is written to a temporary file and renamed into place
// so a failed or canceled run never leaves a truncated artifact.
package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgeworks/stencilforge/internal/solid"
)

// Formats accepted by Write.
const (
	FormatBinary = "binary"
	FormatASCII  = "ascii"
)

// ExportError wraps any failure to produce the output file.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string { return fmt.Sprintf("stl export %s: %v", e.Path, e.Err) }
func (e *ExportError) Unwrap() error { return e.Err }

// Write exports the mesh to path in the given format, atomically.
func Write(path string, mesh *solid.Mesh, format string) error {
	var encode func(io.Writer, *solid.Mesh) error
	switch format {
	case FormatBinary, "":
		encode = writeBinary
	case FormatASCII:
		encode = writeASCII
	default:
		return &ExportError{Path: path, Err: fmt.Errorf("unknown format %q", format)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".stl-*")
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := encode(w, mesh); err != nil {
		tmp.Close()
		return &ExportError{Path: path, Err: err}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return &ExportError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func writeBinary(w io.Writer, mesh *solid.Mesh) error {
	header := make([]byte, 80)
	copy(header, "stencilforge binary STL")
	if _, err := w.Write(header); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(mesh.Faces))); err != nil {
		return err
	}
	buf := make([]byte, 50)
	for i, f := range mesh.Faces {
		n := mesh.Normal(i)
		putVec(buf[0:], n)
		putVec(buf[12:], mesh.Vertices[f[0]])
		putVec(buf[24:], mesh.Vertices[f[1]])
		putVec(buf[36:], mesh.Vertices[f[2]])
		buf[48], buf[49] = 0, 0
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func putVec(b []byte, v solid.Vec3) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

func writeASCII(w io.Writer, mesh *solid.Mesh) error {
	if _, err := fmt.Fprintln(w, "solid stencilforge"); err != nil {
		return err
	}
	for i, f := range mesh.Faces {
		n := mesh.Normal(i)
		if _, err := fmt.Fprintf(w, "  facet normal %e %e %e\n    outer loop\n", n.X, n.Y, n.Z); err != nil {
			return err
		}
		for _, vi := range f {
			v := mesh.Vertices[vi]
			if _, err := fmt.Fprintf(w, "      vertex %e %e %e\n", v.X, v.Y, v.Z); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, "    endloop\n  endfacet\n"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "endsolid stencilforge")
	return err
}

// TriangleCount re-reads an exported file and returns how many facets
// it holds, used as a post-write sanity check.
func TriangleCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, 6)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, err
	}
	if string(header) == "solid " {
		return countASCIIFacets(f)
	}
	if _, err := f.Seek(80, io.SeekStart); err != nil {
		return 0, err
	}
	var count uint32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return 0, err
	}
	return int(count), nil
}

func countASCIIFacets(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "endfacet" {
			count++
		}
	}
	return count, scanner.Err()
}
