// Package archive normalizes a pipeline input into a flat, stable file
// listing. Directories are walked in place; zip archives are extracted
// into a work directory first.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Input is the normalized view: Root is the directory holding the
// files, Files are absolute paths in sorted listing order.
type Input struct {
	Root  string
	Files []string
}

// Normalize accepts either a directory or a .zip archive. Archives are
// extracted under workDir, which the caller owns and cleans up.
func Normalize(input, workDir string) (*Input, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return listDir(input)
	}
	if strings.EqualFold(filepath.Ext(input), ".zip") {
		root := filepath.Join(workDir, "extracted")
		if err := extractZip(input, root); err != nil {
			return nil, err
		}
		return listDir(root)
	}
	return nil, fmt.Errorf("input %s is neither a directory nor a zip archive", input)
}

// listDir walks root collecting regular files. Sorting the full paths
// fixes the listing order the classifier depends on.
func listDir(root string) (*Input, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return &Input{Root: root, Files: files}, nil
}

func extractZip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.Clean(f.Name))
		// Reject entries that would escape the extraction root.
		if rel, err := filepath.Rel(dest, target); err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("archive entry %q escapes extraction root", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
