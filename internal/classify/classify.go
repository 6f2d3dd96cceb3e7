// Package classify assigns layer roles to input files by glob pattern
// matching on case-insensitive base names.
package classify

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrLayerNotFound is returned when no file matches the paste patterns.
// Paste geometry is mandatory; a missing outline only selects the
// fallback path downstream.
var ErrLayerNotFound = errors.New("classify: no paste layer matched")

// Drill files are recognized so they can be reported, but they carry no
// stencil geometry and are never parsed.
var drillPatterns = []string{"*.drl", "*.xln", "*.exc", "*drill*", "*.txt"}

// Selection is the classified view of one input set. Paste holds every
// match in pattern-priority order; the first entry is the primary file.
type Selection struct {
	Paste   []string
	Outline string
	Drill   []string
	Unknown []string
}

// Classify matches files against the pattern lists. Patterns are tried
// in list order and files in listing order, so the result is stable for
// a given directory listing. A file takes the first role that claims it.
func Classify(files []string, pastePatterns, outlinePatterns []string) (Selection, error) {
	var sel Selection
	claimed := make(map[string]bool, len(files))

	sel.Paste = matchAll(files, pastePatterns, claimed)
	if len(sel.Paste) == 0 {
		return Selection{}, ErrLayerNotFound
	}
	if m := matchAll(files, outlinePatterns, claimed); len(m) > 0 {
		sel.Outline = m[0]
		for _, extra := range m[1:] {
			claimed[extra] = false
		}
	}
	sel.Drill = matchAll(files, drillPatterns, claimed)
	for _, f := range files {
		if !claimed[f] {
			sel.Unknown = append(sel.Unknown, f)
		}
	}
	return sel, nil
}

func matchAll(files, patterns []string, claimed map[string]bool) []string {
	var out []string
	for _, pat := range patterns {
		pat = strings.ToLower(pat)
		for _, f := range files {
			if claimed[f] {
				continue
			}
			name := strings.ToLower(filepath.Base(f))
			if ok, err := path.Match(pat, name); err == nil && ok {
				claimed[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}
