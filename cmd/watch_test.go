package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunWatchRejectsPlainFile(t *testing.T) {
	initConfig()
	file := filepath.Join(t.TempDir(), "board.gtp")
	if err := os.WriteFile(file, []byte("%FSLAX25Y25*%\nM02*\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := runWatch(watchCmd, []string{file})
	if err == nil || !strings.Contains(err.Error(), "needs a directory") {
		t.Errorf("err = %v, want directory rejection", err)
	}
}

func TestDefaultOutput(t *testing.T) {
	t.Parallel()
	cases := []struct{ input, want string }{
		{"gerbers/board.zip", "board.stl"},
		{"gerbers/export", "export.stl"},
		{".", "stencil.stl"},
	}
	for _, tc := range cases {
		if got := defaultOutput(tc.input); got != tc.want {
			t.Errorf("defaultOutput(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
