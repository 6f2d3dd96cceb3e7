// Package ui is the plain-terminal printer used when the TUI is
// disabled or stdout is not a terminal.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/forgeworks/stencilforge/internal/history"
	"github.com/forgeworks/stencilforge/internal/pipeline"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

type Printer struct{}

func New() *Printer {
	return &Printer{}
}

func (p *Printer) Banner() {
	fmt.Fprintln(os.Stderr, bold+cyan+"stencilforge"+reset+dim+" gerber -> printable stencil"+reset)
}

func (p *Printer) Stage(name string, fraction float64) {
	fmt.Fprintf(os.Stderr, dim+"[%3.0f%%]"+reset+" %s\n", fraction*100, name)
}

func (p *Printer) Log(level, msg string) {
	if level == "warn" {
		p.Warn(msg)
		return
	}
	fmt.Fprintf(os.Stderr, dim+"  %s"+reset+"\n", msg)
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintf(os.Stderr, yellow+bold+"⚠ "+reset+"%s\n", msg)
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(os.Stderr, red+bold+"error: "+reset+"%s\n", msg)
}

func (p *Printer) Done(res *pipeline.Result) {
	fmt.Fprintf(os.Stderr, green+bold+"✓ %s"+reset+dim+" (%d triangles, %.1fs)"+reset+"\n",
		res.Output, res.Triangles, res.Duration.Seconds())
	if res.OutlineFallback {
		fmt.Fprintln(os.Stderr, dim+"  outline: paste bounds + margin (no outline layer)"+reset)
	}
	if res.QFN != nil {
		fmt.Fprintf(os.Stderr, dim+"  qfn: %d pads regenerated (score %.2f)"+reset+"\n", res.QFN.Pads, res.QFN.Score)
	}
}

// Layers prints the classifier's view of an input directory.
func (p *Printer) Layers(paste []string, outlineFile string, drill, unknown []string) {
	for _, f := range paste {
		fmt.Printf("%-8s %s\n", "paste", f)
	}
	if outlineFile != "" {
		fmt.Printf("%-8s %s\n", "outline", outlineFile)
	}
	for _, f := range drill {
		fmt.Printf("%-8s %s\n", "drill", f)
	}
	for _, f := range unknown {
		fmt.Printf("%-8s %s\n", "unknown", f)
	}
}

// History prints recent runs, newest first.
func (p *Printer) History(runs []history.Run) {
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return
	}
	for _, r := range runs {
		marker := green + "✓" + reset
		switch r.Status {
		case history.StatusFailed:
			marker = red + "✗" + reset
		case history.StatusCanceled:
			marker = yellow + "–" + reset
		}
		fmt.Printf("%s %s  %-30s %8d tris  %6.1fs  %s\n",
			marker, r.StartedAt.Local().Format(time.DateTime),
			r.Output, r.Triangles, r.Duration.Seconds(), r.Status)
		if r.Error != "" {
			fmt.Printf(dim+"    %s"+reset+"\n", r.Error)
		}
	}
}
