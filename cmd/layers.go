package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgeworks/stencilforge/internal/archive"
	"github.com/forgeworks/stencilforge/internal/classify"
	"github.com/forgeworks/stencilforge/internal/ui"
)

var layersCmd = &cobra.Command{
	Use:   "layers <input>",
	Short: "Show how input files classify into layer roles",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayers,
}

func init() {
	rootCmd.AddCommand(layersCmd)
}

func runLayers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "stencilforge-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	in, err := archive.Normalize(args[0], workDir)
	if err != nil {
		return err
	}
	printer := ui.New()
	sel, err := classify.Classify(in.Files, cfg.PastePatterns, cfg.OutlinePatterns)
	if errors.Is(err, classify.ErrLayerNotFound) {
		printer.Warn("no paste layer matched; a generate run would fail")
		printer.Layers(nil, "", nil, in.Files)
		return nil
	}
	if err != nil {
		return err
	}
	printer.Layers(sel.Paste, sel.Outline, sel.Drill, sel.Unknown)
	return nil
}
