package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the effective configuration and exit",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	addStencilFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("configuration ok: thickness=%.3fmm offset=%.3fmm mode=%s backend=%s format=%s\n",
		cfg.ThicknessMM, cfg.PasteOffsetMM, cfg.OutputMode, cfg.ModelBackend, cfg.STLFormat)
	return nil
}
