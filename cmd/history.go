package cmd

import (
	"github.com/spf13/cobra"

	"github.com/forgeworks/stencilforge/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent stencil runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	ui.New().History(runs)
	return nil
}
