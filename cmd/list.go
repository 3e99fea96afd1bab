package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/report"
	"github.com/pable/go-subchurn/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all match imports",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	imports, err := db.ListImports()
	if err != nil {
		return fmt.Errorf("list imports: %w", err)
	}
	if len(imports) == 0 {
		fmt.Fprintln(os.Stdout, "No matches imported yet. Run 'subchurn import <matches.json>' to add some.")
		return nil
	}
	report.PrintImports(os.Stdout, imports)
	return nil
}
