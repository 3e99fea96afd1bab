package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/report"
	"github.com/pable/go-subchurn/internal/storage"
)

var summaryTop int

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about everything stored in the database:
import count, match and player-row totals, date range, cached embedding
vectors and the most active players.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().IntVarP(&summaryTop, "top", "n", 10, "number of most active players to show")
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ov, err := db.GetDBOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Matches == 0 && ov.Embeddings == 0 {
		fmt.Fprintln(os.Stdout, "Database is empty. Run 'subchurn import <matches.json>' or 'subchurn search' to populate it.")
		return nil
	}

	players, err := db.GetTopPlayersByMatches(summaryTop)
	if err != nil {
		return fmt.Errorf("get top players: %w", err)
	}
	report.PrintOverview(os.Stdout, ov, players)
	return nil
}
