package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/model"
	"github.com/pable/go-subchurn/internal/parser"
	"github.com/pable/go-subchurn/internal/storage"
)

const importChunk = 1000

var importQuiet bool

var importCmd = &cobra.Command{
	Use:   "import <matches.json[.gz|.zst]>",
	Short: "Load match history into the database",
	Long: `Decode a match-id -> match JSON document, flatten it to one row per
authenticated player per match, and store the rows. Re-importing the same
matches replaces the earlier rows.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "no progress bars")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	decodeBar := newBar(-1, "decoding matches")
	matches := 0
	rows, err := parser.ParseMatches(path, func() {
		matches++
		decodeBar.Add(1)
	})
	decodeBar.Finish()
	if err != nil {
		return fmt.Errorf("parse matches: %w", err)
	}

	summary := model.ImportSummary{
		ID:         uuid.NewString(),
		Source:     filepath.Base(path),
		ImportedAt: time.Now().UTC().Format(time.RFC3339),
		Matches:    matches,
		Rows:       len(rows),
	}
	insertBar := newBar(len(rows), "storing rows")
	err = storeImport(db, summary, rows, importChunk, func(n int) { insertBar.Add(n) })
	insertBar.Finish()
	if err != nil {
		return err
	}

	logger.Info("import complete", "id", summary.ID, "matches", matches, "rows", len(rows))
	fmt.Fprintf(os.Stdout, "Imported %d matches (%d player rows) from %s  [%s]\n",
		matches, len(rows), summary.Source, summary.ID[:8])
	return nil
}

type importStore interface {
	InsertImport(model.ImportSummary) error
	InsertMatchRows(importID string, rows []model.MatchRow) error
}

// storeImport writes rows in chunks and records the import run only once
// every chunk is stored, so a failed import leaves no summary behind.
func storeImport(db importStore, summary model.ImportSummary, rows []model.MatchRow, chunk int, onChunk func(int)) error {
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		if err := db.InsertMatchRows(summary.ID, rows[start:end]); err != nil {
			return fmt.Errorf("insert match rows: %w", err)
		}
		if onChunk != nil {
			onChunk(end - start)
		}
	}
	if err := db.InsertImport(summary); err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

// newBar returns a stderr progress bar; n = -1 gives a spinner.
func newBar(n int, desc string) *progressbar.ProgressBar {
	if importQuiet {
		return progressbar.DefaultSilent(int64(n), desc)
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
	)
}
