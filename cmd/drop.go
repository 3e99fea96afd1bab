package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/storage"
)

var (
	dropForce      bool
	dropEmbeddings bool
	dropModel      string
)

// dropCmd deletes the database file, or only its embedding cache.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the database or its embedding cache",
	Long: `Permanently delete the SQLite database. All imported matches and cached
embeddings will be lost. With --embeddings only cached vectors are removed
(optionally for a single --model), which forces transcripts to be re-embedded.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().BoolVar(&dropEmbeddings, "embeddings", false, "only delete cached embedding vectors")
	dropCmd.Flags().StringVar(&dropModel, "model", "", "with --embeddings, only this embedding model id (e.g. hash-384)")
}

func runDrop(cmd *cobra.Command, args []string) error {
	target := dbPath
	if dropEmbeddings {
		target = "cached embeddings in " + dbPath
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", target)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}

	if dropEmbeddings {
		return dropEmbeddingCache()
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	// WAL side files.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			logger.Warn("remove side file", "path", dbPath+suffix, "error", err)
		}
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropEmbeddingCache() error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	n, err := db.DeleteEmbeddings(dropModel)
	if err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted %d cached vectors.\n", n)
	return nil
}
