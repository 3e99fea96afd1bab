package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/aggregator"
	"github.com/pable/go-subchurn/internal/model"
	"github.com/pable/go-subchurn/internal/report"
	"github.com/pable/go-subchurn/internal/storage"
)

// Label window flags, shared by features, train, player and analyze churn.
var (
	activationDays  int
	observationDays int
	activationOnly  bool
)

var featuresOut string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Label players and build per-player churn features",
	Long: `Label every player as retained (1) if they played again inside the observation
window that follows their activation window, then aggregate their rows into one
feature row: means of score/points/degree/win, win/lose counts, max flair and the
longest winning and losing streaks.`,
	Args: cobra.NoArgs,
	RunE: runFeatures,
}

func init() {
	addWindowFlags(featuresCmd)
	featuresCmd.Flags().StringVarP(&featuresOut, "out", "o", "", "also write the feature table as CSV to this path")
}

func addWindowFlags(c *cobra.Command) {
	c.Flags().IntVar(&activationDays, "activation-days", 7, "length of the activation window after first login")
	c.Flags().IntVar(&observationDays, "observation-days", 7, "length of the observation window after activation")
	c.Flags().BoolVar(&activationOnly, "activation-only", false, "aggregate activation rows only (observation rows leak the label)")
}

func windows() (activation, observation time.Duration, err error) {
	if activationDays < 0 || observationDays <= 0 {
		return 0, 0, fmt.Errorf("invalid windows: activation=%d observation=%d days", activationDays, observationDays)
	}
	return time.Duration(activationDays) * aggregator.Day, time.Duration(observationDays) * aggregator.Day, nil
}

// loadFeatures reads every stored row and runs the labelling pipeline.
func loadFeatures(db *storage.DB) ([]model.PlayerFeatureRow, error) {
	act, obs, err := windows()
	if err != nil {
		return nil, err
	}
	rows, err := db.GetAllMatchRows()
	if err != nil {
		return nil, fmt.Errorf("query match rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no match rows stored yet, run 'subchurn import <matches.json>' first")
	}
	feats := aggregator.Pipeline(rows, act, obs, activationOnly)
	logger.Debug("features built", "rows", len(rows), "players", len(feats), "activation_only", activationOnly)
	return feats, nil
}

func runFeatures(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	feats, err := loadFeatures(db)
	if err != nil {
		return err
	}
	report.PrintFeatures(os.Stdout, feats)

	if featuresOut == "" {
		return nil
	}
	f, err := os.Create(featuresOut)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := report.WriteFeaturesCSV(f, feats); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %d rows to %s\n", len(feats), featuresOut)
	return nil
}
