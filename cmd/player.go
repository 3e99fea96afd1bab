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

// playerCmd prints one or more players' labelled match history.
var playerCmd = &cobra.Command{
	Use:   "player <name> [<name>...]",
	Short: "Chronological history for one or more players",
	Long: `Show every stored match of a player in date order with the running win/lose
streak, the phase (activation, observation, after) relative to the first login
and the resulting retention label.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlayer,
}

func init() {
	addWindowFlags(playerCmd)
}

func runPlayer(cmd *cobra.Command, args []string) error {
	act, obs, err := windows()
	if err != nil {
		return err
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	for _, name := range args {
		history, err := playerHistory(db, name, act, obs)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Fprintf(os.Stderr, "No data found for player %q\n", name)
			continue
		}
		report.PrintPlayerHistory(os.Stdout, history)

		feats := aggregator.BuildFeatures(aggregator.FilterPhases(history, aggregator.FeatureWindow(activationOnly)...))
		if len(feats) > 0 {
			fmt.Fprintln(os.Stdout)
			report.PrintFeatures(os.Stdout, feats)
		}
	}
	return nil
}

// playerHistory labels one player's rows and fills their running streaks.
func playerHistory(db *storage.DB, name string, act, obs time.Duration) ([]model.LabeledRow, error) {
	rows, err := db.GetPlayerMatchRows(name)
	if err != nil {
		return nil, fmt.Errorf("query rows for %s: %w", name, err)
	}
	labeled := aggregator.BuildLabels(rows, act, obs)
	aggregator.AssignStreaks(labeled)
	return labeled, nil
}
