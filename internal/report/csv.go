package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pable/go-subchurn/internal/model"
)

// FeatureCSVHeader is the column order written by WriteFeaturesCSV.
var FeatureCSVHeader = []string{
	"name", "matches", "score", "points", "degree", "flair", "win",
	"win_count", "lose_count", "winning_streak", "losing_streak", "label",
}

// WriteFeaturesCSV writes the feature table with a header row.
func WriteFeaturesCSV(w io.Writer, rows []model.PlayerFeatureRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FeatureCSVHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range rows {
		rec := []string{
			r.Name, strconv.Itoa(r.Matches),
			f(r.Score), f(r.Points), f(r.Degree),
			strconv.Itoa(r.Flair), f(r.Win),
			strconv.Itoa(r.WinCount), strconv.Itoa(r.LoseCount),
			strconv.Itoa(r.WinningStreak), strconv.Itoa(r.LosingStreak),
			strconv.Itoa(r.Label),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
