// Package aggregator turns per-match rows into labelled rows, win/loss
// streaks and one feature row per player.
package aggregator

import (
	"sort"
	"time"

	"github.com/pable/go-subchurn/internal/model"
)

// Day is the unit used by the CLI for activation/observation periods.
const Day = 24 * time.Hour

// BuildLabels places every row in its player's activation, observation or
// after phase and labels all of a player's rows 1 iff at least one of them
// falls in the observation window (first+activation, first+activation+observation].
// Output order matches input order.
func BuildLabels(rows []model.MatchRow, activation, observation time.Duration) []model.LabeledRow {
	// ---- Pass 1: first login per player. ----
	first := make(map[string]time.Time)
	for _, r := range rows {
		if f, ok := first[r.Name]; !ok || r.Date.Before(f) {
			first[r.Name] = r.Date
		}
	}

	// ---- Pass 2: phase per row, label per player. ----
	out := make([]model.LabeledRow, len(rows))
	returned := make(map[string]bool)
	for i, r := range rows {
		f := first[r.Name]
		actEnd := f.Add(activation)
		obsEnd := actEnd.Add(observation)

		phase := model.PhaseActivation
		switch {
		case r.Date.After(obsEnd):
			phase = model.PhaseAfter
		case r.Date.After(actEnd):
			phase = model.PhaseObservation
			returned[r.Name] = true
		}
		out[i] = model.LabeledRow{MatchRow: r, FirstLogin: f, Phase: phase}
	}
	for i := range out {
		if returned[out[i].Name] {
			out[i].Label = 1
		}
	}
	return out
}

// RunLengths scans a win/loss sequence once. winStreak[i] is the length of
// the run of wins ending at i (0 on a loss); loseStreak[i] likewise for losses.
func RunLengths(wins []int) (winStreak, loseStreak []int) {
	winStreak = make([]int, len(wins))
	loseStreak = make([]int, len(wins))
	w, l := 0, 0
	for i, v := range wins {
		if v != 0 {
			w, l = w+1, 0
		} else {
			w, l = 0, l+1
		}
		winStreak[i], loseStreak[i] = w, l
	}
	return winStreak, loseStreak
}

// AssignStreaks fills WinStreak and LoseStreak in place. Each player's rows are
// scanned in date order (stable, so same-date rows keep input order).
func AssignStreaks(rows []model.LabeledRow) {
	byPlayer := make(map[string][]int)
	var names []string
	for i, r := range rows {
		if _, ok := byPlayer[r.Name]; !ok {
			names = append(names, r.Name)
		}
		byPlayer[r.Name] = append(byPlayer[r.Name], i)
	}

	for _, name := range names {
		idx := byPlayer[name]
		sort.SliceStable(idx, func(a, b int) bool {
			return rows[idx[a]].Date.Before(rows[idx[b]].Date)
		})
		wins := make([]int, len(idx))
		for j, i := range idx {
			wins[j] = rows[i].Win
		}
		ws, ls := RunLengths(wins)
		for j, i := range idx {
			rows[i].WinStreak = ws[j]
			rows[i].LoseStreak = ls[j]
		}
	}
}

// FilterPhases keeps the rows whose phase is one of phases.
func FilterPhases(rows []model.LabeledRow, phases ...model.Phase) []model.LabeledRow {
	keep := make(map[model.Phase]bool, len(phases))
	for _, p := range phases {
		keep[p] = true
	}
	var out []model.LabeledRow
	for _, r := range rows {
		if keep[r.Phase] {
			out = append(out, r)
		}
	}
	return out
}

// FeatureWindow returns the phases aggregated into features: activation and
// observation, or activation alone.
func FeatureWindow(activationOnly bool) []model.Phase {
	if activationOnly {
		return []model.Phase{model.PhaseActivation}
	}
	return []model.Phase{model.PhaseActivation, model.PhaseObservation}
}

// BuildFeatures aggregates rows into one feature row per player, sorted by
// name. Streaks must already be assigned.
func BuildFeatures(rows []model.LabeledRow) []model.PlayerFeatureRow {
	acc := make(map[string]*model.PlayerFeatureRow)
	for _, r := range rows {
		f, ok := acc[r.Name]
		if !ok {
			f = &model.PlayerFeatureRow{Name: r.Name}
			acc[r.Name] = f
		}
		f.Matches++
		f.Score += r.Score
		f.Points += r.Points
		f.Degree += r.Degree
		if r.Win != 0 {
			f.WinCount++
		} else {
			f.LoseCount++
		}
		f.WinningStreak = max(f.WinningStreak, r.WinStreak)
		f.LosingStreak = max(f.LosingStreak, r.LoseStreak)
		f.Flair = max(f.Flair, r.Flair)
		f.Label = max(f.Label, r.Label)
	}

	out := make([]model.PlayerFeatureRow, 0, len(acc))
	for _, f := range acc {
		n := float64(f.Matches)
		f.Score /= n
		f.Points /= n
		f.Degree /= n
		f.Win = float64(f.WinCount) / n
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Pipeline runs labels, streaks, phase filtering and aggregation in order.
func Pipeline(rows []model.MatchRow, activation, observation time.Duration, activationOnly bool) []model.PlayerFeatureRow {
	labeled := BuildLabels(rows, activation, observation)
	AssignStreaks(labeled)
	return BuildFeatures(FilterPhases(labeled, FeatureWindow(activationOnly)...))
}
