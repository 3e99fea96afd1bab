package aggregator

import (
	"reflect"
	"testing"
	"time"

	"github.com/pable/go-subchurn/internal/model"
)

var day0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// row creates a minimal MatchRow for name played d days after day0.
func row(name string, d float64, win int) model.MatchRow {
	return model.MatchRow{
		MatchID: name + time.Duration(d*float64(Day)).String(),
		Name:    name,
		Team:    model.TeamRed,
		Auth:    true,
		Date:    day0.Add(time.Duration(d * float64(Day))),
		Win:     win,
	}
}

// ---- Label tests ----

func TestBuildLabels_NoReturnInsideWindow(t *testing.T) {
	rows := []model.MatchRow{row("A", 0, 1), row("A", 5, 0), row("A", 20, 1)}
	got := BuildLabels(rows, 7*Day, 7*Day)

	for _, r := range got {
		if r.Label != 0 {
			t.Errorf("day %v: expected label 0, got %d", r.Date.Sub(day0), r.Label)
		}
	}
	wantPhases := []model.Phase{model.PhaseActivation, model.PhaseActivation, model.PhaseAfter}
	for i, r := range got {
		if r.Phase != wantPhases[i] {
			t.Errorf("row %d: expected phase %s, got %s", i, wantPhases[i], r.Phase)
		}
		if !r.FirstLogin.Equal(day0) {
			t.Errorf("row %d: expected first login %v, got %v", i, day0, r.FirstLogin)
		}
	}
}

func TestBuildLabels_WindowBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		day   float64
		phase model.Phase
		label int
	}{
		{"exactly at activation end", 7, model.PhaseActivation, 0},
		{"just after activation end", 7.01, model.PhaseObservation, 1},
		{"exactly at observation end", 14, model.PhaseObservation, 1},
		{"just after observation end", 14.01, model.PhaseAfter, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildLabels([]model.MatchRow{row("A", 0, 1), row("A", tc.day, 1)}, 7*Day, 7*Day)
			if got[1].Phase != tc.phase {
				t.Errorf("expected phase %s, got %s", tc.phase, got[1].Phase)
			}
			if got[0].Label != tc.label || got[1].Label != tc.label {
				t.Errorf("expected label %d on every row, got %d/%d", tc.label, got[0].Label, got[1].Label)
			}
		})
	}
}

func TestBuildLabels_PerPlayerFirstLoginAndOrder(t *testing.T) {
	// B's first login is day 10, so B's window is (17, 24].
	rows := []model.MatchRow{row("B", 20, 1), row("A", 3, 0), row("B", 10, 0), row("A", 0, 1)}
	got := BuildLabels(rows, 7*Day, 7*Day)

	for i := range rows {
		if got[i].MatchID != rows[i].MatchID {
			t.Fatalf("row %d: order not preserved", i)
		}
	}
	if got[0].Label != 1 || got[2].Label != 1 {
		t.Errorf("expected B labelled 1, got %d/%d", got[0].Label, got[2].Label)
	}
	if got[1].Label != 0 || got[3].Label != 0 {
		t.Errorf("expected A labelled 0, got %d/%d", got[1].Label, got[3].Label)
	}
	if !got[0].FirstLogin.Equal(day0.Add(10 * Day)) {
		t.Errorf("expected B first login at day 10, got %v", got[0].FirstLogin)
	}
}

// ---- Streak tests ----

func TestRunLengths(t *testing.T) {
	ws, ls := RunLengths([]int{1, 1, 0, 1, 0, 0, 0, 1})
	wantW := []int{1, 2, 0, 1, 0, 0, 0, 1}
	wantL := []int{0, 0, 1, 0, 1, 2, 3, 0}
	if !reflect.DeepEqual(ws, wantW) {
		t.Errorf("win streaks: expected %v, got %v", wantW, ws)
	}
	if !reflect.DeepEqual(ls, wantL) {
		t.Errorf("lose streaks: expected %v, got %v", wantL, ls)
	}

	ws, ls = RunLengths(nil)
	if len(ws) != 0 || len(ls) != 0 {
		t.Errorf("expected empty streaks for empty input")
	}
}

func TestAssignStreaks_SortsWithinPlayer(t *testing.T) {
	rows := BuildLabels([]model.MatchRow{
		row("A", 2, 1),
		row("B", 0, 0),
		row("A", 0, 1),
		row("A", 1, 0),
		row("B", 1, 0),
	}, 7*Day, 7*Day)
	AssignStreaks(rows)

	// A by date: day0 W, day1 L, day2 W.
	if rows[2].WinStreak != 1 || rows[3].LoseStreak != 1 || rows[0].WinStreak != 1 {
		t.Errorf("A streaks wrong: %+v", []int{rows[2].WinStreak, rows[3].LoseStreak, rows[0].WinStreak})
	}
	if rows[1].LoseStreak != 1 || rows[4].LoseStreak != 2 {
		t.Errorf("B lose streaks: expected 1,2 got %d,%d", rows[1].LoseStreak, rows[4].LoseStreak)
	}
}

// ---- Feature tests ----

func TestBuildFeatures(t *testing.T) {
	in := []model.MatchRow{row("A", 0, 1), row("A", 1, 1), row("A", 2, 0), row("A", 9, 1)}
	in[0].Score, in[1].Score, in[2].Score, in[3].Score = 10, 20, 30, 40
	in[1].Flair = 1
	labeled := BuildLabels(in, 7*Day, 7*Day)
	AssignStreaks(labeled)
	got := BuildFeatures(labeled)

	if len(got) != 1 {
		t.Fatalf("expected 1 player, got %d", len(got))
	}
	f := got[0]
	if f.Matches != 4 || f.WinCount != 3 || f.LoseCount != 1 {
		t.Errorf("counts: %+v", f)
	}
	if f.Score != 25 {
		t.Errorf("expected mean score 25, got %v", f.Score)
	}
	if f.Win != 0.75 {
		t.Errorf("expected win rate 0.75, got %v", f.Win)
	}
	if f.WinningStreak != 2 || f.LosingStreak != 1 {
		t.Errorf("streaks: expected 2/1, got %d/%d", f.WinningStreak, f.LosingStreak)
	}
	if f.Flair != 1 || f.Label != 1 {
		t.Errorf("expected flair 1 and label 1, got %d/%d", f.Flair, f.Label)
	}
}

func TestPipeline_PhaseFiltering(t *testing.T) {
	in := []model.MatchRow{
		row("A", 0, 1),
		row("A", 9, 0),  // observation
		row("A", 30, 1), // after, never aggregated
		row("C", 0, 0),
	}
	all := Pipeline(in, 7*Day, 7*Day, false)
	if len(all) != 2 || all[0].Name != "A" || all[1].Name != "C" {
		t.Fatalf("expected players A, C sorted, got %+v", all)
	}
	if all[0].Matches != 2 || all[0].Label != 1 {
		t.Errorf("A: expected 2 matches labelled 1, got %d/%d", all[0].Matches, all[0].Label)
	}
	if all[1].Label != 0 {
		t.Errorf("C: expected label 0, got %d", all[1].Label)
	}

	act := Pipeline(in, 7*Day, 7*Day, true)
	if act[0].Matches != 1 || act[0].Label != 1 {
		t.Errorf("activation-only A: expected 1 match labelled 1, got %d/%d", act[0].Matches, act[0].Label)
	}
}
