package model

import "time"

// Team represents which side a player was on in a match.
type Team int

const (
	TeamUnknown Team = 0
	TeamRed     Team = 1
	TeamBlue    Team = 2
)

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "Red"
	case TeamBlue:
		return "Blue"
	default:
		return "?"
	}
}

// ParseTeam is the inverse of Team.String.
func ParseTeam(s string) Team {
	switch s {
	case "Red":
		return TeamRed
	case "Blue":
		return TeamBlue
	default:
		return TeamUnknown
	}
}

// ---- Pipeline B: churn ----

// MatchRow is one (player, match) observation flattened from match history.
type MatchRow struct {
	MatchID string
	Name    string
	Team    Team
	Flair   int // 0 or 1
	Score   float64
	Points  float64
	Degree  float64
	Auth    bool
	Date    time.Time
	Win     int // 0 or 1
}

// Phase places a row relative to its player's first login.
type Phase int

const (
	PhaseActivation  Phase = iota // [first, first+activation]
	PhaseObservation              // (first+activation, first+activation+observation]
	PhaseAfter                    // later than the observation window
)

func (p Phase) String() string {
	switch p {
	case PhaseActivation:
		return "activation"
	case PhaseObservation:
		return "observation"
	case PhaseAfter:
		return "after"
	default:
		return "?"
	}
}

// LabeledRow is a MatchRow annotated by the label builder and streak scan.
type LabeledRow struct {
	MatchRow
	FirstLogin time.Time
	Phase      Phase
	Label      int // 1 if the player returned inside the observation window

	// Running streak lengths at this row, in date order within the player.
	WinStreak  int
	LoseStreak int
}

// PlayerFeatureRow is the per-player aggregate fed to the classifiers.
type PlayerFeatureRow struct {
	Name          string
	Matches       int
	Score         float64 // mean
	Points        float64 // mean
	Degree        float64 // mean
	Win           float64 // mean, i.e. win rate
	Flair         int     // max
	WinCount      int
	LoseCount     int
	WinningStreak int // max run of wins
	LosingStreak  int // max run of losses
	Label         int
}

// ImportSummary describes one `import` run stored in the database.
type ImportSummary struct {
	ID         string
	Source     string
	ImportedAt string
	Matches    int
	Rows       int
}

// DBOverview holds aggregate statistics about the whole store.
type DBOverview struct {
	Imports       int
	Matches       int
	Rows          int
	UniquePlayers int
	EarliestMatch string
	LatestMatch   string
	Embeddings    int
}

// PlayerActivity is one entry of the most-active-players list.
type PlayerActivity struct {
	Name    string
	Matches int
	WinRate float64
	First   string
	Last    string
}
