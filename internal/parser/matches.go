package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pable/go-subchurn/internal/model"
)

// flexNum decodes a JSON number, a numeric string or null. Anything else
// decodes to zero rather than failing.
type flexNum float64

func (n *flexNum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNum(v)
	return nil
}

// flexBool decodes true/false, "true"/"false", 1/0 and null.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.ToLower(string(bytes.TrimSpace(b))), `"`)
	switch s {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// flexString decodes strings and renders numbers as text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

type rawTeam struct {
	Score flexNum `json:"score"`
}

type rawPlayer struct {
	Name   flexString `json:"name"`
	Team   flexNum    `json:"team"`
	Flair  flexNum    `json:"flair"`
	Score  flexNum    `json:"score"`
	Points flexNum    `json:"points"`
	Degree flexNum    `json:"degree"`
	Auth   flexBool   `json:"auth"`
}

type rawMatch struct {
	Date    flexNum     `json:"date"`
	Teams   []rawTeam   `json:"teams"`
	Players []rawPlayer `json:"players"`
}

// ParseMatches reads a match-history file (optionally .gz or .zst).
func ParseMatches(path string, onMatch func()) ([]model.MatchRow, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return DecodeMatches(r, onMatch)
}

// DecodeMatches decodes a match-id -> match object and returns one row per
// authenticated player. Matches are emitted in numeric id order. onMatch, if
// non-nil, is called once per decoded match.
func DecodeMatches(r io.Reader, onMatch func()) ([]model.MatchRow, error) {
	var raw map[string]rawMatch
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sortMatchIDs(ids)

	var rows []model.MatchRow
	for _, id := range ids {
		rows = append(rows, matchRows(id, raw[id])...)
		if onMatch != nil {
			onMatch()
		}
	}
	return rows, nil
}

func matchRows(id string, m rawMatch) []model.MatchRow {
	var red, blue float64
	if len(m.Teams) > 0 {
		red = float64(m.Teams[0].Score)
	}
	if len(m.Teams) > 1 {
		blue = float64(m.Teams[1].Score)
	}
	winner := model.TeamBlue
	if red > blue {
		winner = model.TeamRed
	}
	date := time.Unix(int64(m.Date), 0).UTC()

	var rows []model.MatchRow
	for _, p := range m.Players {
		if !p.Auth {
			continue
		}
		team := model.TeamBlue
		if int(p.Team) == 1 {
			team = model.TeamRed
		}
		flair := 0
		if p.Flair != 0 {
			flair = 1
		}
		win := 0
		if team == winner {
			win = 1
		}
		rows = append(rows, model.MatchRow{
			MatchID: id,
			Name:    string(p.Name),
			Team:    team,
			Flair:   flair,
			Score:   float64(p.Score),
			Points:  float64(p.Points),
			Degree:  float64(p.Degree),
			Auth:    true,
			Date:    date,
			Win:     win,
		})
	}
	return rows
}

// sortMatchIDs orders numeric ids numerically, before any non-numeric ids,
// which sort lexicographically.
func sortMatchIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}
			return ids[i] < ids[j]
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
}
