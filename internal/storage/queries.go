package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pable/go-subchurn/internal/model"
)

const dateLayout = "2006-01-02"

// InsertImport records an import run. Uses INSERT OR REPLACE for idempotency.
func (db *DB) InsertImport(s model.ImportSummary) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO imports(id, source, imported_at, matches, row_count)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.ImportedAt, s.Matches, s.Rows,
	)
	return err
}

// InsertMatchRows bulk-inserts match rows in a transaction. A (match, player)
// pair imported twice keeps the latest values.
func (db *DB) InsertMatchRows(importID string, rows []model.MatchRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO match_rows(
			match_id, name, team, flair, score, points, degree, auth, match_date, win, import_id
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err = stmt.Exec(
			r.MatchID, r.Name, r.Team.String(), r.Flair,
			r.Score, r.Points, r.Degree, boolInt(r.Auth),
			r.Date.Unix(), r.Win, importID,
		)
		if err != nil {
			return fmt.Errorf("insert match_rows for %s/%s: %w", r.MatchID, r.Name, err)
		}
	}
	return tx.Commit()
}

// ListImports returns all import runs, newest first.
func (db *DB) ListImports() ([]model.ImportSummary, error) {
	rows, err := db.conn.Query(`
		SELECT id, source, imported_at, matches, row_count
		FROM imports ORDER BY imported_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ImportSummary
	for rows.Next() {
		var s model.ImportSummary
		if err := rows.Scan(&s.ID, &s.Source, &s.ImportedAt, &s.Matches, &s.Rows); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const matchRowColumns = `match_id, name, team, flair, score, points, degree, auth, match_date, win`

// GetAllMatchRows returns every stored row ordered by player, date, match id.
func (db *DB) GetAllMatchRows() ([]model.MatchRow, error) {
	rows, err := db.conn.Query(`SELECT ` + matchRowColumns + `
		FROM match_rows ORDER BY name, match_date, match_id`)
	if err != nil {
		return nil, err
	}
	return scanMatchRows(rows)
}

// GetPlayerMatchRows returns one player's rows in date order.
func (db *DB) GetPlayerMatchRows(name string) ([]model.MatchRow, error) {
	rows, err := db.conn.Query(`SELECT `+matchRowColumns+`
		FROM match_rows WHERE name = ? ORDER BY match_date, match_id`, name)
	if err != nil {
		return nil, err
	}
	return scanMatchRows(rows)
}

func scanMatchRows(rows *sql.Rows) ([]model.MatchRow, error) {
	defer rows.Close()
	var out []model.MatchRow
	for rows.Next() {
		var r model.MatchRow
		var teamStr string
		var authInt int
		var unix int64
		if err := rows.Scan(
			&r.MatchID, &r.Name, &teamStr, &r.Flair,
			&r.Score, &r.Points, &r.Degree, &authInt, &unix, &r.Win,
		); err != nil {
			return nil, err
		}
		r.Team = model.ParseTeam(teamStr)
		r.Auth = authInt != 0
		r.Date = time.Unix(unix, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetDBOverview returns aggregate counts across the store.
func (db *DB) GetDBOverview() (model.DBOverview, error) {
	var ov model.DBOverview
	var minDate, maxDate sql.NullInt64
	err := db.conn.QueryRow(`
		SELECT COUNT(DISTINCT match_id), COUNT(*), COUNT(DISTINCT name), MIN(match_date), MAX(match_date)
		FROM match_rows`).Scan(&ov.Matches, &ov.Rows, &ov.UniquePlayers, &minDate, &maxDate)
	if err != nil {
		return ov, fmt.Errorf("overview match_rows: %w", err)
	}
	if minDate.Valid {
		ov.EarliestMatch = time.Unix(minDate.Int64, 0).UTC().Format(dateLayout)
	}
	if maxDate.Valid {
		ov.LatestMatch = time.Unix(maxDate.Int64, 0).UTC().Format(dateLayout)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM imports`).Scan(&ov.Imports); err != nil {
		return ov, fmt.Errorf("overview imports: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&ov.Embeddings); err != nil {
		return ov, fmt.Errorf("overview embeddings: %w", err)
	}
	return ov, nil
}

// GetTopPlayersByMatches returns the n players with the most stored matches.
func (db *DB) GetTopPlayersByMatches(n int) ([]model.PlayerActivity, error) {
	rows, err := db.conn.Query(`
		SELECT name, COUNT(*) AS matches, AVG(win), MIN(match_date), MAX(match_date)
		FROM match_rows
		GROUP BY name
		ORDER BY matches DESC, name
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerActivity
	for rows.Next() {
		var p model.PlayerActivity
		var first, last int64
		if err := rows.Scan(&p.Name, &p.Matches, &p.WinRate, &first, &last); err != nil {
			return nil, err
		}
		p.First = time.Unix(first, 0).UTC().Format(dateLayout)
		p.Last = time.Unix(last, 0).UTC().Format(dateLayout)
		out = append(out, p)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns column names and rows rendered
// as strings. NULL becomes "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
