package storage

import (
	"testing"
	"time"

	"github.com/pable/go-subchurn/internal/embedding"
	"github.com/pable/go-subchurn/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var jan1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleRows() []model.MatchRow {
	return []model.MatchRow{
		{MatchID: "1", Name: "alice", Team: model.TeamRed, Flair: 1, Score: 12, Points: 4, Degree: 100.5, Auth: true, Date: jan1, Win: 1},
		{MatchID: "1", Name: "bob", Team: model.TeamBlue, Score: 8, Points: 2, Degree: 50, Auth: true, Date: jan1, Win: 0},
		{MatchID: "2", Name: "alice", Team: model.TeamBlue, Score: 3, Auth: true, Date: jan1.Add(48 * time.Hour), Win: 1},
	}
}

func TestMatchRowsRoundTrip(t *testing.T) {
	db := openMemDB(t)

	if err := db.InsertMatchRows("imp1", sampleRows()); err != nil {
		t.Fatalf("InsertMatchRows: %v", err)
	}

	got, err := db.GetAllMatchRows()
	if err != nil {
		t.Fatalf("GetAllMatchRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	// Ordered by name, date: alice/1, alice/2, bob/1.
	if got[0].Name != "alice" || got[0].MatchID != "1" || got[1].MatchID != "2" || got[2].Name != "bob" {
		t.Errorf("unexpected order: %+v", got)
	}
	a := got[0]
	if a.Team != model.TeamRed || a.Flair != 1 || a.Score != 12 || a.Degree != 100.5 || !a.Auth || a.Win != 1 {
		t.Errorf("alice row mismatch: %+v", a)
	}
	if !a.Date.Equal(jan1) {
		t.Errorf("alice date: want %v, got %v", jan1, a.Date)
	}

	alice, err := db.GetPlayerMatchRows("alice")
	if err != nil {
		t.Fatalf("GetPlayerMatchRows: %v", err)
	}
	if len(alice) != 2 {
		t.Errorf("expected 2 rows for alice, got %d", len(alice))
	}
	none, _ := db.GetPlayerMatchRows("nobody")
	if len(none) != 0 {
		t.Errorf("expected no rows for unknown player, got %d", len(none))
	}
}

func TestInsertIdempotency(t *testing.T) {
	db := openMemDB(t)

	rows := sampleRows()
	if err := db.InsertMatchRows("imp1", rows); err != nil {
		t.Fatalf("InsertMatchRows: %v", err)
	}
	rows[0].Score = 99
	// Second insert should not error (INSERT OR REPLACE).
	if err := db.InsertMatchRows("imp2", rows); err != nil {
		t.Errorf("second InsertMatchRows should succeed (idempotent): %v", err)
	}
	got, _ := db.GetAllMatchRows()
	if len(got) != 3 {
		t.Errorf("expected 3 rows after re-import, got %d", len(got))
	}
	if got[0].Score != 99 {
		t.Errorf("expected replaced score 99, got %v", got[0].Score)
	}
}

func TestImportsAndOverview(t *testing.T) {
	db := openMemDB(t)

	ov, err := db.GetDBOverview()
	if err != nil {
		t.Fatalf("GetDBOverview on empty db: %v", err)
	}
	if ov.Rows != 0 || ov.EarliestMatch != "" {
		t.Errorf("expected empty overview, got %+v", ov)
	}

	for _, s := range []model.ImportSummary{
		{ID: "a", Source: "old.json", ImportedAt: "2025-01-01T00:00:00Z", Matches: 1, Rows: 2},
		{ID: "b", Source: "new.json", ImportedAt: "2025-02-01T00:00:00Z", Matches: 2, Rows: 3},
	} {
		if err := db.InsertImport(s); err != nil {
			t.Fatalf("InsertImport %s: %v", s.ID, err)
		}
	}
	if err := db.InsertMatchRows("b", sampleRows()); err != nil {
		t.Fatalf("InsertMatchRows: %v", err)
	}

	imports, err := db.ListImports()
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(imports) != 2 || imports[0].ID != "b" {
		t.Errorf("expected newest import first, got %+v", imports)
	}

	ov, err = db.GetDBOverview()
	if err != nil {
		t.Fatalf("GetDBOverview: %v", err)
	}
	if ov.Imports != 2 || ov.Matches != 2 || ov.Rows != 3 || ov.UniquePlayers != 2 {
		t.Errorf("overview counts: %+v", ov)
	}
	if ov.EarliestMatch != "2025-01-01" || ov.LatestMatch != "2025-01-03" {
		t.Errorf("overview dates: %s → %s", ov.EarliestMatch, ov.LatestMatch)
	}

	top, err := db.GetTopPlayersByMatches(1)
	if err != nil {
		t.Fatalf("GetTopPlayersByMatches: %v", err)
	}
	if len(top) != 1 || top[0].Name != "alice" || top[0].Matches != 2 || top[0].WinRate != 1 {
		t.Errorf("top players: %+v", top)
	}
}

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)
	if err := db.InsertMatchRows("x", sampleRows()); err != nil {
		t.Fatalf("InsertMatchRows: %v", err)
	}

	cols, rows, err := db.QueryRaw("SELECT name, COUNT(*) AS n, NULL AS empty FROM match_rows GROUP BY name ORDER BY name")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 3 || cols[1] != "n" {
		t.Errorf("unexpected columns %v", cols)
	}
	if len(rows) != 2 || rows[0][0] != "alice" || rows[0][1] != "2" || rows[0][2] != "NULL" {
		t.Errorf("unexpected rows %v", rows)
	}

	if _, _, err := db.QueryRaw("SELECT * FROM nope"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	db := openMemDB(t)

	var _ embedding.Store = db

	vecs := map[string][]float32{
		"h1": {0.5, -1.25, 3},
		"h2": {0, 0, 1},
	}
	if err := db.PutEmbeddings("hash-3", vecs); err != nil {
		t.Fatalf("PutEmbeddings: %v", err)
	}

	got, err := db.GetEmbeddings("hash-3", []string{"h1", "h2", "h3"})
	if err != nil {
		t.Fatalf("GetEmbeddings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	if v := got["h1"]; len(v) != 3 || v[0] != 0.5 || v[1] != -1.25 || v[2] != 3 {
		t.Errorf("h1 mismatch: %v", v)
	}

	other, _ := db.GetEmbeddings("other-model", []string{"h1"})
	if len(other) != 0 {
		t.Errorf("vectors must be scoped by model, got %v", other)
	}

	n, err := db.DeleteEmbeddings("hash-3")
	if err != nil || n != 2 {
		t.Errorf("DeleteEmbeddings: n=%d err=%v", n, err)
	}
}

func TestEmbeddingsManyHashes(t *testing.T) {
	db := openMemDB(t)

	vecs := make(map[string][]float32)
	hashes := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		h := embedding.TextHash(string(rune('a'+i%26)) + time.Duration(i).String())
		vecs[h] = []float32{float32(i)}
		hashes = append(hashes, h)
	}
	if err := db.PutEmbeddings("m", vecs); err != nil {
		t.Fatalf("PutEmbeddings: %v", err)
	}
	got, err := db.GetEmbeddings("m", hashes)
	if err != nil {
		t.Fatalf("GetEmbeddings: %v", err)
	}
	if len(got) != len(vecs) {
		t.Errorf("expected %d vectors across chunks, got %d", len(vecs), len(got))
	}
}
