package cmd

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-subchurn/internal/config"
	"github.com/pable/go-subchurn/internal/model"
	"github.com/pable/go-subchurn/internal/storage"
)

type failingStore struct {
	failOn  int
	chunks  int
	imports []model.ImportSummary
}

func (f *failingStore) InsertImport(s model.ImportSummary) error {
	f.imports = append(f.imports, s)
	return nil
}

func (f *failingStore) InsertMatchRows(string, []model.MatchRow) error {
	f.chunks++
	if f.chunks == f.failOn {
		return errors.New("disk full")
	}
	return nil
}

func importRows(n int) []model.MatchRow {
	rows := make([]model.MatchRow, n)
	for i := range rows {
		rows[i] = model.MatchRow{
			MatchID: fmt.Sprint(i),
			Name:    "alice",
			Team:    model.TeamRed,
			Auth:    true,
			Date:    time.Unix(1700000000+int64(i), 0).UTC(),
		}
	}
	return rows
}

func TestStoreImport_FailedChunkLeavesNoSummary(t *testing.T) {
	fs := &failingStore{failOn: 2}
	summary := model.ImportSummary{ID: "run-1", Source: "m.json", Matches: 5, Rows: 5}

	var stored []int
	err := storeImport(fs, summary, importRows(5), 2, func(n int) { stored = append(stored, n) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert match rows")
	assert.Empty(t, fs.imports, "summary must not be recorded when a chunk fails")
	assert.Equal(t, []int{2}, stored)
}

func TestStoreImport_RecordsSummaryAfterRows(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	summary := model.ImportSummary{ID: "run-2", Source: "m.json", ImportedAt: "2026-01-01T00:00:00Z", Matches: 5, Rows: 5}
	var stored []int
	require.NoError(t, storeImport(db, summary, importRows(5), 2, func(n int) { stored = append(stored, n) }))
	assert.Equal(t, []int{2, 2, 1}, stored)

	imports, err := db.ListImports()
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, summary, imports[0])

	rows, err := db.GetAllMatchRows()
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestNewEmbedder_OpenAIWithoutKey(t *testing.T) {
	defer func(c *config.Config, name string) { cfg, embedderName = c, name }(cfg, embedderName)

	cfg = &config.Config{EmbeddingBackend: "hash", EmbeddingDimensions: 16, EmbeddingBatchSize: 8}
	embedderName = "openai"
	_, err := newEmbedder(nil)
	assert.Error(t, err, "the missing key surfaces only when embedding is needed")

	embedderName = ""
	e, err := newEmbedder(nil)
	require.NoError(t, err)
	assert.NotNil(t, e)
}
