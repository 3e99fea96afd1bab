package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// maxInParams keeps IN (...) lists under SQLite's bound-parameter limit.
const maxInParams = 500

// GetEmbeddings returns the stored vectors for model among hashes, keyed by hash.
// Missing hashes are absent from the result.
func (db *DB) GetEmbeddings(model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))
	for start := 0; start < len(hashes); start += maxInParams {
		chunk := hashes[start:min(start+maxInParams, len(hashes))]
		args := make([]any, 0, len(chunk)+1)
		args = append(args, model)
		for _, h := range chunk {
			args = append(args, h)
		}
		rows, err := db.conn.Query(`
			SELECT text_hash, dims, vector FROM embeddings
			WHERE model = ? AND text_hash IN (`+placeholders(len(chunk))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query embeddings: %w", err)
		}
		for rows.Next() {
			var hash string
			var dims int
			var blob []byte
			if err := rows.Scan(&hash, &dims, &blob); err != nil {
				rows.Close()
				return nil, err
			}
			vec, err := decodeVector(blob, dims)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("embedding %s: %w", hash, err)
			}
			out[hash] = vec
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// PutEmbeddings stores vectors for model in a transaction.
func (db *DB) PutEmbeddings(model string, vecs map[string][]float32) error {
	if len(vecs) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO embeddings(model, text_hash, dims, vector)
		VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for hash, v := range vecs {
		if _, err := stmt.Exec(model, hash, len(v), encodeVector(v)); err != nil {
			return fmt.Errorf("insert embedding %s: %w", hash, err)
		}
	}
	return tx.Commit()
}

// DeleteEmbeddings removes cached vectors for model, or all when model is "".
func (db *DB) DeleteEmbeddings(model string) (int64, error) {
	q, args := `DELETE FROM embeddings`, []any{}
	if model != "" {
		q, args = q+` WHERE model = ?`, append(args, model)
	}
	res, err := db.conn.Exec(q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte, dims int) ([]float32, error) {
	if len(b) != 4*dims {
		return nil, fmt.Errorf("blob has %d bytes, want %d", len(b), 4*dims)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// placeholders returns a comma-separated string of n "?" for SQL IN clauses,
// e.g. placeholders(3) → "?,?,?".
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
