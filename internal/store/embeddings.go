package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

// embeddingTolerance bounds the L2-norm invariant check (spec SS8 law 1).
const embeddingTolerance = 1e-5

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// PutEmbedding persists a record's embedding. The vector must already be
// L2-normalized to unit length (or the zero vector), per spec SS8 law 1;
// this is a cheap assertion, not a renormalization.
func (s *Store) PutEmbedding(recordID int64, v []float32) error {
	norm := float64(0)
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	norm = math.Sqrt(norm)
	if norm != 0 && math.Abs(norm-1) > embeddingTolerance {
		return fmt.Errorf("embedding for record %d is not unit-normalized (norm=%.6f)", recordID, norm)
	}

	_, err := s.db.Exec(`
		INSERT INTO embeddings (record_id, dim, vector, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(record_id) DO UPDATE SET
			dim = excluded.dim, vector = excluded.vector, updated_at = CURRENT_TIMESTAMP
	`, recordID, len(v), encodeVector(v))
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	s.broadcast("embeddings")
	return nil
}

// GetEmbedding returns the stored embedding for a record, or nil if none.
func (s *Store) GetEmbedding(recordID int64) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRow("SELECT vector FROM embeddings WHERE record_id = ?", recordID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding: %w", err)
	}
	return decodeVector(blob), nil
}

// AllEmbeddings loads every stored embedding, for building an in-memory
// semantic index. Callers with very large libraries should page this in
// production; it is kept simple here to match the single-process,
// single-machine scope of this system.
func (s *Store) AllEmbeddings() (map[int64][]float32, error) {
	rows, err := s.db.Query("SELECT record_id, vector FROM embeddings")
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]float32)
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		out[id] = decodeVector(blob)
	}
	return out, rows.Err()
}
