package index

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"sort"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/storage"
)

// EmbeddingStore persists per-version embedding vectors and serves
// nearest-neighbor search. Vectors are stored as little-endian float32 blobs
// in the plain embeddings table and, when the sqlite-vec extension is
// loaded, searched in SQL with vec_distance_cosine over that table;
// otherwise search falls back to an in-process
// brute-force cosine scan, which is correct but O(n) and only meant for
// small corpora or engines built without cgo.
type EmbeddingStore struct {
	engine *storage.Engine
}

// NewEmbeddingStore builds an EmbeddingStore backed by engine.
func NewEmbeddingStore(engine *storage.Engine) *EmbeddingStore {
	return &EmbeddingStore{engine: engine}
}

// Put stores (or replaces) the embedding for a specific entry version.
func (s *EmbeddingStore) Put(ctx context.Context, entryID, versionID string, vector []float32, modelName string) error {
	blob, err := encodeVector(vector)
	if err != nil {
		return errs.Wrap(errs.CodeInvalidPayload, "failed to encode embedding vector", err)
	}
	return s.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO embeddings (entry_id, version_id, vector, model) VALUES (?, ?, ?, ?)
			 ON CONFLICT(version_id) DO UPDATE SET vector = excluded.vector, model = excluded.model`,
			entryID, versionID, blob, modelName,
		)
		return err
	})
}

// Delete removes every stored embedding for an entry.
func (s *EmbeddingStore) Delete(ctx context.Context, entryID string) error {
	return s.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM embeddings WHERE entry_id = ?`, entryID)
		return err
	})
}

// SimilarityHit is a single nearest-neighbor search result.
type SimilarityHit struct {
	EntryID    string
	VersionID  string
	Similarity float64 // cosine similarity in [-1, 1], higher is better
}

// Search returns the top-k nearest neighbors to query by cosine similarity,
// optionally restricted to entries within the given scope IDs.
func (s *EmbeddingStore) Search(ctx context.Context, query []float32, k int, scopeIDs []string) ([]SimilarityHit, error) {
	if s.engine.VecEnabled() {
		hits, err := s.searchVec(ctx, query, k, scopeIDs)
		if err == nil {
			return hits, nil
		}
		logging.IndexWarn("vec search failed, falling back to brute force: %v", err)
	}
	return s.searchBruteForce(ctx, query, k, scopeIDs)
}

// searchVec uses the sqlite-vec extension's vec_distance_cosine function.
// Kept as a thin SQL-level adapter so the brute-force path below remains the
// single source of truth for similarity semantics.
func (s *EmbeddingStore) searchVec(ctx context.Context, query []float32, k int, scopeIDs []string) ([]SimilarityHit, error) {
	blob, err := encodeVector(query)
	if err != nil {
		return nil, err
	}

	sqlQuery := `SELECT e.entry_id, e.version_id, vec_distance_cosine(e.vector, ?) AS dist
	             FROM embeddings e`
	args := []any{blob}
	if len(scopeIDs) > 0 {
		sqlQuery += ` JOIN entry_identities ei ON ei.id = e.entry_id
		              WHERE ei.scope_id IN (` + placeholders(len(scopeIDs)) + `)`
		for _, id := range scopeIDs {
			args = append(args, id)
		}
	}
	sqlQuery += ` ORDER BY dist ASC LIMIT ?`
	args = append(args, k)

	rows, err := s.engine.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "vec similarity search failed", err)
	}
	defer rows.Close()

	var out []SimilarityHit
	for rows.Next() {
		var h SimilarityHit
		var dist float64
		if err := rows.Scan(&h.EntryID, &h.VersionID, &dist); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan vec hit", err)
		}
		h.Similarity = 1 - dist
		out = append(out, h)
	}
	return out, nil
}

func (s *EmbeddingStore) searchBruteForce(ctx context.Context, query []float32, k int, scopeIDs []string) ([]SimilarityHit, error) {
	sqlQuery := `SELECT e.entry_id, e.version_id, e.vector FROM embeddings e`
	args := []any{}
	if len(scopeIDs) > 0 {
		sqlQuery += ` JOIN entry_identities ei ON ei.id = e.entry_id
		              WHERE ei.scope_id IN (` + placeholders(len(scopeIDs)) + `)`
		for _, id := range scopeIDs {
			args = append(args, id)
		}
	}

	rows, err := s.engine.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "brute-force similarity scan failed", err)
	}
	defer rows.Close()

	var hits []SimilarityHit
	for rows.Next() {
		var entryID, versionID string
		var blob []byte
		if err := rows.Scan(&entryID, &versionID, &blob); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan embedding row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			continue
		}
		sim, err := cosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		hits = append(hits, SimilarityHit{EntryID: entryID, VersionID: versionID, Similarity: sim})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func encodeVector(v []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, f := range v {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeVector(b []byte) ([]float32, error) {
	n := len(b) / 4
	out := make([]float32, n)
	r := bytes.NewReader(b)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, errs.New(errs.CodeInvalidPayload, "embedding dimension mismatch")
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
