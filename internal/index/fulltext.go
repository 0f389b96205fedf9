// Package index implements the memory store's auxiliary indices: the
// inverted full-text index (FTS5 + bm25), the sqlite-vec embedding index,
// and the entity (code-symbol) index. Full-text search filters by entry
// kind; the embedding search filters by scope. Tag labels live in
// internal/repo's TagRepo, not here.
package index

import (
	"context"
	"database/sql"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"
)

// FullTextIndex maintains the entries_fts FTS5 virtual table and exposes
// bm25-ranked search over it.
type FullTextIndex struct {
	engine *storage.Engine
}

// NewFullTextIndex builds a FullTextIndex backed by engine.
func NewFullTextIndex(engine *storage.Engine) *FullTextIndex {
	return &FullTextIndex{engine: engine}
}

// Index inserts or replaces the searchable text for a single entry version.
// Callers pass the flattened text of the version's payload (e.g. a
// guideline's Text + Rationale, or a tool's Description + Signature).
func (f *FullTextIndex) Index(ctx context.Context, entryID, versionID string, kind model.EntryKind, content string) error {
	return f.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM entries_fts WHERE version_id = ?`, versionID); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO entries_fts (entry_id, version_id, kind, content) VALUES (?, ?, ?, ?)`,
			entryID, versionID, string(kind), content,
		)
		return err
	})
}

// Remove drops every indexed row for an entry, used when an entry is
// deactivated.
func (f *FullTextIndex) Remove(ctx context.Context, entryID string) error {
	return f.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM entries_fts WHERE entry_id = ?`, entryID)
		return err
	})
}

// Hit is a single full-text search result, ranked by bm25 (lower is better,
// matching SQLite's bm25() convention).
type Hit struct {
	EntryID   string
	VersionID string
	Kind      model.EntryKind
	Score     float64
}

// Search runs a bm25-ranked FTS5 query, optionally restricted to a set of
// kinds, returning at most limit hits best-first.
func (f *FullTextIndex) Search(ctx context.Context, query string, kinds []model.EntryKind, limit int) ([]Hit, error) {
	if query == "" {
		return nil, nil
	}

	sqlQuery := `SELECT entry_id, version_id, kind, bm25(entries_fts) AS score
	             FROM entries_fts WHERE entries_fts MATCH ?`
	args := []any{query}
	if len(kinds) > 0 {
		sqlQuery += " AND kind IN (" + placeholders(len(kinds)) + ")"
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	sqlQuery += " ORDER BY score ASC LIMIT ?"
	args = append(args, limit)

	rows, err := f.engine.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		logging.IndexError("full-text search failed: %v", err)
		return nil, errs.Wrap(errs.CodeDatabaseError, "full-text search failed", err)
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		var kind string
		if err := rows.Scan(&h.EntryID, &h.VersionID, &kind, &h.Score); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan full-text hit", err)
		}
		h.Kind = model.EntryKind(kind)
		out = append(out, h)
	}
	return out, nil
}

func placeholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += "?"
	}
	return s
}
