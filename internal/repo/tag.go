package repo

import (
	"context"
	"database/sql"

	"agentmemory/internal/errs"
	"agentmemory/internal/storage"
)

// TagRepo manages the many-to-many label index over entries.
type TagRepo struct {
	engine *storage.Engine
}

// NewTagRepo builds a TagRepo backed by engine.
func NewTagRepo(engine *storage.Engine) *TagRepo {
	return &TagRepo{engine: engine}
}

// Attach associates a label with an entry; attaching the same label twice is
// a no-op.
func (t *TagRepo) Attach(ctx context.Context, entryID, label string) error {
	return t.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT OR IGNORE INTO tags (entry_id, label) VALUES (?, ?)`, entryID, label)
		return err
	})
}

// Detach removes a label from an entry.
func (t *TagRepo) Detach(ctx context.Context, entryID, label string) error {
	return t.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM tags WHERE entry_id = ? AND label = ?`, entryID, label)
		return err
	})
}

// ForEntry lists every label attached to entryID.
func (t *TagRepo) ForEntry(ctx context.Context, entryID string) ([]string, error) {
	rows, err := t.engine.DB().QueryContext(ctx, `SELECT label FROM tags WHERE entry_id = ?`, entryID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to list tags", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan tag", err)
		}
		out = append(out, label)
	}
	return out, nil
}

// EntriesWithLabel lists every entry ID carrying label.
func (t *TagRepo) EntriesWithLabel(ctx context.Context, label string) ([]string, error) {
	rows, err := t.engine.DB().QueryContext(ctx, `SELECT entry_id FROM tags WHERE label = ?`, label)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to list entries by tag", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var entryID string
		if err := rows.Scan(&entryID); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan tag entry", err)
		}
		out = append(out, entryID)
	}
	return out, nil
}
