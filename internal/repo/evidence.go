package repo

import (
	"context"
	"database/sql"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"

	"github.com/google/uuid"
)

// EvidenceRepo persists immutable supporting records attached to entry
// versions. Evidence rows are never updated once written.
type EvidenceRepo struct {
	engine *storage.Engine
}

// NewEvidenceRepo builds an EvidenceRepo backed by engine.
func NewEvidenceRepo(engine *storage.Engine) *EvidenceRepo {
	return &EvidenceRepo{engine: engine}
}

// Add attaches a new evidence record to a specific entry version.
func (r *EvidenceRepo) Add(ctx context.Context, entryID, versionID, kind, content, sourceRef string) (*model.Evidence, error) {
	ev := &model.Evidence{
		ID:        uuid.NewString(),
		EntryID:   entryID,
		VersionID: versionID,
		Kind:      kind,
		Content:   content,
		SourceRef: sourceRef,
	}
	err := r.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO evidence (id, entry_id, version_id, kind, content, source_ref) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.EntryID, ev.VersionID, ev.Kind, ev.Content, nullableString(ev.SourceRef),
		)
		return err
	})
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to add evidence", err)
	}
	logging.Repo("added %s evidence to entry %s", kind, entryID)
	return ev, nil
}

// ForEntry returns every evidence record attached anywhere in entryID's
// version chain, newest first.
func (r *EvidenceRepo) ForEntry(ctx context.Context, entryID string) ([]model.Evidence, error) {
	rows, err := r.engine.DB().QueryContext(ctx,
		`SELECT id, entry_id, version_id, kind, content, COALESCE(source_ref, ''), created_at
		 FROM evidence WHERE entry_id = ? ORDER BY created_at DESC`, entryID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to query evidence", err)
	}
	defer rows.Close()

	var out []model.Evidence
	for rows.Next() {
		var e model.Evidence
		if err := rows.Scan(&e.ID, &e.EntryID, &e.VersionID, &e.Kind, &e.Content, &e.SourceRef, &e.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan evidence", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
