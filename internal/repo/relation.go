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

// RelationRepo manages untyped, weighted associations between entries
// (e.g. "supersedes", "see-also"), distinct from the typed knowledge graph
// in graph.go.
type RelationRepo struct {
	engine *storage.Engine
}

// NewRelationRepo builds a RelationRepo backed by engine.
func NewRelationRepo(engine *storage.Engine) *RelationRepo {
	return &RelationRepo{engine: engine}
}

// Link creates a relation from fromID to toID. Self-relations are rejected.
func (r *RelationRepo) Link(ctx context.Context, fromID, toID, kind string, weight float64) (*model.Relation, error) {
	if fromID == toID {
		return nil, errs.New(errs.CodeSelfRelation, "an entry cannot relate to itself").WithContext("id", fromID)
	}

	rel := &model.Relation{
		ID:     uuid.NewString(),
		FromID: fromID,
		ToID:   toID,
		Kind:   kind,
		Weight: weight,
	}
	err := r.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO relations (id, from_id, to_id, kind, weight) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(from_id, to_id, kind) DO UPDATE SET weight = excluded.weight`,
			rel.ID, rel.FromID, rel.ToID, rel.Kind, rel.Weight,
		)
		return err
	})
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to create relation", err)
	}
	logging.Repo("linked %s -[%s]-> %s", fromID, kind, toID)
	return rel, nil
}

// Unlink removes a relation.
func (r *RelationRepo) Unlink(ctx context.Context, fromID, toID, kind string) error {
	return r.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM relations WHERE from_id = ? AND to_id = ? AND kind = ?`, fromID, toID, kind)
		return err
	})
}

// From returns every relation originating at entryID.
func (r *RelationRepo) From(ctx context.Context, entryID string) ([]model.Relation, error) {
	return r.query(ctx, `SELECT id, from_id, to_id, kind, weight, created_at FROM relations WHERE from_id = ?`, entryID)
}

// To returns every relation terminating at entryID.
func (r *RelationRepo) To(ctx context.Context, entryID string) ([]model.Relation, error) {
	return r.query(ctx, `SELECT id, from_id, to_id, kind, weight, created_at FROM relations WHERE to_id = ?`, entryID)
}

func (r *RelationRepo) query(ctx context.Context, query, entryID string) ([]model.Relation, error) {
	rows, err := r.engine.DB().QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to query relations", err)
	}
	defer rows.Close()

	var out []model.Relation
	for rows.Next() {
		var rel model.Relation
		if err := rows.Scan(&rel.ID, &rel.FromID, &rel.ToID, &rel.Kind, &rel.Weight, &rel.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan relation", err)
		}
		out = append(out, rel)
	}
	return out, nil
}
