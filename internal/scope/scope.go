// Package scope resolves and caches the scope tree (session -> project ->
// org -> global) that every entry, query, and lock is partitioned by, as a
// four-level tree with explicit parent links.
package scope

import (
	"context"
	"database/sql"
	"time"

	"agentmemory/internal/cache"
	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"

	"github.com/google/uuid"
)

// Resolver resolves scope ancestry chains and caches them, since the same
// chain (e.g. a session's full lineage up to global) is looked up on every
// query issued within that session.
type Resolver struct {
	engine *storage.Engine
	chains *cache.TTLCache[string, []model.Scope]
}

// NewResolver builds a Resolver backed by engine, caching resolved ancestry
// chains for ttl.
func NewResolver(engine *storage.Engine, maxEntries int, ttl time.Duration) *Resolver {
	return &Resolver{
		engine: engine,
		chains: cache.New[string, []model.Scope](maxEntries, ttl),
	}
}

// Create inserts a new scope under a freshly generated ID.
func (r *Resolver) Create(ctx context.Context, scopeType model.ScopeType, parentID, name string) (*model.Scope, error) {
	if scopeType != model.ScopeGlobal && parentID == "" {
		return nil, errs.New(errs.CodeInvalidScope, "non-global scope requires a parent").WithContext("type", scopeType)
	}

	s := &model.Scope{
		ID:       uuid.NewString(),
		Type:     scopeType,
		ParentID: parentID,
		Name:     name,
	}

	err := r.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO scopes (id, type, parent_id, name) VALUES (?, ?, ?, ?)`,
			s.ID, string(s.Type), nullableString(s.ParentID), s.Name,
		)
		return err
	})
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to create scope", err)
	}

	logging.Scope("created scope %s (%s) under %s", s.ID, s.Type, s.ParentID)
	r.chains.Delete(s.ID)
	return s, nil
}

// Get fetches a single scope by ID.
func (r *Resolver) Get(ctx context.Context, id string) (*model.Scope, error) {
	row := r.engine.DB().QueryRowContext(ctx,
		`SELECT id, type, COALESCE(parent_id, ''), name, created_at FROM scopes WHERE id = ?`, id)

	var s model.Scope
	var scopeType string
	if err := row.Scan(&s.ID, &scopeType, &s.ParentID, &s.Name, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.CodeScopeNotFound, "scope not found").WithContext("id", id)
		}
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to fetch scope", err)
	}
	s.Type = model.ScopeType(scopeType)
	return &s, nil
}

// Ancestry returns the scope chain from id up to (and including) the global
// root, most specific first. Used by the query pipeline to decide which
// scopes a query against id is allowed to read from.
func (r *Resolver) Ancestry(ctx context.Context, id string) ([]model.Scope, error) {
	if chain, ok := r.chains.Get(id); ok {
		return chain, nil
	}

	var chain []model.Scope
	cur := id
	seen := make(map[string]bool)
	for cur != "" {
		if seen[cur] {
			return nil, errs.New(errs.CodeInvalidScope, "cycle detected in scope ancestry").WithContext("id", id)
		}
		seen[cur] = true

		s, err := r.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *s)
		cur = s.ParentID
	}

	r.chains.Set(id, chain)
	return chain, nil
}

// Rank orders two scopes by specificity: deeper (closer to session) before
// shallower, then narrower breadth (fewer sibling scopes sharing the same
// parent) before wider, used by the query pipeline's scope tie-break.
func (r *Resolver) Rank(ctx context.Context, a, b model.Scope) (int, error) {
	depthA, err := r.depth(ctx, a)
	if err != nil {
		return 0, err
	}
	depthB, err := r.depth(ctx, b)
	if err != nil {
		return 0, err
	}
	if depthA != depthB {
		return depthB - depthA, nil // deeper (larger depth) ranks first
	}

	breadthA, err := r.breadth(ctx, a)
	if err != nil {
		return 0, err
	}
	breadthB, err := r.breadth(ctx, b)
	if err != nil {
		return 0, err
	}
	return breadthA - breadthB, nil // narrower (smaller breadth) ranks first
}

func (r *Resolver) depth(ctx context.Context, s model.Scope) (int, error) {
	chain, err := r.Ancestry(ctx, s.ID)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

func (r *Resolver) breadth(ctx context.Context, s model.Scope) (int, error) {
	var count int
	err := r.engine.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scopes WHERE parent_id IS ? `, nullableString(s.ParentID),
	).Scan(&count)
	if err != nil {
		return 0, errs.Wrap(errs.CodeDatabaseError, "failed to compute scope breadth", err)
	}
	return count, nil
}

// InvalidateAncestryCache drops any cached ancestry chain for id, called
// whenever a scope's parent link could plausibly change.
func (r *Resolver) InvalidateAncestryCache(id string) {
	r.chains.Delete(id)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
