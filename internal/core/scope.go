package core

import (
	"context"

	"agentmemory/internal/model"
)

// CreateScope creates a new scope node. Non-global scopes require a parent.
func (s *Store) CreateScope(ctx context.Context, scopeType model.ScopeType, parentID, name string) (*model.Scope, error) {
	return s.Scopes.Create(ctx, scopeType, parentID, name)
}

// GetScope returns a single scope by ID.
func (s *Store) GetScope(ctx context.Context, id string) (*model.Scope, error) {
	return s.Scopes.Get(ctx, id)
}

// ScopeAncestry walks a scope's parent chain, most specific first.
func (s *Store) ScopeAncestry(ctx context.Context, id string) ([]model.Scope, error) {
	return s.Scopes.Ancestry(ctx, id)
}
