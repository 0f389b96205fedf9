package core

import (
	"context"

	"agentmemory/internal/model"
	"agentmemory/internal/query"
)

// QueryRequest is the typed request for the retrieval pipeline. Tags,
// MinPriority, MaxPriority, and CriticalOnly carry the same filter semantics
// as query.Request.
type QueryRequest struct {
	Text         string
	ScopeID      string
	Kinds        []model.EntryKind
	Tags         []string
	MinPriority  float64
	MaxPriority  float64
	CriticalOnly bool
	Limit        int
}

// QueryResult is a single ranked hit.
type QueryResult struct {
	EntryID   string
	VersionID string
	Kind      model.EntryKind
	Score     float64
}

// Query runs the full candidate-collection, scoring, and truncation
// pipeline over the store's entries.
func (s *Store) Query(ctx context.Context, req QueryRequest) ([]QueryResult, error) {
	results, err := s.Pipeline.Run(ctx, query.Request{
		Text:         req.Text,
		ScopeID:      req.ScopeID,
		Kinds:        req.Kinds,
		Tags:         req.Tags,
		MinPriority:  req.MinPriority,
		MaxPriority:  req.MaxPriority,
		CriticalOnly: req.CriticalOnly,
		Limit:        req.Limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]QueryResult, len(results))
	for i, r := range results {
		out[i] = QueryResult{EntryID: r.EntryID, VersionID: r.VersionID, Kind: r.Kind, Score: r.Score}
	}
	return out, nil
}
