package core

import (
	"context"

	"agentmemory/internal/model"
)

// LinkEntriesRequest is the typed request for relating two entries in the
// untyped relation table (as opposed to the typed knowledge graph).
type LinkEntriesRequest struct {
	FromID string
	ToID   string
	Kind   string
	Weight float64
	Actor  string
}

// LinkEntries relates two entries, rejecting self-relations.
func (s *Store) LinkEntries(ctx context.Context, req LinkEntriesRequest) (*model.Relation, error) {
	rel, err := s.Relations.Link(ctx, req.FromID, req.ToID, req.Kind, req.Weight)
	if err != nil {
		return nil, err
	}
	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "entries_linked", req.FromID, "", req.Actor)
	return rel, nil
}

// UnlinkEntries removes a relation between two entries.
func (s *Store) UnlinkEntries(ctx context.Context, fromID, toID, kind, actor string) error {
	if err := s.Relations.Unlink(ctx, fromID, toID, kind); err != nil {
		return err
	}
	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "entries_unlinked", fromID, "", actor)
	return nil
}

// ConnectGraphRequest is the typed request for adding a typed, weighted edge
// to the knowledge graph between two entries.
type ConnectGraphRequest struct {
	FromEntryID string
	ToEntryID   string
	EdgeType    model.EdgeType
	Weight      float64
	Actor       string
}

// ConnectGraph links two entries in the typed knowledge graph, creating
// their entry nodes if they don't already exist.
func (s *Store) ConnectGraph(ctx context.Context, req ConnectGraphRequest) (*model.GraphEdge, error) {
	fromNode := "entry:" + req.FromEntryID
	toNode := "entry:" + req.ToEntryID

	if err := s.Graph.UpsertNode(ctx, model.GraphNode{ID: fromNode, Type: model.NodeEntry, Label: req.FromEntryID}); err != nil {
		return nil, err
	}
	if err := s.Graph.UpsertNode(ctx, model.GraphNode{ID: toNode, Type: model.NodeEntry, Label: req.ToEntryID}); err != nil {
		return nil, err
	}

	edge, err := s.Graph.Connect(ctx, fromNode, toNode, req.EdgeType, req.Weight)
	if err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "graph_connected", req.FromEntryID, "", req.Actor)
	return edge, nil
}

// Neighbors returns the entries directly reachable from entryID via the
// given edge types.
func (s *Store) Neighbors(ctx context.Context, entryID string, types []model.EdgeType) ([]model.GraphEdge, error) {
	return s.Graph.Neighbors(ctx, "entry:"+entryID, types)
}
