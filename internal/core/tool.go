package core

import (
	"context"

	"agentmemory/internal/model"
)

// CreateToolRequest is the typed request for recording a tool description.
type CreateToolRequest struct {
	ScopeID     string
	Name        string
	Description string
	Signature   string
	Examples    []string
	Priority    float64
	Actor       string
}

// CreateToolResponse reports the identity and initial version created.
type CreateToolResponse struct {
	Identity *model.EntryIdentity
	Version  *model.EntryVersion
}

// CreateTool creates a new tool entry, indexes it for full-text search, and
// extracts any symbols referenced by its signature into the entity graph.
func (s *Store) CreateTool(ctx context.Context, req CreateToolRequest) (*CreateToolResponse, error) {
	payload := model.ToolPayload{Name: req.Name, Description: req.Description, Signature: req.Signature, Examples: req.Examples}

	identity, version, err := s.Tools.Create(ctx, req.ScopeID, req.Name, payload, req.Priority, req.Actor)
	if err != nil {
		return nil, err
	}

	if err := s.FullText.Index(ctx, identity.ID, version.ID, model.KindTool, req.Description+" "+req.Signature); err != nil {
		return nil, err
	}
	if err := s.linkToolSymbols(ctx, identity.ID, req.Signature); err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "tool_created", identity.ID, req.ScopeID, req.Actor)

	return &CreateToolResponse{Identity: identity, Version: version}, nil
}

// UpdateToolRequest appends a new version to an existing tool entry.
type UpdateToolRequest struct {
	EntryID     string
	Name        string
	Description string
	Signature   string
	Examples    []string
	Priority    float64
	Actor       string
}

// UpdateTool appends a new version to entryID's chain.
func (s *Store) UpdateTool(ctx context.Context, req UpdateToolRequest) (*model.EntryVersion, error) {
	payload := model.ToolPayload{Name: req.Name, Description: req.Description, Signature: req.Signature, Examples: req.Examples}

	version, err := s.Tools.AddVersion(ctx, req.EntryID, payload, req.Priority, req.Actor)
	if err != nil {
		return nil, err
	}

	identity, err := s.Entries.Identity(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	if err := s.FullText.Index(ctx, req.EntryID, version.ID, model.KindTool, req.Description+" "+req.Signature); err != nil {
		return nil, err
	}
	if err := s.linkToolSymbols(ctx, req.EntryID, req.Signature); err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "tool_updated", req.EntryID, identity.ScopeID, req.Actor)
	return version, nil
}

// GetTool returns the current payload and version metadata for entryID.
func (s *Store) GetTool(ctx context.Context, entryID string) (model.ToolPayload, *model.EntryVersion, error) {
	return s.Tools.Current(ctx, entryID)
}

func (s *Store) linkToolSymbols(ctx context.Context, entryID, signature string) error {
	if signature == "" {
		return nil
	}
	entryNodeID := "entry:" + entryID
	if err := s.Graph.UpsertNode(ctx, model.GraphNode{ID: entryNodeID, Type: model.NodeEntry, Label: entryID}); err != nil {
		return err
	}
	for _, sym := range s.Entities.ExtractSymbols(ctx, signature) {
		if err := s.Entities.Link(ctx, entryNodeID, sym); err != nil {
			return err
		}
	}
	return nil
}
