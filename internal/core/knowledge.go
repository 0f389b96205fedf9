package core

import (
	"context"

	"agentmemory/internal/model"
)

// CreateKnowledgeRequest is the typed request for recording a knowledge entry.
type CreateKnowledgeRequest struct {
	ScopeID  string
	Name     string
	Text     string
	Source   string
	Tags     []string
	Priority float64
	Actor    string
}

// CreateKnowledgeResponse reports the identity and initial version created.
type CreateKnowledgeResponse struct {
	Identity *model.EntryIdentity
	Version  *model.EntryVersion
}

// CreateKnowledge creates a new knowledge entry, indexes it for full-text
// search, attaches its tags, and publishes an audit event.
func (s *Store) CreateKnowledge(ctx context.Context, req CreateKnowledgeRequest) (*CreateKnowledgeResponse, error) {
	payload := model.KnowledgePayload{Text: req.Text, Source: req.Source, Tags: req.Tags}

	identity, version, err := s.Knowledges.Create(ctx, req.ScopeID, req.Name, payload, req.Priority, req.Actor)
	if err != nil {
		return nil, err
	}

	if err := s.FullText.Index(ctx, identity.ID, version.ID, model.KindKnowledge, req.Text); err != nil {
		return nil, err
	}
	for _, tag := range req.Tags {
		if err := s.Tags.Attach(ctx, identity.ID, tag); err != nil {
			return nil, err
		}
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "knowledge_created", identity.ID, req.ScopeID, req.Actor)

	return &CreateKnowledgeResponse{Identity: identity, Version: version}, nil
}

// UpdateKnowledgeRequest appends a new version to an existing knowledge entry.
type UpdateKnowledgeRequest struct {
	EntryID  string
	Text     string
	Source   string
	Tags     []string
	Priority float64
	Actor    string
}

// UpdateKnowledge appends a new version to entryID's chain.
func (s *Store) UpdateKnowledge(ctx context.Context, req UpdateKnowledgeRequest) (*model.EntryVersion, error) {
	payload := model.KnowledgePayload{Text: req.Text, Source: req.Source, Tags: req.Tags}

	version, err := s.Knowledges.AddVersion(ctx, req.EntryID, payload, req.Priority, req.Actor)
	if err != nil {
		return nil, err
	}

	identity, err := s.Entries.Identity(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	if err := s.FullText.Index(ctx, req.EntryID, version.ID, model.KindKnowledge, req.Text); err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "knowledge_updated", req.EntryID, identity.ScopeID, req.Actor)
	return version, nil
}

// GetKnowledge returns the current payload and version metadata for entryID.
func (s *Store) GetKnowledge(ctx context.Context, entryID string) (model.KnowledgePayload, *model.EntryVersion, error) {
	return s.Knowledges.Current(ctx, entryID)
}
