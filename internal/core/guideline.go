package core

import (
	"context"

	"agentmemory/internal/model"
)

// CreateGuidelineRequest is the typed request for creating a guideline.
type CreateGuidelineRequest struct {
	ScopeID   string
	Name      string
	Text      string
	Rationale string
	AppliesTo []string
	Priority  float64
	Actor     string
}

// CreateGuidelineResponse reports the identity and initial version created.
type CreateGuidelineResponse struct {
	Identity *model.EntryIdentity
	Version  *model.EntryVersion
}

// CreateGuideline creates a new guideline entry, indexes it for full-text
// search, and publishes an audit event.
func (s *Store) CreateGuideline(ctx context.Context, req CreateGuidelineRequest) (*CreateGuidelineResponse, error) {
	payload := model.GuidelinePayload{Text: req.Text, Rationale: req.Rationale, AppliesTo: req.AppliesTo}

	identity, version, err := s.Guidelines.Create(ctx, req.ScopeID, req.Name, payload, req.Priority, req.Actor)
	if err != nil {
		return nil, err
	}

	if err := s.FullText.Index(ctx, identity.ID, version.ID, model.KindGuideline, req.Text+" "+req.Rationale); err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "guideline_created", identity.ID, req.ScopeID, req.Actor)

	return &CreateGuidelineResponse{Identity: identity, Version: version}, nil
}

// UpdateGuidelineRequest appends a new version to an existing guideline.
type UpdateGuidelineRequest struct {
	EntryID   string
	Text      string
	Rationale string
	AppliesTo []string
	Priority  float64
	Actor     string
}

// UpdateGuideline appends a new version to entryID's chain.
func (s *Store) UpdateGuideline(ctx context.Context, req UpdateGuidelineRequest) (*model.EntryVersion, error) {
	payload := model.GuidelinePayload{Text: req.Text, Rationale: req.Rationale, AppliesTo: req.AppliesTo}

	version, err := s.Guidelines.AddVersion(ctx, req.EntryID, payload, req.Priority, req.Actor)
	if err != nil {
		return nil, err
	}

	identity, err := s.Entries.Identity(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	if err := s.FullText.Index(ctx, req.EntryID, version.ID, model.KindGuideline, req.Text+" "+req.Rationale); err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "guideline_updated", req.EntryID, identity.ScopeID, req.Actor)
	return version, nil
}

// GetGuideline returns the current payload and version metadata for an
// entry ID.
func (s *Store) GetGuideline(ctx context.Context, entryID string) (model.GuidelinePayload, *model.EntryVersion, error) {
	return s.Guidelines.Current(ctx, entryID)
}
