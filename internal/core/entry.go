package core

import (
	"context"

	"agentmemory/internal/model"
)

// History returns every version in an entry's chain, oldest first.
func (s *Store) History(ctx context.Context, entryID string) ([]model.EntryVersion, error) {
	return s.Entries.History(ctx, entryID)
}

// Version returns a specific version number from an entry's chain.
func (s *Store) Version(ctx context.Context, entryID string, version int) (*model.EntryVersion, error) {
	return s.Entries.Version(ctx, entryID, version)
}

// Identity returns the identity row for an entry.
func (s *Store) Identity(ctx context.Context, entryID string) (*model.EntryIdentity, error) {
	return s.Entries.Identity(ctx, entryID)
}

// Deactivate soft-deletes an entry and removes it from the full-text index,
// so it no longer surfaces in query results.
func (s *Store) Deactivate(ctx context.Context, entryID, actor string) error {
	identity, err := s.Entries.Identity(ctx, entryID)
	if err != nil {
		return err
	}
	if err := s.Entries.Deactivate(ctx, entryID); err != nil {
		return err
	}
	if err := s.FullText.Remove(ctx, entryID); err != nil {
		return err
	}
	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "entry_deactivated", entryID, identity.ScopeID, actor)
	return nil
}

// ListByScope lists active identities of kind within scopeID.
func (s *Store) ListByScope(ctx context.Context, scopeID string, kind model.EntryKind) ([]model.EntryIdentity, error) {
	return s.Entries.ListByScope(ctx, scopeID, kind)
}

// AddEvidenceRequest is the typed request for attaching supporting evidence
// to an entry's current version.
type AddEvidenceRequest struct {
	EntryID   string
	Kind      string
	Content   string
	SourceRef string
	Actor     string
}

// AddEvidence attaches an immutable evidence record to entryID's current
// version.
func (s *Store) AddEvidence(ctx context.Context, req AddEvidenceRequest) (*model.Evidence, error) {
	version, err := s.Entries.CurrentVersion(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	ev, err := s.Evidence.Add(ctx, req.EntryID, version.ID, req.Kind, req.Content, req.SourceRef)
	if err != nil {
		return nil, err
	}

	identity, err := s.Entries.Identity(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	s.publishEntryEvent(ctx, "evidence_added", req.EntryID, identity.ScopeID, req.Actor)
	return ev, nil
}

// EvidenceFor returns every evidence record attached to an entry's version
// chain, newest first.
func (s *Store) EvidenceFor(ctx context.Context, entryID string) ([]model.Evidence, error) {
	return s.Evidence.ForEntry(ctx, entryID)
}

// Tag attaches a label to an entry.
func (s *Store) Tag(ctx context.Context, entryID, label string) error {
	if err := s.Tags.Attach(ctx, entryID, label); err != nil {
		return err
	}
	s.Pipeline.InvalidateCache()
	return nil
}

// Untag removes a label from an entry.
func (s *Store) Untag(ctx context.Context, entryID, label string) error {
	if err := s.Tags.Detach(ctx, entryID, label); err != nil {
		return err
	}
	s.Pipeline.InvalidateCache()
	return nil
}

// TagsFor lists every label attached to an entry.
func (s *Store) TagsFor(ctx context.Context, entryID string) ([]string, error) {
	return s.Tags.ForEntry(ctx, entryID)
}
