package repo

import (
	"context"
	"encoding/json"

	"agentmemory/internal/errs"
	"agentmemory/internal/model"
)

// KnowledgeRepo is a typed view of EntryStore for model.KindKnowledge.
type KnowledgeRepo struct{ entries *EntryStore }

// NewKnowledgeRepo builds a KnowledgeRepo over the shared entry store.
func NewKnowledgeRepo(entries *EntryStore) *KnowledgeRepo {
	return &KnowledgeRepo{entries: entries}
}

// Create inserts a new knowledge entry.
func (r *KnowledgeRepo) Create(ctx context.Context, scopeID, name string, payload model.KnowledgePayload, priority float64, createdBy string) (*model.EntryIdentity, *model.EntryVersion, error) {
	return r.entries.Create(ctx, model.KindKnowledge, scopeID, name, payload, priority, createdBy)
}

// AddVersion appends a new version to an existing knowledge entry.
func (r *KnowledgeRepo) AddVersion(ctx context.Context, entryID string, payload model.KnowledgePayload, priority float64, createdBy string) (*model.EntryVersion, error) {
	return r.entries.AddVersion(ctx, entryID, payload, priority, createdBy)
}

// Current returns the current payload and version metadata for entryID.
func (r *KnowledgeRepo) Current(ctx context.Context, entryID string) (model.KnowledgePayload, *model.EntryVersion, error) {
	v, err := r.entries.CurrentVersion(ctx, entryID)
	if err != nil {
		return model.KnowledgePayload{}, nil, err
	}
	var p model.KnowledgePayload
	if err := json.Unmarshal([]byte(v.Payload), &p); err != nil {
		return model.KnowledgePayload{}, nil, errs.Wrap(errs.CodeInvalidPayload, "failed to decode knowledge payload", err)
	}
	return p, v, nil
}
