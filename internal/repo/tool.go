package repo

import (
	"context"
	"encoding/json"

	"agentmemory/internal/errs"
	"agentmemory/internal/model"
)

// ToolRepo is a typed view of EntryStore for model.KindTool.
type ToolRepo struct{ entries *EntryStore }

// NewToolRepo builds a ToolRepo over the shared entry store.
func NewToolRepo(entries *EntryStore) *ToolRepo {
	return &ToolRepo{entries: entries}
}

// Create inserts a new tool entry.
func (r *ToolRepo) Create(ctx context.Context, scopeID, name string, payload model.ToolPayload, priority float64, createdBy string) (*model.EntryIdentity, *model.EntryVersion, error) {
	return r.entries.Create(ctx, model.KindTool, scopeID, name, payload, priority, createdBy)
}

// AddVersion appends a new version to an existing tool entry.
func (r *ToolRepo) AddVersion(ctx context.Context, entryID string, payload model.ToolPayload, priority float64, createdBy string) (*model.EntryVersion, error) {
	return r.entries.AddVersion(ctx, entryID, payload, priority, createdBy)
}

// Current returns the current payload and version metadata for entryID.
func (r *ToolRepo) Current(ctx context.Context, entryID string) (model.ToolPayload, *model.EntryVersion, error) {
	v, err := r.entries.CurrentVersion(ctx, entryID)
	if err != nil {
		return model.ToolPayload{}, nil, err
	}
	var p model.ToolPayload
	if err := json.Unmarshal([]byte(v.Payload), &p); err != nil {
		return model.ToolPayload{}, nil, errs.Wrap(errs.CodeInvalidPayload, "failed to decode tool payload", err)
	}
	return p, v, nil
}
