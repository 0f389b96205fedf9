package repo

import (
	"context"
	"encoding/json"

	"agentmemory/internal/errs"
	"agentmemory/internal/model"
)

// GuidelineRepo is a typed view of EntryStore for model.KindGuideline.
type GuidelineRepo struct{ entries *EntryStore }

// NewGuidelineRepo builds a GuidelineRepo over the shared entry store.
func NewGuidelineRepo(entries *EntryStore) *GuidelineRepo {
	return &GuidelineRepo{entries: entries}
}

// Create inserts a new guideline entry.
func (r *GuidelineRepo) Create(ctx context.Context, scopeID, name string, payload model.GuidelinePayload, priority float64, createdBy string) (*model.EntryIdentity, *model.EntryVersion, error) {
	return r.entries.Create(ctx, model.KindGuideline, scopeID, name, payload, priority, createdBy)
}

// AddVersion appends a new version to an existing guideline.
func (r *GuidelineRepo) AddVersion(ctx context.Context, entryID string, payload model.GuidelinePayload, priority float64, createdBy string) (*model.EntryVersion, error) {
	return r.entries.AddVersion(ctx, entryID, payload, priority, createdBy)
}

// Current returns the current payload and version metadata for entryID.
func (r *GuidelineRepo) Current(ctx context.Context, entryID string) (model.GuidelinePayload, *model.EntryVersion, error) {
	v, err := r.entries.CurrentVersion(ctx, entryID)
	if err != nil {
		return model.GuidelinePayload{}, nil, err
	}
	return decodeGuideline(v)
}

func decodeGuideline(v *model.EntryVersion) (model.GuidelinePayload, *model.EntryVersion, error) {
	var p model.GuidelinePayload
	if err := json.Unmarshal([]byte(v.Payload), &p); err != nil {
		return model.GuidelinePayload{}, nil, errs.Wrap(errs.CodeInvalidPayload, "failed to decode guideline payload", err)
	}
	return p, v, nil
}
