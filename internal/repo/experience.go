package repo

import (
	"context"
	"encoding/json"

	"agentmemory/internal/errs"
	"agentmemory/internal/model"
)

// ExperienceRepo is a typed view of EntryStore for model.KindExperience.
type ExperienceRepo struct{ entries *EntryStore }

// NewExperienceRepo builds an ExperienceRepo over the shared entry store.
func NewExperienceRepo(entries *EntryStore) *ExperienceRepo {
	return &ExperienceRepo{entries: entries}
}

// Create inserts a new experience entry.
func (r *ExperienceRepo) Create(ctx context.Context, scopeID, name string, payload model.ExperiencePayload, priority float64, createdBy string) (*model.EntryIdentity, *model.EntryVersion, error) {
	return r.entries.Create(ctx, model.KindExperience, scopeID, name, payload, priority, createdBy)
}

// Current returns the current payload and version metadata for entryID.
func (r *ExperienceRepo) Current(ctx context.Context, entryID string) (model.ExperiencePayload, *model.EntryVersion, error) {
	v, err := r.entries.CurrentVersion(ctx, entryID)
	if err != nil {
		return model.ExperiencePayload{}, nil, err
	}
	var p model.ExperiencePayload
	if err := json.Unmarshal([]byte(v.Payload), &p); err != nil {
		return model.ExperiencePayload{}, nil, errs.Wrap(errs.CodeInvalidPayload, "failed to decode experience payload", err)
	}
	return p, v, nil
}

// RecordOutcome increments the experience's success or failure counter and
// appends a new version, keeping the Usefulness score current as the entry
// accrues more observed outcomes.
func (r *ExperienceRepo) RecordOutcome(ctx context.Context, entryID string, success bool, createdBy string) (*model.EntryVersion, error) {
	payload, _, err := r.Current(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if success {
		payload.Successes++
	} else {
		payload.Failures++
	}
	return r.entries.AddVersion(ctx, entryID, payload, payload.Usefulness(), createdBy)
}
