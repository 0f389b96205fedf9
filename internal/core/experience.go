package core

import (
	"context"

	"agentmemory/internal/model"
)

// RecordExperienceRequest is the typed request for recording a new
// situation/action/outcome observation.
type RecordExperienceRequest struct {
	ScopeID   string
	Name      string
	Situation string
	Action    string
	Outcome   string
	Lesson    string
	Priority  float64
	Actor     string
}

// RecordExperienceResponse reports the identity and initial version created.
type RecordExperienceResponse struct {
	Identity *model.EntryIdentity
	Version  *model.EntryVersion
}

// RecordExperience creates a new experience entry starting from zero
// observed successes and failures.
func (s *Store) RecordExperience(ctx context.Context, req RecordExperienceRequest) (*RecordExperienceResponse, error) {
	payload := model.ExperiencePayload{
		Situation: req.Situation,
		Action:    req.Action,
		Outcome:   req.Outcome,
		Lesson:    req.Lesson,
	}

	identity, version, err := s.Experiences.Create(ctx, req.ScopeID, req.Name, payload, req.Priority, req.Actor)
	if err != nil {
		return nil, err
	}

	content := req.Situation + " " + req.Action + " " + req.Outcome + " " + req.Lesson
	if err := s.FullText.Index(ctx, identity.ID, version.ID, model.KindExperience, content); err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "experience_recorded", identity.ID, req.ScopeID, req.Actor)

	return &RecordExperienceResponse{Identity: identity, Version: version}, nil
}

// ReportOutcomeRequest records whether a previously-recorded experience held
// up when reused.
type ReportOutcomeRequest struct {
	EntryID string
	Success bool
	Actor   string
}

// ReportOutcome increments the experience's success or failure counter and
// republishes the entry's usefulness score as its new priority.
func (s *Store) ReportOutcome(ctx context.Context, req ReportOutcomeRequest) (*model.EntryVersion, error) {
	version, err := s.Experiences.RecordOutcome(ctx, req.EntryID, req.Success, req.Actor)
	if err != nil {
		return nil, err
	}

	identity, err := s.Entries.Identity(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}

	s.Pipeline.InvalidateCache()
	s.publishEntryEvent(ctx, "experience_outcome_reported", req.EntryID, identity.ScopeID, req.Actor)
	return version, nil
}

// GetExperience returns the current payload and version metadata for entryID.
func (s *Store) GetExperience(ctx context.Context, entryID string) (model.ExperiencePayload, *model.EntryVersion, error) {
	return s.Experiences.Current(ctx, entryID)
}
