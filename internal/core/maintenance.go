package core

import (
	"context"

	"agentmemory/internal/index"
	"agentmemory/internal/librarian"
	"agentmemory/internal/model"
)

// RunMaintenance triggers a librarian analysis pass plus auto-approval of
// safe findings (e.g. expired-lock cleanup).
func (s *Store) RunMaintenance(ctx context.Context) (librarian.JobStatus, error) {
	return s.Librarian.RunMaintenance(ctx)
}

// PendingRecommendations lists every maintenance finding awaiting an
// operator decision.
func (s *Store) PendingRecommendations() []librarian.Recommendation {
	return s.Librarian.ListRecommendations()
}

// ResolveRecommendation approves, rejects, or skips a pending recommendation.
func (s *Store) ResolveRecommendation(ctx context.Context, id string, status librarian.RecommendationStatus) error {
	switch status {
	case librarian.StatusApproved:
		return s.Librarian.Approve(ctx, id)
	case librarian.StatusRejected:
		return s.Librarian.Reject(ctx, id)
	default:
		return s.Librarian.Skip(ctx, id)
	}
}

// Reembed regenerates embeddings for every entry version that does not yet
// have one, using the configured embedding provider with bounded
// concurrency. Returns the number of versions re-embedded.
func (s *Store) Reembed(ctx context.Context, batchSize, maxConcurrent int) (int, error) {
	return index.ReembedAll(ctx, s.Engine, s.Embeddings, s.embedder, batchSize, maxConcurrent)
}

// AuditTrail returns recent audit records matching the given filters.
func (s *Store) AuditTrail(ctx context.Context, entryID, scopeID, eventType string, limit int) ([]model.AuditRecord, error) {
	return s.Bus.Query(ctx, entryID, scopeID, eventType, limit)
}
