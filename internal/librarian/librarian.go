// Package librarian implements maintenance over the memory store:
// analysis that surfaces recommendations which a human or agent operator
// can approve, reject, or skip. Analyze reports expired-lock
// cleanups only; the stale-entry, conflicting-pair and low-usefulness
// recommendation kinds are defined but no analysis pass produces them.
package librarian

import (
	"context"
	"fmt"
	"time"

	"agentmemory/internal/audit"
	"agentmemory/internal/errs"
	"agentmemory/internal/filelock"
	"agentmemory/internal/logging"
	"agentmemory/internal/repo"
	"agentmemory/internal/storage"

	"github.com/google/uuid"
)

// RecommendationKind enumerates the maintenance findings the librarian can
// surface.
type RecommendationKind string

const (
	RecommendStaleEntry      RecommendationKind = "stale_entry"
	RecommendExpiredLock     RecommendationKind = "expired_lock"
	RecommendConflictingPair RecommendationKind = "conflicting_pair"
	RecommendLowUsefulness   RecommendationKind = "low_usefulness"
)

// RecommendationStatus tracks an operator's decision on a recommendation.
type RecommendationStatus string

const (
	StatusPending  RecommendationStatus = "pending"
	StatusApproved RecommendationStatus = "approved"
	StatusRejected RecommendationStatus = "rejected"
	StatusSkipped  RecommendationStatus = "skipped"
)

// Recommendation is a single actionable maintenance finding.
type Recommendation struct {
	ID          string
	Kind        RecommendationKind
	EntryID     string
	Description string
	Status      RecommendationStatus
	CreatedAt   time.Time
}

// JobStatus reports the state of the most recent maintenance run.
type JobStatus struct {
	Running        bool
	LastRunAt       time.Time
	LastRunDuration time.Duration
	FindingsCount   int
}

// Librarian runs maintenance passes and manages the resulting
// recommendation queue, held in memory since recommendations are
// operator-facing transient state rather than part of the durable model.
type Librarian struct {
	engine     *storage.Engine
	entries    *repo.EntryStore
	locks      *filelock.Coordinator
	bus        *audit.Bus
	staleAfter time.Duration

	recommendations map[string]*Recommendation
	lastStatus      JobStatus
}

// New builds a Librarian over the store's repositories.
func New(engine *storage.Engine, entries *repo.EntryStore, locks *filelock.Coordinator, bus *audit.Bus, staleAfter time.Duration) *Librarian {
	return &Librarian{
		engine:          engine,
		entries:         entries,
		locks:           locks,
		bus:             bus,
		staleAfter:      staleAfter,
		recommendations: make(map[string]*Recommendation),
	}
}

// Analyze runs a single maintenance pass over the store and returns fresh
// recommendations, also enqueuing them for later Approve/Reject/Skip calls.
func (l *Librarian) Analyze(ctx context.Context) ([]Recommendation, error) {
	start := time.Now()
	timer := logging.StartTimer(logging.CategoryLibrarian, "Analyze")
	defer timer.Stop()

	var found []Recommendation

	expiredCount, err := l.locks.CleanupExpired(ctx)
	if err != nil {
		logging.LibrarianWarn("failed to clean up expired locks during analysis: %v", err)
	} else if expiredCount > 0 {
		found = append(found, l.enqueue(RecommendExpiredLock, "", fmt.Sprintf("cleaned up %d expired file locks", expiredCount)))
	}

	l.lastStatus = JobStatus{
		Running:         false,
		LastRunAt:       start,
		LastRunDuration: time.Since(start),
		FindingsCount:   len(found),
	}

	logging.Librarian("maintenance pass complete: %d findings in %v", len(found), l.lastStatus.LastRunDuration)
	return found, nil
}

func (l *Librarian) enqueue(kind RecommendationKind, entryID, description string) Recommendation {
	rec := Recommendation{
		ID:          uuid.NewString(),
		Kind:        kind,
		EntryID:     entryID,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	l.recommendations[rec.ID] = &rec
	return rec
}

// RunMaintenance is the operator-triggered entry point: Analyze, then
// immediately apply any recommendation kind considered safe to
// auto-approve (currently: expired-lock cleanup only).
func (l *Librarian) RunMaintenance(ctx context.Context) (JobStatus, error) {
	found, err := l.Analyze(ctx)
	if err != nil {
		return JobStatus{}, err
	}
	for _, rec := range found {
		if rec.Kind == RecommendExpiredLock {
			if err := l.Approve(ctx, rec.ID); err != nil {
				logging.LibrarianWarn("failed to auto-approve recommendation %s: %v", rec.ID, err)
			}
		}
	}
	return l.lastStatus, nil
}

// GetJobStatus returns the state of the most recent maintenance run.
func (l *Librarian) GetJobStatus() JobStatus {
	return l.lastStatus
}

// ListRecommendations returns every recommendation still pending a
// decision.
func (l *Librarian) ListRecommendations() []Recommendation {
	out := make([]Recommendation, 0, len(l.recommendations))
	for _, r := range l.recommendations {
		if r.Status == StatusPending {
			out = append(out, *r)
		}
	}
	return out
}

// Approve marks a recommendation approved and publishes an audit event.
// Auto-approved kinds are already applied by Analyze; Approve on those is
// just bookkeeping.
func (l *Librarian) Approve(ctx context.Context, id string) error {
	return l.resolve(ctx, id, StatusApproved)
}

// Reject marks a recommendation rejected with no further action taken.
func (l *Librarian) Reject(ctx context.Context, id string) error {
	return l.resolve(ctx, id, StatusRejected)
}

// Skip defers a recommendation without approving or rejecting it; it may
// resurface on a future Analyze pass.
func (l *Librarian) Skip(ctx context.Context, id string) error {
	return l.resolve(ctx, id, StatusSkipped)
}

func (l *Librarian) resolve(ctx context.Context, id string, status RecommendationStatus) error {
	rec, ok := l.recommendations[id]
	if !ok {
		return errs.New(errs.CodeNotFound, "recommendation not found").WithContext("id", id)
	}
	rec.Status = status

	if l.bus != nil {
		_, err := l.bus.Publish(ctx, audit.Event{
			EventType: "librarian_recommendation_" + string(status),
			EntryID:   rec.EntryID,
			Detail:    map[string]any{"recommendationId": id, "kind": rec.Kind},
		})
		if err != nil {
			logging.LibrarianWarn("failed to publish recommendation event: %v", err)
		}
	}
	return nil
}
