package core

import (
	"context"
	"time"

	"agentmemory/internal/model"
)

// AcquireLockRequest is the typed request for taking an advisory file lock.
type AcquireLockRequest struct {
	Path   string
	Owner  string
	Reason string
	TTL    time.Duration
	Actor  string
}

// AcquireLock takes an advisory lock on a path, reclaiming it if the
// existing holder's TTL has elapsed.
func (s *Store) AcquireLock(ctx context.Context, req AcquireLockRequest) (*model.FileLock, error) {
	lock, err := s.Locks.Acquire(ctx, req.Path, req.Owner, req.Reason, req.TTL)
	if err != nil {
		return nil, err
	}
	s.publishEntryEvent(ctx, "lock_acquired", "", "", req.Actor)
	return lock, nil
}

// ReleaseLockRequest is the typed request for releasing an advisory lock.
type ReleaseLockRequest struct {
	Path  string
	Owner string
	Actor string
}

// ReleaseLock drops a lock, but only if owner currently holds it.
func (s *Store) ReleaseLock(ctx context.Context, req ReleaseLockRequest) error {
	if err := s.Locks.Release(ctx, req.Path, req.Owner); err != nil {
		return err
	}
	s.publishEntryEvent(ctx, "lock_released", "", "", req.Actor)
	return nil
}

// ForceReleaseLock drops a lock regardless of owner, for administrative
// recovery.
func (s *Store) ForceReleaseLock(ctx context.Context, path, actor string) error {
	if err := s.Locks.ForceRelease(ctx, path); err != nil {
		return err
	}
	s.publishEntryEvent(ctx, "lock_force_released", "", "", actor)
	return nil
}

// IsLocked reports whether path currently carries an unexpired lock.
func (s *Store) IsLocked(ctx context.Context, path string) (bool, *model.FileLock, error) {
	return s.Locks.IsLocked(ctx, path)
}

// ListLocks returns every lock currently recorded, expired or not.
func (s *Store) ListLocks(ctx context.Context) ([]model.FileLock, error) {
	return s.Locks.List(ctx)
}
