// Package filelock implements the advisory, TTL-bounded file-lock
// coordinator: acquire/release/force-release over absolute paths, backed by
// the same SQLite engine as the rest of the store so locks survive process
// restarts. Acquisition reads any existing row for the path and then
// upserts it (INSERT ... ON CONFLICT(path) DO UPDATE) inside the engine's
// serialized writer transaction.
package filelock

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"
)

// Coordinator manages advisory locks over file paths.
type Coordinator struct {
	engine *storage.Engine
}

// NewCoordinator builds a Coordinator backed by engine.
func NewCoordinator(engine *storage.Engine) *Coordinator {
	return &Coordinator{engine: engine}
}

// Acquire takes an advisory lock on path for owner, valid for ttl. Fails
// with CodeFileLocked if the path is already locked by a different owner and
// that lock hasn't expired; an expired lock is silently reclaimed. path must
// be absolute and contain no ".." segment, or Acquire fails with
// CodeInvalidFilePath.
func (c *Coordinator) Acquire(ctx context.Context, path, owner, reason string, ttl time.Duration) (*model.FileLock, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lock := &model.FileLock{
		Path:       path,
		Owner:      owner,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
		Reason:     reason,
	}

	err = c.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		existing, err := queryLock(tx, path)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if err == nil && existing.Owner != owner && existing.ExpiresAt.After(now) {
			return errs.New(errs.CodeFileLocked, "file is locked by another owner").
				WithContext("path", path).WithContext("owner", existing.Owner)
		}

		_, err = tx.Exec(
			`INSERT INTO file_locks (path, owner, acquired_at, expires_at, reason) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET owner = excluded.owner, acquired_at = excluded.acquired_at,
			 expires_at = excluded.expires_at, reason = excluded.reason`,
			lock.Path, lock.Owner, lock.AcquiredAt, lock.ExpiresAt, nullableString(lock.Reason),
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FileLock("acquired lock on %s for %s (ttl=%s)", path, owner, ttl)
	return lock, nil
}

// Release drops a lock, but only if owner currently holds it.
func (c *Coordinator) Release(ctx context.Context, path, owner string) error {
	path, err := normalizePath(path)
	if err != nil {
		return err
	}
	return c.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM file_locks WHERE path = ? AND owner = ?`, path, owner)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errs.New(errs.CodeLockNotFound, "no lock held by this owner").WithContext("path", path).WithContext("owner", owner)
		}
		return nil
	})
}

// ForceRelease drops a lock regardless of owner, used by administrative
// recovery paths.
func (c *Coordinator) ForceRelease(ctx context.Context, path string) error {
	path, err := normalizePath(path)
	if err != nil {
		return err
	}
	err = c.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM file_locks WHERE path = ?`, path)
		return err
	})
	if err != nil {
		return errs.Wrap(errs.CodeDatabaseError, "failed to force-release lock", err)
	}
	logging.FileLockWarn("force-released lock on %s", path)
	return nil
}

// IsLocked reports whether path currently carries an unexpired lock.
func (c *Coordinator) IsLocked(ctx context.Context, path string) (bool, *model.FileLock, error) {
	lock, err := c.Get(ctx, path)
	if err != nil {
		if errs.IsNotFound(err) {
			return false, nil, nil
		}
		return false, nil, err
	}
	if lock.ExpiresAt.Before(time.Now()) {
		return false, lock, nil
	}
	return true, lock, nil
}

// Get returns the raw lock row for path, expired or not.
func (c *Coordinator) Get(ctx context.Context, path string) (*model.FileLock, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	lock, err := queryLock(c.engine.DB(), path)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.CodeLockNotFound, "no lock on path").WithContext("path", path)
		}
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to fetch lock", err)
	}
	return lock, nil
}

// List returns every lock currently recorded, expired or not.
func (c *Coordinator) List(ctx context.Context) ([]model.FileLock, error) {
	rows, err := c.engine.DB().QueryContext(ctx,
		`SELECT path, owner, acquired_at, expires_at, COALESCE(reason, '') FROM file_locks ORDER BY acquired_at DESC`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to list locks", err)
	}
	defer rows.Close()

	var out []model.FileLock
	for rows.Next() {
		var l model.FileLock
		if err := rows.Scan(&l.Path, &l.Owner, &l.AcquiredAt, &l.ExpiresAt, &l.Reason); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan lock", err)
		}
		out = append(out, l)
	}
	return out, nil
}

// CleanupExpired deletes every lock whose TTL has elapsed, returning the
// count removed. Intended to be called periodically by the librarian's
// maintenance loop.
func (c *Coordinator) CleanupExpired(ctx context.Context) (int, error) {
	var removed int
	err := c.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM file_locks WHERE expires_at < CURRENT_TIMESTAMP`)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(n)
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.CodeDatabaseError, "failed to clean up expired locks", err)
	}
	if removed > 0 {
		logging.FileLock("cleaned up %d expired locks", removed)
	}
	return removed, nil
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func queryLock(q querier, path string) (*model.FileLock, error) {
	row := q.QueryRow(
		`SELECT path, owner, acquired_at, expires_at, COALESCE(reason, '') FROM file_locks WHERE path = ?`, path)
	var l model.FileLock
	if err := row.Scan(&l.Path, &l.Owner, &l.AcquiredAt, &l.ExpiresAt, &l.Reason); err != nil {
		return nil, err
	}
	return &l, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizePath enforces the coordinator's path contract: path must be
// absolute, and must not contain a ".." segment. The check runs on the path
// as given, since cleaning an absolute path silently resolves "..".
func normalizePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", errs.New(errs.CodeInvalidFilePath, "path must be absolute").WithContext("path", path)
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "", errs.New(errs.CodeInvalidFilePath, "path must not contain a \"..\" segment").WithContext("path", path)
		}
	}
	return filepath.Clean(path), nil
}
