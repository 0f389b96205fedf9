// Package storage is the single-writer SQLite storage engine underlying the
// memory store: WAL mode, busy_timeout, a single serialized writer, and an
// optional sqlite-vec extension for the embedding index. The
// writer-serialization mutex lives here rather than being duplicated per
// repository, so every internal/repo type shares one lock.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"agentmemory/internal/config"
	"agentmemory/internal/errs"
	"agentmemory/internal/logging"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/mattn/go-sqlite3"
)

// Engine owns the database connection, the single-writer lock, and the
// prepared-statement cache. Every internal/repo type is constructed with a
// reference to an Engine rather than opening its own connection.
type Engine struct {
	db         *sql.DB
	writerMu   sync.Mutex
	dbPath     string
	stmts      *StatementCache
	vecEnabled bool
	cfg        config.StorageConfig
}

// Open opens (creating if necessary) the SQLite database at cfg.DatabasePath,
// applies pragmas, detects the sqlite-vec extension, and runs any pending
// migrations.
func Open(ctx context.Context, cfg config.StorageConfig) (*Engine, error) {
	timer := logging.StartTimer(logging.CategoryStorage, "Open")
	defer timer.Stop()

	dir := filepath.Dir(cfg.DatabasePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		logging.StorageError("failed to open database at %s: %v", cfg.DatabasePath, err)
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to open database", err)
	}

	// Single-writer discipline: SQLite only ever sees one connection, so all
	// serialization is explicit via Engine.writerMu rather than relying on
	// the driver's connection pool.
	db.SetMaxOpenConns(1)

	e := &Engine{
		db:     db,
		dbPath: cfg.DatabasePath,
		stmts:  NewStatementCache(db),
		cfg:    cfg,
	}

	if err := e.applyPragmas(ctx); err != nil {
		db.Close()
		return nil, err
	}

	e.vecEnabled = detectVecExtension(db)
	if cfg.RequireVecExt && !e.vecEnabled {
		db.Close()
		return nil, errs.New(errs.CodeDatabaseError, "sqlite-vec extension required but unavailable")
	}

	if err := RunMigrations(ctx, e); err != nil {
		db.Close()
		return nil, err
	}

	logging.StorageLog("storage engine opened at %s (vec=%v)", cfg.DatabasePath, e.vecEnabled)
	return e, nil
}

func (e *Engine) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", e.cfg.GetBusyTimeout().Milliseconds()),
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	if e.cfg.CacheMemoryMB > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=-%d", e.cfg.CacheMemoryMB*1024))
	}
	for _, p := range pragmas {
		if _, err := e.db.ExecContext(ctx, p); err != nil {
			logging.StorageError("failed to apply pragma %q: %v", p, err)
			return errs.Wrap(errs.CodeDatabaseError, "failed to apply pragma", err)
		}
	}
	return nil
}

// VecEnabled reports whether the sqlite-vec extension is active on this
// connection.
func (e *Engine) VecEnabled() bool { return e.vecEnabled }

// DB returns the underlying connection for repositories/indices that need to
// build ad hoc queries. Writers must hold WithWriter; readers may call
// directly since SQLite's WAL mode permits concurrent readers with the
// single writer.
func (e *Engine) DB() *sql.DB { return e.db }

// Stmts returns the shared prepared-statement cache.
func (e *Engine) Stmts() *StatementCache { return e.stmts }

// WithWriter serializes fn against every other writer, and retries on
// transient SQLITE_BUSY errors with jittered exponential backoff via
// cenkalti/backoff rather than a hand-rolled sleep loop.
func (e *Engine) WithWriter(ctx context.Context, fn func(*sql.Tx) error) error {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	op := func() error {
		tx, err := e.db.BeginTx(ctx, nil)
		if err != nil {
			if isBusy(err) {
				return err // retryable
			}
			return backoff.Permanent(errs.Wrap(errs.CodeDatabaseError, "failed to begin transaction", err))
		}

		if err := fn(tx); err != nil {
			tx.Rollback()
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(errs.Wrap(errs.CodeDatabaseError, "failed to commit transaction", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		var permanent *errs.Error
		if e, ok := err.(*errs.Error); ok {
			permanent = e
		} else {
			permanent = errs.Wrap(errs.CodeDatabaseTransient, "transaction failed after retries", err)
		}
		logging.StorageError("WithWriter failed: %v", permanent)
		return permanent
	}
	return nil
}

func isBusy(err error) bool {
	return err != nil && (containsAny(err.Error(), "database is locked", "SQLITE_BUSY"))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

// Close closes the underlying connection.
func (e *Engine) Close() error {
	logging.StorageLog("closing storage engine at %s", e.dbPath)
	return e.db.Close()
}

// Status reports applied/pending migration counts.
func (e *Engine) Status(ctx context.Context) (applied, pending, total int, err error) {
	return migrationStatus(ctx, e)
}

// Reset drops and recreates every memory-store table. Tables are dropped
// children first so foreign keys never block the drop. Reset performs no
// authorization check of its own.
func (e *Engine) Reset(ctx context.Context) error {
	logging.StorageWarn("resetting storage engine at %s", e.dbPath)
	err := e.WithWriter(ctx, func(tx *sql.Tx) error {
		for i := len(allTableNames) - 1; i >= 0; i-- {
			table := allTableNames[i]
			if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
				return errs.Wrap(errs.CodeDatabaseError, "failed to drop table "+table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return RunMigrations(ctx, e)
}
