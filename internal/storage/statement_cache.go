package storage

import (
	"database/sql"
	"sync"
)

// StatementCache caches prepared statements by SQL text in a small shared
// cache every repository can reuse, rather than each one preparing its own
// long-lived statements ad hoc.
type StatementCache struct {
	db    *sql.DB
	mu    sync.Mutex
	stmts map[string]*sql.Stmt
}

// NewStatementCache creates an empty cache bound to db.
func NewStatementCache(db *sql.DB) *StatementCache {
	return &StatementCache{db: db, stmts: make(map[string]*sql.Stmt)}
}

// Prepare returns a cached *sql.Stmt for query, preparing it on first use.
func (c *StatementCache) Prepare(query string) (*sql.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stmt, ok := c.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := c.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// Close closes every cached statement.
func (c *StatementCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for q, stmt := range c.stmts {
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.stmts, q)
	}
	return firstErr
}
