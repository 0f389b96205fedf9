package storage

import (
	"context"
	"database/sql"
	"fmt"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
)

// Migration is a single, idempotent schema step, applied in version order
// against a schema authored fresh rather than evolved from a pre-existing
// table set.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var allTableNames = []string{
	"schema_migrations",
	"scopes",
	"entry_identities",
	"entry_versions",
	"evidence",
	"relations",
	"graph_nodes",
	"graph_edges",
	"tags",
	"file_locks",
	"embeddings",
	"audit_log",
	"entries_fts",
}

var migrations = []Migration{
	{1, "schema_migrations", `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`},
	{2, "scopes", `
		CREATE TABLE IF NOT EXISTS scopes (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			parent_id TEXT REFERENCES scopes(id),
			name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scopes_parent ON scopes(parent_id);
	`},
	{3, "entry_identities", `
		CREATE TABLE IF NOT EXISTS entry_identities (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			scope_id TEXT NOT NULL REFERENCES scopes(id),
			name TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_entry_identities_scope ON entry_identities(scope_id);
		CREATE INDEX IF NOT EXISTS idx_entry_identities_kind ON entry_identities(kind);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_entry_identities_active_name
			ON entry_identities(scope_id, kind, name) WHERE is_active = 1;
	`},
	{4, "entry_versions", `
		CREATE TABLE IF NOT EXISTS entry_versions (
			id TEXT PRIMARY KEY,
			entry_id TEXT NOT NULL REFERENCES entry_identities(id),
			version INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			priority REAL NOT NULL DEFAULT 0.5,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			created_by TEXT,
			UNIQUE(entry_id, version)
		);
		CREATE INDEX IF NOT EXISTS idx_entry_versions_entry ON entry_versions(entry_id);
		CREATE INDEX IF NOT EXISTS idx_entry_versions_hash ON entry_versions(content_hash);
	`},
	{5, "evidence", `
		CREATE TABLE IF NOT EXISTS evidence (
			id TEXT PRIMARY KEY,
			entry_id TEXT NOT NULL REFERENCES entry_identities(id),
			version_id TEXT NOT NULL REFERENCES entry_versions(id),
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			source_ref TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_evidence_entry ON evidence(entry_id);
	`},
	{6, "relations", `
		CREATE TABLE IF NOT EXISTS relations (
			id TEXT PRIMARY KEY,
			from_id TEXT NOT NULL REFERENCES entry_identities(id),
			to_id TEXT NOT NULL REFERENCES entry_identities(id),
			kind TEXT NOT NULL,
			weight REAL NOT NULL DEFAULT 1.0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(from_id, to_id, kind)
		);
		CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(from_id);
		CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_id);
	`},
	{7, "graph", `
		CREATE TABLE IF NOT EXISTS graph_nodes (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			label TEXT NOT NULL,
			properties TEXT
		);
		CREATE TABLE IF NOT EXISTS graph_edges (
			id TEXT PRIMARY KEY,
			from_node TEXT NOT NULL REFERENCES graph_nodes(id),
			to_node TEXT NOT NULL REFERENCES graph_nodes(id),
			type TEXT NOT NULL,
			weight REAL NOT NULL DEFAULT 1.0,
			valid_from DATETIME DEFAULT CURRENT_TIMESTAMP,
			valid_to DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_graph_edges_from ON graph_edges(from_node, type);
		CREATE INDEX IF NOT EXISTS idx_graph_edges_to ON graph_edges(to_node, type);
	`},
	{8, "tags", `
		CREATE TABLE IF NOT EXISTS tags (
			entry_id TEXT NOT NULL REFERENCES entry_identities(id),
			label TEXT NOT NULL,
			PRIMARY KEY (entry_id, label)
		);
		CREATE INDEX IF NOT EXISTS idx_tags_label ON tags(label);
	`},
	{9, "file_locks", `
		CREATE TABLE IF NOT EXISTS file_locks (
			path TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			acquired_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_file_locks_expires ON file_locks(expires_at);
	`},
	{10, "embeddings", `
		CREATE TABLE IF NOT EXISTS embeddings (
			entry_id TEXT NOT NULL,
			version_id TEXT NOT NULL REFERENCES entry_versions(id),
			vector BLOB NOT NULL,
			model TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (version_id)
		);
		CREATE INDEX IF NOT EXISTS idx_embeddings_entry ON embeddings(entry_id);
	`},
	{11, "audit_log", `
		CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			event_type TEXT NOT NULL,
			entry_id TEXT,
			scope_id TEXT,
			actor TEXT,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_log_time ON audit_log(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_log_entry ON audit_log(entry_id);
	`},
	{12, "entries_fts", `
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			entry_id UNINDEXED,
			version_id UNINDEXED,
			kind UNINDEXED,
			content
		);
	`},
}

// RunMigrations applies every pending migration in order, recording each in
// schema_migrations: deterministic, idempotent, never hard-fails on an
// already-applied step.
func RunMigrations(ctx context.Context, e *Engine) error {
	// schema_migrations itself must exist before we can query it.
	if _, err := e.db.ExecContext(ctx, migrations[0].SQL); err != nil {
		return errs.Wrap(errs.CodeMigrationError, "failed to create schema_migrations table", err)
	}

	applied, err := appliedVersions(ctx, e.db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		logging.StorageLog("applying migration %d: %s", m.Version, m.Name)
		if err := e.WithWriter(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.SQL); err != nil {
				return errs.Wrap(errs.CodeMigrationError, fmt.Sprintf("migration %d (%s) failed", m.Version, m.Name), err)
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	result := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		// Table may not exist yet on a brand-new database; that's fine.
		return result, nil
	}
	defer rows.Close()

	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan schema_migrations", err)
		}
		result[v] = true
	}
	return result, nil
}

func migrationStatus(ctx context.Context, e *Engine) (applied, pending, total int, err error) {
	av, aerr := appliedVersions(ctx, e.db)
	if aerr != nil {
		return 0, 0, 0, aerr
	}
	total = len(migrations)
	applied = len(av)
	pending = total - applied
	return applied, pending, total, nil
}

// tableExists reports whether a table or virtual table exists.
func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
