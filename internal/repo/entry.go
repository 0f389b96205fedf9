// Package repo implements the versioned entry store: identity rows, version
// chains, evidence, relations, and tags, sharing one version-chain engine
// across all four entry kinds since they differ only in payload shape.
package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"

	"github.com/google/uuid"
)

// EntryStore is the shared version-chain engine behind every entry kind.
// Kind-specific files (guideline.go, knowledge.go, tool.go, experience.go)
// wrap it with typed payload marshalling.
type EntryStore struct {
	engine *storage.Engine
}

// NewEntryStore builds an EntryStore backed by engine.
func NewEntryStore(engine *storage.Engine) *EntryStore {
	return &EntryStore{engine: engine}
}

// Create inserts a brand new entry identity plus its first version.
func (s *EntryStore) Create(ctx context.Context, kind model.EntryKind, scopeID, name string, payload any, priority float64, createdBy string) (*model.EntryIdentity, *model.EntryVersion, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, errs.Wrap(errs.CodeInvalidPayload, "failed to encode payload", err)
	}

	identity := &model.EntryIdentity{
		ID:       uuid.NewString(),
		Kind:     kind,
		ScopeID:  scopeID,
		Name:     name,
		IsActive: true,
	}
	version := &model.EntryVersion{
		ID:          uuid.NewString(),
		EntryID:     identity.ID,
		Version:     1,
		Kind:        kind,
		Payload:     string(encoded),
		ContentHash: contentHash(encoded),
		Priority:    priority,
		CreatedBy:   createdBy,
	}

	err = s.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO entry_identities (id, kind, scope_id, name, is_active) VALUES (?, ?, ?, ?, 1)`,
			identity.ID, string(kind), scopeID, name,
		); err != nil {
			return mapUniqueConstraint(err)
		}
		_, err := tx.Exec(
			`INSERT INTO entry_versions (id, entry_id, version, kind, payload, content_hash, priority, created_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			version.ID, version.EntryID, version.Version, string(kind), version.Payload, version.ContentHash, version.Priority, version.CreatedBy,
		)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	logging.Repo("created %s entry %s (%q) in scope %s", kind, identity.ID, name, scopeID)
	return identity, version, nil
}

// AddVersion appends a new version to an existing entry's chain. Content
// identical to the current version (by hash) is a no-op that returns the
// existing version unchanged: re-submission of unchanged content is
// idempotent rather than an error.
func (s *EntryStore) AddVersion(ctx context.Context, entryID string, payload any, priority float64, createdBy string) (*model.EntryVersion, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidPayload, "failed to encode payload", err)
	}
	hash := contentHash(encoded)

	current, err := s.CurrentVersion(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if current.ContentHash == hash {
		return current, nil
	}

	next := &model.EntryVersion{
		ID:          uuid.NewString(),
		EntryID:     entryID,
		Version:     current.Version + 1,
		Kind:        current.Kind,
		Payload:     string(encoded),
		ContentHash: hash,
		Priority:    priority,
		CreatedBy:   createdBy,
	}

	err = s.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO entry_versions (id, entry_id, version, kind, payload, content_hash, priority, created_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			next.ID, next.EntryID, next.Version, string(next.Kind), next.Payload, next.ContentHash, next.Priority, next.CreatedBy,
		)
		return err
	})
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to append entry version", err)
	}

	logging.Repo("entry %s advanced to version %d", entryID, next.Version)
	return next, nil
}

// CurrentVersion returns the highest version in entryID's chain. The lookup
// is on the hot path of every read (query candidates, repo wrappers'
// Current), so it goes through the engine's prepared-statement cache rather
// than re-parsing the same query text on each call.
func (s *EntryStore) CurrentVersion(ctx context.Context, entryID string) (*model.EntryVersion, error) {
	stmt, err := s.engine.Stmts().Prepare(
		`SELECT id, entry_id, version, kind, payload, content_hash, priority, created_at, COALESCE(created_by, '')
		 FROM entry_versions WHERE entry_id = ? ORDER BY version DESC LIMIT 1`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to prepare current-version query", err)
	}
	row := stmt.QueryRowContext(ctx, entryID)
	return scanVersion(row, entryID)
}

// Version returns a specific version number from entryID's chain.
func (s *EntryStore) Version(ctx context.Context, entryID string, version int) (*model.EntryVersion, error) {
	row := s.engine.DB().QueryRowContext(ctx,
		`SELECT id, entry_id, version, kind, payload, content_hash, priority, created_at, COALESCE(created_by, '')
		 FROM entry_versions WHERE entry_id = ? AND version = ?`, entryID, version)
	return scanVersion(row, entryID)
}

// History returns every version in entryID's chain, oldest first.
func (s *EntryStore) History(ctx context.Context, entryID string) ([]model.EntryVersion, error) {
	rows, err := s.engine.DB().QueryContext(ctx,
		`SELECT id, entry_id, version, kind, payload, content_hash, priority, created_at, COALESCE(created_by, '')
		 FROM entry_versions WHERE entry_id = ? ORDER BY version ASC`, entryID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to query version history", err)
	}
	defer rows.Close()

	var out []model.EntryVersion
	for rows.Next() {
		var v model.EntryVersion
		var kind string
		if err := rows.Scan(&v.ID, &v.EntryID, &v.Version, &kind, &v.Payload, &v.ContentHash, &v.Priority, &v.CreatedAt, &v.CreatedBy); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan version history", err)
		}
		v.Kind = model.EntryKind(kind)
		out = append(out, v)
	}
	return out, nil
}

// Identity fetches the identity row for entryID, going through the same
// prepared-statement cache as CurrentVersion.
func (s *EntryStore) Identity(ctx context.Context, entryID string) (*model.EntryIdentity, error) {
	stmt, err := s.engine.Stmts().Prepare(
		`SELECT id, kind, scope_id, name, is_active, created_at FROM entry_identities WHERE id = ?`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to prepare identity query", err)
	}
	row := stmt.QueryRowContext(ctx, entryID)

	var id model.EntryIdentity
	var kind string
	if err := row.Scan(&id.ID, &kind, &id.ScopeID, &id.Name, &id.IsActive, &id.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.CodeNotFound, "entry not found").WithContext("id", entryID)
		}
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to fetch entry identity", err)
	}
	id.Kind = model.EntryKind(kind)
	return &id, nil
}

// Deactivate soft-deletes an entry: it remains in the version chain for
// audit/history purposes but is excluded from active queries.
func (s *EntryStore) Deactivate(ctx context.Context, entryID string) error {
	err := s.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE entry_identities SET is_active = 0 WHERE id = ?`, entryID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errs.New(errs.CodeNotFound, "entry not found").WithContext("id", entryID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.Repo("deactivated entry %s", entryID)
	return nil
}

// ListByScope lists active identities of kind within scopeID.
func (s *EntryStore) ListByScope(ctx context.Context, scopeID string, kind model.EntryKind) ([]model.EntryIdentity, error) {
	rows, err := s.engine.DB().QueryContext(ctx,
		`SELECT id, kind, scope_id, name, is_active, created_at
		 FROM entry_identities WHERE scope_id = ? AND kind = ? AND is_active = 1`, scopeID, string(kind))
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to list entries", err)
	}
	defer rows.Close()

	var out []model.EntryIdentity
	for rows.Next() {
		var id model.EntryIdentity
		var k string
		if err := rows.Scan(&id.ID, &k, &id.ScopeID, &id.Name, &id.IsActive, &id.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan entry identity", err)
		}
		id.Kind = model.EntryKind(k)
		out = append(out, id)
	}
	return out, nil
}

func scanVersion(row *sql.Row, entryID string) (*model.EntryVersion, error) {
	var v model.EntryVersion
	var kind string
	if err := row.Scan(&v.ID, &v.EntryID, &v.Version, &kind, &v.Payload, &v.ContentHash, &v.Priority, &v.CreatedAt, &v.CreatedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.CodeVersionNotFound, "entry version not found").WithContext("entryId", entryID)
		}
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan entry version", err)
	}
	v.Kind = model.EntryKind(kind)
	return &v, nil
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// mapUniqueConstraint translates a SQLite UNIQUE-constraint violation on the
// active-name index into a structured conflict error.
func mapUniqueConstraint(err error) error {
	if err == nil {
		return nil
	}
	if containsConstraint(err.Error()) {
		return errs.Wrap(errs.CodeAlreadyExists, "an active entry with this name already exists in scope", err)
	}
	return errs.Wrap(errs.CodeDatabaseError, "failed to insert entry identity", err)
}

func containsConstraint(msg string) bool {
	for _, sub := range []string{"UNIQUE constraint failed"} {
		if len(msg) >= len(sub) {
			for i := 0; i+len(sub) <= len(msg); i++ {
				if msg[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}
