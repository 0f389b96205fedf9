// Package audit implements the append-only audit log and an in-process
// publish/subscribe event bus over the same event stream: durable, queryable
// rows plus a live subscriber feed so callers (e.g. the librarian) can react
// to writes as they happen instead of only after the fact.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"
)

// Event is a single audit occurrence, published to subscribers and
// persisted to audit_log in the same call.
type Event struct {
	EventType string
	EntryID   string
	ScopeID   string
	Actor     string
	Detail    map[string]any
}

// Bus records audit events durably and fans them out to live subscribers.
// A monotonically increasing epoch counter lets callers detect "has
// anything changed since I last checked" without re-reading the log.
type Bus struct {
	engine *storage.Engine

	mu          sync.RWMutex
	subscribers map[int]chan model.AuditRecord
	nextSubID   int
	epoch       int64
}

// NewBus builds a Bus backed by engine.
func NewBus(engine *storage.Engine) *Bus {
	return &Bus{
		engine:      engine,
		subscribers: make(map[int]chan model.AuditRecord),
	}
}

// Publish persists ev and fans it out to every current subscriber. Delivery
// to subscribers is best-effort: a subscriber that isn't draining its
// channel is skipped rather than blocking the writer.
func (b *Bus) Publish(ctx context.Context, ev Event) (*model.AuditRecord, error) {
	detail, err := json.Marshal(ev.Detail)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidPayload, "failed to encode audit detail", err)
	}

	rec := &model.AuditRecord{
		Timestamp: time.Now(),
		EventType: ev.EventType,
		EntryID:   ev.EntryID,
		ScopeID:   ev.ScopeID,
		Actor:     ev.Actor,
		Detail:    string(detail),
	}

	err = b.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO audit_log (timestamp, event_type, entry_id, scope_id, actor, detail) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.Timestamp, rec.EventType, nullableString(rec.EntryID), nullableString(rec.ScopeID), nullableString(rec.Actor), rec.Detail,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rec.ID = id
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to record audit event", err)
	}

	atomic.AddInt64(&b.epoch, 1)
	logging.AuditDebug("published %s (entry=%s scope=%s)", rec.EventType, rec.EntryID, rec.ScopeID)
	b.broadcast(*rec)
	return rec, nil
}

func (b *Bus) broadcast(rec model.AuditRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- rec:
		default:
			logging.AuditWarn("subscriber channel full, dropping event %d", rec.ID)
		}
	}
}

// Subscribe returns a channel of live audit events and a cancel function.
// Callers must call cancel to release the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan model.AuditRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	ch := make(chan model.AuditRecord, buffer)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			close(c)
			delete(b.subscribers, id)
		}
	}
	return ch, cancel
}

// Epoch returns the current write-epoch, incremented on every Publish call.
func (b *Bus) Epoch() int64 {
	return atomic.LoadInt64(&b.epoch)
}

// Query returns up to limit audit records matching the given filters, newest
// first. An empty filter value means "don't filter on this field."
func (b *Bus) Query(ctx context.Context, entryID, scopeID, eventType string, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, timestamp, event_type, COALESCE(entry_id, ''), COALESCE(scope_id, ''), COALESCE(actor, ''), COALESCE(detail, '')
	          FROM audit_log WHERE 1=1`
	var args []any
	if entryID != "" {
		query += " AND entry_id = ?"
		args = append(args, entryID)
	}
	if scopeID != "" {
		query += " AND scope_id = ?"
		args = append(args, scopeID)
	}
	if eventType != "" {
		query += " AND event_type = ?"
		args = append(args, eventType)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := b.engine.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to query audit log", err)
	}
	defer rows.Close()

	var out []model.AuditRecord
	for rows.Next() {
		var r model.AuditRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.EventType, &r.EntryID, &r.ScopeID, &r.Actor, &r.Detail); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan audit record", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
