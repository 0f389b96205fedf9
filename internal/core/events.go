package core

import (
	"context"

	"agentmemory/internal/audit"
	"agentmemory/internal/logging"
)

// publishEntryEvent records a write against an entry on the audit bus,
// logging a warning rather than failing the calling operation if the bus
// write itself fails: audit is observability, not a write precondition.
func (s *Store) publishEntryEvent(ctx context.Context, eventType, entryID, scopeID, actor string) {
	_, err := s.Bus.Publish(ctx, audit.Event{
		EventType: eventType,
		EntryID:   entryID,
		ScopeID:   scopeID,
		Actor:     actor,
	})
	if err != nil {
		logging.AuditWarn("failed to publish %s for entry %s: %v", eventType, entryID, err)
	}
}
