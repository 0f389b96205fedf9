package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	cfg.Storage.BusyTimeout = "2s"

	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_WiresEverySubsystem(t *testing.T) {
	store := newTestStore(t)

	assert.NotNil(t, store.Engine)
	assert.NotNil(t, store.Pipeline)
	assert.NotNil(t, store.Locks)
	assert.NotNil(t, store.Bus)
	assert.NotNil(t, store.Librarian)
}

func TestCreateGuideline_IsRetrievableByQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	scopeRow, err := store.CreateScope(ctx, model.ScopeGlobal, "", "global")
	require.NoError(t, err)

	resp, err := store.CreateGuideline(ctx, CreateGuidelineRequest{
		ScopeID:   scopeRow.ID,
		Name:      "no-tabs",
		Text:      "always use spaces instead of tabs",
		Rationale: "consistency across editors",
		Priority:  0.5,
		Actor:     "tester",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Identity.ID)

	results, err := store.Query(ctx, QueryRequest{Text: "spaces", ScopeID: scopeRow.ID, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, resp.Identity.ID, results[0].EntryID)
}

func TestReembed_NoPendingVersionsIsANoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	n, err := store.Reembed(ctx, 32, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeactivate_RemovesEntryFromScopeListing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	scopeRow, err := store.CreateScope(ctx, model.ScopeGlobal, "", "global")
	require.NoError(t, err)

	resp, err := store.CreateGuideline(ctx, CreateGuidelineRequest{
		ScopeID:  scopeRow.ID,
		Name:     "temp-rule",
		Text:     "temporary guidance",
		Priority: 0.3,
		Actor:    "tester",
	})
	require.NoError(t, err)

	require.NoError(t, store.Deactivate(ctx, resp.Identity.ID, "tester"))

	active, err := store.ListByScope(ctx, scopeRow.ID, model.KindGuideline)
	require.NoError(t, err)
	assert.Empty(t, active)
}
