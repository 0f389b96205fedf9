package repo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/errs"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"
)

func newTestEntryStore(t *testing.T) *EntryStore {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	// entry_identities.scope_id references scopes, so the scope the tests
	// use has to exist.
	require.NoError(t, engine.WithWriter(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO scopes (id, type, name) VALUES ('scope-1', 'global', 'scope-1')`)
		return err
	}))
	return NewEntryStore(engine)
}

func TestCreate_DuplicateActiveNameConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestEntryStore(t)

	_, _, err := s.Create(ctx, model.KindGuideline, "scope-1", "no-tabs", map[string]string{"text": "use spaces"}, 0.5, "tester")
	require.NoError(t, err)

	_, _, err = s.Create(ctx, model.KindGuideline, "scope-1", "no-tabs", map[string]string{"text": "use spaces again"}, 0.5, "tester")
	require.Error(t, err)
	assert.Equal(t, errs.CodeAlreadyExists, errs.CodeOf(err))
}

func TestAddVersion_IdenticalContentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestEntryStore(t)

	payload := map[string]string{"text": "use spaces"}
	identity, v1, err := s.Create(ctx, model.KindGuideline, "scope-1", "no-tabs", payload, 0.5, "tester")
	require.NoError(t, err)

	v2, err := s.AddVersion(ctx, identity.ID, payload, 0.5, "tester")
	require.NoError(t, err)
	assert.Equal(t, v1.ID, v2.ID)
	assert.Equal(t, 1, v2.Version)
}

func TestAddVersion_ChangedContentAdvancesChain(t *testing.T) {
	ctx := context.Background()
	s := newTestEntryStore(t)

	identity, _, err := s.Create(ctx, model.KindGuideline, "scope-1", "no-tabs", map[string]string{"text": "v1"}, 0.5, "tester")
	require.NoError(t, err)

	v2, err := s.AddVersion(ctx, identity.ID, map[string]string{"text": "v2"}, 0.6, "tester")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	history, err := s.History(ctx, identity.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, 2, history[1].Version)

	refetched, err := s.Version(ctx, identity.ID, 2)
	require.NoError(t, err)
	if diff := cmp.Diff(&history[1], refetched); diff != "" {
		t.Errorf("Version(2) mismatch vs History() entry (-history +version):\n%s", diff)
	}
}

func TestDeactivate_MarksIdentityInactive(t *testing.T) {
	ctx := context.Background()
	s := newTestEntryStore(t)

	identity, _, err := s.Create(ctx, model.KindKnowledge, "scope-1", "fact", map[string]string{"text": "x"}, 0.5, "tester")
	require.NoError(t, err)

	require.NoError(t, s.Deactivate(ctx, identity.ID))

	got, err := s.Identity(ctx, identity.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := s.ListByScope(ctx, "scope-1", model.KindKnowledge)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestExperienceUsefulness_LaplaceSmoothed(t *testing.T) {
	p := model.ExperiencePayload{Successes: 3, Failures: 1}
	assert.InDelta(t, 4.0/6.0, p.Usefulness(), 1e-9)

	fresh := model.ExperiencePayload{}
	assert.InDelta(t, 0.5, fresh.Usefulness(), 1e-9)
}
