package scope

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/errs"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewResolver(engine, 64, time.Minute)
}

func TestCreate_NonGlobalRequiresParent(t *testing.T) {
	r := newTestResolver(t)
	_, err := r.Create(context.Background(), model.ScopeProject, "", "orphan")
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidScope, errs.CodeOf(err))
}

func TestAncestry_WalksFullChain(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)

	global, err := r.Create(ctx, model.ScopeGlobal, "", "global")
	require.NoError(t, err)
	org, err := r.Create(ctx, model.ScopeOrg, global.ID, "acme")
	require.NoError(t, err)
	project, err := r.Create(ctx, model.ScopeProject, org.ID, "widgets")
	require.NoError(t, err)
	session, err := r.Create(ctx, model.ScopeSession, project.ID, "sess-1")
	require.NoError(t, err)

	chain, err := r.Ancestry(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, chain, 4)
	assert.Equal(t, session.ID, chain[0].ID)
	assert.Equal(t, global.ID, chain[3].ID)
}

func TestAncestry_CachesResult(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)

	global, err := r.Create(ctx, model.ScopeGlobal, "", "global")
	require.NoError(t, err)

	first, err := r.Ancestry(ctx, global.ID)
	require.NoError(t, err)

	cached, ok := r.chains.Get(global.ID)
	require.True(t, ok)
	assert.Equal(t, first, cached)

	r.InvalidateAncestryCache(global.ID)
	_, ok = r.chains.Get(global.ID)
	assert.False(t, ok)
	second, err := r.Ancestry(ctx, global.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRank_DeeperScopeRanksFirst(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)

	global, err := r.Create(ctx, model.ScopeGlobal, "", "global")
	require.NoError(t, err)
	project, err := r.Create(ctx, model.ScopeProject, global.ID, "widgets")
	require.NoError(t, err)

	result, err := r.Rank(ctx, *project, *global)
	require.NoError(t, err)
	assert.Negative(t, result)
}
