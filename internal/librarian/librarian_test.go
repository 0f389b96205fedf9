package librarian

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/audit"
	"agentmemory/internal/config"
	"agentmemory/internal/errs"
	"agentmemory/internal/filelock"
	"agentmemory/internal/repo"
	"agentmemory/internal/storage"
)

func newTestLibrarian(t *testing.T) *Librarian {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return New(engine, repo.NewEntryStore(engine), filelock.NewCoordinator(engine), audit.NewBus(engine), time.Hour)
}

func TestRunMaintenance_AutoApprovesExpiredLockCleanup(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrarian(t)

	locks := filelock.NewCoordinator(lib.engine)
	_, err := locks.Acquire(ctx, "/repo/stale.go", "agent-a", "editing", -time.Minute)
	require.NoError(t, err)

	status, err := lib.RunMaintenance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.FindingsCount)
	assert.Empty(t, lib.ListRecommendations())
}

func TestResolve_UnknownRecommendationIsNotFound(t *testing.T) {
	lib := newTestLibrarian(t)
	err := lib.Approve(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}

func TestListRecommendations_OnlyPendingSurfaced(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrarian(t)

	rec := lib.enqueue(RecommendStaleEntry, "entry-1", "stale guideline")
	require.NoError(t, lib.Reject(ctx, rec.ID))

	assert.Empty(t, lib.ListRecommendations())
}
