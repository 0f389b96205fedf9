package filelock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/errs"
	"agentmemory/internal/storage"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewCoordinator(engine)
}

func TestAcquire_BlocksDifferentOwnerWhileUnexpired(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	_, err := c.Acquire(ctx, "/repo/main.go", "agent-a", "editing", time.Minute)
	require.NoError(t, err)

	_, err = c.Acquire(ctx, "/repo/main.go", "agent-b", "editing", time.Minute)
	require.Error(t, err)
	assert.Equal(t, errs.CodeFileLocked, errs.CodeOf(err))
}

func TestAcquire_ReclaimsExpiredLock(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	_, err := c.Acquire(ctx, "/repo/main.go", "agent-a", "editing", -time.Minute)
	require.NoError(t, err)

	lock, err := c.Acquire(ctx, "/repo/main.go", "agent-b", "editing", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "agent-b", lock.Owner)
}

func TestRelease_RequiresMatchingOwner(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	_, err := c.Acquire(ctx, "/repo/main.go", "agent-a", "editing", time.Minute)
	require.NoError(t, err)

	err = c.Release(ctx, "/repo/main.go", "agent-b")
	require.Error(t, err)
	assert.Equal(t, errs.CodeLockNotFound, errs.CodeOf(err))

	require.NoError(t, c.Release(ctx, "/repo/main.go", "agent-a"))

	locked, _, err := c.IsLocked(ctx, "/repo/main.go")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestAcquire_RejectsRelativePath(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	_, err := c.Acquire(ctx, "repo/main.go", "agent-a", "editing", time.Minute)
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidFilePath, errs.CodeOf(err))
}

func TestAcquire_RejectsDotDotSegment(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	_, err := c.Acquire(ctx, "/repo/../etc/passwd", "agent-a", "editing", time.Minute)
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidFilePath, errs.CodeOf(err))
}

func TestCleanupExpired_RemovesOnlyExpiredLocks(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	_, err := c.Acquire(ctx, "/repo/expired.go", "agent-a", "editing", -time.Minute)
	require.NoError(t, err)
	_, err = c.Acquire(ctx, "/repo/live.go", "agent-a", "editing", time.Minute)
	require.NoError(t, err)

	removed, err := c.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	locks, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "/repo/live.go", locks[0].Path)
}
