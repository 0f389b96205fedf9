package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	}
	engine, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestOpen_RunsMigrationsOnce(t *testing.T) {
	engine := openTestEngine(t)

	for _, table := range allTableNames {
		var name string
		err := engine.DB().QueryRow(
			`SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&name)
		assert.NoError(t, err, "expected table/view %s to exist", table)
	}

	applied, pending, total, err := migrationStatus(context.Background(), engine)
	require.NoError(t, err)
	assert.Equal(t, total, applied)
	assert.Equal(t, 0, pending)
}

func TestWithWriter_SerializesAccess(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			done <- engine.WithWriter(ctx, func(tx *sql.Tx) error {
				_, err := tx.Exec(`INSERT INTO scopes (id, type, name) VALUES (?, 'global', ?)`, n, n)
				return err
			})
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}

	var count int
	require.NoError(t, engine.DB().QueryRow(`SELECT COUNT(*) FROM scopes`).Scan(&count))
	assert.Equal(t, 8, count)
}
