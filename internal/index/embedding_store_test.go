package index

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/storage"
)

func newTestEmbeddingStore(t *testing.T) *EmbeddingStore {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	// embeddings.version_id references entry_versions, so seed the versions
	// the tests below embed.
	require.NoError(t, engine.WithWriter(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO scopes (id, type, name) VALUES ('scope-1', 'global', 'scope-1')`); err != nil {
			return err
		}
		for _, ev := range [][2]string{{"entry-close", "v-close"}, {"entry-orthogonal", "v-orthogonal"}, {"entry-opposite", "v-opposite"}, {"entry-1", "v1"}} {
			if _, err := tx.Exec(`INSERT INTO entry_identities (id, kind, scope_id, name) VALUES (?, 'knowledge', 'scope-1', ?)`, ev[0], ev[0]); err != nil {
				return err
			}
			if _, err := tx.Exec(`INSERT INTO entry_versions (id, entry_id, version, kind, payload, content_hash) VALUES (?, ?, 1, 'knowledge', '{}', '')`, ev[1], ev[0]); err != nil {
				return err
			}
		}
		return nil
	}))
	return NewEmbeddingStore(engine)
}

func TestSearch_RanksClosestVectorFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestEmbeddingStore(t)

	require.NoError(t, s.Put(ctx, "entry-close", "v-close", []float32{1, 0, 0}, "test-model"))
	require.NoError(t, s.Put(ctx, "entry-orthogonal", "v-orthogonal", []float32{0, 1, 0}, "test-model"))
	require.NoError(t, s.Put(ctx, "entry-opposite", "v-opposite", []float32{-1, 0, 0}, "test-model"))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "entry-close", hits[0].EntryID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestPut_ReplacesExistingVectorForSameVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestEmbeddingStore(t)

	require.NoError(t, s.Put(ctx, "entry-1", "v1", []float32{1, 0}, "model-a"))
	require.NoError(t, s.Put(ctx, "entry-1", "v1", []float32{0, 1}, "model-b"))

	hits, err := s.Search(ctx, []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestDelete_RemovesAllVersionsForEntry(t *testing.T) {
	ctx := context.Background()
	s := newTestEmbeddingStore(t)

	require.NoError(t, s.Put(ctx, "entry-1", "v1", []float32{1, 0}, "model-a"))
	require.NoError(t, s.Delete(ctx, "entry-1"))

	hits, err := s.Search(ctx, []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
