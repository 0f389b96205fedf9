package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"
)

func newTestFullTextIndex(t *testing.T) *FullTextIndex {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewFullTextIndex(engine)
}

func TestSearch_MatchesIndexedContent(t *testing.T) {
	ctx := context.Background()
	idx := newTestFullTextIndex(t)

	require.NoError(t, idx.Index(ctx, "entry-1", "v1", model.KindGuideline, "always use spaces not tabs"))
	require.NoError(t, idx.Index(ctx, "entry-2", "v2", model.KindKnowledge, "the database runs postgres"))

	hits, err := idx.Search(ctx, "spaces", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "entry-1", hits[0].EntryID)
}

func TestSearch_FiltersByKind(t *testing.T) {
	ctx := context.Background()
	idx := newTestFullTextIndex(t)

	require.NoError(t, idx.Index(ctx, "entry-1", "v1", model.KindGuideline, "consistent formatting rules"))
	require.NoError(t, idx.Index(ctx, "entry-2", "v2", model.KindKnowledge, "formatting details about the schema"))

	hits, err := idx.Search(ctx, "formatting", []model.EntryKind{model.KindKnowledge}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "entry-2", hits[0].EntryID)
}

func TestIndex_ReplacesPriorContentForSameVersion(t *testing.T) {
	ctx := context.Background()
	idx := newTestFullTextIndex(t)

	require.NoError(t, idx.Index(ctx, "entry-1", "v1", model.KindGuideline, "original wording"))
	require.NoError(t, idx.Index(ctx, "entry-1", "v1", model.KindGuideline, "revised wording"))

	hits, err := idx.Search(ctx, "original", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, "revised", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestRemove_DropsAllVersionsForEntry(t *testing.T) {
	ctx := context.Background()
	idx := newTestFullTextIndex(t)

	require.NoError(t, idx.Index(ctx, "entry-1", "v1", model.KindGuideline, "first version text"))
	require.NoError(t, idx.Index(ctx, "entry-1", "v2", model.KindGuideline, "second version text"))

	require.NoError(t, idx.Remove(ctx, "entry-1"))

	hits, err := idx.Search(ctx, "version", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
