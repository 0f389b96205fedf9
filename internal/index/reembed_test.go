package index

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/model"
	"agentmemory/internal/repo"
	"agentmemory/internal/storage"
)

type fakeEmbeddingEngine struct {
	dimensions int
	calls      int
}

func (f *fakeEmbeddingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbeddingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dimensions)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (f *fakeEmbeddingEngine) Dimensions() int { return f.dimensions }
func (f *fakeEmbeddingEngine) Name() string    { return "fake" }

func TestReembedAll_EmbedsEveryVersionMissingAVector(t *testing.T) {
	ctx := context.Background()
	engine, err := storage.Open(ctx, config.StorageConfig{
		DatabasePath: t.TempDir() + "/test.db",
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	require.NoError(t, engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO scopes (id, type, name) VALUES ('scope-1', 'global', 'scope-1')`)
		return err
	}))

	entries := repo.NewEntryStore(engine)
	store := NewEmbeddingStore(engine)

	for i := 0; i < 5; i++ {
		_, _, err := entries.Create(ctx, model.KindKnowledge, "scope-1", "fact-"+string(rune('a'+i)),
			map[string]string{"text": "some knowledge payload"}, 0.5, "tester")
		require.NoError(t, err)
	}

	fake := &fakeEmbeddingEngine{dimensions: 4}
	n, err := ReembedAll(ctx, engine, store, fake, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.GreaterOrEqual(t, fake.calls, 3) // 5 items in batches of 2 => 3 batches

	n2, err := ReembedAll(ctx, engine, store, fake, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n2)
}

func TestReembedAll_NilEngineErrors(t *testing.T) {
	ctx := context.Background()
	engine, err := storage.Open(ctx, config.StorageConfig{
		DatabasePath: t.TempDir() + "/test.db",
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	_, err = ReembedAll(ctx, engine, NewEmbeddingStore(engine), nil, 32, 4)
	assert.Error(t, err)
}
