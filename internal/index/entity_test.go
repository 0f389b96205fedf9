package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/model"
	"agentmemory/internal/repo"
	"agentmemory/internal/storage"
)

func newTestEntityIndex(t *testing.T) (*EntityIndex, *repo.GraphRepo) {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewEntityIndex(engine), repo.NewGraphRepo(engine)
}

func TestExtractSymbols_ParsesGoFunctionAndTypeNames(t *testing.T) {
	idx, _ := newTestEntityIndex(t)

	src := `package demo

type Widget struct{}

func BuildWidget() *Widget {
	return &Widget{}
}
`
	syms := idx.ExtractSymbols(context.Background(), src)
	assert.ElementsMatch(t, []string{"Widget", "BuildWidget"}, syms)
}

func TestExtractSymbols_FallsBackToKeywordsForNonGo(t *testing.T) {
	idx, _ := newTestEntityIndex(t)

	syms := idx.ExtractSymbols(context.Background(), "the retry budget exceeded threshold")
	assert.Contains(t, syms, "retry")
	assert.Contains(t, syms, "budget")
	assert.Contains(t, syms, "exceeded")
	assert.Contains(t, syms, "threshold")
}

func TestLink_CreatesSymbolNodeAndEdge(t *testing.T) {
	ctx := context.Background()
	idx, graph := newTestEntityIndex(t)

	require.NoError(t, graph.UpsertNode(ctx, model.GraphNode{ID: "entry:e1", Type: model.NodeEntry, Label: "e1"}))
	require.NoError(t, idx.Link(ctx, "entry:e1", "BuildWidget"))

	node, err := graph.Node(ctx, "symbol:BuildWidget")
	require.NoError(t, err)
	assert.Equal(t, model.NodeSymbol, node.Type)

	edges, err := graph.Neighbors(ctx, "entry:e1", []model.EdgeType{model.EdgeContains})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "symbol:BuildWidget", edges[0].ToNode)
}
