package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity_IdenticalVectorsScoreOne(t *testing.T) {
	v := []float32{1, 2, 3}
	sim, err := CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSimilarity_OrthogonalVectorsScoreZero(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)
}

func TestCosineSimilarity_MismatchedLengthsError(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity_ZeroMagnitudeVectorReturnsZero(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestFindTopK_RanksClosestVectorFirst(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{
		{0, 1}, // orthogonal
		{1, 0}, // identical
		{-1, 0}, // opposite
	}

	results, err := FindTopK(query, corpus, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Index)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
}

func TestFindTopK_DefaultsKWhenNonPositive(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{{1, 0}, {0, 1}}

	results, err := FindTopK(query, corpus, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestNewEngine_UnsupportedProviderErrors(t *testing.T) {
	_, err := NewEngine(Config{Provider: "unknown"})
	assert.Error(t, err)
}

func TestNewEngine_OllamaProviderConstructsWithoutNetworkCall(t *testing.T) {
	engine, err := NewEngine(Config{
		Provider:       "ollama",
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "embeddinggemma",
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama:embeddinggemma", engine.Name())
}
