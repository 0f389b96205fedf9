package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/config"
	"agentmemory/internal/index"
	"agentmemory/internal/model"
	"agentmemory/internal/rank"
	"agentmemory/internal/repo"
	"agentmemory/internal/scope"
	"agentmemory/internal/storage"
)

type testHarness struct {
	pipeline *Pipeline
	entries  *repo.EntryStore
	fulltext *index.FullTextIndex
	tags     *repo.TagRepo
	scopes   *scope.Resolver
	scopeID  string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	engine, err := storage.Open(context.Background(), config.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  "2s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	scorer := rank.NewScorer(config.RankConfig{
		CriticalPriorityThreshold: 0.8,
		PriorityCacheTTL:          "5m",
		RecencyHalfLifeDays:       30,
	})

	entries := repo.NewEntryStore(engine)
	resolver := scope.NewResolver(engine, 64, time.Minute)
	scopeRow, err := resolver.Create(context.Background(), model.ScopeGlobal, "", "global")
	require.NoError(t, err)

	tags := repo.NewTagRepo(engine)
	pipeline := NewPipeline(
		entries,
		repo.NewExperienceRepo(entries),
		resolver,
		index.NewFullTextIndex(engine),
		index.NewEmbeddingStore(engine),
		repo.NewGraphRepo(engine),
		tags,
		nil,
		scorer,
		time.Minute,
		64,
	)
	return &testHarness{pipeline: pipeline, entries: entries, fulltext: index.NewFullTextIndex(engine), tags: tags, scopes: resolver, scopeID: scopeRow.ID}
}

func TestRun_RanksFullTextMatchAboveNoMatch(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	identity, version, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "tabs-rule", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, identity.ID, version.ID, model.KindGuideline, "always use spaces not tabs"))

	other, otherVersion, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "unrelated", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, other.ID, otherVersion.ID, model.KindGuideline, "completely different subject matter"))

	results, err := h.pipeline.Run(ctx, Request{Text: "spaces", ScopeID: h.scopeID, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, identity.ID, results[0].EntryID)
}

func TestRun_CachesResultUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	identity, version, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "cached", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, identity.ID, version.ID, model.KindGuideline, "cacheable content"))

	first, err := h.pipeline.Run(ctx, Request{Text: "cacheable", ScopeID: h.scopeID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, h.fulltext.Remove(ctx, identity.ID))

	second, err := h.pipeline.Run(ctx, Request{Text: "cacheable", ScopeID: h.scopeID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	h.pipeline.InvalidateCache()
	third, err := h.pipeline.Run(ctx, Request{Text: "cacheable", ScopeID: h.scopeID, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestRun_FuzzyMatchesEntryNameWithinScope(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	identity, _, err := h.entries.Create(ctx, model.KindTool, h.scopeID, "deploy-service", map[string]string{}, 0.1, "tester")
	require.NoError(t, err)

	results, err := h.pipeline.Run(ctx, Request{Text: "deploy", ScopeID: h.scopeID, Kinds: []model.EntryKind{model.KindTool}, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, identity.ID, results[0].EntryID)
}

func TestRun_FuzzyToleratesSingleCharacterTypo(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	identity, _, err := h.entries.Create(ctx, model.KindTool, h.scopeID, "linter", map[string]string{}, 0.1, "tester")
	require.NoError(t, err)

	results, err := h.pipeline.Run(ctx, Request{Text: "lintar", ScopeID: h.scopeID, Kinds: []model.EntryKind{model.KindTool}, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, identity.ID, results[0].EntryID)
}

func TestRun_RequiredTagExcludesEntriesMissingIt(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	tagged, version, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "tagged-rule", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, tagged.ID, version.ID, model.KindGuideline, "shared search text"))
	require.NoError(t, h.tags.Attach(ctx, tagged.ID, "security"))

	untagged, otherVersion, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "untagged-rule", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, untagged.ID, otherVersion.ID, model.KindGuideline, "shared search text"))

	results, err := h.pipeline.Run(ctx, Request{Text: "shared", ScopeID: h.scopeID, Tags: []string{"+security"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, tagged.ID, results[0].EntryID)
}

func TestRun_FullTextRespectsScopeBoundary(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	other, err := h.scopes.Create(ctx, model.ScopeProject, h.scopeID, "other-project")
	require.NoError(t, err)

	inScope, version, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "in-scope-rule", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, inScope.ID, version.ID, model.KindGuideline, "shared search text"))

	outOfScope, otherVersion, err := h.entries.Create(ctx, model.KindGuideline, other.ID, "other-scope-rule", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, outOfScope.ID, otherVersion.ID, model.KindGuideline, "shared search text"))

	results, err := h.pipeline.Run(ctx, Request{Text: "shared", ScopeID: h.scopeID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, inScope.ID, results[0].EntryID)
}

func TestRun_ExcludedTagDropsMatchingEntry(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	archived, version, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "archived-rule", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, archived.ID, version.ID, model.KindGuideline, "shared search text"))
	require.NoError(t, h.tags.Attach(ctx, archived.ID, "deprecated"))

	live, otherVersion, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "live-rule", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, live.ID, otherVersion.ID, model.KindGuideline, "shared search text"))

	results, err := h.pipeline.Run(ctx, Request{Text: "shared", ScopeID: h.scopeID, Tags: []string{"-deprecated"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, live.ID, results[0].EntryID)
}

func TestRun_PriorityRangeFiltersOutOfBandEntries(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	low, lowVersion, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "low-priority", map[string]string{"text": "x"}, 0.1, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, low.ID, lowVersion.ID, model.KindGuideline, "shared search text"))

	high, highVersion, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "high-priority", map[string]string{"text": "x"}, 0.9, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, high.ID, highVersion.ID, model.KindGuideline, "shared search text"))

	results, err := h.pipeline.Run(ctx, Request{Text: "shared", ScopeID: h.scopeID, MinPriority: 0.5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, high.ID, results[0].EntryID)
}

func TestRun_CriticalOnlyKeepsEntriesAtOrAboveThreshold(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)

	low, lowVersion, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "routine", map[string]string{"text": "x"}, 0.3, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, low.ID, lowVersion.ID, model.KindGuideline, "shared search text"))

	critical, criticalVersion, err := h.entries.Create(ctx, model.KindGuideline, h.scopeID, "critical", map[string]string{"text": "x"}, 0.95, "tester")
	require.NoError(t, err)
	require.NoError(t, h.fulltext.Index(ctx, critical.ID, criticalVersion.ID, model.KindGuideline, "shared search text"))

	results, err := h.pipeline.Run(ctx, Request{Text: "shared", ScopeID: h.scopeID, CriticalOnly: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, critical.ID, results[0].EntryID)
}
