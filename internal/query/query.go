// Package query implements the retrieval pipeline: candidate collection
// from full-text, fuzzy, semantic, and relation-graph sources, followed by
// scoring, ranking, and truncation. The sources are a fixed sequence of
// collect methods on Pipeline.
package query

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"agentmemory/internal/cache"
	"agentmemory/internal/embedding"
	"agentmemory/internal/index"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/rank"
	"agentmemory/internal/repo"
	"agentmemory/internal/scope"
)

// Request describes a single query against the memory store.
//
// Tags applies three simultaneous filters drawn from a single slice: a "+"
// prefix marks a label the entry must carry, a "-" prefix marks one it must
// not carry, and a bare label joins an OR group where the entry must carry
// at least one. MinPriority/MaxPriority bound the current version's stored
// priority (zero means unbounded on that side); CriticalOnly restricts
// results to entries whose priority has crossed the configured
// critical-priority threshold.
type Request struct {
	Text         string
	ScopeID      string
	Kinds        []model.EntryKind
	Tags         []string
	MinPriority  float64
	MaxPriority  float64
	CriticalOnly bool
	Limit        int
}

// Candidate is a single entry surfaced by one or more collection stages,
// accumulating the signals rank.Scorer combines into a final score.
type Candidate struct {
	EntryID           string
	VersionID         string
	Kind              model.EntryKind
	FullTextHit       bool
	FullTextRank      float64
	FuzzyHit          bool
	FuzzyScore        float64
	SemanticHit       bool
	Similarity        float64
	RelationHit       bool
	RelationHops      int
	Priority          float64
	CreatedAt         time.Time
	Usefulness        float64
	ContextSimilarity float64
}

// Result is a single ranked hit returned to the caller.
type Result struct {
	EntryID   string
	VersionID string
	Kind      model.EntryKind
	Score     float64
}

// Pipeline wires together the candidate sources, the result cache, and the
// ranker into the end-to-end query operation.
type Pipeline struct {
	entries     *repo.EntryStore
	experiences *repo.ExperienceRepo
	scopes      *scope.Resolver
	fulltext    *index.FullTextIndex
	embeddings  *index.EmbeddingStore
	graph       *repo.GraphRepo
	tags        *repo.TagRepo
	embedder    embedding.EmbeddingEngine
	scorer      *rank.Scorer
	cache       *cache.TTLCache[string, []Result]
	epoch       int64
}

// NewPipeline builds a Pipeline from its constituent stores and indices.
func NewPipeline(
	entries *repo.EntryStore,
	experiences *repo.ExperienceRepo,
	scopes *scope.Resolver,
	fulltext *index.FullTextIndex,
	embeddings *index.EmbeddingStore,
	graph *repo.GraphRepo,
	tags *repo.TagRepo,
	embedder embedding.EmbeddingEngine,
	scorer *rank.Scorer,
	cacheTTL time.Duration,
	cacheMaxEntries int,
) *Pipeline {
	return &Pipeline{
		entries:     entries,
		experiences: experiences,
		scopes:      scopes,
		fulltext:    fulltext,
		embeddings:  embeddings,
		graph:       graph,
		tags:        tags,
		embedder:    embedder,
		scorer:      scorer,
		cache:       cache.New[string, []Result](cacheMaxEntries, cacheTTL),
	}
}

// InvalidateCache drops every cached query result. Called by internal/core's
// handlers after each write so stale results are never served.
func (p *Pipeline) InvalidateCache() {
	p.epoch++
	p.cache.Clear()
}

// Run executes the full pipeline: collect candidates from every available
// source, score and rank them, then truncate to req.Limit.
func (p *Pipeline) Run(ctx context.Context, req Request) ([]Result, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	cacheKey := cacheKeyFor(req)
	if cached, ok := p.cache.Get(cacheKey); ok {
		logging.QueryDebug("cache hit for query %q in scope %s", req.Text, req.ScopeID)
		return cached, nil
	}

	scopeIDs, err := p.allowedScopes(ctx, req.ScopeID)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]*Candidate)

	if err := p.collectFullText(ctx, req, scopeIDs, candidates); err != nil {
		return nil, err
	}
	if err := p.collectFuzzy(ctx, req, scopeIDs, candidates); err != nil {
		return nil, err
	}
	if err := p.collectSemantic(ctx, req, scopeIDs, candidates); err != nil {
		return nil, err
	}
	if err := p.collectRelations(ctx, req, candidates); err != nil {
		return nil, err
	}

	if err := p.enrichAndFilter(ctx, req, candidates); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		score := p.scorer.Score(rank.Signals{
			FullTextRank:      c.FullTextRank,
			FullTextHit:       c.FullTextHit,
			FuzzyScore:        c.FuzzyScore,
			FuzzyHit:          c.FuzzyHit,
			Similarity:        c.Similarity,
			SemanticHit:       c.SemanticHit,
			RelationHops:      c.RelationHops,
			RelationHit:       c.RelationHit,
			Priority:          c.Priority,
			AgeDays:           ageInDays(c.CreatedAt),
			Usefulness:        c.Usefulness,
			ContextSimilarity: c.ContextSimilarity,
		})
		p.scorer.MarkIfCritical(ctx, c.EntryID, score)
		results = append(results, Result{EntryID: c.EntryID, VersionID: c.VersionID, Kind: c.Kind, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	p.cache.Set(cacheKey, results)
	return results, nil
}

// enrichAndFilter fills in the per-candidate fields that every collection
// stage shares (current priority, age, usefulness, tag overlap) and drops
// any candidate that fails the request's tag, priority-range, or
// critical-only filters. It runs once after collection rather than inside
// each collect* stage so a candidate surfaced by multiple sources is only
// looked up and filtered a single time.
func (p *Pipeline) enrichAndFilter(ctx context.Context, req Request, candidates map[string]*Candidate) error {
	require, exclude, include := splitTagFilters(req.Tags)
	needsTags := len(require) > 0 || len(exclude) > 0 || len(include) > 0 || len(req.Tags) > 0

	for entryID, c := range candidates {
		v, err := p.entries.CurrentVersion(ctx, entryID)
		if err != nil {
			delete(candidates, entryID)
			continue
		}
		c.Priority = v.Priority
		c.CreatedAt = v.CreatedAt

		if req.MinPriority > 0 && c.Priority < req.MinPriority {
			delete(candidates, entryID)
			continue
		}
		if req.MaxPriority > 0 && c.Priority > req.MaxPriority {
			delete(candidates, entryID)
			continue
		}
		if req.CriticalOnly && c.Priority < p.scorer.Threshold() {
			delete(candidates, entryID)
			continue
		}

		c.Usefulness = 0.5
		if c.Kind == model.KindExperience {
			if payload, _, err := p.experiences.Current(ctx, entryID); err == nil {
				c.Usefulness = payload.Usefulness()
			}
		}

		if needsTags {
			entryTags, err := p.tags.ForEntry(ctx, entryID)
			if err != nil {
				return err
			}
			if !tagsMatch(entryTags, require, exclude, include) {
				delete(candidates, entryID)
				continue
			}
			c.ContextSimilarity = contextOverlap(req.Tags, entryTags)
		}
	}
	return nil
}

func (p *Pipeline) allowedScopes(ctx context.Context, scopeID string) ([]string, error) {
	if scopeID == "" {
		return nil, nil
	}
	chain, err := p.scopes.Ancestry(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(chain))
	for i, s := range chain {
		ids[i] = s.ID
	}
	return ids, nil
}

func (p *Pipeline) collectFullText(ctx context.Context, req Request, scopeIDs []string, out map[string]*Candidate) error {
	if req.Text == "" {
		return nil
	}
	hits, err := p.fulltext.Search(ctx, req.Text, req.Kinds, req.Limit*4)
	if err != nil {
		return err
	}
	allowed := scopeSet(scopeIDs)
	for i, h := range hits {
		if allowed != nil {
			identity, err := p.entries.Identity(ctx, h.EntryID)
			if err != nil || !allowed[identity.ScopeID] {
				continue
			}
		}
		c := candidateFor(out, h.EntryID, h.VersionID, h.Kind)
		c.FullTextHit = true
		c.FullTextRank = 1.0 / float64(i+1)
	}
	return nil
}

// scopeSet builds a membership set for scopeIDs, or nil when the request
// carried no scope (meaning every scope is in bounds, matching how
// allowedScopes signals an unrestricted query with a nil slice).
func scopeSet(scopeIDs []string) map[string]bool {
	if len(scopeIDs) == 0 {
		return nil
	}
	set := make(map[string]bool, len(scopeIDs))
	for _, id := range scopeIDs {
		set[id] = true
	}
	return set
}

func (p *Pipeline) collectFuzzy(ctx context.Context, req Request, scopeIDs []string, out map[string]*Candidate) error {
	if req.Text == "" {
		return nil
	}
	needle := strings.ToLower(req.Text)
	for _, kind := range kindsOrAll(req.Kinds) {
		for _, scopeID := range scopeIDsOrAll(scopeIDs) {
			identities, err := p.entries.ListByScope(ctx, scopeID, kind)
			if err != nil {
				return err
			}
			for _, id := range identities {
				matched, score := fuzzyMatch(needle, strings.ToLower(id.Name))
				if !matched {
					continue
				}
				v, err := p.entries.CurrentVersion(ctx, id.ID)
				if err != nil {
					continue
				}
				c := candidateFor(out, id.ID, v.ID, id.Kind)
				c.FuzzyHit = true
				c.FuzzyScore = score
			}
		}
	}
	return nil
}

func (p *Pipeline) collectSemantic(ctx context.Context, req Request, scopeIDs []string, out map[string]*Candidate) error {
	if req.Text == "" || p.embedder == nil {
		return nil
	}
	vec, err := p.embedder.Embed(ctx, req.Text)
	if err != nil {
		logging.QueryWarn("embedding query failed, skipping semantic candidates: %v", err)
		return nil
	}
	hits, err := p.embeddings.Search(ctx, vec, req.Limit*4, scopeIDs)
	if err != nil {
		return err
	}
	for _, h := range hits {
		identity, err := p.entries.Identity(ctx, h.EntryID)
		if err != nil {
			continue
		}
		c := candidateFor(out, h.EntryID, h.VersionID, identity.Kind)
		c.SemanticHit = true
		c.Similarity = h.Similarity
	}
	return nil
}

func (p *Pipeline) collectRelations(ctx context.Context, req Request, out map[string]*Candidate) error {
	seeds := make([]string, 0, len(out))
	for id := range out {
		seeds = append(seeds, id)
	}
	for _, seed := range seeds {
		edges, err := p.graph.Neighbors(ctx, "entry:"+seed, []model.EdgeType{
			model.EdgeSupersedes, model.EdgeAppliesTo, model.EdgeDependsOn,
		})
		if err != nil {
			continue
		}
		for _, e := range edges {
			targetEntryID := strings.TrimPrefix(e.ToNode, "entry:")
			v, err := p.entries.CurrentVersion(ctx, targetEntryID)
			if err != nil {
				continue
			}
			identity, err := p.entries.Identity(ctx, targetEntryID)
			if err != nil {
				continue
			}
			c := candidateFor(out, targetEntryID, v.ID, identity.Kind)
			c.RelationHit = true
			c.RelationHops = 1
		}
	}
	return nil
}

func candidateFor(out map[string]*Candidate, entryID, versionID string, kind model.EntryKind) *Candidate {
	c, ok := out[entryID]
	if !ok {
		c = &Candidate{EntryID: entryID, VersionID: versionID, Kind: kind}
		out[entryID] = c
	}
	return c
}

func kindsOrAll(kinds []model.EntryKind) []model.EntryKind {
	if len(kinds) > 0 {
		return kinds
	}
	return []model.EntryKind{model.KindGuideline, model.KindKnowledge, model.KindTool, model.KindExperience}
}

func scopeIDsOrAll(ids []string) []string {
	if len(ids) > 0 {
		return ids
	}
	return []string{""}
}

// fuzzyMatch reports whether needle is within editDistanceThreshold edits of
// haystack or of any single word-boundary-delimited token in haystack (words
// split on anything that isn't a letter or digit, so "deploy-service" yields
// "deploy" and "service"), so a one-word typo against a multi-word or
// hyphenated name still retrieves it. score is a normalized similarity in
// [0,1], 1.0 for an exact match.
func fuzzyMatch(needle, haystack string) (bool, float64) {
	threshold := editDistanceThreshold(needle)

	best := levenshtein(needle, haystack)
	bestLen := len(haystack)
	for _, tok := range tokenize(haystack) {
		if d := levenshtein(needle, tok); d < best {
			best = d
			bestLen = len(tok)
		}
	}
	if best > threshold {
		return false, 0
	}

	maxLen := len(needle)
	if bestLen > maxLen {
		maxLen = bestLen
	}
	if maxLen == 0 {
		return true, 1.0
	}
	return true, clamp01(1 - float64(best)/float64(maxLen))
}

// tokenize splits s into its alphanumeric runs, discarding punctuation like
// hyphens and underscores that separate words in entry names.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// editDistanceThreshold scales the allowed edit distance with needle length,
// so a single-character typo matches short names without also matching
// unrelated short strings.
func editDistanceThreshold(needle string) int {
	switch {
	case len(needle) <= 4:
		return 1
	case len(needle) <= 8:
		return 2
	default:
		return 3
	}
}

// levenshtein computes the edit distance between a and b using the standard
// two-row dynamic-programming recurrence.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minOf(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// splitTagFilters partitions a Request's Tags into the three groups the
// filter understands: "+label" must be present, "-label" must be absent,
// and a bare label joins an OR group where at least one must be present.
func splitTagFilters(tags []string) (require, exclude, include []string) {
	for _, t := range tags {
		switch {
		case strings.HasPrefix(t, "+"):
			require = append(require, strings.TrimPrefix(t, "+"))
		case strings.HasPrefix(t, "-"):
			exclude = append(exclude, strings.TrimPrefix(t, "-"))
		default:
			include = append(include, t)
		}
	}
	return require, exclude, include
}

// tagsMatch applies the require/exclude/include groups produced by
// splitTagFilters against a single entry's attached labels.
func tagsMatch(entryTags, require, exclude, include []string) bool {
	set := make(map[string]bool, len(entryTags))
	for _, t := range entryTags {
		set[t] = true
	}
	for _, t := range exclude {
		if set[t] {
			return false
		}
	}
	for _, t := range require {
		if !set[t] {
			return false
		}
	}
	if len(include) > 0 {
		ok := false
		for _, t := range include {
			if set[t] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// contextOverlap scores how much of the request's tag context an entry's
// tags satisfy, stripping the require/exclude prefixes so the signal
// reflects topical relevance rather than filter semantics.
func contextOverlap(reqTags, entryTags []string) float64 {
	if len(reqTags) == 0 {
		return 0
	}
	set := make(map[string]bool, len(entryTags))
	for _, t := range entryTags {
		set[t] = true
	}
	matches := 0
	for _, t := range reqTags {
		label := strings.TrimPrefix(strings.TrimPrefix(t, "+"), "-")
		if set[label] {
			matches++
		}
	}
	return clamp01(float64(matches) / float64(len(reqTags)))
}

// ageInDays converts a version's creation timestamp into the fractional-day
// age rank.Scorer uses for recency decay. A zero timestamp (no version
// found) decays to the floor rather than appearing infinitely fresh.
func ageInDays(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return math.Inf(1)
	}
	return time.Since(createdAt).Hours() / 24
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
