// Package rank implements the composite scoring function that turns raw
// query-pipeline signals into a single ranking score, plus a priority cache
// for entries whose score crosses the "critical" threshold. Signals are
// blended through an explicit, independently-tunable Weights struct.
package rank

import (
	"context"
	"math"

	"agentmemory/internal/cache"
	"agentmemory/internal/config"
	"agentmemory/internal/logging"
)

// Signals carries every per-candidate feature the query pipeline collected,
// consumed by Scorer.Score to produce a single ranking value.
type Signals struct {
	FullTextHit       bool
	FullTextRank      float64 // 1/position, already in (0,1]
	FuzzyHit          bool
	FuzzyScore        float64 // normalized edit-distance similarity in [0,1]
	SemanticHit       bool
	Similarity        float64 // cosine similarity in [-1,1]
	RelationHit       bool
	RelationHops      int
	Priority          float64 // the entry version's stored priority in [0,1]
	AgeDays           float64 // age of the current version, for recency decay
	Usefulness        float64 // Laplace-smoothed success rate, neutral 0.5 when untracked
	ContextSimilarity float64 // overlap between the query's tags and the entry's tags, in [0,1]
}

// Weights controls how much each signal contributes to the final score.
type Weights struct {
	FullText          float64
	Fuzzy             float64
	Semantic          float64
	Relation          float64
	Priority          float64
	Recency           float64
	Usefulness        float64
	ContextSimilarity float64
}

// DefaultWeights is a hand-tuned signal blend, held in an explicit struct so
// the scoring mix can be reconfigured per deployment without touching code.
func DefaultWeights() Weights {
	return Weights{
		FullText:          0.25,
		Fuzzy:             0.08,
		Semantic:          0.28,
		Relation:          0.08,
		Priority:          0.08,
		Recency:           0.05,
		Usefulness:        0.10,
		ContextSimilarity: 0.08,
	}
}

// Scorer combines Signals into a final score and tracks entries whose score
// crosses the configured critical-priority threshold.
type Scorer struct {
	weights       Weights
	halfLifeDays  float64
	criticalCache *cache.TTLCache[string, float64]
	threshold     float64
}

// NewScorer builds a Scorer from config.RankConfig.
func NewScorer(cfg config.RankConfig) *Scorer {
	return &Scorer{
		weights:       DefaultWeights(),
		halfLifeDays:  cfg.RecencyHalfLifeDays,
		criticalCache: cache.New[string, float64](512, cfg.GetPriorityCacheTTL()),
		threshold:     cfg.CriticalPriorityThreshold,
	}
}

// Score combines every signal into a single [0,1]-ish ranking value. Missing
// signals (a candidate that wasn't hit by a given source) contribute zero
// rather than skewing the average, so candidates collected by more sources
// naturally outrank single-source candidates.
func (s *Scorer) Score(sig Signals) float64 {
	w := s.weights

	score := 0.0
	if sig.FullTextHit {
		score += w.FullText * sig.FullTextRank
	}
	if sig.FuzzyHit {
		score += w.Fuzzy * sig.FuzzyScore
	}
	if sig.SemanticHit {
		score += w.Semantic * clamp01((sig.Similarity+1)/2)
	}
	if sig.RelationHit {
		score += w.Relation * relationDecay(sig.RelationHops)
	}
	score += w.Priority * clamp01(sig.Priority)
	score += w.Recency * s.recencyDecay(sig.AgeDays)
	score += w.Usefulness * clamp01(sig.Usefulness)
	score += w.ContextSimilarity * clamp01(sig.ContextSimilarity)

	return score
}

// Threshold returns the configured critical-priority threshold, consulted by
// the query pipeline when a caller asks to see only critical-priority
// candidates.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// recencyDecay applies exponential half-life decay: a signal at exactly
// halfLifeDays old contributes 0.5.
func (s *Scorer) recencyDecay(ageDays float64) float64 {
	if s.halfLifeDays <= 0 {
		return 1.0
	}
	return math.Pow(0.5, ageDays/s.halfLifeDays)
}

func relationDecay(hops int) float64 {
	if hops <= 0 {
		return 0
	}
	return 1.0 / float64(hops)
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

// MarkIfCritical records entryID's score if it crosses the critical
// threshold, for fast "what needs attention" lookups by the librarian.
func (s *Scorer) MarkIfCritical(ctx context.Context, entryID string, score float64) {
	if score < s.threshold {
		return
	}
	s.criticalCache.Set(entryID, score)
	logging.RankDebug("entry %s marked critical (score=%.3f >= %.3f)", entryID, score, s.threshold)
}

// IsCritical reports whether entryID is currently cached as critical,
// returning the score recorded when it was marked.
func (s *Scorer) IsCritical(entryID string) (float64, bool) {
	return s.criticalCache.Get(entryID)
}
