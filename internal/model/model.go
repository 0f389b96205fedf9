// Package model defines the entity/row types persisted by the memory store:
// scopes, versioned entries (guideline/knowledge/tool/experience), evidence,
// relations, the typed knowledge graph, tags, file locks, embeddings, and
// audit records: four versioned entry kinds plus the graph/tag/lock/audit
// side tables, all as plain structs mirroring their table shape.
package model

import "time"

// ScopeType is the fixed scope hierarchy, most to least specific.
type ScopeType string

const (
	ScopeSession ScopeType = "session"
	ScopeProject ScopeType = "project"
	ScopeOrg     ScopeType = "org"
	ScopeGlobal  ScopeType = "global"
)

// Scope identifies a partition of the knowledge base. Scope is a tree:
// session -> project -> org -> global, each node pointing at its parent.
type Scope struct {
	ID        string    `json:"id"`
	Type      ScopeType `json:"type"`
	ParentID  string    `json:"parentId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntryKind enumerates the four versioned entry kinds.
type EntryKind string

const (
	KindGuideline EntryKind = "guideline"
	KindKnowledge EntryKind = "knowledge"
	KindTool      EntryKind = "tool"
	KindExperience EntryKind = "experience"
)

// EntryIdentity is the immutable identity row for a versioned entry: one row
// per logical entry, independent of how many versions it has accumulated.
type EntryIdentity struct {
	ID        string    `json:"id"`
	Kind      EntryKind `json:"kind"`
	ScopeID   string    `json:"scopeId"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntryVersion is one immutable version in an entry's version chain.
// Version numbers are dense and monotonic starting at 1; the highest version
// number with IsActive true (on the owning EntryIdentity) is current.
type EntryVersion struct {
	ID          string    `json:"id"`
	EntryID     string    `json:"entryId"`
	Version     int       `json:"version"`
	Kind        EntryKind `json:"kind"`
	Payload     string    `json:"payload"` // JSON-encoded kind-specific payload
	ContentHash string    `json:"contentHash"`
	Priority    float64   `json:"priority"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy,omitempty"`
}

// GuidelinePayload is the duck-typed payload for KindGuideline entries.
type GuidelinePayload struct {
	Text       string   `json:"text"`
	Rationale  string   `json:"rationale,omitempty"`
	AppliesTo  []string `json:"appliesTo,omitempty"` // glob patterns, language names, etc.
}

// KnowledgePayload is the duck-typed payload for KindKnowledge entries.
type KnowledgePayload struct {
	Text    string   `json:"text"`
	Source  string   `json:"source,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// ToolPayload is the duck-typed payload for KindTool entries.
type ToolPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Signature   string `json:"signature,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// ExperiencePayload is the duck-typed payload for KindExperience entries.
type ExperiencePayload struct {
	Situation string  `json:"situation"`
	Action    string  `json:"action"`
	Outcome   string  `json:"outcome"` // "success", "failure", "partial"
	Lesson    string  `json:"lesson,omitempty"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
}

// Usefulness returns a Laplace-smoothed success rate for the experience,
// used as one of the composite ranking signals.
func (p ExperiencePayload) Usefulness() float64 {
	return float64(p.Successes+1) / float64(p.Successes+p.Failures+2)
}

// Evidence is an immutable supporting record attached to an entry version
// (e.g. a citation, an observed outcome, a file excerpt). Evidence rows are
// never updated once written.
type Evidence struct {
	ID        string    `json:"id"`
	EntryID   string    `json:"entryId"`
	VersionID string    `json:"versionId"`
	Kind      string    `json:"kind"` // "citation", "outcome", "excerpt"
	Content   string    `json:"content"`
	SourceRef string    `json:"sourceRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Relation is an untyped association between two entries (distinct from the
// typed knowledge graph below), e.g. "entry A supersedes entry B."
type Relation struct {
	ID        string    `json:"id"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Kind      string    `json:"kind"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}

// NodeType enumerates the typed knowledge-graph node kinds.
type NodeType string

const (
	NodeEntry  NodeType = "entry"
	NodeSymbol NodeType = "symbol"
	NodeFile   NodeType = "file"
)

// GraphNode is a node in the typed knowledge graph (entries, code symbols,
// files extracted by the entity index).
type GraphNode struct {
	ID         string   `json:"id"`
	Type       NodeType `json:"type"`
	Label      string   `json:"label"`
	Properties string   `json:"properties,omitempty"` // JSON-encoded
}

// EdgeType is the fixed, closed set of typed graph edges. The query
// pipeline's relation-graph candidate stage only ever walks these edges; the
// store deliberately does not support arbitrary user-defined edge types
// (general graph-database semantics are out of scope).
type EdgeType string

const (
	EdgeCalls        EdgeType = "calls"
	EdgeImports      EdgeType = "imports"
	EdgeContains     EdgeType = "contains"
	EdgeDependsOn    EdgeType = "depends_on"
	EdgeAppliesTo    EdgeType = "applies_to"
	EdgeSupersedes   EdgeType = "supersedes"
	EdgeConflictsWith EdgeType = "conflicts_with"
	EdgeParentOf     EdgeType = "parent_of"
	EdgeBlocks       EdgeType = "blocks"
	EdgeFollows      EdgeType = "follows"
)

// GraphEdge connects two GraphNodes with a typed, weighted relation.
type GraphEdge struct {
	ID        string   `json:"id"`
	FromNode  string   `json:"fromNode"`
	ToNode    string   `json:"toNode"`
	Type      EdgeType `json:"type"`
	Weight    float64  `json:"weight"`
	ValidFrom time.Time `json:"validFrom"`
	ValidTo   *time.Time `json:"validTo,omitempty"`
}

// Tag is a many-to-many label applied to an entry.
type Tag struct {
	EntryID string `json:"entryId"`
	Label   string `json:"label"`
}

// FileLock is an advisory, TTL-bounded lock over an absolute file path.
type FileLock struct {
	Path      string    `json:"path"`
	Owner     string    `json:"owner"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Reason    string    `json:"reason,omitempty"`
}

// Embedding is a vector associated with an entry version, used by the
// embedding store's ANN index.
type Embedding struct {
	EntryID   string    `json:"entryId"`
	VersionID string    `json:"versionId"`
	Vector    []float32 `json:"vector"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditRecord is an immutable, append-only event emitted by the audit bus.
type AuditRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"eventType"`
	EntryID   string    `json:"entryId,omitempty"`
	ScopeID   string    `json:"scopeId,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"` // JSON-encoded
}
