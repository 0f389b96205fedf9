package core

import (
	"context"
	"time"

	"agentmemory/internal/audit"
	"agentmemory/internal/config"
	"agentmemory/internal/embedding"
	"agentmemory/internal/filelock"
	"agentmemory/internal/index"
	"agentmemory/internal/librarian"
	"agentmemory/internal/logging"
	"agentmemory/internal/query"
	"agentmemory/internal/rank"
	"agentmemory/internal/repo"
	"agentmemory/internal/scope"
	"agentmemory/internal/storage"
)

// Store is the single entry point handed to cmd/memoryctl: it owns every
// subsystem (storage, repositories, indices, query pipeline, file locks,
// audit bus, librarian) and exposes the typed request/response operations
// defined in guideline.go, knowledge.go, tool.go, experience.go, query.go,
// filelock.go, and graph.go.
type Store struct {
	Engine  *storage.Engine
	Config  *config.Config
	Scopes  *scope.Resolver
	Entries *repo.EntryStore

	Guidelines  *repo.GuidelineRepo
	Knowledges  *repo.KnowledgeRepo
	Tools       *repo.ToolRepo
	Experiences *repo.ExperienceRepo
	Evidence    *repo.EvidenceRepo
	Relations   *repo.RelationRepo
	Graph       *repo.GraphRepo
	Tags        *repo.TagRepo

	FullText   *index.FullTextIndex
	Embeddings *index.EmbeddingStore
	Entities   *index.EntityIndex

	Pipeline  *query.Pipeline
	Scorer    *rank.Scorer
	Locks     *filelock.Coordinator
	Bus       *audit.Bus
	Librarian *librarian.Librarian

	embedder embedding.EmbeddingEngine
}

// Open wires every subsystem together from cfg and returns a ready Store.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	engine, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
	})
	if err != nil {
		logging.BootWarn("embedding engine unavailable, semantic search disabled: %v", err)
		embedder = nil
	}

	scopes := scope.NewResolver(engine, 256, 5*time.Minute)
	entries := repo.NewEntryStore(engine)

	fullText := index.NewFullTextIndex(engine)
	embeddings := index.NewEmbeddingStore(engine)
	entities := index.NewEntityIndex(engine)

	graph := repo.NewGraphRepo(engine)
	tags := repo.NewTagRepo(engine)
	experiences := repo.NewExperienceRepo(entries)

	scorer := rank.NewScorer(cfg.Rank)
	pipeline := query.NewPipeline(
		entries, experiences, scopes, fullText, embeddings, graph, tags, embedder, scorer,
		cfg.Query.GetCacheTTL(), cfg.Query.CacheMaxEntries,
	)

	locks := filelock.NewCoordinator(engine)
	bus := audit.NewBus(engine)
	lib := librarian.New(engine, entries, locks, bus, 30*24*time.Hour)

	logging.Boot("memory store opened (db=%s, embedder=%v)", cfg.Storage.DatabasePath, embedder != nil)

	return &Store{
		Engine:      engine,
		Config:      cfg,
		Scopes:      scopes,
		Entries:     entries,
		Guidelines:  repo.NewGuidelineRepo(entries),
		Knowledges:  repo.NewKnowledgeRepo(entries),
		Tools:       repo.NewToolRepo(entries),
		Experiences: experiences,
		Evidence:    repo.NewEvidenceRepo(engine),
		Relations:   repo.NewRelationRepo(engine),
		Graph:       graph,
		Tags:        tags,
		FullText:    fullText,
		Embeddings:  embeddings,
		Entities:    entities,
		Pipeline:    pipeline,
		Scorer:      scorer,
		Locks:       locks,
		Bus:         bus,
		Librarian:   lib,
		embedder:    embedder,
	}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.Engine.Close()
}
