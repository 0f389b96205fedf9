package index

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"agentmemory/internal/embedding"
	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/storage"
)

// pendingEmbedding is one version row awaiting a vector.
type pendingEmbedding struct {
	entryID   string
	versionID string
	payload   string
}

// ReembedAll regenerates embeddings for every version that does not yet have
// one, as a bounded-concurrency queue: up to maxConcurrent batches of
// batchSize texts are embedded at once, backpressured by a weighted
// semaphore so a slow or rate-limited provider can't spawn unbounded
// goroutines. Returns the number of versions successfully re-embedded.
func ReembedAll(ctx context.Context, engine *storage.Engine, store *EmbeddingStore, engineImpl embedding.EmbeddingEngine, batchSize, maxConcurrent int) (int, error) {
	if engineImpl == nil {
		return 0, errs.New(errs.CodeExtractionUnavailable, "no embedding engine configured")
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	pending, err := pendingEmbeddings(ctx, engine)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		logging.IndexDebug("ReembedAll: no versions need re-embedding")
		return 0, nil
	}
	logging.Index("ReembedAll: found %d versions to re-embed", len(pending))

	batches := chunkPending(pending, batchSize)
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	var (
		mu        sync.Mutex
		completed int
		firstErr  error
	)

	var wg sync.WaitGroup
	for _, batch := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(batch []pendingEmbedding) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := reembedBatch(ctx, store, engineImpl, batch)
			mu.Lock()
			defer mu.Unlock()
			completed += n
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(batch)
	}
	wg.Wait()

	if firstErr != nil {
		logging.Get(logging.CategoryIndex).Warn("ReembedAll: completed %d/%d before error: %v", completed, len(pending), firstErr)
		return completed, firstErr
	}
	logging.Index("ReembedAll: re-embedded %d versions", completed)
	return completed, nil
}

func reembedBatch(ctx context.Context, store *EmbeddingStore, engineImpl embedding.EmbeddingEngine, batch []pendingEmbedding) (int, error) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.payload
	}

	vectors, err := engineImpl.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, errs.Wrap(errs.CodeExtractionFailed, "batch embedding failed", err)
	}

	completed := 0
	for i, p := range batch {
		if i >= len(vectors) {
			break
		}
		if err := store.Put(ctx, p.entryID, p.versionID, vectors[i], engineImpl.Name()); err != nil {
			return completed, err
		}
		completed++
	}
	return completed, nil
}

func pendingEmbeddings(ctx context.Context, engine *storage.Engine) ([]pendingEmbedding, error) {
	rows, err := engine.DB().QueryContext(ctx, `
		SELECT v.entry_id, v.id, v.payload
		FROM entry_versions v
		LEFT JOIN embeddings e ON e.version_id = v.id
		WHERE e.version_id IS NULL
	`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to query versions missing embeddings", err)
	}
	defer rows.Close()

	var out []pendingEmbedding
	for rows.Next() {
		var p pendingEmbedding
		if err := rows.Scan(&p.entryID, &p.versionID, &p.payload); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan pending embedding row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func chunkPending(pending []pendingEmbedding, size int) [][]pendingEmbedding {
	var out [][]pendingEmbedding
	for i := 0; i < len(pending); i += size {
		end := i + size
		if end > len(pending) {
			end = len(pending)
		}
		out = append(out, pending[i:end])
	}
	return out
}
