package jobs

import "context"

// EmbeddingPayload is the Job.Payload for TopicEmbedding: embed content for
// a memory that was stored synchronously without blocking on the embedding
// provider (spec.md §4.8 store: "embedding generation happens async").
type EmbeddingPayload struct {
	MemoryID string
	Content  interface{}
}

// Embedder is the narrow capability an embedding job handler needs.
// internal/engine.Engine satisfies this.
type Embedder interface {
	EmbedAndStore(ctx context.Context, memoryID string, content interface{}) error
}

// NewEmbeddingHandler builds the TopicEmbedding Handler, grounded on the
// teacher's enrichmentWorker embedding-only path (enrichment_worker.go):
// generate the vector and persist it, leaving retryable errors to the
// queue's backoff/retry loop.
func NewEmbeddingHandler(embedder Embedder) Handler {
	return func(ctx context.Context, job Job) error {
		payload, ok := job.Payload.(EmbeddingPayload)
		if !ok {
			return nil
		}
		return embedder.EmbedAndStore(ctx, payload.MemoryID, payload.Content)
	}
}
