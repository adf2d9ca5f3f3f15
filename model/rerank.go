package model

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// RerankDoc is a candidate passed to the reranker, identified by an opaque
// string id owned by the caller.
type RerankDoc struct {
	ID   string
	Text string
}

// RerankScore is the reranker's relevance score for one candidate.
type RerankScore struct {
	ID    string
	Score float64
}

// Reranker scores (query, candidate) pairs for finer relevance than the
// first-stage retrieval.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []RerankDoc) ([]RerankScore, error)
}

// OllamaReranker scores candidates by embedding query and candidate with the
// rerank model and taking cosine similarity. The dedicated rerank models
// (mxbai-rerank family) need special handling in Ollama, so this keeps the
// simpler bi-encoder formulation with a rerank-tuned embedding model.
type OllamaReranker struct {
	embedder      *OllamaEmbedder
	maxConcurrent int
}

func NewOllamaReranker(apiURL, modelName string, timeout time.Duration) *OllamaReranker {
	return &OllamaReranker{
		embedder:      NewOllamaEmbedder(apiURL, modelName, timeout),
		maxConcurrent: 5,
	}
}

// NewRerankerFromEnv builds the Ollama reranker from environment variables.
// Returns nil when no rerank model is configured; the search engine treats
// a nil reranker as "unavailable" and flags reranked=false.
func NewRerankerFromEnv() *OllamaReranker {
	modelName := os.Getenv("OLLAMA_RERANK_MODEL")
	if modelName == "" {
		return nil
	}
	url := os.Getenv("OLLAMA_URL")
	if url == "" {
		url = "http://localhost:11434"
	}
	return NewOllamaReranker(url, modelName, 30*time.Second)
}

// Rerank embeds the query once and all documents concurrently, returning one
// score per input document in input order. A failure on any candidate fails
// the whole pass; the caller falls back to the fused order.
func (r *OllamaReranker) Rerank(ctx context.Context, query string, docs []RerankDoc) ([]RerankScore, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rerank query embedding: %w", err)
	}

	scores := make([]RerankScore, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)
	for i, doc := range docs {
		g.Go(func() error {
			vec, err := r.embedder.Embed(gctx, doc.Text)
			if err != nil {
				return fmt.Errorf("rerank candidate %s: %w", doc.ID, err)
			}
			scores[i] = RerankScore{ID: doc.ID, Score: cosineSimilarity(queryVec, vec)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
