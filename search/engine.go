package search

import (
	"context"
	"errors"
	"fmt"
	"knowledge/logger"
	"knowledge/model"
	"knowledge/types"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Retriever is the slice of the storage layer the engine needs.
type Retriever interface {
	LexicalSearch(ctx context.Context, query string, limit int, namespace string) ([]types.LexicalHit, error)
	VectorSearch(ctx context.Context, embedding []float32, limit int, namespace string) ([]types.VectorHit, error)
}

type Config struct {
	DefaultLimit     int
	MaxLimit         int
	Candidates       int
	RRFK             int
	RerankMultiplier int
}

func DefaultConfig() Config {
	return Config{
		DefaultLimit:     10,
		MaxLimit:         100,
		Candidates:       50,
		RRFK:             DefaultRRFK,
		RerankMultiplier: 3,
	}
}

// Engine runs hybrid retrieval: lexical and vector searches in parallel,
// reciprocal rank fusion, optional reranking. The embedder and reranker are
// both optional; a nil or failing embedder degrades to lexical-only results
// instead of failing the request.
type Engine struct {
	store    Retriever
	embedder model.Embedder
	reranker model.Reranker
	cfg      Config
	log      *logger.Logger
}

func NewEngine(store Retriever, embedder model.Embedder, reranker model.Reranker, cfg Config, log *logger.Logger) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = 50
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.RerankMultiplier <= 0 {
		cfg.RerankMultiplier = 3
	}
	return &Engine{store: store, embedder: embedder, reranker: reranker, cfg: cfg, log: log}
}

var ErrEmptyQuery = errors.New("empty query")

// Search executes one hybrid search. A hard error is returned only when the
// request is invalid or the lexical leg fails; embedding and reranking
// failures fall back with Degraded / Reranked=false plus a warning.
func (e *Engine) Search(ctx context.Context, params types.SearchParams) (*types.SearchResponse, error) {
	start := time.Now()

	if params.Query == "" {
		return nil, ErrEmptyQuery
	}
	limit := params.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	resp := &types.SearchResponse{Results: []types.SearchResultItem{}}

	var (
		lexical []types.LexicalHit
		vector  []types.VectorHit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.store.LexicalSearch(gctx, params.Query, e.cfg.Candidates, params.Namespace)
		if err != nil {
			return fmt.Errorf("lexical retrieval: %w", err)
		}
		lexical = hits
		return nil
	})
	g.Go(func() error {
		if e.embedder == nil {
			resp.Degraded = true
			resp.Warnings = append(resp.Warnings, "vector search unavailable: no embedder configured")
			return nil
		}
		emb, err := e.embedder.Embed(gctx, params.Query)
		if err != nil {
			e.log.Warn("query embedding failed, degrading to lexical only", "error", err)
			resp.Degraded = true
			resp.Warnings = append(resp.Warnings, "vector search unavailable: embedding failed")
			return nil
		}
		hits, err := e.store.VectorSearch(gctx, emb, e.cfg.Candidates, params.Namespace)
		if err != nil {
			e.log.Warn("vector retrieval failed, degrading to lexical only", "error", err)
			resp.Degraded = true
			resp.Warnings = append(resp.Warnings, "vector search unavailable: retrieval failed")
			return nil
		}
		vector = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := fuse(lexicalEntries(lexical), vectorEntries(vector), e.cfg.RRFK)

	if params.Rerank {
		if e.reranker == nil {
			resp.Warnings = append(resp.Warnings, "reranker not configured")
		} else if len(candidates) > 0 {
			candidates = e.rerank(ctx, params.Query, candidates, limit, resp)
		}
	}

	for _, c := range candidates {
		if params.MinScore != nil && c.Score < *params.MinScore {
			continue
		}
		resp.Results = append(resp.Results, types.SearchResultItem{
			ChunkID:   c.ChunkID,
			ContentID: c.ContentID,
			Title:     c.Title,
			ChunkText: c.ChunkText,
			Score:     c.Score,
			SourceRef: c.SourceRef,
			Namespace: c.Namespace,
		})
		if len(resp.Results) == limit {
			break
		}
	}
	resp.TotalFound = len(resp.Results)
	resp.SearchTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

// rerank reorders the top candidates by reranker score. It only ever drops
// or reorders fused candidates, never introduces new ones; on failure the
// fused order stands.
func (e *Engine) rerank(ctx context.Context, query string, candidates []Candidate, limit int, resp *types.SearchResponse) []Candidate {
	pool := limit * e.cfg.RerankMultiplier
	if pool > len(candidates) {
		pool = len(candidates)
	}
	head, tail := candidates[:pool], candidates[pool:]

	docs := make([]model.RerankDoc, len(head))
	byID := make(map[string]Candidate, len(head))
	for i, c := range head {
		id := c.ChunkID.String()
		docs[i] = model.RerankDoc{ID: id, Text: c.ChunkText}
		byID[id] = c
	}

	scores, err := e.reranker.Rerank(ctx, query, docs)
	if err != nil {
		e.log.Warn("rerank failed, keeping fused order", "error", err)
		resp.Warnings = append(resp.Warnings, "rerank unavailable")
		return candidates
	}

	reordered := make([]Candidate, 0, len(candidates))
	for _, s := range scores {
		c, ok := byID[s.ID]
		if !ok {
			continue
		}
		c.Score = s.Score
		reordered = append(reordered, c)
	}
	sort.SliceStable(reordered, func(i, j int) bool {
		return reordered[i].Score > reordered[j].Score
	})
	resp.Reranked = true
	return append(reordered, tail...)
}

// BatchSearch runs up to types.BatchSearchCap queries concurrently. Each
// slot succeeds or fails on its own; one bad query never sinks the batch.
func (e *Engine) BatchSearch(ctx context.Context, params types.BatchSearchParams) (*types.BatchSearchResponse, error) {
	if len(params.Queries) == 0 {
		return nil, ErrEmptyQuery
	}
	if len(params.Queries) > types.BatchSearchCap {
		return nil, fmt.Errorf("batch of %d exceeds cap of %d", len(params.Queries), types.BatchSearchCap)
	}

	out := &types.BatchSearchResponse{
		Results: make([]types.BatchSearchEntry, len(params.Queries)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, q := range params.Queries {
		if q.Limit == 0 {
			q.Limit = params.Limit
		}
		g.Go(func() error {
			resp, err := e.Search(gctx, q)
			entry := types.BatchSearchEntry{Query: q.Query}
			if err != nil {
				entry.Error = err.Error()
			} else {
				entry.Response = resp
			}
			out.Results[i] = entry
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-slot errors are captured in entries

	for _, r := range out.Results {
		if r.Error == "" {
			out.Successful++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

func lexicalEntries(hits []types.LexicalHit) []rankedEntry {
	out := make([]rankedEntry, len(hits))
	for i, h := range hits {
		out[i] = rankedEntry{
			ContentID: h.ContentID,
			Title:     h.Title,
			Namespace: h.Namespace,
			CreatedAt: h.CreatedAt,
			ChunkID:   h.ChunkID,
			ChunkText: h.ChunkText,
			SourceRef: h.SourceRef,
		}
	}
	return out
}

func vectorEntries(hits []types.VectorHit) []rankedEntry {
	out := make([]rankedEntry, len(hits))
	for i, h := range hits {
		out[i] = rankedEntry{
			ContentID: h.ContentID,
			Title:     h.Title,
			Namespace: h.Namespace,
			CreatedAt: h.CreatedAt,
			ChunkID:   h.ChunkID,
			ChunkText: h.ChunkText,
			SourceRef: h.SourceRef,
		}
	}
	return out
}
