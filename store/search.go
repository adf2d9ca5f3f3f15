package store

import (
	"context"
	"fmt"
	"knowledge/types"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// namespaceFilter builds the WHERE fragment scoping a search to a namespace.
// A trailing '*' switches from exact match to prefix match. The namespace
// lives in the content metadata map, absent means "default".
func namespaceFilter(namespace string, argIndex int) (string, []any) {
	if namespace == "" {
		return "", nil
	}
	if strings.HasSuffix(namespace, "*") {
		pattern := strings.TrimSuffix(namespace, "*") + "%"
		return fmt.Sprintf(" AND COALESCE(c.metadata->>'namespace', 'default') LIKE $%d", argIndex), []any{pattern}
	}
	return fmt.Sprintf(" AND COALESCE(c.metadata->>'namespace', 'default') = $%d", argIndex), []any{namespace}
}

// LexicalSearch ranks non-deleted content by ts_rank_cd over the weighted
// title/summary/tags vector, returning each match with its leading chunk.
func (p *PostgresStore) LexicalSearch(ctx context.Context, query string, limit int, namespace string) ([]types.LexicalHit, error) {
	nsClause, nsArgs := namespaceFilter(namespace, 3)
	sql := fmt.Sprintf(`
		SELECT c.id, c.title,
		       COALESCE(c.metadata->>'namespace', 'default') AS namespace,
		       c.created_at,
		       ts_rank_cd(c.fts_vector, query) AS rank,
		       COALESCE(ch.id, '00000000-0000-0000-0000-000000000000'::uuid),
		       COALESCE(ch.chunk_text, ''),
		       COALESCE(ch.source_ref, '')
		FROM content c
		CROSS JOIN plainto_tsquery('english', $1) query
		LEFT JOIN LATERAL (
			SELECT id, chunk_text, source_ref
			FROM chunks
			WHERE content_id = c.id
			ORDER BY chunk_index
			LIMIT 1
		) ch ON true
		WHERE c.fts_vector @@ query
		  AND c.deleted_at IS NULL%s
		ORDER BY rank DESC
		LIMIT $2
	`, nsClause)

	args := append([]any{query, limit}, nsArgs...)
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []types.LexicalHit
	for rows.Next() {
		var h types.LexicalHit
		if err := rows.Scan(
			&h.ContentID,
			&h.Title,
			&h.Namespace,
			&h.CreatedAt,
			&h.Rank,
			&h.ChunkID,
			&h.ChunkText,
			&h.SourceRef,
		); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// VectorSearch returns the best-matching chunk per content by cosine
// similarity against the IVF index, one hit per content.
func (p *PostgresStore) VectorSearch(ctx context.Context, embedding []float32, limit int, namespace string) ([]types.VectorHit, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	nsClause, nsArgs := namespaceFilter(namespace, 3)
	sql := fmt.Sprintf(`
		WITH ranked_chunks AS (
			SELECT
				c.id AS content_id,
				c.title,
				COALESCE(c.metadata->>'namespace', 'default') AS namespace,
				c.created_at,
				ch.id AS chunk_id,
				ch.chunk_text,
				ch.source_ref,
				1 - (ch.embedding <=> $1) AS similarity,
				ROW_NUMBER() OVER (PARTITION BY c.id ORDER BY ch.embedding <=> $1) AS rn
			FROM chunks ch
			JOIN content c ON ch.content_id = c.id
			WHERE c.deleted_at IS NULL
			  AND ch.embedding IS NOT NULL%s
		)
		SELECT content_id, title, namespace, created_at, chunk_id, chunk_text, source_ref, similarity
		FROM ranked_chunks
		WHERE rn = 1
		ORDER BY similarity DESC
		LIMIT $2
	`, nsClause)

	args := append([]any{pgvector.NewVector(embedding), limit}, nsArgs...)
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []types.VectorHit
	for rows.Next() {
		var h types.VectorHit
		if err := rows.Scan(
			&h.ContentID,
			&h.Title,
			&h.Namespace,
			&h.CreatedAt,
			&h.ChunkID,
			&h.ChunkText,
			&h.SourceRef,
			&h.Similarity,
		); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
