package store

import (
	"context"
	"errors"
	"fmt"
	"knowledge/types"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var (
	// ErrNotFound marks a typed miss: the row does not exist or is not in
	// the state the operation requires.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity marks a rejected write that would violate the FSRS
	// memory-state guard. Never retried automatically.
	ErrIntegrity = errors.New("integrity violation")
)

type DBStorer interface {
	SaveContent(context.Context, types.Content) error
	GetContentByID(context.Context, uuid.UUID) (*types.Content, error)
	GetContentBySourcePath(context.Context, string) (*types.Content, error)
	SoftDeleteContent(context.Context, uuid.UUID) error
	SaveChunks(context.Context, []types.Chunk) error
	DeleteChunksByContentID(context.Context, uuid.UUID) error

	LexicalSearch(ctx context.Context, query string, limit int, namespace string) ([]types.LexicalHit, error)
	VectorSearch(ctx context.Context, embedding []float32, limit int, namespace string) ([]types.VectorHit, error)

	EnrollReview(ctx context.Context, contentID uuid.UUID, now time.Time) (bool, error)
	GetReviewState(context.Context, uuid.UUID) (*types.ReviewState, error)
	UpdateReviewState(context.Context, *types.ReviewState) error
	DueItems(ctx context.Context, now time.Time, limit int) ([]types.DueItem, error)
	ReviewStats(ctx context.Context, now time.Time) (*types.ReviewStats, error)
	SetReviewStatus(ctx context.Context, contentID uuid.UUID, status types.ReviewStatus) error
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

func (p *PostgresStore) SaveContent(ctx context.Context, c types.Content) error {
	query := `INSERT INTO content (id, type, title, summary, tags, auto_tags, metadata, content_hash, source_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			tags = EXCLUDED.tags,
			auto_tags = EXCLUDED.auto_tags,
			metadata = EXCLUDED.metadata,
			content_hash = EXCLUDED.content_hash,
			source_path = EXCLUDED.source_path,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
		`
	_, err := p.pool.Exec(
		ctx,
		query,
		c.ID,
		c.Type,
		c.Title,
		c.Summary,
		c.Tags,
		c.AutoTags,
		c.Metadata,
		c.ContentHash,
		c.SourcePath,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) GetContentByID(ctx context.Context, id uuid.UUID) (*types.Content, error) {
	return p.getContent(ctx, "id = $1", id)
}

func (p *PostgresStore) GetContentBySourcePath(ctx context.Context, sourcePath string) (*types.Content, error) {
	return p.getContent(ctx, "source_path = $1 AND deleted_at IS NULL", sourcePath)
}

func (p *PostgresStore) getContent(ctx context.Context, where string, arg any) (*types.Content, error) {
	query := fmt.Sprintf(`SELECT id, type, title, summary, tags, auto_tags, metadata, content_hash, source_path, created_at, updated_at, deleted_at
		FROM content WHERE %s`, where)

	c := &types.Content{}
	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.Type,
		&c.Title,
		&c.Summary,
		&c.Tags,
		&c.AutoTags,
		&c.Metadata,
		&c.ContentHash,
		&c.SourcePath,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SoftDeleteContent tombstones a content row. The row and its chunks stay in
// place but disappear from every search query.
func (p *PostgresStore) SoftDeleteContent(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE content SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) SaveChunks(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
    INSERT INTO chunks (id, content_id, chunk_index, chunk_text, start_offset, end_offset, embedding, source_ref)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	for _, c := range chunks {
		batch.Queue(query, c.ID, c.ContentID, c.Index, c.Text, c.StartOffset, c.EndOffset, pgvector.NewVector(c.Embedding), c.SourceRef)
	}
	return p.pool.SendBatch(ctx, batch).Close()
}

func (p *PostgresStore) DeleteChunksByContentID(ctx context.Context, contentID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM chunks WHERE content_id = $1", contentID)
	return err
}

func (p *PostgresStore) createTables(ctx context.Context) error {
	query := `
    CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS content (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL CHECK (type IN ('bookmark','youtube','file','note')),
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		auto_tags TEXT[] NOT NULL DEFAULT '{}',
		metadata JSONB NOT NULL DEFAULT '{}',
		content_hash TEXT NOT NULL,
		source_path TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		deleted_at TIMESTAMP WITH TIME ZONE,
		fts_vector TSVECTOR
	);

	-- One live row per source path; tombstoned rows do not collide
	CREATE UNIQUE INDEX IF NOT EXISTS idx_content_source_path ON content(source_path) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_content_fts ON content USING gin (fts_vector);

	CREATE OR REPLACE FUNCTION content_fts_update() RETURNS trigger AS $fts$
	BEGIN
		NEW.fts_vector :=
			setweight(to_tsvector('english', coalesce(NEW.title, '')), 'A') ||
			setweight(to_tsvector('english', coalesce(NEW.summary, '')), 'B') ||
			setweight(to_tsvector('english', array_to_string(NEW.tags || NEW.auto_tags, ' ')), 'C');
		RETURN NEW;
	END
	$fts$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS trg_content_fts ON content;
	CREATE TRIGGER trg_content_fts BEFORE INSERT OR UPDATE ON content
	FOR EACH ROW EXECUTE FUNCTION content_fts_update();

    CREATE TABLE IF NOT EXISTS chunks (
        id UUID PRIMARY KEY,
        content_id UUID NOT NULL REFERENCES content(id) ON DELETE CASCADE,
        chunk_index INT NOT NULL,
        chunk_text TEXT NOT NULL,
        start_offset INT NOT NULL DEFAULT 0,
        end_offset INT NOT NULL DEFAULT 0,
        embedding vector(768),
        source_ref TEXT NOT NULL DEFAULT '',
        UNIQUE (content_id, chunk_index)
    );

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);
	CREATE INDEX IF NOT EXISTS idx_chunks_content_id ON chunks(content_id);

	CREATE TABLE IF NOT EXISTS review_queue (
		content_id UUID PRIMARY KEY REFERENCES content(id) ON DELETE CASCADE,
		state SMALLINT NOT NULL DEFAULT 0 CHECK (state BETWEEN 0 AND 3),
		stability DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (stability >= 0),
		difficulty DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (difficulty BETWEEN 0 AND 10),
		step INT NOT NULL DEFAULT 0,
		reps INT NOT NULL DEFAULT 0,
		lapses INT NOT NULL DEFAULT 0,
		next_review TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		last_reviewed TIMESTAMP WITH TIME ZONE,
		review_count INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','suspended'))
	);

	CREATE INDEX IF NOT EXISTS idx_review_due ON review_queue(next_review) WHERE status = 'active';
    `
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createTables(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
