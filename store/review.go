package store

import (
	"context"
	"fmt"
	"knowledge/types"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EnrollReview inserts a fresh review row for the content. Returns false if
// the content is already enrolled.
func (p *PostgresStore) EnrollReview(ctx context.Context, contentID uuid.UUID, now time.Time) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO review_queue (content_id, state, stability, difficulty, step, reps, lapses, next_review, status)
		VALUES ($1, 0, 0, 0, 0, 0, 0, $2, 'active')
		ON CONFLICT (content_id) DO NOTHING
	`, contentID, now)
	if err != nil {
		return false, fmt.Errorf("enroll review: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresStore) GetReviewState(ctx context.Context, contentID uuid.UUID) (*types.ReviewState, error) {
	var (
		rs       types.ReviewState
		rawState int
	)
	err := p.pool.QueryRow(ctx, `
		SELECT content_id, state, stability, difficulty, step, reps, lapses,
		       next_review, last_reviewed, review_count, status
		FROM review_queue
		WHERE content_id = $1
	`, contentID).Scan(
		&rs.ContentID,
		&rawState,
		&rs.Stability,
		&rs.Difficulty,
		&rs.Step,
		&rs.Reps,
		&rs.Lapses,
		&rs.NextReview,
		&rs.LastReviewed,
		&rs.ReviewCount,
		&rs.Status,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get review state: %w", err)
	}
	state, err := types.MemoryStateFromInt(rawState)
	if err != nil {
		return nil, fmt.Errorf("%w: content %s: %v", ErrIntegrity, contentID, err)
	}
	rs.State = state
	return &rs, nil
}

// UpdateReviewState writes the post-review scheduling fields in one statement.
// The state is validated before touching the database: a reviewer outcome
// that violates the schema bounds never reaches the row.
func (p *PostgresStore) UpdateReviewState(ctx context.Context, rs *types.ReviewState) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE review_queue
		SET state = $2,
		    stability = $3,
		    difficulty = $4,
		    step = $5,
		    reps = $6,
		    lapses = $7,
		    next_review = $8,
		    last_reviewed = $9,
		    review_count = $10
		WHERE content_id = $1 AND status = 'active'
	`, rs.ContentID, int(rs.State), rs.Stability, rs.Difficulty, rs.Step,
		rs.Reps, rs.Lapses, rs.NextReview, rs.LastReviewed, rs.ReviewCount)
	if err != nil {
		return fmt.Errorf("update review state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DueItems lists active enrollments whose next_review has passed, oldest
// first, each with a short preview from the leading chunk.
func (p *PostgresStore) DueItems(ctx context.Context, now time.Time, limit int) ([]types.DueItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.content_id, c.title, c.summary,
		       COALESCE((
		           SELECT LEFT(chunk_text, 200)
		           FROM chunks
		           WHERE content_id = r.content_id
		           ORDER BY chunk_index
		           LIMIT 1
		       ), '') AS preview,
		       r.state, r.next_review
		FROM review_queue r
		JOIN content c ON c.id = r.content_id
		WHERE r.status = 'active'
		  AND r.next_review <= $1
		  AND c.deleted_at IS NULL
		ORDER BY r.next_review ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due items: %w", err)
	}
	defer rows.Close()

	var items []types.DueItem
	for rows.Next() {
		var (
			it       types.DueItem
			rawState int
		)
		if err := rows.Scan(&it.ContentID, &it.Title, &it.Summary, &it.PreviewText, &rawState, &it.NextReview); err != nil {
			return nil, err
		}
		state, err := types.MemoryStateFromInt(rawState)
		if err != nil {
			return nil, fmt.Errorf("%w: content %s: %v", ErrIntegrity, it.ContentID, err)
		}
		it.State = state
		items = append(items, it)
	}
	return items, rows.Err()
}

func (p *PostgresStore) ReviewStats(ctx context.Context, now time.Time) (*types.ReviewStats, error) {
	var s types.ReviewStats
	err := p.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active' AND next_review <= $1),
			COUNT(*) FILTER (WHERE last_reviewed IS NOT NULL AND last_reviewed >= date_trunc('day', $1::timestamptz)),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'active' AND state = 0),
			COUNT(*) FILTER (WHERE status = 'active' AND state IN (1, 3)),
			COUNT(*) FILTER (WHERE status = 'active' AND state = 2),
			COUNT(*) FILTER (WHERE status = 'suspended')
		FROM review_queue
	`, now).Scan(
		&s.DueNow,
		&s.ReviewsToday,
		&s.TotalActive,
		&s.NewCount,
		&s.LearningCount,
		&s.ReviewCount,
		&s.Suspended,
	)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	return &s, nil
}

// SetReviewStatus flips an enrollment between active and suspended.
func (p *PostgresStore) SetReviewStatus(ctx context.Context, contentID uuid.UUID, status types.ReviewStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE review_queue SET status = $2 WHERE content_id = $1
	`, contentID, string(status))
	if err != nil {
		return fmt.Errorf("set review status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
