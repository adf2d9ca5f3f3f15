package review

import (
	"context"
	"errors"
	"fmt"
	"knowledge/logger"
	"knowledge/types"
	"time"

	"github.com/google/uuid"
)

// Store is the slice of the storage layer the scheduler drives.
type Store interface {
	GetContentByID(context.Context, uuid.UUID) (*types.Content, error)
	EnrollReview(ctx context.Context, contentID uuid.UUID, now time.Time) (bool, error)
	GetReviewState(context.Context, uuid.UUID) (*types.ReviewState, error)
	UpdateReviewState(context.Context, *types.ReviewState) error
	DueItems(ctx context.Context, now time.Time, limit int) ([]types.DueItem, error)
	ReviewStats(ctx context.Context, now time.Time) (*types.ReviewStats, error)
	SetReviewStatus(ctx context.Context, contentID uuid.UUID, status types.ReviewStatus) error
}

var ErrSuspended = errors.New("review is suspended")

// Scheduler applies the FSRS state machine to enrolled content. It holds no
// mutable state of its own; concurrent submissions serialize on the review
// row in storage.
type Scheduler struct {
	store  Store
	params Params
	now    func() time.Time
	log    *logger.Logger
}

func NewScheduler(store Store, params Params, log *logger.Logger) *Scheduler {
	return &Scheduler{store: store, params: params, now: time.Now, log: log}
}

// Enroll opts a piece of content into spaced repetition. The new item is
// immediately due. Returns false if it was already enrolled.
func (s *Scheduler) Enroll(ctx context.Context, contentID uuid.UUID) (bool, error) {
	if _, err := s.store.GetContentByID(ctx, contentID); err != nil {
		return false, err
	}
	return s.store.EnrollReview(ctx, contentID, s.now())
}

// SubmitReview applies one rating: recompute the FSRS memory parameters,
// step the state machine, and persist everything in a single atomic write.
func (s *Scheduler) SubmitReview(ctx context.Context, contentID uuid.UUID, rating Rating) (*types.ReviewState, error) {
	if !rating.Valid() {
		return nil, fmt.Errorf("invalid rating %d", int(rating))
	}
	rs, err := s.store.GetReviewState(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if rs.Status != types.ReviewActive {
		return nil, ErrSuspended
	}

	now := s.now()
	next := s.apply(rs, rating, now)

	rs.Reps++
	rs.ReviewCount++
	rs.LastReviewed = &now
	rs.NextReview = now.Add(next)

	if err := s.store.UpdateReviewState(ctx, rs); err != nil {
		return nil, err
	}
	s.log.Info("review recorded",
		"content_id", contentID,
		"rating", rating.String(),
		"state", rs.State.String(),
		"next_review", rs.NextReview,
	)
	return rs, nil
}

// apply mutates the memory parameters and state in place and returns the
// interval until the next review.
func (s *Scheduler) apply(rs *types.ReviewState, rating Rating, now time.Time) time.Duration {
	p := s.params

	var elapsed time.Duration
	if rs.LastReviewed != nil {
		elapsed = now.Sub(*rs.LastReviewed)
	}
	sameDay := rs.LastReviewed != nil && elapsed < 24*time.Hour

	switch rs.State {
	case types.StateNew:
		// First exposure seeds the memory; every first rating lands in
		// Learning so the item gets at least one short-interval pass.
		rs.Stability = p.initialStability(rating)
		rs.Difficulty = p.initialDifficulty(rating)
		rs.State = types.StateLearning
		switch rating {
		case Again, Hard:
			rs.Step = 0
		case Good:
			rs.Step = 1
		case Easy:
			rs.Step = len(p.LearningSteps) - 1
		}
		return s.stepInterval(p.LearningSteps, rs.Step)

	case types.StateLearning:
		s.updateMemory(rs, rating, elapsed, sameDay)
		switch rating {
		case Again:
			rs.Step = 0
			return s.stepInterval(p.LearningSteps, 0)
		case Hard:
			return s.stepInterval(p.LearningSteps, rs.Step)
		case Easy:
			rs.State = types.StateReview
			rs.Step = 0
			return p.Interval(rs.Stability)
		default: // Good
			rs.Step++
			if rs.Step >= len(p.LearningSteps) {
				rs.State = types.StateReview
				rs.Step = 0
				return p.Interval(rs.Stability)
			}
			return s.stepInterval(p.LearningSteps, rs.Step)
		}

	case types.StateReview:
		if rating == Again {
			retr := p.Retrievability(elapsed, rs.Stability)
			rs.Stability = p.stabilityAfterLapse(rs.Difficulty, rs.Stability, retr)
			rs.Difficulty = p.nextDifficulty(rs.Difficulty, rating)
			rs.State = types.StateRelearning
			rs.Step = 0
			rs.Lapses++
			return s.stepInterval(p.RelearningSteps, 0)
		}
		s.updateMemory(rs, rating, elapsed, sameDay)
		return p.Interval(rs.Stability)

	case types.StateRelearning:
		s.updateMemory(rs, rating, elapsed, sameDay)
		switch rating {
		case Again:
			rs.Step = 0
			return s.stepInterval(p.RelearningSteps, 0)
		case Hard:
			return s.stepInterval(p.RelearningSteps, rs.Step)
		default: // Good, Easy
			rs.State = types.StateReview
			rs.Step = 0
			return p.Interval(rs.Stability)
		}
	}

	// Unreachable with a valid state; keep the item due now rather than
	// inventing an interval.
	return 0
}

// updateMemory recomputes stability and difficulty for a non-lapse rating.
// Same-day reviews use the short-term formula since the forgetting curve is
// undefined below one day of elapsed time.
func (s *Scheduler) updateMemory(rs *types.ReviewState, rating Rating, elapsed time.Duration, sameDay bool) {
	p := s.params
	if sameDay {
		rs.Stability = p.shortTermStability(rs.Stability, rating)
	} else {
		retr := p.Retrievability(elapsed, rs.Stability)
		if rating == Again {
			rs.Stability = p.stabilityAfterLapse(rs.Difficulty, rs.Stability, retr)
		} else {
			rs.Stability = p.stabilityAfterRecall(rs.Difficulty, rs.Stability, retr, rating)
		}
	}
	rs.Difficulty = p.nextDifficulty(rs.Difficulty, rating)
}

func (s *Scheduler) stepInterval(steps []time.Duration, step int) time.Duration {
	if len(steps) == 0 {
		return 10 * time.Minute
	}
	if step < 0 {
		step = 0
	}
	if step >= len(steps) {
		step = len(steps) - 1
	}
	return steps[step]
}

// GetDueItems lists what is ready for review right now, oldest first.
func (s *Scheduler) GetDueItems(ctx context.Context, limit int) ([]types.DueItem, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.DueItems(ctx, s.now(), limit)
}

func (s *Scheduler) Stats(ctx context.Context) (*types.ReviewStats, error) {
	return s.store.ReviewStats(ctx, s.now())
}

// Suspend pauses scheduling without losing the memory parameters.
func (s *Scheduler) Suspend(ctx context.Context, contentID uuid.UUID) error {
	return s.store.SetReviewStatus(ctx, contentID, types.ReviewSuspended)
}

func (s *Scheduler) Resume(ctx context.Context, contentID uuid.UUID) error {
	return s.store.SetReviewStatus(ctx, contentID, types.ReviewActive)
}
