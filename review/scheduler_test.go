package review

import (
	"context"
	"testing"
	"time"

	"knowledge/logger"
	"knowledge/store"
	"knowledge/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	content  map[uuid.UUID]*types.Content
	states   map[uuid.UUID]*types.ReviewState
	statuses map[uuid.UUID]types.ReviewStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		content:  make(map[uuid.UUID]*types.Content),
		states:   make(map[uuid.UUID]*types.ReviewState),
		statuses: make(map[uuid.UUID]types.ReviewStatus),
	}
}

func (f *fakeStore) GetContentByID(_ context.Context, id uuid.UUID) (*types.Content, error) {
	c, ok := f.content[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) EnrollReview(_ context.Context, contentID uuid.UUID, now time.Time) (bool, error) {
	if _, ok := f.states[contentID]; ok {
		return false, nil
	}
	f.states[contentID] = &types.ReviewState{
		ContentID:  contentID,
		State:      types.StateNew,
		NextReview: now,
		Status:     types.ReviewActive,
	}
	return true, nil
}

func (f *fakeStore) GetReviewState(_ context.Context, contentID uuid.UUID) (*types.ReviewState, error) {
	rs, ok := f.states[contentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rs
	return &cp, nil
}

// UpdateReviewState mirrors the storage integrity guard: an invalid state
// is rejected without touching the stored row.
func (f *fakeStore) UpdateReviewState(_ context.Context, rs *types.ReviewState) error {
	if err := rs.Validate(); err != nil {
		return store.ErrIntegrity
	}
	prev, ok := f.states[rs.ContentID]
	if !ok || prev.Status != types.ReviewActive {
		return store.ErrNotFound
	}
	cp := *rs
	f.states[rs.ContentID] = &cp
	return nil
}

func (f *fakeStore) DueItems(_ context.Context, now time.Time, limit int) ([]types.DueItem, error) {
	var items []types.DueItem
	for _, rs := range f.states {
		if rs.Status != types.ReviewActive || rs.NextReview.After(now) {
			continue
		}
		title := ""
		if c, ok := f.content[rs.ContentID]; ok {
			title = c.Title
		}
		items = append(items, types.DueItem{
			ContentID:  rs.ContentID,
			Title:      title,
			State:      rs.State,
			NextReview: rs.NextReview,
		})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (f *fakeStore) ReviewStats(_ context.Context, now time.Time) (*types.ReviewStats, error) {
	s := &types.ReviewStats{}
	for _, rs := range f.states {
		if rs.Status == types.ReviewSuspended {
			s.Suspended++
			continue
		}
		s.TotalActive++
		if !rs.NextReview.After(now) {
			s.DueNow++
		}
	}
	return s, nil
}

func (f *fakeStore) SetReviewStatus(_ context.Context, contentID uuid.UUID, status types.ReviewStatus) error {
	rs, ok := f.states[contentID]
	if !ok {
		return store.ErrNotFound
	}
	rs.Status = status
	return nil
}

func newTestScheduler(t *testing.T, fs *fakeStore) *Scheduler {
	t.Helper()
	return NewScheduler(fs, DefaultParams(), logger.NewNop())
}

func enrolled(t *testing.T, fs *fakeStore, s *Scheduler) uuid.UUID {
	t.Helper()
	id := uuid.New()
	fs.content[id] = &types.Content{ID: id, Title: "doc"}
	created, err := s.Enroll(context.Background(), id)
	require.NoError(t, err)
	require.True(t, created)
	return id
}

func TestEnrollUnknownContent(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)

	_, err := s.Enroll(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnrollIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	created, err := s.Enroll(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestFirstReviewLandsInLearning(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	rs, err := s.SubmitReview(context.Background(), id, Good)
	require.NoError(t, err)

	// A fresh item never jumps straight to long-interval review.
	assert.Equal(t, types.StateLearning, rs.State)
	assert.Greater(t, rs.Stability, 0.0)
	assert.Equal(t, 1, rs.ReviewCount)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), rs.NextReview, 24*time.Hour)
}

func TestLearningGoodGraduatesAfterSteps(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	first, err := s.SubmitReview(context.Background(), id, Good)
	require.NoError(t, err)
	require.Equal(t, types.StateLearning, first.State)

	second, err := s.SubmitReview(context.Background(), id, Good)
	require.NoError(t, err)
	assert.Equal(t, types.StateReview, second.State)
	assert.Greater(t, second.NextReview.Sub(time.Now()), 12*time.Hour, "graduated interval is at least a day")
}

func TestLearningEasyGraduatesImmediately(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	_, err := s.SubmitReview(context.Background(), id, Good)
	require.NoError(t, err)

	rs, err := s.SubmitReview(context.Background(), id, Easy)
	require.NoError(t, err)
	assert.Equal(t, types.StateReview, rs.State)
}

func TestLearningAgainStaysLearning(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	_, err := s.SubmitReview(context.Background(), id, Good)
	require.NoError(t, err)

	rs, err := s.SubmitReview(context.Background(), id, Again)
	require.NoError(t, err)
	assert.Equal(t, types.StateLearning, rs.State)
	assert.Equal(t, 0, rs.Step)
}

func TestReviewAgainLapsesToRelearning(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	// Drive the item into Review state.
	lastWeek := time.Now().Add(-7 * 24 * time.Hour)
	fs.states[id] = &types.ReviewState{
		ContentID:    id,
		State:        types.StateReview,
		Stability:    10,
		Difficulty:   5,
		Reps:         3,
		NextReview:   time.Now(),
		LastReviewed: &lastWeek,
		ReviewCount:  3,
		Status:       types.ReviewActive,
	}

	rs, err := s.SubmitReview(context.Background(), id, Again)
	require.NoError(t, err)
	assert.Equal(t, types.StateRelearning, rs.State)
	assert.Equal(t, 1, rs.Lapses)
	assert.Less(t, rs.Stability, 10.0, "lapse shrinks stability")
}

func TestRelearningGoodReturnsToReview(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	yesterday := time.Now().Add(-25 * time.Hour)
	fs.states[id] = &types.ReviewState{
		ContentID:    id,
		State:        types.StateRelearning,
		Stability:    3,
		Difficulty:   6,
		Reps:         4,
		Lapses:       1,
		NextReview:   time.Now(),
		LastReviewed: &yesterday,
		ReviewCount:  4,
		Status:       types.ReviewActive,
	}

	rs, err := s.SubmitReview(context.Background(), id, Good)
	require.NoError(t, err)
	assert.Equal(t, types.StateReview, rs.State)
	assert.Equal(t, 1, rs.Lapses, "lapse count is untouched by recovery")
}

func TestEasyYieldsLongerIntervalThanGood(t *testing.T) {
	snapshot := func() (*fakeStore, uuid.UUID) {
		fs := newFakeStore()
		id := uuid.New()
		fs.content[id] = &types.Content{ID: id, Title: "doc"}
		lastWeek := time.Now().Add(-7 * 24 * time.Hour)
		fs.states[id] = &types.ReviewState{
			ContentID:    id,
			State:        types.StateReview,
			Stability:    10,
			Difficulty:   5,
			Reps:         3,
			NextReview:   time.Now(),
			LastReviewed: &lastWeek,
			ReviewCount:  3,
			Status:       types.ReviewActive,
		}
		return fs, id
	}

	fsGood, idGood := snapshot()
	good, err := newTestScheduler(t, fsGood).SubmitReview(context.Background(), idGood, Good)
	require.NoError(t, err)

	fsEasy, idEasy := snapshot()
	easy, err := newTestScheduler(t, fsEasy).SubmitReview(context.Background(), idEasy, Easy)
	require.NoError(t, err)

	assert.True(t, easy.NextReview.After(good.NextReview) || easy.NextReview.Equal(good.NextReview),
		"easy never schedules earlier than good")
}

func TestSubmitReviewOnSuspendedItem(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	require.NoError(t, s.Suspend(context.Background(), id))

	_, err := s.SubmitReview(context.Background(), id, Good)
	assert.ErrorIs(t, err, ErrSuspended)
}

func TestSubmitReviewUnknownContent(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)

	_, err := s.SubmitReview(context.Background(), uuid.New(), Good)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmitReviewInvalidRating(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	_, err := s.SubmitReview(context.Background(), id, Rating(7))
	assert.Error(t, err)
}

func TestIntegrityGuardLeavesRowUnchanged(t *testing.T) {
	fs := newFakeStore()

	id := uuid.New()
	valid := &types.ReviewState{
		ContentID:  id,
		State:      types.StateReview,
		Stability:  10,
		Difficulty: 5,
		NextReview: time.Now(),
		Status:     types.ReviewActive,
	}
	fs.states[id] = valid

	corrupt := *valid
	corrupt.Difficulty = 11
	assert.ErrorIs(t, fs.UpdateReviewState(context.Background(), &corrupt), store.ErrIntegrity)

	corrupt = *valid
	corrupt.State = types.MemoryState(5)
	assert.ErrorIs(t, fs.UpdateReviewState(context.Background(), &corrupt), store.ErrIntegrity)

	stored, err := fs.GetReviewState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5.0, stored.Difficulty)
	assert.Equal(t, types.StateReview, stored.State)
}

func TestSuspendResumeRoundTrip(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)
	id := enrolled(t, fs, s)

	require.NoError(t, s.Suspend(context.Background(), id))
	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Suspended)
	assert.Equal(t, 0, stats.TotalActive)

	require.NoError(t, s.Resume(context.Background(), id))
	rs, err := s.SubmitReview(context.Background(), id, Good)
	require.NoError(t, err)
	assert.Equal(t, types.StateLearning, rs.State)
}

func TestGetDueItemsOnlyActiveAndDue(t *testing.T) {
	fs := newFakeStore()
	s := newTestScheduler(t, fs)

	due := enrolled(t, fs, s)
	future := enrolled(t, fs, s)
	fs.states[future].NextReview = time.Now().Add(48 * time.Hour)
	suspended := enrolled(t, fs, s)
	require.NoError(t, s.Suspend(context.Background(), suspended))

	items, err := s.GetDueItems(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, due, items[0].ContentID)
	assert.True(t, items[0].IsNew())
}
