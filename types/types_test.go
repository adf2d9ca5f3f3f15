package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReviewState() ReviewState {
	return ReviewState{
		ContentID:  uuid.New(),
		State:      StateReview,
		Stability:  10,
		Difficulty: 5,
		NextReview: time.Now(),
		Status:     ReviewActive,
	}
}

func TestReviewStateValidate(t *testing.T) {
	rs := validReviewState()
	require.NoError(t, rs.Validate())

	rs = validReviewState()
	rs.State = MemoryState(5)
	assert.Error(t, rs.Validate())

	rs = validReviewState()
	rs.Stability = -0.1
	assert.Error(t, rs.Validate())

	rs = validReviewState()
	rs.Difficulty = 11
	assert.Error(t, rs.Validate())

	rs = validReviewState()
	rs.Difficulty = -1
	assert.Error(t, rs.Validate())

	rs = validReviewState()
	rs.Status = ReviewStatus("archived")
	assert.Error(t, rs.Validate())

	rs = validReviewState()
	earlier := rs.NextReview.Add(-time.Hour)
	later := rs.NextReview.Add(time.Hour)
	rs.LastReviewed = &later
	assert.Error(t, rs.Validate(), "next_review before last_reviewed")
	rs.LastReviewed = &earlier
	assert.NoError(t, rs.Validate())
}

func TestMemoryStateFromInt(t *testing.T) {
	for i := 0; i <= 3; i++ {
		s, err := MemoryStateFromInt(i)
		require.NoError(t, err)
		assert.Equal(t, i, int(s))
	}
	for _, i := range []int{-1, 4, 100} {
		_, err := MemoryStateFromInt(i)
		assert.Error(t, err)
	}
}

func TestContentNamespaceDefault(t *testing.T) {
	c := Content{}
	assert.Equal(t, "default", c.Namespace())

	c.Metadata = map[string]string{"namespace": "work/projects"}
	assert.Equal(t, "work/projects", c.Namespace())

	c.Metadata = map[string]string{"namespace": ""}
	assert.Equal(t, "default", c.Namespace())
}

func TestParseContentType(t *testing.T) {
	for _, s := range []string{"bookmark", "youtube", "file", "note"} {
		ct, err := ParseContentType(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(ct))
	}
	_, err := ParseContentType("tweet")
	assert.Error(t, err)
}

func TestSearchParamsValidate(t *testing.T) {
	p := SearchParams{Query: "hello", Limit: 10}
	assert.Empty(t, p.Validate())

	p = SearchParams{Query: ""}
	assert.NotEmpty(t, p.Validate())

	p = SearchParams{Query: "hello", Limit: 500}
	assert.NotEmpty(t, p.Validate())
}

func TestBatchSearchParamsValidate(t *testing.T) {
	p := BatchSearchParams{Queries: []SearchParams{{Query: "a"}}}
	assert.Empty(t, p.Validate())

	p = BatchSearchParams{}
	assert.NotEmpty(t, p.Validate())

	p = BatchSearchParams{}
	for i := 0; i < BatchSearchCap+1; i++ {
		p.Queries = append(p.Queries, SearchParams{Query: "q"})
	}
	assert.NotEmpty(t, p.Validate())
}

func TestSubmitReviewParamsValidate(t *testing.T) {
	p := SubmitReviewParams{ContentID: uuid.New(), Rating: 3}
	assert.Empty(t, p.Validate())

	p = SubmitReviewParams{ContentID: uuid.New(), Rating: 5}
	assert.NotEmpty(t, p.Validate())

	p = SubmitReviewParams{Rating: 3}
	assert.NotEmpty(t, p.Validate())
}
