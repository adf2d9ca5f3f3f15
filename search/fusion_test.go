package search

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id uuid.UUID, title string, created time.Time) rankedEntry {
	return rankedEntry{
		ContentID: id,
		Title:     title,
		CreatedAt: created,
		ChunkID:   uuid.New(),
		ChunkText: "chunk of " + title,
	}
}

func TestFuseOverlapOutranksSingleList(t *testing.T) {
	now := time.Now()
	both := uuid.New()
	lexOnly := uuid.New()
	vecOnly := uuid.New()

	lexical := []rankedEntry{
		entry(lexOnly, "lexical only", now),
		entry(both, "in both lists", now),
	}
	vector := []rankedEntry{
		entry(both, "in both lists", now),
		entry(vecOnly, "vector only", now),
	}

	out := fuse(lexical, vector, DefaultRRFK)
	require.Len(t, out, 3)

	// 1/62 + 1/61 beats 1/61 from either single list.
	assert.Equal(t, both, out[0].ContentID)
	assert.InDelta(t, 1.0/62+1.0/61, out[0].Score, 1e-9)
	assert.InDelta(t, 1.0/61, out[1].Score, 1e-9)
	assert.InDelta(t, 1.0/62, out[2].Score, 1e-9)
}

func TestFuseIsComplete(t *testing.T) {
	now := time.Now()
	var lexical, vector []rankedEntry
	ids := make(map[uuid.UUID]bool)
	for i := 0; i < 5; i++ {
		e := entry(uuid.New(), "lex", now)
		lexical = append(lexical, e)
		ids[e.ContentID] = true
	}
	for i := 0; i < 5; i++ {
		e := entry(uuid.New(), "vec", now)
		vector = append(vector, e)
		ids[e.ContentID] = true
	}

	out := fuse(lexical, vector, DefaultRRFK)
	require.Len(t, out, len(ids))
	for _, c := range out {
		assert.True(t, ids[c.ContentID], "unexpected content %s", c.ContentID)
	}
}

func TestFuseTieBreaksByNewerContent(t *testing.T) {
	older := entry(uuid.New(), "older", time.Now().Add(-48*time.Hour))
	newer := entry(uuid.New(), "newer", time.Now())

	// Same rank in parallel lists gives both the same score.
	out := fuse([]rankedEntry{older}, []rankedEntry{newer}, DefaultRRFK)
	require.Len(t, out, 2)
	assert.Equal(t, out[0].Score, out[1].Score)
	assert.Equal(t, newer.ContentID, out[0].ContentID)
}

func TestFusePrefersVectorChunk(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	lex := entry(id, "shared", now)
	vec := entry(id, "shared", now)
	vec.ChunkText = "semantically closest chunk"

	out := fuse([]rankedEntry{lex}, []rankedEntry{vec}, DefaultRRFK)
	require.Len(t, out, 1)
	assert.Equal(t, vec.ChunkID, out[0].ChunkID)
	assert.Equal(t, "semantically closest chunk", out[0].ChunkText)
}

func TestFuseIsDeterministic(t *testing.T) {
	now := time.Now()
	var lexical, vector []rankedEntry
	for i := 0; i < 10; i++ {
		lexical = append(lexical, entry(uuid.New(), "lex", now))
		vector = append(vector, entry(uuid.New(), "vec", now))
	}
	first := fuse(lexical, vector, DefaultRRFK)
	for i := 0; i < 5; i++ {
		again := fuse(lexical, vector, DefaultRRFK)
		require.Equal(t, first, again)
	}
}
