package search

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultRRFK is the rank-smoothing constant in the reciprocal rank fusion
// denominator. 60 is the value from the original RRF paper and keeps the
// score difference between adjacent top ranks meaningful without letting
// the first hit dominate.
const DefaultRRFK = 60

// Candidate is a fused search result before the score floor and limit are
// applied. Score is the RRF sum over the lists the content appeared in.
type Candidate struct {
	ContentID uuid.UUID
	Title     string
	Namespace string
	CreatedAt time.Time
	ChunkID   uuid.UUID
	ChunkText string
	SourceRef string
	Score     float64
}

// rankedEntry is one row of an input ranking, already ordered best-first.
type rankedEntry struct {
	ContentID uuid.UUID
	Title     string
	Namespace string
	CreatedAt time.Time
	ChunkID   uuid.UUID
	ChunkText string
	SourceRef string
}

// fuse merges the ranked lists with reciprocal rank fusion: each appearance
// at 1-indexed position r contributes 1/(k+r) to the content's score.
// Content appearing in both lists accumulates both contributions, which is
// what pushes hybrid agreement above either single list. Chunk fields prefer
// the vector list (its chunk is the semantically closest one); lexical-only
// hits keep their leading chunk. Ordering is score descending, ties broken
// by newer content.
func fuse(lexical, vector []rankedEntry, k int) []Candidate {
	if k <= 0 {
		k = DefaultRRFK
	}

	byID := make(map[uuid.UUID]*Candidate, len(lexical)+len(vector))
	order := make([]uuid.UUID, 0, len(lexical)+len(vector))

	add := func(e rankedEntry, rank int, preferChunk bool) {
		c, ok := byID[e.ContentID]
		if !ok {
			c = &Candidate{
				ContentID: e.ContentID,
				Title:     e.Title,
				Namespace: e.Namespace,
				CreatedAt: e.CreatedAt,
				ChunkID:   e.ChunkID,
				ChunkText: e.ChunkText,
				SourceRef: e.SourceRef,
			}
			byID[e.ContentID] = c
			order = append(order, e.ContentID)
		} else if preferChunk {
			c.ChunkID = e.ChunkID
			c.ChunkText = e.ChunkText
			c.SourceRef = e.SourceRef
		}
		c.Score += 1.0 / float64(k+rank)
	}

	for i, e := range lexical {
		add(e, i+1, false)
	}
	for i, e := range vector {
		add(e, i+1, true)
	}

	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
