package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentBookmark ContentType = "bookmark"
	ContentYoutube  ContentType = "youtube"
	ContentFile     ContentType = "file"
	ContentNote     ContentType = "note"
)

func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case ContentBookmark, ContentYoutube, ContentFile, ContentNote:
		return ContentType(s), nil
	}
	return "", fmt.Errorf("invalid content type: %q", s)
}

// Content is a logical document. Rows are owned by the loader; the search
// engine and the review scheduler only read them. Soft-deleted rows
// (DeletedAt set) stay in the table but are invisible to search.
type Content struct {
	ID          uuid.UUID
	Type        ContentType
	Title       string
	Summary     string
	Tags        []string
	AutoTags    []string
	Metadata    map[string]string
	ContentHash string
	SourcePath  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Namespace returns the search partition this content belongs to.
func (c Content) Namespace() string {
	if ns, ok := c.Metadata["namespace"]; ok && ns != "" {
		return ns
	}
	return "default"
}

// Chunk is a contiguous span of a Content's text. (ContentID, Index) is
// unique and chunk order is append-only.
type Chunk struct {
	ID          uuid.UUID
	ContentID   uuid.UUID
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
	Embedding   []float32
	SourceRef   string
}

// LexicalHit is one full-text match: the content plus its leading chunk for
// display. Rank is the ts_rank_cd score.
type LexicalHit struct {
	ContentID uuid.UUID
	Title     string
	Namespace string
	CreatedAt time.Time
	Rank      float64
	ChunkID   uuid.UUID
	ChunkText string
	SourceRef string
}

// VectorHit is the best-matching chunk of a content by cosine similarity.
type VectorHit struct {
	ContentID  uuid.UUID
	Title      string
	Namespace  string
	CreatedAt  time.Time
	Similarity float64
	ChunkID    uuid.UUID
	ChunkText  string
	SourceRef  string
}

// MemoryState is the FSRS card state. The integer wire values (0-3) appear
// only at the storage boundary.
type MemoryState int

const (
	StateNew MemoryState = iota
	StateLearning
	StateReview
	StateRelearning
)

func (s MemoryState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLearning:
		return "learning"
	case StateReview:
		return "review"
	case StateRelearning:
		return "relearning"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// MemoryStateFromInt converts the stored integer representation back to the
// enum, rejecting anything outside 0-3.
func MemoryStateFromInt(v int) (MemoryState, error) {
	if v < int(StateNew) || v > int(StateRelearning) {
		return 0, fmt.Errorf("invalid memory state: %d (must be 0-3)", v)
	}
	return MemoryState(v), nil
}

type ReviewStatus string

const (
	ReviewActive    ReviewStatus = "active"
	ReviewSuspended ReviewStatus = "suspended"
)

// ReviewState holds the FSRS memory parameters for one enrolled Content.
// Mutated only by the scheduler's rating submission; never deleted, only
// suspended.
type ReviewState struct {
	ContentID    uuid.UUID
	State        MemoryState
	Stability    float64
	Difficulty   float64
	Step         int
	Reps         int
	Lapses       int
	NextReview   time.Time
	LastReviewed *time.Time
	ReviewCount  int
	Status       ReviewStatus
}

// Validate enforces the memory-state integrity guard. Any write failing
// this check must be rejected in full: out-of-range values silently stored
// would corrupt every future interval computation.
func (r ReviewState) Validate() error {
	if r.State < StateNew || r.State > StateRelearning {
		return fmt.Errorf("invalid memory state: %d (must be 0-3)", int(r.State))
	}
	if r.Stability < 0 {
		return fmt.Errorf("invalid stability: %f (must be >= 0)", r.Stability)
	}
	if r.Difficulty < 0 || r.Difficulty > 10 {
		return fmt.Errorf("invalid difficulty: %f (must be 0-10)", r.Difficulty)
	}
	if r.Status != ReviewActive && r.Status != ReviewSuspended {
		return fmt.Errorf("invalid review status: %q", r.Status)
	}
	if r.LastReviewed != nil && r.NextReview.Before(*r.LastReviewed) {
		return fmt.Errorf("next_review %s before last_reviewed %s",
			r.NextReview.Format(time.RFC3339), r.LastReviewed.Format(time.RFC3339))
	}
	return nil
}

// DueItem is a review-queue row joined with its content for display.
type DueItem struct {
	ContentID   uuid.UUID
	Title       string
	Summary     string
	PreviewText string
	State       MemoryState
	NextReview  time.Time
}

func (d DueItem) IsNew() bool      { return d.State == StateNew }
func (d DueItem) IsLearning() bool { return d.State == StateLearning || d.State == StateRelearning }

// ReviewStats summarizes the review queue.
type ReviewStats struct {
	DueNow        int `json:"due_now"`
	ReviewsToday  int `json:"reviews_today"`
	TotalActive   int `json:"total_active"`
	NewCount      int `json:"new_count"`
	LearningCount int `json:"learning_count"`
	ReviewCount   int `json:"review_count"`
	Suspended     int `json:"suspended_count"`
}

// Config holds the loader's directory and chunking settings.
type Config struct {
	MonitoringTime time.Duration
	SourceDir      string
	ArchiveDir     string
	BadDir         string
	ChunkSize      int
	ChunkOverlap   int
	Namespace      string
}
