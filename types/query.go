package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// BatchSearchCap is the maximum number of queries accepted by batch search.
const BatchSearchCap = 10

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

type SearchParams struct {
	Query     string   `json:"query" validate:"required,max=1000"`
	Limit     int      `json:"limit" validate:"omitempty,gte=1,lte=100"`
	Namespace string   `json:"namespace,omitempty" validate:"omitempty,max=200"`
	MinScore  *float64 `json:"min_score,omitempty" validate:"omitempty,gte=0"`
	Rerank    bool     `json:"rerank,omitempty"`
}

func (params *SearchParams) Validate() map[string]string {
	return validateStruct(params)
}

type BatchSearchParams struct {
	Queries []SearchParams `json:"queries" validate:"required,min=1,max=10,dive"`
	Limit   int            `json:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (params *BatchSearchParams) Validate() map[string]string {
	return validateStruct(params)
}

type EnrollParams struct {
	ContentID uuid.UUID `json:"content_id" validate:"required"`
}

func (params *EnrollParams) Validate() map[string]string {
	return validateStruct(params)
}

type SubmitReviewParams struct {
	ContentID uuid.UUID `json:"content_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,gte=1,lte=4"`
}

func (params *SubmitReviewParams) Validate() map[string]string {
	return validateStruct(params)
}

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

// SearchResultItem is one fused hit: a chunk plus its parent content.
type SearchResultItem struct {
	ChunkID   uuid.UUID `json:"chunk_id"`
	ContentID uuid.UUID `json:"content_id"`
	Title     string    `json:"title"`
	ChunkText string    `json:"chunk_text"`
	Score     float64   `json:"score"`
	SourceRef string    `json:"source_ref,omitempty"`
	Namespace string    `json:"namespace,omitempty"`
}

type SearchResponse struct {
	Results      []SearchResultItem `json:"results"`
	TotalFound   int                `json:"total_found"`
	Reranked     bool               `json:"reranked"`
	Degraded     bool               `json:"degraded"`
	Warnings     []string           `json:"warnings,omitempty"`
	SearchTimeMs int64              `json:"search_time_ms"`
}

type BatchSearchEntry struct {
	Query    string          `json:"query"`
	Response *SearchResponse `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type BatchSearchResponse struct {
	Results    []BatchSearchEntry `json:"results"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
}

type SubmitReviewResponse struct {
	ContentID  uuid.UUID `json:"content_id"`
	NextReview time.Time `json:"next_review"`
	NewState   string    `json:"new_state"`
	Stability  float64   `json:"stability"`
	Difficulty float64   `json:"difficulty"`
}

type DueItemEntry struct {
	ContentID  uuid.UUID `json:"content_id"`
	Title      string    `json:"title"`
	Preview    string    `json:"preview,omitempty"`
	IsNew      bool      `json:"is_new"`
	IsLearning bool      `json:"is_learning"`
	NextReview time.Time `json:"next_review"`
}

type DueItemsResponse struct {
	Items []DueItemEntry `json:"items"`
	Total int            `json:"total"`
}
