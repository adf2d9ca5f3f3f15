package api

import (
	"errors"
	"knowledge/logger"
	"knowledge/review"
	"knowledge/store"
	"knowledge/types"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReviewHandler struct {
	scheduler *review.Scheduler
	log       *logger.Logger
}

func NewReviewHandler(scheduler *review.Scheduler, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		scheduler: scheduler,
		log:       log,
	}
}

func (h *ReviewHandler) HandleEnroll(c *fiber.Ctx) error {
	var params types.EnrollParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	created, err := h.scheduler.Enroll(c.Context(), params.ContentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound(params.ContentID, "content")
		}
		h.log.Error("enroll failed", "content_id", params.ContentID, "error", err)
		return err
	}
	if !created {
		return c.JSON(fiber.Map{"content_id": params.ContentID, "enrolled": false, "reason": "already enrolled"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"content_id": params.ContentID, "enrolled": true})
}

func (h *ReviewHandler) HandleSubmit(c *fiber.Ctx) error {
	var params types.SubmitReviewParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	rating, err := review.ParseRating(params.Rating)
	if err != nil {
		return NewError(fiber.StatusBadRequest, err.Error())
	}

	rs, err := h.scheduler.SubmitReview(c.Context(), params.ContentID, rating)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound(params.ContentID, "review state")
		case errors.Is(err, review.ErrSuspended):
			return ErrConflict("review is suspended")
		case errors.Is(err, store.ErrIntegrity):
			h.log.Error("integrity violation on review write", "content_id", params.ContentID, "error", err)
			return NewError(fiber.StatusInternalServerError, "review state rejected by integrity guard")
		}
		h.log.Error("submit review failed", "content_id", params.ContentID, "error", err)
		return err
	}

	return c.JSON(types.SubmitReviewResponse{
		ContentID:  rs.ContentID,
		NextReview: rs.NextReview,
		NewState:   rs.State.String(),
		Stability:  rs.Stability,
		Difficulty: rs.Difficulty,
	})
}

func (h *ReviewHandler) HandleDueItems(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 || limit > 100 {
		return NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
	}

	items, err := h.scheduler.GetDueItems(c.Context(), limit)
	if err != nil {
		h.log.Error("due items failed", "error", err)
		return err
	}

	resp := types.DueItemsResponse{Items: make([]types.DueItemEntry, len(items)), Total: len(items)}
	for i, it := range items {
		preview := it.PreviewText
		if preview == "" {
			preview = it.Summary
		}
		resp.Items[i] = types.DueItemEntry{
			ContentID:  it.ContentID,
			Title:      it.Title,
			Preview:    preview,
			IsNew:      it.IsNew(),
			IsLearning: it.IsLearning(),
			NextReview: it.NextReview,
		}
	}
	return c.JSON(resp)
}

func (h *ReviewHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.scheduler.Stats(c.Context())
	if err != nil {
		h.log.Error("review stats failed", "error", err)
		return err
	}
	return c.JSON(stats)
}

func (h *ReviewHandler) HandleSuspend(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}
	if err := h.scheduler.Suspend(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound(id, "review state")
		}
		return err
	}
	return c.JSON(fiber.Map{"content_id": id, "status": string(types.ReviewSuspended)})
}

func (h *ReviewHandler) HandleResume(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}
	if err := h.scheduler.Resume(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound(id, "review state")
		}
		return err
	}
	return c.JSON(fiber.Map{"content_id": id, "status": string(types.ReviewActive)})
}
