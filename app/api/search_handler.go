package api

import (
	"errors"
	"knowledge/logger"
	"knowledge/search"
	"knowledge/types"

	"github.com/gofiber/fiber/v2"
)

type SearchHandler struct {
	engine *search.Engine
	log    *logger.Logger
}

func NewSearchHandler(engine *search.Engine, log *logger.Logger) *SearchHandler {
	return &SearchHandler{
		engine: engine,
		log:    log,
	}
}

func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var params types.SearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	resp, err := h.engine.Search(c.Context(), params)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			return NewError(fiber.StatusBadRequest, err.Error())
		}
		h.log.Error("search failed", "query", params.Query, "error", err)
		return err
	}
	return c.JSON(resp)
}

func (h *SearchHandler) HandleBatchSearch(c *fiber.Ctx) error {
	var params types.BatchSearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	resp, err := h.engine.BatchSearch(c.Context(), params)
	if err != nil {
		h.log.Error("batch search failed", "queries", len(params.Queries), "error", err)
		return err
	}
	return c.JSON(resp)
}
