package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/fishlwr/internal/application/lookup"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// SpeciesService is the read side of the API.
type SpeciesService interface {
	List(ctx context.Context, f lookup.ListFilter) ([]species.RegressionResult, error)
	Get(ctx context.Context, key string) (lookup.Detail, error)
	Predict(ctx context.Context, key string, lengthCm float64) (lookup.Prediction, error)
}

// SpeciesHandler serves /api/v1/species.
type SpeciesHandler struct {
	svc SpeciesService
}

// NewSpeciesHandler returns a handler over svc.
func NewSpeciesHandler(svc SpeciesService) *SpeciesHandler {
	return &SpeciesHandler{svc: svc}
}

// ListResponse wraps the species list.
type ListResponse struct {
	Items []species.RegressionResult `json:"items"`
	Total int                        `json:"total"`
}

// List handles GET /api/v1/species?edible=&q=.
func (h *SpeciesHandler) List(c *gin.Context) {
	var f lookup.ListFilter
	if v, ok := c.GetQuery("edible"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "edible must be a boolean")
			return
		}
		f.Edible = &b
	}
	f.Query = c.Query("q")

	items, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: items, Total: len(items)})
}

// Get handles GET /api/v1/species/:id.  The id may also be a species name.
func (h *SpeciesHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Predict handles GET /api/v1/species/:id/predict?length=.
func (h *SpeciesHandler) Predict(c *gin.Context) {
	raw := c.Query("length")
	if raw == "" {
		badRequest(c, "length query parameter is required")
		return
	}
	l, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, "length must be a number")
		return
	}
	p, err := h.svc.Predict(c.Request.Context(), c.Param("id"), l)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

//Personal.AI order the ending
