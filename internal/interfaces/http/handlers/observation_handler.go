package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/fishlwr/internal/application/observation"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// ObservationService accepts submitted catches.
type ObservationService interface {
	Submit(ctx context.Context, obs species.Observation) (observation.Receipt, error)
}

// ObservationHandler serves POST /api/v1/observations.
type ObservationHandler struct {
	svc ObservationService
}

// NewObservationHandler returns a handler over svc.
func NewObservationHandler(svc ObservationService) *ObservationHandler {
	return &ObservationHandler{svc: svc}
}

// SubmitRequest is the request body.
type SubmitRequest struct {
	SpeciesName string  `json:"species_name" binding:"required"`
	LengthCm    float64 `json:"length_cm" binding:"required,gt=0"`
	WeightKg    float64 `json:"weight_kg" binding:"required,gt=0"`
}

// Submit answers 202 when the observation was queued and 200 with the
// accumulator outcome when it was applied in-process.
func (h *ObservationHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "species_name, length_cm and weight_kg are required and must be positive")
		return
	}
	receipt, err := h.svc.Submit(c.Request.Context(), species.Observation{
		SpeciesName: req.SpeciesName,
		LengthCm:    req.LengthCm,
		WeightKg:    req.WeightKg,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	status := http.StatusOK
	if receipt.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, receipt)
}

//Personal.AI order the ending
