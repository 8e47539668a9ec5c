package client

import (
	"context"
	"net/http"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// ObservationsClient submits catches.
type ObservationsClient struct {
	client *Client
}

// Outcome is the accumulator's answer for an observation applied in-process.
// Status is "success", "pending" or "failed".
type Outcome struct {
	Status          string  `json:"status"`
	SpeciesName     string  `json:"species_name"`
	A               float64 `json:"a,omitempty"`
	B               float64 `json:"b,omitempty"`
	RSquared        float64 `json:"r_squared,omitempty"`
	DataPointsCount int     `json:"data_points_count"`
	Message         string  `json:"message"`
}

// Receipt reports whether the observation was queued for a worker or
// applied immediately.  Outcome is nil when queued.
type Receipt struct {
	Queued  bool     `json:"queued"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Submit posts one observation.  Observations are not idempotent, so a
// failed submit is retried only on network errors and 5xx answers.
func (o *ObservationsClient) Submit(ctx context.Context, obs species.Observation) (*Receipt, error) {
	if !obs.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "species name, length and weight are required and must be positive")
	}
	body := struct {
		SpeciesName string  `json:"species_name"`
		LengthCm    float64 `json:"length_cm"`
		WeightKg    float64 `json:"weight_kg"`
	}{obs.SpeciesName, obs.LengthCm, obs.WeightKg}

	var out Receipt
	status, err := o.client.do(ctx, http.MethodPost, "/api/v1/observations", body, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		out.Queued = true
	}
	return &out, nil
}

//Personal.AI order the ending
