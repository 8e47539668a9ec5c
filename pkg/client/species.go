package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// SpeciesClient reads the canonical dataset.
type SpeciesClient struct {
	client *Client
}

// ListOptions filters List.  A nil Edible matches every species.
type ListOptions struct {
	Edible *bool
	Query  string
}

// SpeciesList is the answer of List.
type SpeciesList struct {
	Items []species.RegressionResult `json:"items"`
	Total int                        `json:"total"`
}

// SpeciesDetail is one species with the records it was fitted from.
type SpeciesDetail struct {
	Result  species.RegressionResult    `json:"result"`
	Records []species.MeasurementRecord `json:"records"`
}

// Prediction is a modelled weight.
type Prediction struct {
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	LengthCm   float64 `json:"length_cm"`
	WeightKg   float64 `json:"weight_kg"`
	Formula    string  `json:"formula"`
	A          float64 `json:"a"`
	B          float64 `json:"b"`
	RSquared   float64 `json:"r_squared"`
}

// List returns the fitted species matching opts.
func (s *SpeciesClient) List(ctx context.Context, opts *ListOptions) (*SpeciesList, error) {
	q := url.Values{}
	if opts != nil {
		if opts.Edible != nil {
			q.Set("edible", strconv.FormatBool(*opts.Edible))
		}
		if opts.Query != "" {
			q.Set("q", opts.Query)
		}
	}
	path := "/api/v1/species"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out SpeciesList
	if err := s.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one species by id or case-insensitive name.
func (s *SpeciesClient) Get(ctx context.Context, key string) (*SpeciesDetail, error) {
	if key == "" {
		return nil, errors.InvalidParam("species key is required")
	}
	var out SpeciesDetail
	if err := s.client.get(ctx, "/api/v1/species/"+url.PathEscape(key), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predict returns the modelled weight of a fish of lengthCm.
func (s *SpeciesClient) Predict(ctx context.Context, key string, lengthCm float64) (*Prediction, error) {
	if key == "" {
		return nil, errors.InvalidParam("species key is required")
	}
	if lengthCm <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "length must be positive")
	}
	path := "/api/v1/species/" + url.PathEscape(key) + "/predict?length=" +
		strconv.FormatFloat(lengthCm, 'g', -1, 64)

	var out Prediction
	if err := s.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
