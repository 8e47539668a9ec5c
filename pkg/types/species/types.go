// Package species defines the data model shared by the extraction, regression
// and merge stages: catalog descriptors, measurement records, fitted
// length-weight results and the canonical dataset that accumulates them.
package species

import (
	"math"
	"strconv"
	"strings"
)

// Formula is the relationship every RegressionResult describes.
const Formula = "W = a * L^b"

// UnknownMeasureType is recorded when a table carries no measure-type column.
const UnknownMeasureType = "Unknown"

// FitMethod identifies how a RegressionResult was produced.
type FitMethod string

const (
	MethodLogLinear FitMethod = "loglinear"
	MethodNonlinear FitMethod = "nonlinear"
)

// ParseFitMethod maps a configuration string onto a FitMethod.
func ParseFitMethod(s string) (FitMethod, bool) {
	switch FitMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodLogLinear:
		return MethodLogLinear, true
	case MethodNonlinear:
		return MethodNonlinear, true
	}
	return "", false
}

// IdentityKey returns the merge identity for an entity: its id when present,
// otherwise its lower-cased, trimmed name.
func IdentityKey(id, name string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return NameKey(name)
}

// NameKey is the case-insensitive name used as the fallback identity.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ─────────────────────────────────────────────────────────────────────────────
// EntityDescriptor
// ─────────────────────────────────────────────────────────────────────────────

// EntityDescriptor is one species listed on a catalog index page.
type EntityDescriptor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsEdible  bool   `json:"is_edible"`
	DetailURL string `json:"detail_url"`
}

// Identity returns the merge identity of the descriptor.
func (e EntityDescriptor) Identity() string { return IdentityKey(e.ID, e.Name) }

// ─────────────────────────────────────────────────────────────────────────────
// MeasurementRecord
// ─────────────────────────────────────────────────────────────────────────────

// MeasurementRecord is one normalized (length, weight) row.
type MeasurementRecord struct {
	EntityID    string  `json:"entity_id"`
	EntityName  string  `json:"entity_name"`
	IsEdible    bool    `json:"is_edible"`
	MeasureType string  `json:"measure_type"`
	LengthCm    float64 `json:"length_cm"`
	WeightKg    float64 `json:"weight_kg"`

	// IsSynthetic marks rows supplied by the static fallback tables rather
	// than scraped from a detail page.
	IsSynthetic bool `json:"is_synthetic"`
}

// Valid reports whether both measurements are finite and strictly positive.
func (m MeasurementRecord) Valid() bool {
	return positiveFinite(m.LengthCm) && positiveFinite(m.WeightKg)
}

// Identity returns the merge identity of the record's entity.
func (m MeasurementRecord) Identity() string { return IdentityKey(m.EntityID, m.EntityName) }

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ─────────────────────────────────────────────────────────────────────────────
// RegressionResult
// ─────────────────────────────────────────────────────────────────────────────

// RegressionResult is a fitted W = a·L^b for one entity.
type RegressionResult struct {
	EntityID    string    `json:"entity_id"`
	EntityName  string    `json:"entity_name"`
	IsEdible    bool      `json:"is_edible"`
	A           float64   `json:"a"`
	B           float64   `json:"b"`
	RSquared    float64   `json:"r_squared"`
	MeasureType string    `json:"measure_type"`
	SampleCount int       `json:"sample_count"`
	Formula     string    `json:"formula"`
	Method      FitMethod `json:"method"`

	// LowConfidence is set when the fit rests on fewer than three samples.
	LowConfidence bool `json:"low_confidence"`
}

// Identity returns the merge identity of the result's entity.
func (r RegressionResult) Identity() string { return IdentityKey(r.EntityID, r.EntityName) }

// Predict returns the modelled weight in kilograms for lengthCm.
func (r RegressionResult) Predict(lengthCm float64) float64 {
	return r.A * math.Pow(lengthCm, r.B)
}

// Beats reports whether r should supersede other: higher R² wins, and on an
// exact R² tie the larger sample count wins.  Equal results do not beat each
// other.
func (r RegressionResult) Beats(other RegressionResult) bool {
	if r.RSquared != other.RSquared {
		return r.RSquared > other.RSquared
	}
	return r.SampleCount > other.SampleCount
}

// NumericID parses EntityID as an integer.  ok is false for empty or
// non-numeric ids.
func NumericID(id string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ─────────────────────────────────────────────────────────────────────────────
// CanonicalDataset
// ─────────────────────────────────────────────────────────────────────────────

// CanonicalDataset is the merged union of records and results across runs.
// Results holds exactly one entry per identity, in first-seen order; Records
// is append-only.
type CanonicalDataset struct {
	Records []MeasurementRecord `json:"records"`
	Results []RegressionResult  `json:"results"`
}

// ResultMap returns the results keyed by identity, the shape sinks consume.
func (d *CanonicalDataset) ResultMap() map[string]RegressionResult {
	out := make(map[string]RegressionResult, len(d.Results))
	for _, r := range d.Results {
		out[r.Identity()] = r
	}
	return out
}

// Find returns the result whose id matches key exactly, else whose name
// matches case-insensitively.
func (d *CanonicalDataset) Find(key string) (RegressionResult, bool) {
	for _, r := range d.Results {
		if r.EntityID != "" && r.EntityID == key {
			return r, true
		}
	}
	nk := NameKey(key)
	for _, r := range d.Results {
		if NameKey(r.EntityName) == nk {
			return r, true
		}
	}
	return RegressionResult{}, false
}

// RecordsFor returns the records belonging to identity.
func (d *CanonicalDataset) RecordsFor(identity string) []MeasurementRecord {
	var out []MeasurementRecord
	for _, m := range d.Records {
		if m.Identity() == identity {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy.
func (d *CanonicalDataset) Clone() *CanonicalDataset {
	return &CanonicalDataset{
		Records: append([]MeasurementRecord(nil), d.Records...),
		Results: append([]RegressionResult(nil), d.Results...),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Observation
// ─────────────────────────────────────────────────────────────────────────────

// Observation is a single user-submitted catch used by the accumulator.
type Observation struct {
	SpeciesName string  `json:"species_name"`
	LengthCm    float64 `json:"length_cm"`
	WeightKg    float64 `json:"weight_kg"`
}

// Valid reports whether the observation can be added to a fit.
func (o Observation) Valid() bool {
	return strings.TrimSpace(o.SpeciesName) != "" && positiveFinite(o.LengthCm) && positiveFinite(o.WeightKg)
}

//Personal.AI order the ending
