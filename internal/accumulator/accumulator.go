// Package accumulator maintains per-species fits that improve as individual
// catches are reported.  Each observation is appended to the species'
// point history, which is persisted before the nonlinear fit is refreshed
// and stored separately.
package accumulator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/turtacn/fishlwr/internal/infrastructure/database/redis"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/fishlwr/internal/regression"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Status is the result of adding one observation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome reports the state of a species after an observation.
type Outcome struct {
	Status          Status  `json:"status"`
	SpeciesName     string  `json:"species_name"`
	A               float64 `json:"a,omitempty"`
	B               float64 `json:"b,omitempty"`
	RSquared        float64 `json:"r_squared,omitempty"`
	DataPointsCount int     `json:"data_points_count"`
	Message         string  `json:"message"`
}

// LockFactory returns a cross-process lock for one species.
type LockFactory func(name string) redis.Locker

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithLocks serializes updates to a species across processes.
func WithLocks(f LockFactory) Option {
	return func(a *Accumulator) { a.locks = f }
}

// WithMetrics counts observations by resulting status.
func WithMetrics(m *prometheus.PipelineMetrics) Option {
	return func(a *Accumulator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// Accumulator is safe for concurrent use.  Updates within one process are
// serialized by a mutex; WithLocks extends that across processes.
type Accumulator struct {
	mu         sync.Mutex
	points     PointStore
	algorithms AlgorithmStore
	opts       regression.Options
	locks      LockFactory
	logger     logging.Logger
	metrics    *prometheus.PipelineMetrics
}

// New returns an Accumulator over the two stores.  opts bounds the
// nonlinear fit; its Method is ignored.
func New(points PointStore, algorithms AlgorithmStore, opts regression.Options, logger logging.Logger, options ...Option) *Accumulator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &Accumulator{
		points:     points,
		algorithms: algorithms,
		opts:       opts,
		logger:     logger,
		metrics:    prometheus.NewNopMetrics(),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// AddObservation records one catch and refits the species.  Invalid input
// and storage failures are returned as errors; a fit that cannot be
// computed yields StatusFailed with a nil error, leaving the stored points
// in place and the previous algorithm untouched.
func (a *Accumulator) AddObservation(ctx context.Context, obs species.Observation) (Outcome, error) {
	if !obs.Valid() {
		return Outcome{}, errors.New(errors.ErrCodeInvalidMeasurement, "observation needs a species name and positive length and weight")
	}
	name := strings.TrimSpace(obs.SpeciesName)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.locks != nil {
		lock := a.locks(species.NameKey(name))
		if err := lock.Lock(ctx); err != nil {
			return Outcome{}, err
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("failed to release accumulator lock", logging.EntityName(name), logging.Err(err))
			}
		}()
	}

	pts, err := a.points.LoadPoints(ctx, name)
	if err != nil {
		return Outcome{}, err
	}
	pts.Lengths = append(pts.Lengths, obs.LengthCm)
	pts.Weights = append(pts.Weights, obs.WeightKg)
	if err := a.points.SavePoints(ctx, name, pts); err != nil {
		return Outcome{}, err
	}

	out := a.refit(ctx, name, pts)
	if out.Status == StatusSuccess {
		alg := Algorithm{A: out.A, B: out.B, RSquared: out.RSquared, DataPointsCount: out.DataPointsCount}
		if err := a.algorithms.SaveAlgorithm(ctx, name, alg); err != nil {
			return Outcome{}, err
		}
	}

	a.metrics.ObservationsTotal.WithLabelValues(string(out.Status)).Inc()
	a.logger.Info("observation accumulated",
		logging.EntityName(name),
		logging.String("status", string(out.Status)),
		logging.Int("points", out.DataPointsCount))
	return out, nil
}

func (a *Accumulator) refit(_ context.Context, name string, pts Points) Outcome {
	n := pts.Len()
	if n < regression.MinSamples {
		return Outcome{
			Status:          StatusPending,
			SpeciesName:     name,
			DataPointsCount: n,
			Message:         fmt.Sprintf("not enough data points to calculate parameters yet, need at least %d", regression.MinSamples),
		}
	}

	p, err := regression.FitNonlinear(pts.Lengths, pts.Weights, a.opts)
	if err != nil {
		return Outcome{Status: StatusFailed, SpeciesName: name, DataPointsCount: n, Message: err.Error()}
	}
	return Outcome{
		Status:          StatusSuccess,
		SpeciesName:     name,
		A:               p.A,
		B:               p.B,
		RSquared:        p.RSquared,
		DataPointsCount: n,
		Message:         "success",
	}
}

// Algorithm returns the stored fit for name as a RegressionResult.
func (a *Accumulator) Algorithm(ctx context.Context, name string) (species.RegressionResult, bool, error) {
	alg, ok, err := a.algorithms.LoadAlgorithm(ctx, strings.TrimSpace(name))
	if err != nil || !ok {
		return species.RegressionResult{}, ok, err
	}
	return toResult(name, alg), true, nil
}

// Results returns every stored fit, ordered by name.
func (a *Accumulator) Results(ctx context.Context) ([]species.RegressionResult, error) {
	all, err := a.algorithms.ListAlgorithms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]species.RegressionResult, 0, len(all))
	for name, alg := range all {
		out = append(out, toResult(name, alg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityName < out[j].EntityName })
	return out, nil
}

func toResult(name string, alg Algorithm) species.RegressionResult {
	return species.RegressionResult{
		EntityName:    strings.TrimSpace(name),
		A:             alg.A,
		B:             alg.B,
		RSquared:      alg.RSquared,
		MeasureType:   species.UnknownMeasureType,
		SampleCount:   alg.DataPointsCount,
		Formula:       species.Formula,
		Method:        species.MethodNonlinear,
		LowConfidence: alg.DataPointsCount < 3,
	}
}

//Personal.AI order the ending
