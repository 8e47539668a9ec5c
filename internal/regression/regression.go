// Package regression fits the length-weight relationship W = a·L^b to the
// measurement records of one species.
//
// Two methods are available.  The log-linear method runs ordinary least
// squares on (ln L, ln W) and reports R² in log space.  The nonlinear method
// runs a bounded Levenberg–Marquardt solver directly on W = a·L^b with
// b ∈ [BMin, BMax] and reports R² in raw weight space.
package regression

import (
	"math"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// MinSamples is the smallest sample count a fit is attempted on.
const MinSamples = 2

// lowConfidenceBelow flags fits resting on fewer samples than this.
const lowConfidenceBelow = 3

// zeroTol treats sums of squares below it as exactly zero.
const zeroTol = 1e-12

// Options configures a Fitter.
type Options struct {
	Method        species.FitMethod
	BMin          float64
	BMax          float64
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions returns the log-linear method with the customary fish
// exponent bounds for the nonlinear solver.
func DefaultOptions() Options {
	return Options{
		Method:        species.MethodLogLinear,
		BMin:          2.5,
		BMax:          3.5,
		MaxIterations: 200,
		Tolerance:     1e-10,
	}
}

// Fitter turns measurement records into a RegressionResult.  It holds no
// mutable state and is safe for concurrent use.
type Fitter struct {
	opts Options
}

// NewFitter returns a Fitter.  Zero-valued options fall back to
// DefaultOptions.
func NewFitter(opts Options) *Fitter {
	def := DefaultOptions()
	if opts.Method == "" {
		opts.Method = def.Method
	}
	if opts.BMin == 0 && opts.BMax == 0 {
		opts.BMin, opts.BMax = def.BMin, def.BMax
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	return &Fitter{opts: opts}
}

// Options returns the effective options.
func (f *Fitter) Options() Options { return f.opts }

// Fit fits the records of a single entity.  Records failing Valid are
// ignored.  The entity fields and measure type are taken from the first
// valid record.
func (f *Fitter) Fit(records []species.MeasurementRecord) (species.RegressionResult, error) {
	return f.FitWith(f.opts.Method, records)
}

// FitWith is Fit with an explicit method.
func (f *Fitter) FitWith(method species.FitMethod, records []species.MeasurementRecord) (species.RegressionResult, error) {
	var first *species.MeasurementRecord
	lengths := make([]float64, 0, len(records))
	weights := make([]float64, 0, len(records))
	for i := range records {
		if !records[i].Valid() {
			continue
		}
		if first == nil {
			first = &records[i]
		}
		lengths = append(lengths, records[i].LengthCm)
		weights = append(weights, records[i].WeightKg)
	}
	if len(lengths) < MinSamples {
		return species.RegressionResult{}, errors.Newf(errors.ErrCodeInsufficientData,
			"%d valid samples, need at least %d", len(lengths), MinSamples)
	}

	var (
		p   Params
		err error
	)
	switch method {
	case species.MethodNonlinear:
		p, err = FitNonlinear(lengths, weights, f.opts)
	default:
		method = species.MethodLogLinear
		p, err = FitLogLinear(lengths, weights)
	}
	if err != nil {
		return species.RegressionResult{}, err
	}

	measure := first.MeasureType
	if measure == "" {
		measure = species.UnknownMeasureType
	}
	return species.RegressionResult{
		EntityID:      first.EntityID,
		EntityName:    first.EntityName,
		IsEdible:      first.IsEdible,
		A:             p.A,
		B:             p.B,
		RSquared:      p.RSquared,
		MeasureType:   measure,
		SampleCount:   len(lengths),
		Formula:       species.Formula,
		Method:        method,
		LowConfidence: len(lengths) < lowConfidenceBelow,
	}, nil
}

// Group is the fit outcome for one entity in FitByEntity.
type Group struct {
	Identity string
	Records  []species.MeasurementRecord
	Result   species.RegressionResult
	Err      error
}

// FitByEntity partitions records by identity, in first-seen order, and fits
// each partition.
func (f *Fitter) FitByEntity(records []species.MeasurementRecord) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range records {
		key := r.Identity()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Identity: key})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	for i := range groups {
		groups[i].Result, groups[i].Err = f.Fit(groups[i].Records)
	}
	return groups
}

// Predict returns the modelled weight in kilograms for lengthCm.
func Predict(r species.RegressionResult, lengthCm float64) (float64, error) {
	if !(lengthCm > 0) || math.IsInf(lengthCm, 0) {
		return 0, errors.Newf(errors.ErrCodeInvalidMeasurement, "length must be positive, got %v", lengthCm)
	}
	if !(r.A > 0) {
		return 0, errors.New(errors.ErrCodeInvalidMeasurement, "result has no usable coefficient a").
			WithDetail("entity=" + r.Identity())
	}
	return r.Predict(lengthCm), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Methods
// ─────────────────────────────────────────────────────────────────────────────

// Params are fitted coefficients with their coefficient of determination.
type Params struct {
	A        float64
	B        float64
	RSquared float64
}

// FitLogLinear runs OLS on (ln L, ln W).  a = exp(intercept), b = slope and
// R² is computed in log space.
func FitLogLinear(lengths, weights []float64) (Params, error) {
	n := len(lengths)
	if n < MinSamples || len(weights) != n {
		return Params{}, errors.Newf(errors.ErrCodeInsufficientData, "%d samples", n)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range lengths {
		xs[i] = math.Log(lengths[i])
		ys[i] = math.Log(weights[i])
	}
	mx, my := mean(xs), mean(ys)

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - mx
		sxx += dx * dx
		sxy += dx * (ys[i] - my)
	}
	if sxx <= zeroTol {
		return Params{}, errors.New(errors.ErrCodeDegenerateFit, "all lengths are identical")
	}

	b := sxy / sxx
	intercept := my - b*mx

	var sst, ssr float64
	for i := range xs {
		d := ys[i] - my
		sst += d * d
		e := ys[i] - (intercept + b*xs[i])
		ssr += e * e
	}
	r2, err := rSquared(sst, ssr)
	if err != nil {
		return Params{}, err
	}
	return Params{A: math.Exp(intercept), B: b, RSquared: r2}, nil
}

// FitNonlinear runs a projected Levenberg–Marquardt solver on W = a·L^b.
// The solver works on c = ln a so that a stays positive, and projects b into
// [opts.BMin, opts.BMax] after every step.  R² is computed on raw weights.
func FitNonlinear(lengths, weights []float64, opts Options) (Params, error) {
	n := len(lengths)
	if n < MinSamples || len(weights) != n {
		return Params{}, errors.Newf(errors.ErrCodeInsufficientData, "%d samples", n)
	}
	if opts.BMin > opts.BMax {
		return Params{}, errors.Newf(errors.CodeInvalidParam, "b bounds inverted: [%g, %g]", opts.BMin, opts.BMax)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	logL := make([]float64, n)
	for i, l := range lengths {
		logL[i] = math.Log(l)
	}
	if variance(logL) <= zeroTol {
		return Params{}, errors.New(errors.ErrCodeDegenerateFit, "all lengths are identical")
	}

	clamp := func(b float64) float64 { return math.Min(opts.BMax, math.Max(opts.BMin, b)) }

	// Start from the log-linear fit pulled into bounds, else the customary
	// (0.01, 3.0), then take the best a for that b in closed form.
	b0 := 3.0
	if p, err := FitLogLinear(lengths, weights); err == nil && !math.IsNaN(p.B) {
		b0 = p.B
	}
	b := clamp(b0)
	c := math.Log(0.01)
	if a := bestA(lengths, weights, b); a > 0 {
		c = math.Log(a)
	}

	sse := func(c, b float64) float64 {
		a := math.Exp(c)
		var s float64
		for i := range lengths {
			e := weights[i] - a*math.Exp(b*logL[i])
			s += e * e
		}
		return s
	}

	cost := sse(c, b)
	lambda := 1e-3
	converged := false
	for iter := 0; iter < opts.MaxIterations; iter++ {
		var g11, g12, g22, h1, h2 float64
		a := math.Exp(c)
		for i := range lengths {
			pred := a * math.Exp(b*logL[i])
			j1, j2 := pred, pred*logL[i]
			r := weights[i] - pred
			g11 += j1 * j1
			g12 += j1 * j2
			g22 += j2 * j2
			h1 += j1 * r
			h2 += j2 * r
		}

		improved := false
		for lambda <= 1e12 {
			a11, a22 := g11*(1+lambda), g22*(1+lambda)
			var dc, db float64
			det := a11*a22 - g12*g12
			if det > 0 && !math.IsInf(det, 0) {
				dc = (a22*h1 - g12*h2) / det
				db = (a11*h2 - g12*h1) / det
			}
			if (b <= opts.BMin && db < 0) || (b >= opts.BMax && db > 0) || det <= 0 {
				// b pinned at a bound: step in c alone.
				db = 0
				if a11 > 0 {
					dc = h1 / a11
				}
			}
			nc, nb := c+dc, clamp(b+db)
			next := sse(nc, nb)
			if !math.IsNaN(next) && !math.IsInf(next, 0) && next < cost {
				rel := (cost - next) / math.Max(cost, zeroTol)
				stepSmall := math.Abs(dc) < opts.Tolerance*(1+math.Abs(c)) && math.Abs(nb-b) < opts.Tolerance*(1+math.Abs(b))
				c, b, cost = nc, nb, next
				lambda = math.Max(lambda/10, 1e-12)
				improved = true
				if rel < opts.Tolerance || stepSmall {
					converged = true
				}
				break
			}
			lambda *= 10
		}
		if !improved {
			// No descent direction left: a (possibly constrained) minimum.
			converged = true
		}
		if converged {
			break
		}
	}

	a := math.Exp(c)
	if !converged || !(a > 0) || math.IsInf(a, 0) || math.IsNaN(b) {
		return Params{}, errors.Newf(errors.ErrCodeNonConvergent,
			"no convergence after %d iterations", opts.MaxIterations)
	}

	mw := mean(weights)
	var sst, ssr float64
	for i := range lengths {
		d := weights[i] - mw
		sst += d * d
		e := weights[i] - a*math.Exp(b*logL[i])
		ssr += e * e
	}
	r2, err := rSquared(sst, ssr)
	if err != nil {
		return Params{}, err
	}
	return Params{A: a, B: b, RSquared: r2}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// rSquared returns 1 - ssr/sst clamped into [0, 1].  A zero total variance
// is only acceptable with a zero residual.
func rSquared(sst, ssr float64) (float64, error) {
	if sst <= zeroTol {
		if ssr <= zeroTol {
			return 1, nil
		}
		return 0, errors.New(errors.ErrCodeDegenerateFit, "weights have zero variance but the fit has residual error")
	}
	r2 := 1 - ssr/sst
	switch {
	case math.IsNaN(r2):
		return 0, errors.New(errors.ErrCodeDegenerateFit, "R² is not a number")
	case r2 < 0:
		return 0, nil
	case r2 > 1:
		return 1, nil
	}
	return r2, nil
}

// bestA is the least-squares a for a fixed exponent b.
func bestA(lengths, weights []float64, b float64) float64 {
	var num, den float64
	for i, l := range lengths {
		p := math.Pow(l, b)
		num += weights[i] * p
		den += p * p
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func variance(xs []float64) float64 {
	m := mean(xs)
	var s float64
	for _, x := range xs {
		d := x - m
		s += d * d
	}
	return s / float64(len(xs))
}

//Personal.AI order the ending
