package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// synth builds records for W = a·L^b over lengths 20..65 cm, optionally
// perturbed by a deterministic multiplicative wobble.
func synth(a, b, wobble float64) []species.MeasurementRecord {
	var out []species.MeasurementRecord
	for i := 0; i < 10; i++ {
		l := 20 + 5*float64(i)
		w := a * math.Pow(l, b) * (1 + wobble*math.Sin(float64(i)*1.7))
		out = append(out, species.MeasurementRecord{
			EntityID: "344", EntityName: "Shad", IsEdible: true,
			MeasureType: "Fork length", LengthCm: l, WeightKg: w,
		})
	}
	return out
}

func TestFit_LogLinearRecoversCoefficients(t *testing.T) {
	t.Parallel()

	for _, b := range []float64{2.5, 2.9, 3.0, 3.2, 3.5} {
		res, err := NewFitter(Options{}).Fit(synth(2e-5, b, 0))
		require.NoError(t, err)
		assert.InEpsilon(t, 2e-5, res.A, 1e-6)
		assert.InDelta(t, b, res.B, 1e-9)
		assert.InDelta(t, 1.0, res.RSquared, 1e-9)
		assert.Equal(t, 10, res.SampleCount)
		assert.Equal(t, species.MethodLogLinear, res.Method)
		assert.Equal(t, species.Formula, res.Formula)
		assert.Equal(t, "Fork length", res.MeasureType)
		assert.Equal(t, "344", res.EntityID)
		assert.False(t, res.LowConfidence)
	}
}

func TestFit_NonlinearRecoversCoefficients(t *testing.T) {
	t.Parallel()

	f := NewFitter(Options{Method: species.MethodNonlinear})
	res, err := f.Fit(synth(1.5e-5, 3.05, 0))
	require.NoError(t, err)
	assert.InEpsilon(t, 1.5e-5, res.A, 1e-4)
	assert.InDelta(t, 3.05, res.B, 1e-4)
	assert.InDelta(t, 1.0, res.RSquared, 1e-6)
	assert.Equal(t, species.MethodNonlinear, res.Method)
}

func TestFit_NonlinearWithNoise(t *testing.T) {
	t.Parallel()

	res, err := NewFitter(Options{Method: species.MethodNonlinear}).Fit(synth(1e-5, 3.1, 0.04))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.B, 2.5)
	assert.LessOrEqual(t, res.B, 3.5)
	assert.Greater(t, res.RSquared, 0.95)
	assert.LessOrEqual(t, res.RSquared, 1.0)
}

func TestFit_NonlinearRespectsBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trueB float64
		check func(t *testing.T, b float64)
	}{
		{"steep data pinned at upper bound", 4.2, func(t *testing.T, b float64) {
			assert.LessOrEqual(t, b, 3.5)
			assert.InDelta(t, 3.5, b, 0.05)
		}},
		{"flat data pinned at lower bound", 1.8, func(t *testing.T, b float64) {
			assert.GreaterOrEqual(t, b, 2.5)
			assert.InDelta(t, 2.5, b, 0.05)
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := NewFitter(Options{Method: species.MethodNonlinear}).Fit(synth(1e-4, tt.trueB, 0))
			require.NoError(t, err)
			tt.check(t, res.B)
			assert.Greater(t, res.A, 0.0)
			assert.GreaterOrEqual(t, res.RSquared, 0.0)
		})
	}
}

func TestFit_TwoSamplesIsLowConfidence(t *testing.T) {
	t.Parallel()

	recs := []species.MeasurementRecord{
		{EntityName: "Kob", LengthCm: 10, WeightKg: 0.01},
		{EntityName: "Kob", LengthCm: 20, WeightKg: 0.08},
	}
	res, err := NewFitter(Options{}).Fit(recs)
	require.NoError(t, err)
	assert.True(t, res.LowConfidence)
	assert.InDelta(t, 3.0, res.B, 1e-9)
	assert.Equal(t, species.UnknownMeasureType, res.MeasureType)
}

func TestFit_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  species.FitMethod
		records []species.MeasurementRecord
		code    errors.ErrorCode
	}{
		{
			name:   "one valid sample",
			method: species.MethodLogLinear,
			records: []species.MeasurementRecord{
				{LengthCm: 10, WeightKg: 1},
				{LengthCm: -1, WeightKg: 1},
			},
			code: errors.ErrCodeInsufficientData,
		},
		{
			name:    "no samples",
			method:  species.MethodNonlinear,
			records: nil,
			code:    errors.ErrCodeInsufficientData,
		},
		{
			name:   "identical lengths log-linear",
			method: species.MethodLogLinear,
			records: []species.MeasurementRecord{
				{LengthCm: 30, WeightKg: 0.3},
				{LengthCm: 30, WeightKg: 0.4},
			},
			code: errors.ErrCodeDegenerateFit,
		},
		{
			name:   "identical lengths nonlinear",
			method: species.MethodNonlinear,
			records: []species.MeasurementRecord{
				{LengthCm: 30, WeightKg: 0.3},
				{LengthCm: 30, WeightKg: 0.4},
				{LengthCm: 30, WeightKg: 0.5},
			},
			code: errors.ErrCodeDegenerateFit,
		},
		{
			name:   "constant weight nonlinear",
			method: species.MethodNonlinear,
			records: []species.MeasurementRecord{
				{LengthCm: 20, WeightKg: 1},
				{LengthCm: 30, WeightKg: 1},
				{LengthCm: 40, WeightKg: 1},
			},
			code: errors.ErrCodeDegenerateFit,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewFitter(Options{}).FitWith(tt.method, tt.records)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestFitNonlinear_InvertedBounds(t *testing.T) {
	t.Parallel()

	_, err := FitNonlinear([]float64{1, 2}, []float64{1, 8}, Options{BMin: 3.5, BMax: 2.5})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestFitNonlinear_NonConvergent(t *testing.T) {
	t.Parallel()

	var lengths, weights []float64
	for _, r := range synth(1e-5, 3.0, 0.3) {
		lengths = append(lengths, r.LengthCm)
		weights = append(weights, r.WeightKg)
	}

	opts := Options{BMin: 2.5, BMax: 3.5, MaxIterations: 1, Tolerance: 1e-300}
	_, err := FitNonlinear(lengths, weights, opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNonConvergent), "got %v", err)

	opts.MaxIterations, opts.Tolerance = 200, 1e-10
	p, err := FitNonlinear(lengths, weights, opts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.B, 2.5)
	assert.LessOrEqual(t, p.B, 3.5)
}

func TestRSquared(t *testing.T) {
	t.Parallel()

	r2, err := rSquared(10, 20)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2, "worse than the mean clamps to zero")

	r2, err = rSquared(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)

	_, err = rSquared(0, 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDegenerateFit))
}

func TestFitByEntity(t *testing.T) {
	t.Parallel()

	recs := append(synth(2e-5, 3, 0), species.MeasurementRecord{EntityName: "Lonely", LengthCm: 10, WeightKg: 1})
	groups := NewFitter(Options{}).FitByEntity(recs)
	require.Len(t, groups, 2)
	assert.Equal(t, "344", groups[0].Identity)
	assert.NoError(t, groups[0].Err)
	assert.Len(t, groups[0].Records, 10)
	assert.Equal(t, "lonely", groups[1].Identity)
	assert.True(t, errors.IsCode(groups[1].Err, errors.ErrCodeInsufficientData))
}

func TestPredict(t *testing.T) {
	t.Parallel()

	r := species.RegressionResult{A: 0.01, B: 3}
	w, err := Predict(r, 10)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, w, 1e-9)

	_, err = Predict(r, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMeasurement))
	_, err = Predict(species.RegressionResult{}, 10)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMeasurement))
}

//Personal.AI order the ending
