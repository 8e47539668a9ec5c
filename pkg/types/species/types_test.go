package species

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id, name, want string
	}{
		{"344", "Shad", "344"},
		{" 344 ", "Shad", "344"},
		{"", "  Shad ", "shad"},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IdentityKey(tt.id, tt.name))
	}
}

func TestParseFitMethod(t *testing.T) {
	t.Parallel()

	m, ok := ParseFitMethod(" NonLinear ")
	assert.True(t, ok)
	assert.Equal(t, MethodNonlinear, m)

	_, ok = ParseFitMethod("spline")
	assert.False(t, ok)
}

func TestMeasurementRecord_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		l, w float64
		want bool
	}{
		{"positive", 45, 1.2, true},
		{"zero length", 0, 1.2, false},
		{"negative weight", 45, -1, false},
		{"nan", math.NaN(), 1, false},
		{"inf", 45, math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeasurementRecord{LengthCm: tt.l, WeightKg: tt.w}.Valid())
		})
	}
}

func TestRegressionResult_PredictAndBeats(t *testing.T) {
	t.Parallel()

	r := RegressionResult{A: 0.01, B: 3, RSquared: 0.95, SampleCount: 20}
	assert.InDelta(t, 10.0, r.Predict(10), 1e-9)

	better := RegressionResult{RSquared: 0.98, SampleCount: 15}
	assert.True(t, better.Beats(r))
	assert.False(t, r.Beats(better))

	tie := RegressionResult{RSquared: 0.95, SampleCount: 25}
	assert.True(t, tie.Beats(r))
	assert.False(t, r.Beats(r), "a result never beats itself")
}

func TestCanonicalDataset_Find(t *testing.T) {
	t.Parallel()

	ds := &CanonicalDataset{Results: []RegressionResult{
		{EntityID: "7", EntityName: "Kob"},
		{EntityID: "", EntityName: "Shad"},
	}}

	r, ok := ds.Find("7")
	assert.True(t, ok)
	assert.Equal(t, "Kob", r.EntityName)

	r, ok = ds.Find("SHAD")
	assert.True(t, ok)
	assert.Equal(t, "Shad", r.EntityName)

	_, ok = ds.Find("garrick")
	assert.False(t, ok)

	assert.Len(t, ds.ResultMap(), 2)
}

func TestCanonicalDataset_Clone(t *testing.T) {
	t.Parallel()

	ds := &CanonicalDataset{
		Records: []MeasurementRecord{{EntityID: "7", LengthCm: 10, WeightKg: 1}},
		Results: []RegressionResult{{EntityID: "7"}},
	}
	c := ds.Clone()
	c.Records[0].LengthCm = 99
	c.Results[0].A = 1
	assert.Equal(t, 10.0, ds.Records[0].LengthCm)
	assert.Zero(t, ds.Results[0].A)
	assert.Len(t, ds.RecordsFor("7"), 1)
}

func TestNumericID(t *testing.T) {
	t.Parallel()

	n, ok := NumericID("344")
	assert.True(t, ok)
	assert.Equal(t, int64(344), n)
	_, ok = NumericID("abc")
	assert.False(t, ok)
}

//Personal.AI order the ending
