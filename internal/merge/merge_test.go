package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/pkg/types/species"
)

func result(id, name string, r2 float64, n int) species.RegressionResult {
	return species.RegressionResult{
		EntityID: id, EntityName: name, A: 0.01, B: 3, RSquared: r2,
		SampleCount: n, Formula: species.Formula, Method: species.MethodLogLinear,
	}
}

func record(id, name string, l, w float64) species.MeasurementRecord {
	return species.MeasurementRecord{EntityID: id, EntityName: name, LengthCm: l, WeightKg: w}
}

func sample() *species.CanonicalDataset {
	return &species.CanonicalDataset{
		Records: []species.MeasurementRecord{
			record("1", "Shad", 30, 0.3),
			record("1", "Shad", 40, 0.7),
			record("4", "Kob", 50, 1.4),
		},
		Results: []species.RegressionResult{
			result("1", "Shad", 0.95, 20),
			result("4", "Kob", 0.9, 12),
		},
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	x := sample()
	got, rep := Merge(x, x)
	assert.Equal(t, x, got)
	assert.Equal(t, Report{Kept: 2}, rep)

	again, _ := Merge(got, got)
	assert.Equal(t, x, again)
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	t.Parallel()

	base := sample()
	in := &species.CanonicalDataset{Results: []species.RegressionResult{result("", "shad", 0.99, 30)}}
	_, _ = Merge(base, in)
	assert.Equal(t, sample(), base)
	assert.Equal(t, "", in.Results[0].EntityID)
}

func TestMerge_HigherRSquaredWinsByName(t *testing.T) {
	t.Parallel()

	base := &species.CanonicalDataset{Results: []species.RegressionResult{result("1", "Shad", 0.95, 20)}}
	in := &species.CanonicalDataset{Results: []species.RegressionResult{result("", "shad", 0.98, 15)}}

	got, rep := Merge(base, in)
	require.Len(t, got.Results, 1)
	assert.Equal(t, 0.98, got.Results[0].RSquared)
	assert.Equal(t, 15, got.Results[0].SampleCount)
	assert.Equal(t, "1", got.Results[0].EntityID)
	assert.Equal(t, "Shad", got.Results[0].EntityName)
	assert.Equal(t, 1, rep.Replaced)
}

func TestMerge_Commutative(t *testing.T) {
	t.Parallel()

	a := &species.CanonicalDataset{Results: []species.RegressionResult{result("1", "Shad", 0.95, 20)}}
	b := &species.CanonicalDataset{Results: []species.RegressionResult{result("1", "Shad", 0.98, 15)}}

	ab, _ := Merge(a, b)
	ba, _ := Merge(b, a)
	assert.Equal(t, ab.Results[0].RSquared, ba.Results[0].RSquared)
	assert.Equal(t, ab.Results[0].SampleCount, ba.Results[0].SampleCount)
}

func TestMerge_TieBreaks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming species.RegressionResult
		wantN    int
		want     Report
	}{
		{"more samples wins an R² tie", result("1", "Shad", 0.95, 25), 25, Report{Replaced: 1}},
		{"fewer samples loses an R² tie", result("1", "Shad", 0.95, 10), 20, Report{Kept: 1}},
		{"full tie keeps existing and counts a conflict", func() species.RegressionResult {
			r := result("1", "Shad", 0.95, 20)
			r.A = 0.02
			return r
		}(), 20, Report{Kept: 1, Conflicts: 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			base := &species.CanonicalDataset{Results: []species.RegressionResult{result("1", "Shad", 0.95, 20)}}
			got, rep := Merge(base, &species.CanonicalDataset{Results: []species.RegressionResult{tt.incoming}})
			assert.Equal(t, tt.wantN, got.Results[0].SampleCount)
			assert.Equal(t, 0.01, got.Results[0].A)
			assert.Equal(t, tt.want, rep)
		})
	}
}

func TestMerge_NewEntitiesGetNextIDs(t *testing.T) {
	t.Parallel()

	in := &species.CanonicalDataset{
		Records: []species.MeasurementRecord{
			record("900", "Garrick", 60, 2.5),
			record("", "Elf", 35, 0.5),
			record("900", "Garrick", 70, 4.1),
		},
		Results: []species.RegressionResult{
			result("900", "Garrick", 0.97, 2),
			result("", "Elf", 0.91, 1),
		},
	}
	got, rep := Merge(sample(), in)

	require.Len(t, got.Results, 4)
	assert.Equal(t, "5", got.Results[2].EntityID)
	assert.Equal(t, "Garrick", got.Results[2].EntityName)
	assert.Equal(t, "6", got.Results[3].EntityID)
	assert.Equal(t, Report{Added: 2, RecordsAppended: 3}, rep)

	assert.Len(t, got.RecordsFor("5"), 2)
	assert.Len(t, got.RecordsFor("6"), 1)
}

func TestMerge_RecordsWithoutResultsAreRekeyed(t *testing.T) {
	t.Parallel()

	in := &species.CanonicalDataset{
		Records: []species.MeasurementRecord{
			record("1", "shad (old name)", 45, 1.1),
			record("", "KOB", 55, 1.8),
			record("7", "Cod", 40, 0.9),
		},
	}
	got, rep := Merge(sample(), in)

	assert.Equal(t, Report{RecordsAppended: 3}, rep)
	require.Len(t, got.Results, 2)
	appended := got.Records[len(got.Records)-3:]
	assert.Equal(t, []species.MeasurementRecord{
		record("1", "Shad", 45, 1.1),
		record("4", "Kob", 55, 1.8),
		record("7", "Cod", 40, 0.9),
	}, appended)
}

func TestMerge_NearDuplicateNamesStayDistinct(t *testing.T) {
	t.Parallel()

	base := &species.CanonicalDataset{Results: []species.RegressionResult{result("1", "Blacktail", 0.9, 10)}}
	in := &species.CanonicalDataset{Results: []species.RegressionResult{result("", "Blacktail (M&F)", 0.99, 10)}}
	got, rep := Merge(base, in)
	assert.Len(t, got.Results, 2)
	assert.Equal(t, 1, rep.Added)
}

func TestEngine_Put(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, nil)
	rep := e.Put(result("344", "Shad", 0.9, 3), []species.MeasurementRecord{record("344", "Shad", 30, 0.3)})
	assert.Equal(t, Report{Added: 1, RecordsAppended: 1}, rep)

	recs := []species.MeasurementRecord{record("", "SHAD", 31, 0.31)}
	rep = e.Put(result("", "SHAD", 0.95, 4), recs)
	assert.Equal(t, Report{Replaced: 1, RecordsAppended: 1}, rep)

	ds := e.Dataset()
	require.Len(t, ds.Results, 1)
	assert.Equal(t, "344", ds.Results[0].EntityID, "ids are kept as given")
	assert.Equal(t, 0.95, ds.Results[0].RSquared)
	assert.Len(t, ds.RecordsFor("344"), 2)
}

func TestEngine_AppendRecords(t *testing.T) {
	t.Parallel()

	e := NewEngine(sample(), nil)
	rep := e.AppendRecords([]species.MeasurementRecord{
		record("", "SHAD", 35, 0.5),
		record("9", "Barbel", 20, 0.1),
	})
	assert.Equal(t, 2, rep.RecordsAppended)

	ds := e.Dataset()
	assert.Len(t, ds.Results, 2, "records alone never create results")
	last := ds.Records[len(ds.Records)-2:]
	assert.Equal(t, "1", last[0].EntityID)
	assert.Equal(t, "Shad", last[0].EntityName)
	assert.Equal(t, "9", last[1].EntityID)
}

func TestMerge_NilIncoming(t *testing.T) {
	t.Parallel()

	got, rep := Merge(nil, nil)
	assert.Empty(t, got.Results)
	assert.Equal(t, Report{}, rep)
}

//Personal.AI order the ending
