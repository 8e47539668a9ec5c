package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

func dataset() *species.CanonicalDataset {
	return &species.CanonicalDataset{
		Records: []species.MeasurementRecord{
			{EntityID: "10", EntityName: "Kob", IsEdible: true, MeasureType: "Total length", LengthCm: 50, WeightKg: 1.4},
			{EntityID: "2", EntityName: "Shad, Elf", IsEdible: true, MeasureType: "Fork length", LengthCm: 30, WeightKg: 0.35},
			{EntityID: "2", EntityName: "Shad, Elf", IsEdible: true, MeasureType: "Fork length", LengthCm: 40, WeightKg: 0.8, IsSynthetic: true},
		},
		Results: []species.RegressionResult{
			{EntityID: "10", EntityName: "Kob", A: 0.00001, B: 3.01, RSquared: 0.99, SampleCount: 12, Formula: species.Formula, Method: species.MethodLogLinear},
			{EntityID: "2", EntityName: "Shad, Elf", A: 0.00002, B: 2.9, RSquared: 1, SampleCount: 2, Formula: species.Formula, Method: species.MethodLogLinear, LowConfidence: true},
		},
	}
}

func TestSortedResults(t *testing.T) {
	t.Parallel()

	got := SortedResults(map[string]species.RegressionResult{
		"a": {EntityID: "10", EntityName: "Kob"},
		"b": {EntityID: "2", EntityName: "Shad"},
		"c": {EntityID: "", EntityName: "barbel"},
		"d": {EntityID: "", EntityName: "Adder"},
		"e": {EntityID: "x7", EntityName: "Odd"},
	})
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.EntityID + "/" + r.EntityName
	}
	assert.Equal(t, []string{"2/Shad", "10/Kob", "/Adder", "/barbel", "x7/Odd"}, ids)
}

func TestCSVSink_Write(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	ds := dataset()
	require.NoError(t, WriteDataset(context.Background(), NewCSVSink(dir), ds))

	f, err := os.Open(filepath.Join(dir, RecordsCSV))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, recordHeader, rows[0])
	assert.Equal(t, []string{"2", "Shad, Elf", "true", "Fork length", "40", "0.8", "true"}, rows[3])

	g, err := os.Open(filepath.Join(dir, ResultsCSV))
	require.NoError(t, err)
	defer g.Close()
	rows, err = csv.NewReader(g).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2", rows[1][0], "results are ordered by numeric id")
	assert.Equal(t, "true", rows[1][9])
	assert.Equal(t, species.Formula, rows[2][10])
}

func TestJSONSink_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewJSONSink(dir)
	ds := dataset()
	require.NoError(t, WriteDataset(context.Background(), s, ds))

	got, err := LoadDataset(s.Path())
	require.NoError(t, err)
	assert.Equal(t, ds.Records, got.Records)
	require.Len(t, got.Results, 2)
	assert.Equal(t, ds.Results[1], got.Results[0])
	assert.Equal(t, ds.Results[0], got.Results[1])
}

func TestLoadDataset_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadDataset(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.IsNotFound(err))

	empty, err := LoadDatasetOrEmpty(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, empty.Results)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadDatasetOrEmpty(bad)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

type fakeStore struct {
	results []species.RegressionResult
	records []species.MeasurementRecord
	runID   string
	err     error
}

func (f *fakeStore) UpsertResults(_ context.Context, rs []species.RegressionResult) error {
	f.results = rs
	return f.err
}

func (f *fakeStore) CopyRecords(_ context.Context, runID string, rs []species.MeasurementRecord) (int64, error) {
	f.runID, f.records = runID, rs
	return int64(len(rs)), nil
}

func TestPostgresSink_Write(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	require.NoError(t, WriteDataset(context.Background(), NewPostgresSink(store, "run-1", nil), dataset()))
	assert.Equal(t, "run-1", store.runID)
	assert.Len(t, store.records, 3)
	require.Len(t, store.results, 2)
	assert.Equal(t, "2", store.results[0].EntityID)

	failing := &fakeStore{err: errors.New(errors.CodeDBQueryError, "down")}
	err := WriteDataset(context.Background(), NewPostgresSink(failing, "run-2", nil), dataset())
	assert.Error(t, err)
	assert.Nil(t, failing.records, "records are not copied after a failed upsert")
}

type fakeArtifacts struct {
	mu    sync.Mutex
	names []string
	types map[string]string
}

func (f *fakeArtifacts) PutArtifact(_ context.Context, runID, name string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.types == nil {
		f.types = map[string]string{}
	}
	f.names = append(f.names, runID+"/"+name)
	f.types[name] = contentType
	if len(data) == 0 {
		return fmt.Errorf("empty artifact %s", name)
	}
	return nil
}

func TestObjectSink_Write(t *testing.T) {
	t.Parallel()

	store := &fakeArtifacts{}
	require.NoError(t, WriteDataset(context.Background(), NewObjectSink(store, "run-9"), dataset()))
	assert.Equal(t, []string{"run-9/records.csv", "run-9/results.csv", "run-9/canonical.json"}, store.names)
	assert.Equal(t, "application/json", store.types[CanonicalJSON])
}

type fakePublisher struct {
	msgs []*kafka.ProducerMessage
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, m *kafka.ProducerMessage) error {
	f.msgs = append(f.msgs, m)
	return f.err
}

func (f *fakePublisher) PublishBatch(_ context.Context, ms []*kafka.ProducerMessage) error {
	f.msgs = append(f.msgs, ms...)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func TestEventSink_Write(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	require.NoError(t, WriteDataset(context.Background(), NewEventSink(pub, "fitted", "run-3"), dataset()))
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "fitted", pub.msgs[0].Topic)
	assert.Equal(t, []byte("2"), pub.msgs[0].Key)

	env, err := kafka.DecodeEnvelope(pub.msgs[1].Value)
	require.NoError(t, err)
	assert.Equal(t, kafka.EventSpeciesFitted, env.EventType)
	assert.Equal(t, "run-3", env.RunID)
	var r species.RegressionResult
	require.NoError(t, env.DecodePayload(&r))
	assert.Equal(t, "Kob", r.EntityName)

	empty := &fakePublisher{}
	require.NoError(t, NewEventSink(empty, "fitted", "run-4").Write(context.Background(), nil, nil))
	assert.Empty(t, empty.msgs)
}

type namedSink struct {
	name  string
	err   error
	calls int
	mu    sync.Mutex
}

func (s *namedSink) Name() string { return s.name }

func (s *namedSink) Write(context.Context, []species.MeasurementRecord, map[string]species.RegressionResult) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.err
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		failing bool
	}{
		{"all succeed", false},
		{"one fails", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := &namedSink{name: "a"}
			b := &namedSink{name: "b"}
			if tt.failing {
				b.err = errors.New(errors.CodeStorageError, "disk full")
			}
			m := NewMultiSink(nil, a, b)
			assert.Equal(t, "multi(a,b)", m.Name())
			assert.Equal(t, 2, m.Len())

			err := WriteDataset(context.Background(), m, dataset())
			if tt.failing {
				assert.True(t, errors.IsCode(err, errors.CodeStorageError))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, a.calls)
			assert.Equal(t, 1, b.calls)
		})
	}
}

//Personal.AI order the ending
