package sink

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// File names written by CSVSink.
const (
	RecordsCSV = "records.csv"
	ResultsCSV = "results.csv"
)

var (
	recordHeader = []string{"entity_id", "entity_name", "is_edible", "measure_type", "length_cm", "weight_kg", "is_synthetic"}
	resultHeader = []string{"entity_id", "entity_name", "is_edible", "measure_type", "a", "b", "r_squared", "sample_count", "method", "low_confidence", "formula"}
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// EncodeRecordsCSV writes records with a header row.
func EncodeRecordsCSV(w io.Writer, records []species.MeasurementRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, m := range records {
		if err := cw.Write([]string{
			m.EntityID, m.EntityName, strconv.FormatBool(m.IsEdible), m.MeasureType,
			formatFloat(m.LengthCm), formatFloat(m.WeightKg), strconv.FormatBool(m.IsSynthetic),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeResultsCSV writes results in SortedResults order with a header row.
func EncodeResultsCSV(w io.Writer, results map[string]species.RegressionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return err
	}
	for _, r := range SortedResults(results) {
		if err := cw.Write([]string{
			r.EntityID, r.EntityName, strconv.FormatBool(r.IsEdible), r.MeasureType,
			formatFloat(r.A), formatFloat(r.B), formatFloat(r.RSquared),
			strconv.Itoa(r.SampleCount), string(r.Method), strconv.FormatBool(r.LowConfidence), r.Formula,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVSink writes records.csv and results.csv into a directory.
type CSVSink struct {
	dir string
}

// NewCSVSink returns a sink rooted at dir.  The directory is created on
// first write.
func NewCSVSink(dir string) *CSVSink { return &CSVSink{dir: dir} }

// Name implements Sink.
func (s *CSVSink) Name() string { return "csv" }

// Write implements Sink.
func (s *CSVSink) Write(_ context.Context, records []species.MeasurementRecord, results map[string]species.RegressionResult) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to create output directory").WithDetail(s.dir)
	}
	if err := writeFile(filepath.Join(s.dir, RecordsCSV), func(w io.Writer) error {
		return EncodeRecordsCSV(w, records)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, ResultsCSV), func(w io.Writer) error {
		return EncodeResultsCSV(w, results)
	})
}

// writeFile renders into a temp file beside path and renames it into place.
func writeFile(path string, render func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to create temp file").WithDetail(path)
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode output").WithDetail(path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to flush output").WithDetail(path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to move output into place").WithDetail(path)
	}
	return nil
}

//Personal.AI order the ending
