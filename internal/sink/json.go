package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// CanonicalJSON is the file name written by JSONSink.
const CanonicalJSON = "canonical.json"

// EncodeDataset writes records and results as an indented CanonicalDataset.
func EncodeDataset(w io.Writer, records []species.MeasurementRecord, results map[string]species.RegressionResult) error {
	ds := species.CanonicalDataset{Records: records, Results: SortedResults(results)}
	if ds.Records == nil {
		ds.Records = []species.MeasurementRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

// JSONSink writes canonical.json, the input format of the merge command.
type JSONSink struct {
	path string
}

// NewJSONSink writes to dir/canonical.json.
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{path: filepath.Join(dir, CanonicalJSON)}
}

// Name implements Sink.
func (s *JSONSink) Name() string { return "json" }

// Path returns the file written.
func (s *JSONSink) Path() string { return s.path }

// Write implements Sink.
func (s *JSONSink) Write(_ context.Context, records []species.MeasurementRecord, results map[string]species.RegressionResult) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to create output directory").WithDetail(s.path)
	}
	return writeFile(s.path, func(w io.Writer) error {
		return EncodeDataset(w, records, results)
	})
}

// LoadDataset reads a canonical.json file.  A missing file is a not-found
// error; callers that treat it as empty check errors.IsNotFound.
func LoadDataset(path string) (*species.CanonicalDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("dataset file does not exist").WithDetail(path)
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to read dataset").WithDetail(path)
	}
	var ds species.CanonicalDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed dataset").WithDetail(path)
	}
	return &ds, nil
}

// LoadDatasetOrEmpty is LoadDataset that maps a missing file to an empty
// dataset.
func LoadDatasetOrEmpty(path string) (*species.CanonicalDataset, error) {
	ds, err := LoadDataset(path)
	if errors.IsNotFound(err) {
		return &species.CanonicalDataset{}, nil
	}
	return ds, err
}

//Personal.AI order the ending
