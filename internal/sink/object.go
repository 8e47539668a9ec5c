package sink

import (
	"bytes"
	"context"

	"github.com/turtacn/fishlwr/pkg/types/species"
)

// ArtifactStore is the subset of the MinIO client the sink needs.
type ArtifactStore interface {
	PutArtifact(ctx context.Context, runID, name string, data []byte, contentType string) error
}

// ObjectSink uploads the CSV and JSON renderings of a run as artifacts under
// runs/<runID>/.
type ObjectSink struct {
	store ArtifactStore
	runID string
}

// NewObjectSink returns a sink uploading through store.
func NewObjectSink(store ArtifactStore, runID string) *ObjectSink {
	return &ObjectSink{store: store, runID: runID}
}

// Name implements Sink.
func (s *ObjectSink) Name() string { return "minio" }

// Write implements Sink.
func (s *ObjectSink) Write(ctx context.Context, records []species.MeasurementRecord, results map[string]species.RegressionResult) error {
	var rec, res, js bytes.Buffer
	if err := EncodeRecordsCSV(&rec, records); err != nil {
		return err
	}
	if err := EncodeResultsCSV(&res, results); err != nil {
		return err
	}
	if err := EncodeDataset(&js, records, results); err != nil {
		return err
	}

	artifacts := []struct {
		name, contentType string
		data              []byte
	}{
		{RecordsCSV, "text/csv", rec.Bytes()},
		{ResultsCSV, "text/csv", res.Bytes()},
		{CanonicalJSON, "application/json", js.Bytes()},
	}
	for _, a := range artifacts {
		if err := s.store.PutArtifact(ctx, s.runID, a.name, a.data, a.contentType); err != nil {
			return err
		}
	}
	return nil
}

//Personal.AI order the ending
