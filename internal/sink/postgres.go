package sink

import (
	"context"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// SpeciesStore is the subset of postgres.SpeciesRepository the sink needs.
type SpeciesStore interface {
	UpsertResults(ctx context.Context, results []species.RegressionResult) error
	CopyRecords(ctx context.Context, runID string, records []species.MeasurementRecord) (int64, error)
}

// PostgresSink upserts results and bulk-copies records tagged with a run id.
// Results only replace stored rows they beat, so the table converges to the
// same winners as the merge engine.
type PostgresSink struct {
	store  SpeciesStore
	runID  string
	logger logging.Logger
}

// NewPostgresSink returns a sink writing through store.
func NewPostgresSink(store SpeciesStore, runID string, logger logging.Logger) *PostgresSink {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PostgresSink{store: store, runID: runID, logger: logger}
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, records []species.MeasurementRecord, results map[string]species.RegressionResult) error {
	if err := s.store.UpsertResults(ctx, SortedResults(results)); err != nil {
		return err
	}
	n, err := s.store.CopyRecords(ctx, s.runID, records)
	if err != nil {
		return err
	}
	s.logger.Debug("postgres sink copied records", logging.RunID(s.runID), logging.Int64("rows", n))
	return nil
}

//Personal.AI order the ending
