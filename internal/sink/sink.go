// Package sink persists a run's records and fitted results.  Every sink
// accepts the same (records, results) pair so that the CLI can fan one
// dataset out to files, object storage, Postgres and Kafka.
package sink

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Sink writes records and results keyed by identity.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []species.MeasurementRecord, results map[string]species.RegressionResult) error
}

// WriteDataset writes ds to s.
func WriteDataset(ctx context.Context, s Sink, ds *species.CanonicalDataset) error {
	return s.Write(ctx, ds.Records, ds.ResultMap())
}

// SortedResults orders results by numeric id, then by id text, then by name.
// Map iteration order must never leak into output files.
func SortedResults(results map[string]species.RegressionResult) []species.RegressionResult {
	out := make([]species.RegressionResult, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		na, okA := species.NumericID(a.EntityID)
		nb, okB := species.NumericID(b.EntityID)
		switch {
		case okA && okB && na != nb:
			return na < nb
		case okA != okB:
			return okA
		case a.EntityID != b.EntityID:
			return a.EntityID < b.EntityID
		}
		return strings.ToLower(a.EntityName) < strings.ToLower(b.EntityName)
	})
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// MultiSink
// ─────────────────────────────────────────────────────────────────────────────

// MultiSink writes to every child concurrently and returns the first error.
// The other children are not interrupted by one failure.
type MultiSink struct {
	sinks  []Sink
	logger logging.Logger
}

// NewMultiSink fans out to sinks.
func NewMultiSink(logger logging.Logger, sinks ...Sink) *MultiSink {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MultiSink{sinks: sinks, logger: logger}
}

// Name implements Sink.
func (m *MultiSink) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Len returns the number of children.
func (m *MultiSink) Len() int { return len(m.sinks) }

// Write implements Sink.
func (m *MultiSink) Write(ctx context.Context, records []species.MeasurementRecord, results map[string]species.RegressionResult) error {
	var g errgroup.Group
	for _, s := range m.sinks {
		s := s
		g.Go(func() error {
			if err := s.Write(ctx, records, results); err != nil {
				m.logger.Error("sink write failed", logging.String("sink", s.Name()), logging.Err(err))
				return err
			}
			m.logger.Info("sink written",
				logging.String("sink", s.Name()),
				logging.Int("records", len(records)),
				logging.Int("results", len(results)))
			return nil
		})
	}
	return g.Wait()
}

//Personal.AI order the ending
