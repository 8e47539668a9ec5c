package postgres

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// recordColumns is the COPY column list for measurement_records.
var recordColumns = []string{
	"run_id", "entity_id", "entity_name", "is_edible", "measure_type",
	"length_cm", "weight_kg", "is_synthetic",
}

const resultColumns = `entity_id, entity_name, is_edible, a, b, r_squared, measure_type,
	sample_count, formula, method, low_confidence`

// upsertResult keeps the stored row unless the incoming one has a higher R²,
// or an equal R² over more samples.
const upsertResult = `
INSERT INTO species_results (identity, ` + resultColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (identity) DO UPDATE SET
	entity_name    = EXCLUDED.entity_name,
	is_edible      = EXCLUDED.is_edible,
	a              = EXCLUDED.a,
	b              = EXCLUDED.b,
	r_squared      = EXCLUDED.r_squared,
	measure_type   = EXCLUDED.measure_type,
	sample_count   = EXCLUDED.sample_count,
	formula        = EXCLUDED.formula,
	method         = EXCLUDED.method,
	low_confidence = EXCLUDED.low_confidence,
	updated_at     = NOW()
WHERE EXCLUDED.r_squared > species_results.r_squared
   OR (EXCLUDED.r_squared = species_results.r_squared AND EXCLUDED.sample_count > species_results.sample_count)`

// SpeciesRepository stores RegressionResults and MeasurementRecords.
type SpeciesRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewSpeciesRepository returns a repository over pool.
func NewSpeciesRepository(pool *pgxpool.Pool, log logging.Logger) *SpeciesRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SpeciesRepository{pool: pool, logger: log}
}

// UpsertResults writes results in one transaction.
func (r *SpeciesRepository) UpsertResults(ctx context.Context, results []species.RegressionResult) error {
	if len(results) == 0 {
		return nil
	}
	return WithTransaction(ctx, r.pool, func(tx pgx.Tx, ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, res := range results {
			batch.Queue(upsertResult, res.Identity(),
				res.EntityID, res.EntityName, res.IsEdible, res.A, res.B, res.RSquared,
				res.MeasureType, res.SampleCount, res.Formula, string(res.Method), res.LowConfidence)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			r.logger.Error("SpeciesRepository.UpsertResults", logging.Err(err))
			return errors.Wrap(err, errors.CodeDBQueryError, "failed to upsert species results")
		}
		return nil
	})
}

// CopyRecords bulk-inserts records tagged with runID using COPY.
func (r *SpeciesRepository) CopyRecords(ctx context.Context, runID string, records []species.MeasurementRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([][]interface{}, 0, len(records))
	for _, m := range records {
		rows = append(rows, []interface{}{
			runID, m.EntityID, m.EntityName, m.IsEdible, m.MeasureType,
			m.LengthCm, m.WeightKg, m.IsSynthetic,
		})
	}
	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"measurement_records"}, recordColumns, pgx.CopyFromRows(rows))
	if err != nil {
		r.logger.Error("SpeciesRepository.CopyRecords", logging.Err(err))
		return n, errors.Wrap(err, errors.CodeDBQueryError, "failed to copy measurement records")
	}
	r.logger.Debug("SpeciesRepository.CopyRecords", logging.Int64("inserted", n), logging.RunID(runID))
	return n, nil
}

// ListResults returns every stored result in insertion order.
func (r *SpeciesRepository) ListResults(ctx context.Context) ([]species.RegressionResult, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultColumns+` FROM species_results ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to list species results")
	}
	defer rows.Close()

	var out []species.RegressionResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to iterate species results")
	}
	return out, nil
}

// FindResult looks a result up by exact id, then by case-insensitive name.
func (r *SpeciesRepository) FindResult(ctx context.Context, key string) (species.RegressionResult, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM species_results
		WHERE entity_id = $1 OR LOWER(entity_name) = LOWER($1)
		ORDER BY (entity_id = $1) DESC, position LIMIT 1`, key)
	res, err := scanResult(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return species.RegressionResult{}, errors.New(errors.ErrCodeSpeciesNotFound, "species not found").WithDetail("key=" + key)
	}
	return res, err
}

// ListRecords returns the stored records of one entity id.
func (r *SpeciesRepository) ListRecords(ctx context.Context, entityID string) ([]species.MeasurementRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT entity_id, entity_name, is_edible, measure_type, length_cm, weight_kg, is_synthetic
		FROM measurement_records WHERE entity_id = $1 ORDER BY id`, entityID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to list measurement records")
	}
	defer rows.Close()

	var out []species.MeasurementRecord
	for rows.Next() {
		var m species.MeasurementRecord
		if err := rows.Scan(&m.EntityID, &m.EntityName, &m.IsEdible, &m.MeasureType, &m.LengthCm, &m.WeightKg, &m.IsSynthetic); err != nil {
			return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to scan measurement record")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadDataset reads the results into a CanonicalDataset without records.
func (r *SpeciesRepository) LoadDataset(ctx context.Context) (*species.CanonicalDataset, error) {
	results, err := r.ListResults(ctx)
	if err != nil {
		return nil, err
	}
	return &species.CanonicalDataset{Results: results}, nil
}

func scanResult(row pgx.Row) (species.RegressionResult, error) {
	var (
		res    species.RegressionResult
		method string
	)
	err := row.Scan(&res.EntityID, &res.EntityName, &res.IsEdible, &res.A, &res.B, &res.RSquared,
		&res.MeasureType, &res.SampleCount, &res.Formula, &method, &res.LowConfidence)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return res, err
		}
		return res, errors.Wrap(err, errors.CodeDBQueryError, "failed to scan species result")
	}
	res.Method = species.FitMethod(method)
	return res, nil
}

//Personal.AI order the ending
