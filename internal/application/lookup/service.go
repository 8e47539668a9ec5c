// Package lookup serves read-only queries over the canonical dataset: list
// species, fetch one with its records, and predict weights from its fit.
package lookup

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/regression"
	"github.com/turtacn/fishlwr/internal/sink"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Source loads the dataset.  postgres.SpeciesRepository and FileSource
// satisfy it.
type Source interface {
	LoadDataset(ctx context.Context) (*species.CanonicalDataset, error)
}

// FileSource reads a canonical.json file.  A missing file is an empty
// dataset.
type FileSource struct {
	Path string
}

// LoadDataset implements Source.
func (f FileSource) LoadDataset(context.Context) (*species.CanonicalDataset, error) {
	return sink.LoadDatasetOrEmpty(f.Path)
}

// Detail is one species with its measurements.
type Detail struct {
	Result  species.RegressionResult    `json:"result"`
	Records []species.MeasurementRecord `json:"records"`
}

// Prediction is a modelled weight.
type Prediction struct {
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	LengthCm   float64 `json:"length_cm"`
	WeightKg   float64 `json:"weight_kg"`
	Formula    string  `json:"formula"`
	A          float64 `json:"a"`
	B          float64 `json:"b"`
	RSquared   float64 `json:"r_squared"`
}

// ListFilter narrows List.
type ListFilter struct {
	Edible *bool
	Query  string
}

// Service caches the dataset for ttl.  Concurrent reloads collapse into one
// load.
type Service struct {
	source Source
	ttl    time.Duration
	logger logging.Logger

	mu       sync.RWMutex
	ds       *species.CanonicalDataset
	loadedAt time.Time
	group    singleflight.Group
}

// NewService returns a Service over source.  A zero ttl loads once and
// serves that snapshot until Reload.
func NewService(source Source, ttl time.Duration, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{source: source, ttl: ttl, logger: logger}
}

// Reload forces the next read to hit the source and performs that read.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.ds = nil
	s.mu.Unlock()
	_, err := s.dataset(ctx)
	return err
}

// Ready reports whether the dataset can be loaded.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.dataset(ctx)
	return err
}

func (s *Service) dataset(ctx context.Context) (*species.CanonicalDataset, error) {
	s.mu.RLock()
	ds, at := s.ds, s.loadedAt
	s.mu.RUnlock()
	if ds != nil && (s.ttl == 0 || time.Since(at) < s.ttl) {
		return ds, nil
	}

	v, err, _ := s.group.Do("dataset", func() (interface{}, error) {
		loaded, err := s.source.LoadDataset(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.ds, s.loadedAt = loaded, time.Now()
		s.mu.Unlock()
		s.logger.Info("dataset loaded",
			logging.Int("results", len(loaded.Results)),
			logging.Int("records", len(loaded.Records)))
		return loaded, nil
	})
	if err != nil {
		if ds != nil {
			s.logger.Warn("dataset reload failed, serving stale snapshot", logging.Err(err))
			return ds, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "dataset unavailable")
	}
	return v.(*species.CanonicalDataset), nil
}

// List returns results ordered by numeric id then name.
func (s *Service) List(ctx context.Context, f ListFilter) ([]species.RegressionResult, error) {
	ds, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]species.RegressionResult, 0, len(ds.Results))
	for _, r := range ds.Results {
		if f.Edible != nil && r.IsEdible != *f.Edible {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.EntityName), q) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, okA := species.NumericID(out[i].EntityID)
		b, okB := species.NumericID(out[j].EntityID)
		if okA && okB && a != b {
			return a < b
		}
		if okA != okB {
			return okA
		}
		return strings.ToLower(out[i].EntityName) < strings.ToLower(out[j].EntityName)
	})
	return out, nil
}

// Get returns the species whose id equals key, else whose name matches key
// case-insensitively.
func (s *Service) Get(ctx context.Context, key string) (Detail, error) {
	ds, err := s.dataset(ctx)
	if err != nil {
		return Detail{}, err
	}
	r, ok := ds.Find(strings.TrimSpace(key))
	if !ok {
		return Detail{}, errors.New(errors.ErrCodeSpeciesNotFound, "species not found").WithDetail(key)
	}
	recs := ds.RecordsFor(r.Identity())
	if recs == nil {
		recs = []species.MeasurementRecord{}
	}
	return Detail{Result: r, Records: recs}, nil
}

// Predict returns the weight the species' fit gives for lengthCm.
func (s *Service) Predict(ctx context.Context, key string, lengthCm float64) (Prediction, error) {
	d, err := s.Get(ctx, key)
	if err != nil {
		return Prediction{}, err
	}
	w, err := regression.Predict(d.Result, lengthCm)
	if err != nil {
		return Prediction{}, err
	}
	r := d.Result
	return Prediction{
		EntityID:   r.EntityID,
		EntityName: r.EntityName,
		LengthCm:   lengthCm,
		WeightKg:   w,
		Formula:    r.Formula,
		A:          r.A,
		B:          r.B,
		RSquared:   r.RSquared,
	}, nil
}

//Personal.AI order the ending
