package accumulator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/fishlwr/internal/infrastructure/database/redis"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
)

// Points is the observation history of one species.  Lengths[i] pairs with
// Weights[i].
type Points struct {
	Lengths []float64 `json:"lengths"`
	Weights []float64 `json:"weights"`
}

// Len returns the number of observations.
func (p Points) Len() int { return len(p.Lengths) }

// Algorithm is the latest fit derived from a species' points.
type Algorithm struct {
	A               float64 `json:"a"`
	B               float64 `json:"b"`
	RSquared        float64 `json:"r_squared"`
	DataPointsCount int     `json:"data_points_count"`
}

// PointStore persists observation histories keyed by species name.
type PointStore interface {
	LoadPoints(ctx context.Context, name string) (Points, error)
	SavePoints(ctx context.Context, name string, p Points) error
}

// AlgorithmStore persists fits keyed by species name.
type AlgorithmStore interface {
	LoadAlgorithm(ctx context.Context, name string) (Algorithm, bool, error)
	SaveAlgorithm(ctx context.Context, name string, a Algorithm) error
	ListAlgorithms(ctx context.Context) (map[string]Algorithm, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// JSON file stores
// ─────────────────────────────────────────────────────────────────────────────

// jsonFile is a whole-document JSON map guarded by a mutex.  Writes go to a
// temporary file that is renamed into place.
type jsonFile[V any] struct {
	mu     sync.Mutex
	path   string
	logger logging.Logger
}

func (f *jsonFile[V]) read() (map[string]V, error) {
	out := map[string]V{}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read store").WithDetail(f.path)
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		// An unreadable store starts over rather than blocking new observations.
		f.logger.Warn("store is not valid JSON, starting empty", logging.String("path", f.path), logging.Err(err))
		return map[string]V{}, nil
	}
	return out, nil
}

func (f *jsonFile[V]) write(m map[string]V) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode store")
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create store directory").WithDetail(dir)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to write store").WithDetail(f.path)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to replace store").WithDetail(f.path)
	}
	return nil
}

// FilePointStore keeps all species in one JSON document of the form
// {"<name>": {"lengths": [...], "weights": [...]}}.
type FilePointStore struct{ f jsonFile[Points] }

// NewFilePointStore returns a store backed by path.
func NewFilePointStore(path string, logger logging.Logger) *FilePointStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FilePointStore{f: jsonFile[Points]{path: path, logger: logger}}
}

func (s *FilePointStore) LoadPoints(_ context.Context, name string) (Points, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m, err := s.f.read()
	if err != nil {
		return Points{}, err
	}
	return m[name], nil
}

func (s *FilePointStore) SavePoints(_ context.Context, name string, p Points) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m, err := s.f.read()
	if err != nil {
		return err
	}
	m[name] = p
	return s.f.write(m)
}

// FileAlgorithmStore keeps all fits in one JSON document of the form
// {"<name>": {"a": ..., "b": ..., "r_squared": ..., "data_points_count": n}}.
type FileAlgorithmStore struct{ f jsonFile[Algorithm] }

// NewFileAlgorithmStore returns a store backed by path.
func NewFileAlgorithmStore(path string, logger logging.Logger) *FileAlgorithmStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileAlgorithmStore{f: jsonFile[Algorithm]{path: path, logger: logger}}
}

func (s *FileAlgorithmStore) LoadAlgorithm(_ context.Context, name string) (Algorithm, bool, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m, err := s.f.read()
	if err != nil {
		return Algorithm{}, false, err
	}
	a, ok := m[name]
	return a, ok, nil
}

func (s *FileAlgorithmStore) SaveAlgorithm(_ context.Context, name string, a Algorithm) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	m, err := s.f.read()
	if err != nil {
		return err
	}
	m[name] = a
	return s.f.write(m)
}

func (s *FileAlgorithmStore) ListAlgorithms(_ context.Context) (map[string]Algorithm, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return s.f.read()
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis hash stores
// ─────────────────────────────────────────────────────────────────────────────

// RedisStore keeps points and algorithms in two hashes, one field per
// species.  It implements both PointStore and AlgorithmStore.
type RedisStore struct {
	rdb        goredis.UniversalClient
	pointsKey  string
	algorithms string
}

// NewRedisStore returns a store over client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		rdb:        client.Underlying(),
		pointsKey:  client.Key("accumulator", "points"),
		algorithms: client.Key("accumulator", "algorithms"),
	}
}

func (s *RedisStore) LoadPoints(ctx context.Context, name string) (Points, error) {
	var p Points
	_, err := hget(ctx, s.rdb, s.pointsKey, name, &p)
	return p, err
}

func (s *RedisStore) SavePoints(ctx context.Context, name string, p Points) error {
	return hset(ctx, s.rdb, s.pointsKey, name, p)
}

func (s *RedisStore) LoadAlgorithm(ctx context.Context, name string) (Algorithm, bool, error) {
	var a Algorithm
	ok, err := hget(ctx, s.rdb, s.algorithms, name, &a)
	return a, ok, err
}

func (s *RedisStore) SaveAlgorithm(ctx context.Context, name string, a Algorithm) error {
	return hset(ctx, s.rdb, s.algorithms, name, a)
}

func (s *RedisStore) ListAlgorithms(ctx context.Context) (map[string]Algorithm, error) {
	raw, err := s.rdb.HGetAll(ctx, s.algorithms).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to list algorithms")
	}
	out := make(map[string]Algorithm, len(raw))
	for name, v := range raw {
		var a Algorithm
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed algorithm").WithDetail(name)
		}
		out[name] = a
	}
	return out, nil
}

func hget(ctx context.Context, rdb goredis.UniversalClient, key, field string, v interface{}) (bool, error) {
	raw, err := rdb.HGet(ctx, key, field).Bytes()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read hash field").WithDetail(key + "/" + field)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSerialization, "malformed hash field").WithDetail(key + "/" + field)
	}
	return true, nil
}

func hset(ctx context.Context, rdb goredis.UniversalClient, key, field string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode hash field")
	}
	if err := rdb.HSet(ctx, key, field, raw).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write hash field").WithDetail(key + "/" + field)
	}
	return nil
}

//Personal.AI order the ending
