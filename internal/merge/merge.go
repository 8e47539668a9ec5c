// Package merge folds the outputs of several pipeline runs into one
// CanonicalDataset.
//
// Identity is the species id when present, else the case-insensitive name.
// For a shared identity the result with the higher R² wins, then the one
// with more samples; a full tie keeps the existing result.  Entities that
// are new to the base receive the next free numeric id.
package merge

import (
	"strconv"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Report summarises one merge.
type Report struct {
	Added           int `json:"added"`
	Replaced        int `json:"replaced"`
	Kept            int `json:"kept"`
	Conflicts       int `json:"conflicts"`
	RecordsAppended int `json:"records_appended"`
}

// Add accumulates o into r.
func (r *Report) Add(o Report) {
	r.Added += o.Added
	r.Replaced += o.Replaced
	r.Kept += o.Kept
	r.Conflicts += o.Conflicts
	r.RecordsAppended += o.RecordsAppended
}

// Engine owns a CanonicalDataset and the identity assignment within it.
// Engine is not safe for concurrent use; the pipeline merges from a single
// goroutine after its join barrier.
type Engine struct {
	ds     *species.CanonicalDataset
	logger logging.Logger

	byID   map[string]int
	byName map[string]int
	nextID int64
}

// NewEngine returns an Engine seeded with base.  base is cloned and never
// modified.  A nil base starts an empty dataset.
func NewEngine(base *species.CanonicalDataset, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ds := &species.CanonicalDataset{}
	if base != nil {
		ds = base.Clone()
	}
	e := &Engine{ds: ds, logger: logger}
	e.reindex()
	return e
}

// Dataset returns the merged dataset.  The caller must not mutate it while
// the Engine is still in use.
func (e *Engine) Dataset() *species.CanonicalDataset { return e.ds }

func (e *Engine) reindex() {
	e.byID = make(map[string]int, len(e.ds.Results))
	e.byName = make(map[string]int, len(e.ds.Results))
	e.nextID = 1
	for i, r := range e.ds.Results {
		e.index(i, r)
	}
	for _, m := range e.ds.Records {
		e.observeID(m.EntityID)
	}
}

func (e *Engine) index(i int, r species.RegressionResult) {
	if r.EntityID != "" {
		if _, ok := e.byID[r.EntityID]; !ok {
			e.byID[r.EntityID] = i
		}
	}
	if k := species.NameKey(r.EntityName); k != "" {
		if _, ok := e.byName[k]; !ok {
			e.byName[k] = i
		}
	}
	e.observeID(r.EntityID)
}

func (e *Engine) observeID(id string) {
	if n, ok := species.NumericID(id); ok && n >= e.nextID {
		e.nextID = n + 1
	}
}

// lookup matches by exact id first, then by case-insensitive name.
func (e *Engine) lookup(r species.RegressionResult) (int, bool) {
	if r.EntityID != "" {
		if i, ok := e.byID[r.EntityID]; ok {
			return i, true
		}
	}
	if k := species.NameKey(r.EntityName); k != "" {
		if i, ok := e.byName[k]; ok {
			return i, true
		}
	}
	return 0, false
}

// Merge folds incoming into the engine's dataset.  Results are visited in
// slice order, which fixes the order in which new ids are allocated.
func (e *Engine) Merge(incoming *species.CanonicalDataset) Report {
	var rep Report
	if incoming == nil {
		return rep
	}

	// Identities of incoming entities mapped onto their canonical form.
	rekey := make(map[string]species.RegressionResult, len(incoming.Results))

	for _, r := range incoming.Results {
		if i, ok := e.lookup(r); ok {
			cur := e.ds.Results[i]
			rekey[r.Identity()] = cur
			switch {
			case r.Beats(cur):
				r.EntityID, r.EntityName = cur.EntityID, cur.EntityName
				e.ds.Results[i] = r
				rep.Replaced++
			case cur.Beats(r):
				rep.Kept++
			default:
				if r != cur {
					rep.Conflicts++
					e.logger.Debug("merge tie kept existing result",
						logging.EntityID(cur.EntityID),
						logging.EntityName(cur.EntityName),
						logging.Float64("r_squared", cur.RSquared))
				}
				rep.Kept++
			}
			continue
		}

		old := r.Identity()
		r.EntityID = strconv.FormatInt(e.nextID, 10)
		e.nextID++
		e.ds.Results = append(e.ds.Results, r)
		e.index(len(e.ds.Results)-1, r)
		rekey[old] = r
		rep.Added++
	}

	if !sameDataset(e.ds, incoming) {
		for _, m := range incoming.Records {
			if canon, ok := rekey[m.Identity()]; ok {
				m.EntityID, m.EntityName = canon.EntityID, canon.EntityName
			} else {
				m = e.canonicalRecord(m)
			}
			e.ds.Records = append(e.ds.Records, m)
			rep.RecordsAppended++
		}
	}
	return rep
}

// Put upserts one freshly fitted result and its records, keeping the
// result's own id.  The pipeline uses it to fold per-entity outcomes in
// catalog order.
func (e *Engine) Put(r species.RegressionResult, records []species.MeasurementRecord) Report {
	var rep Report
	records = append([]species.MeasurementRecord(nil), records...)
	if i, ok := e.lookup(r); ok {
		cur := e.ds.Results[i]
		if r.Beats(cur) {
			r.EntityID, r.EntityName = cur.EntityID, cur.EntityName
			e.ds.Results[i] = r
			rep.Replaced++
		} else {
			rep.Kept++
		}
		for j := range records {
			records[j].EntityID, records[j].EntityName = cur.EntityID, cur.EntityName
		}
	} else {
		e.ds.Results = append(e.ds.Results, r)
		e.index(len(e.ds.Results)-1, r)
		rep.Added++
	}
	e.ds.Records = append(e.ds.Records, records...)
	rep.RecordsAppended = len(records)
	return rep
}

// AppendRecords appends records that have no fitted result of their own,
// re-keying them onto a matching canonical entity when one exists.
func (e *Engine) AppendRecords(records []species.MeasurementRecord) Report {
	var rep Report
	for _, m := range records {
		e.ds.Records = append(e.ds.Records, e.canonicalRecord(m))
		rep.RecordsAppended++
	}
	return rep
}

// canonicalRecord files m under the canonical entity it matches by id or
// name.  Unmatched records keep their identity.
func (e *Engine) canonicalRecord(m species.MeasurementRecord) species.MeasurementRecord {
	if i, ok := e.lookup(species.RegressionResult{EntityID: m.EntityID, EntityName: m.EntityName}); ok {
		cur := e.ds.Results[i]
		m.EntityID, m.EntityName = cur.EntityID, cur.EntityName
	}
	e.observeID(m.EntityID)
	return m
}

// sameDataset reports whether incoming already equals the canonical
// dataset, which makes merge(X, X) = X.
func sameDataset(a, b *species.CanonicalDataset) bool {
	if len(a.Records) != len(b.Records) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Records {
		if a.Records[i] != b.Records[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

// Merge folds each of incoming into base in order and returns the result
// and the combined report.  base is not modified.
func Merge(base *species.CanonicalDataset, incoming ...*species.CanonicalDataset) (*species.CanonicalDataset, Report) {
	e := NewEngine(base, nil)
	var total Report
	for _, in := range incoming {
		total.Add(e.Merge(in))
	}
	return e.Dataset(), total
}

//Personal.AI order the ending
