package pipeline

import (
	"fmt"
	"time"

	"github.com/turtacn/fishlwr/internal/extraction"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Failure categories reported in RunSummary.ByCategory.
const (
	CategoryCatalogUnreachable    = "CatalogUnreachable"
	CategoryEntityFetchFailed     = "EntityFetchFailed"
	CategoryNoTableFound          = "NoTableFound"
	CategoryExtractionFailed      = "ExtractionFailed"
	CategoryColumnUnresolved      = "ColumnUnresolved"
	CategoryInsufficientData      = "InsufficientData"
	CategoryDegenerateFit         = "DegenerateFit"
	CategoryNonConvergent         = "NonConvergent"
	CategoryMergeIdentityConflict = "MergeIdentityConflict"
	CategoryInternal              = "Internal"
)

var codeCategories = map[errors.ErrorCode]string{
	errors.ErrCodeCatalogUnreachable:    CategoryCatalogUnreachable,
	errors.ErrCodeEntityFetchFailed:     CategoryEntityFetchFailed,
	errors.ErrCodeFetchTimeout:          CategoryEntityFetchFailed,
	errors.ErrCodeFetchHTTPStatus:       CategoryEntityFetchFailed,
	errors.ErrCodeFetchConnection:       CategoryEntityFetchFailed,
	errors.ErrCodeFetchParse:            CategoryEntityFetchFailed,
	errors.ErrCodeFetchCircuit:          CategoryEntityFetchFailed,
	errors.ErrCodeNoTableFound:          CategoryNoTableFound,
	errors.ErrCodeExtractionFailed:      CategoryExtractionFailed,
	errors.ErrCodeColumnUnresolved:      CategoryColumnUnresolved,
	errors.ErrCodeInsufficientData:      CategoryInsufficientData,
	errors.ErrCodeDegenerateFit:         CategoryDegenerateFit,
	errors.ErrCodeNonConvergent:         CategoryNonConvergent,
	errors.ErrCodeMergeIdentityConflict: CategoryMergeIdentityConflict,
}

// CategoryOf classifies err by its outermost error code.
func CategoryOf(err error) string {
	if c, ok := codeCategories[errors.GetCode(err)]; ok {
		return c
	}
	return CategoryInternal
}

// ItemStatus is the outcome of one entity.
type ItemStatus int

const (
	ItemStatusSuccess ItemStatus = iota
	ItemStatusFailed
	ItemStatusCancelled
)

func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "SUCCESS"
	case ItemStatusFailed:
		return "FAILED"
	case ItemStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ItemResult is the per-entity slot filled by exactly one worker.
type ItemResult struct {
	Index    int
	Entity   species.EntityDescriptor
	Name     string
	Records  []species.MeasurementRecord
	Result   *species.RegressionResult
	Strategy string
	Attempts []extraction.Attempt
	Err      error
	Category string
	Status   ItemStatus
	Duration time.Duration
}

// RunSummary aggregates a run.  Success + Failure + Cancelled == Total.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Total      int            `json:"total"`
	Success    int            `json:"success"`
	Failure    int            `json:"failure"`
	ByCategory map[string]int `json:"by_category"`
	Cancelled  int            `json:"cancelled"`
	Synthetic  int            `json:"synthetic"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
}

func summarize(runID string, started time.Time, items []ItemResult) RunSummary {
	s := RunSummary{
		RunID:      runID,
		Total:      len(items),
		ByCategory: map[string]int{},
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	for _, it := range items {
		switch it.Status {
		case ItemStatusSuccess:
			s.Success++
			if it.Strategy == StrategyFallback {
				s.Synthetic++
			}
		case ItemStatusFailed:
			s.Failure++
			s.ByCategory[it.Category]++
		case ItemStatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

//Personal.AI order the ending
