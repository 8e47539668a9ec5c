package extraction

import (
	"strings"

	"github.com/turtacn/fishlwr/internal/extraction/dom"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Attempt records the outcome of one strategy on one document.
type Attempt struct {
	Strategy string `json:"strategy"`
	Err      error  `json:"-"`
}

// Succeeded reports whether the attempt produced the committed grid.
func (a Attempt) Succeeded() bool { return a.Err == nil }

// Result is the output of a successful chain run.
type Result struct {
	Grid     *Grid
	Records  []species.MeasurementRecord
	Dropped  int
	Attempts []Attempt
}

// Chain evaluates strategies in order and commits to the first that yields
// at least one valid record.  Later strategies are not consulted.
type Chain struct {
	strategies []Strategy
	logger     logging.Logger
}

// NewChain builds a chain over strategies, or DefaultStrategies when none are
// given.
func NewChain(logger logging.Logger, strategies ...Strategy) *Chain {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Strategies returns the priority list.
func (c *Chain) Strategies() []Strategy { return c.strategies }

// Run applies the chain to cands.  On total failure the returned error is
// ErrCodeExtractionFailed and the attempts made are still returned.
func (c *Chain) Run(cands []Candidate, entity species.EntityDescriptor, name string) (*Result, []Attempt, error) {
	attempts := make([]Attempt, 0, len(c.strategies))
	for _, s := range c.strategies {
		grid, err := s.Extract(cands)
		if err == nil {
			records, dropped := BuildRecords(grid, entity, name)
			if len(records) == 0 {
				err = errors.Newf(errors.ErrCodeExtractionFailed, "%d rows, none with valid length and weight", len(grid.Rows))
			} else {
				attempts = append(attempts, Attempt{Strategy: s.Name()})
				c.logger.Debug("strategy committed",
					logging.EntityID(entity.ID),
					logging.String("strategy", s.Name()),
					logging.Int("records", len(records)),
					logging.Int("dropped", dropped))
				return &Result{Grid: grid, Records: records, Dropped: dropped, Attempts: attempts}, attempts, nil
			}
		}
		attempts = append(attempts, Attempt{Strategy: s.Name(), Err: err})
		c.logger.Debug("strategy failed",
			logging.EntityID(entity.ID),
			logging.String("strategy", s.Name()),
			logging.Err(err))
	}
	return nil, attempts, errors.Newf(errors.ErrCodeExtractionFailed, "all %d strategies failed", len(c.strategies)).
		WithDetail("entity=" + entity.Identity())
}

// ─────────────────────────────────────────────────────────────────────────────
// Extractor
// ─────────────────────────────────────────────────────────────────────────────

// Extraction is the per-document outcome handed to the regression stage.
type Extraction struct {
	// Name is the species name, overridden by the page's marker text when
	// present.
	Name     string
	Result   *Result
	Attempts []Attempt
}

// Extractor ties the selector and the chain together for one document.
type Extractor struct {
	chain  *Chain
	marker string
}

// NewExtractor returns an Extractor that flags tables by marker.
func NewExtractor(chain *Chain, marker string) *Extractor {
	return &Extractor{chain: chain, marker: marker}
}

// Extract selects candidate tables and runs the chain.  Errors carry
// ErrCodeNoTableFound or ErrCodeExtractionFailed.
func (e *Extractor) Extract(doc *dom.Document, entity species.EntityDescriptor) (*Extraction, error) {
	out := &Extraction{Name: PageName(doc, e.marker, entity.Name)}

	cands, err := SelectCandidates(doc, e.marker)
	if err != nil {
		return out, err
	}
	res, attempts, err := e.chain.Run(cands, entity, out.Name)
	out.Result, out.Attempts = res, attempts
	return out, err
}

// PageName returns the text following marker on the page, or fallback when
// the marker is absent or empty.
func PageName(doc *dom.Document, marker, fallback string) string {
	if marker == "" {
		return fallback
	}
	text, ok := doc.FindText(marker)
	if !ok {
		return fallback
	}
	if i := strings.Index(text, marker); i >= 0 {
		if name := NormalizeText(text[i+len(marker):]); name != "" {
			return name
		}
	}
	return fallback
}

//Personal.AI order the ending
