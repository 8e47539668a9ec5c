package extraction

import (
	"sort"

	"github.com/turtacn/fishlwr/internal/extraction/dom"
	"github.com/turtacn/fishlwr/pkg/errors"
)

// MinTableRows is the smallest table that can hold a header and two data rows.
const MinTableRows = 3

// Candidate is a table hypothesised to contain the measurement grid.
type Candidate struct {
	Table    dom.Table
	Rows     []dom.Row
	Marked   bool
	RowCount int
}

// SelectCandidates ranks the tables of doc:
//
//  1. the table containing the entity-header marker,
//  2. the remaining tables by descending row count, ties in document order.
//
// Tables with fewer than MinTableRows rows are excluded.  An empty result is
// reported as ErrCodeNoTableFound.
func SelectCandidates(doc *dom.Document, marker string) ([]Candidate, error) {
	tables := doc.Tables()
	cands := make([]Candidate, 0, len(tables))
	for _, t := range tables {
		rows := t.Rows()
		if len(rows) < MinTableRows {
			continue
		}
		cands = append(cands, Candidate{
			Table:    t,
			Rows:     rows,
			Marked:   marker != "" && t.ContainsText(marker),
			RowCount: len(rows),
		})
	}
	if len(cands) == 0 {
		if len(tables) == 0 {
			return nil, errors.New(errors.ErrCodeNoTableFound, "document contains no tables")
		}
		return nil, errors.Newf(errors.ErrCodeNoTableFound, "no table has at least %d rows", MinTableRows)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Marked != cands[j].Marked {
			return cands[i].Marked
		}
		return cands[i].RowCount > cands[j].RowCount
	})

	// Only the first marked table keeps the top slot.
	for i := 1; i < len(cands); i++ {
		cands[i].Marked = cands[i].Marked && !cands[0].Marked
	}
	return cands, nil
}

//Personal.AI order the ending
