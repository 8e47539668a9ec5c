package extraction

import (
	"github.com/turtacn/fishlwr/internal/extraction/dom"
	"github.com/turtacn/fishlwr/pkg/errors"
)

// Grid is a record grid produced by a strategy: header labels, raw data rows
// and the resolved column roles.
type Grid struct {
	Strategy   string     `json:"strategy"`
	TableIndex int        `json:"table_index"`
	Labels     []string   `json:"labels"`
	Rows       [][]string `json:"rows"`
	Columns    ColumnMap  `json:"columns"`
}

// Width is the number of columns described by the labels, or by the widest
// row when there are no labels.
func (g *Grid) Width() int {
	if len(g.Labels) > 0 {
		return len(g.Labels)
	}
	w := 0
	for _, r := range g.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Strategy turns candidate tables into a column-resolved grid.  Strategies
// must not retain or mutate the candidates.
type Strategy interface {
	Name() string
	Extract(cands []Candidate) (*Grid, error)
}

// DefaultStrategies returns the fixed priority list A, B, C.
func DefaultStrategies() []Strategy {
	return []Strategy{HeaderMarkerStrategy{}, FixedColumnStrategy{}, GenericStrategy{}}
}

// ─────────────────────────────────────────────────────────────────────────────
// Strategy A: header-marker-guided
// ─────────────────────────────────────────────────────────────────────────────

// HeaderMarkerStrategy reads the table flagged by the entity-header marker,
// using emphasized header cells to locate the column labels.
type HeaderMarkerStrategy struct{}

func (HeaderMarkerStrategy) Name() string { return "header_marker" }

func (s HeaderMarkerStrategy) Extract(cands []Candidate) (*Grid, error) {
	if len(cands) == 0 || !cands[0].Marked {
		return nil, errors.New(errors.ErrCodeExtractionFailed, "no table carries the entity-header marker")
	}
	c := cands[0]

	hdr := -1
	for i, row := range c.Rows {
		if emphasizedHeader(row) {
			hdr = i
			break
		}
	}
	if hdr < 0 {
		return nil, errors.New(errors.ErrCodeColumnUnresolved, "no emphasized length/weight header row")
	}

	labels := headerLabels(c.Rows[hdr])
	width := len(labels)
	var rows [][]string
	for _, row := range c.Rows[hdr+1:] {
		texts := row.Texts()
		if len(texts) < width {
			continue
		}
		texts = texts[:width]
		if anyEmpty(texts) {
			continue
		}
		rows = append(rows, texts)
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeExtractionFailed, "header found but no complete data rows follow it")
	}

	cols, err := ResolveColumns(labels, width)
	if err != nil {
		return nil, err
	}
	return &Grid{Strategy: s.Name(), TableIndex: c.Table.Index, Labels: labels, Rows: rows, Columns: cols}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Strategy B: fixed three-column heuristic
// ─────────────────────────────────────────────────────────────────────────────

// FixedColumnStrategy looks for tables whose data rows have exactly three
// cells.  Rows of any other width are skipped.  Column roles come from a
// keyword header row when the table has one, else from position: measure
// type, length, weight.
type FixedColumnStrategy struct{}

func (FixedColumnStrategy) Name() string { return "fixed_three_column" }

func (s FixedColumnStrategy) Extract(cands []Candidate) (*Grid, error) {
	var lastErr error = errors.New(errors.ErrCodeExtractionFailed, "no table has three-cell rows")
	for _, c := range cands {
		g, err := s.extractTable(c)
		if err == nil {
			return g, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s FixedColumnStrategy) extractTable(c Candidate) (*Grid, error) {
	var triples []dom.Row
	for _, row := range c.Rows {
		if len(row.Cells()) == 3 {
			triples = append(triples, row)
		}
	}
	if len(triples) == 0 {
		return nil, errors.New(errors.ErrCodeExtractionFailed, "no three-cell rows")
	}

	// Keyword header, emphasized or plain.
	for i, row := range triples {
		var labels []string
		switch {
		case emphasizedHeader(row):
			labels = headerLabels(row)
		case rowHasKeywords(row.Texts()):
			labels = normalizedTexts(row)
		default:
			continue
		}
		rows := completeRows(triples[i+1:])
		if len(rows) == 0 {
			return nil, errors.New(errors.ErrCodeExtractionFailed, "header row has no complete three-cell rows after it")
		}
		cols, err := ResolveColumns(labels, 3)
		if err != nil {
			return nil, err
		}
		return &Grid{Strategy: s.Name(), TableIndex: c.Table.Index, Labels: labels, Rows: rows, Columns: cols}, nil
	}

	rows := completeRows(triples)
	if len(rows) < 2 {
		return nil, errors.New(errors.ErrCodeColumnUnresolved, "too few consistent three-cell rows for positional columns")
	}
	return &Grid{Strategy: s.Name(), TableIndex: c.Table.Index, Rows: rows, Columns: PositionalColumns}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Strategy C: generic structural parse
// ─────────────────────────────────────────────────────────────────────────────

// GenericStrategy parses every candidate table as a plain grid and looks for
// a header row by keyword, without relying on emphasis.
type GenericStrategy struct{}

func (GenericStrategy) Name() string { return "generic" }

func (s GenericStrategy) Extract(cands []Candidate) (*Grid, error) {
	var lastErr error = errors.New(errors.ErrCodeColumnUnresolved, "no table has a length/weight header row")
	for _, c := range cands {
		grid := make([][]string, len(c.Rows))
		for i, row := range c.Rows {
			grid[i] = row.Texts()
		}

		hdr := -1
		for i, texts := range grid {
			if rowHasKeywords(texts) {
				hdr = i
				break
			}
		}
		if hdr < 0 {
			continue
		}

		labels := grid[hdr]
		cols, err := ResolveColumns(labels, len(labels))
		if err != nil {
			lastErr = err
			continue
		}
		var rows [][]string
		for _, texts := range grid[hdr+1:] {
			if len(texts) < len(labels) {
				continue
			}
			rows = append(rows, texts[:len(labels)])
		}
		if len(rows) == 0 {
			lastErr = errors.New(errors.ErrCodeExtractionFailed, "header row has no data rows after it")
			continue
		}
		return &Grid{Strategy: s.Name(), TableIndex: c.Table.Index, Labels: labels, Rows: rows, Columns: cols}, nil
	}
	return nil, lastErr
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// emphasizedHeader reports whether the emphasized cell texts of row contain
// both a length and a weight keyword.
func emphasizedHeader(row dom.Row) bool {
	var length, weight bool
	for _, cell := range row.Cells() {
		t, ok := cell.Emphasized()
		if !ok {
			continue
		}
		length = length || hasLengthKeyword(t)
		weight = weight || hasWeightKeyword(t)
	}
	return length && weight
}

// headerLabels takes each cell's emphasized sub-text where present, else its
// raw text.
func headerLabels(row dom.Row) []string {
	cells := row.Cells()
	labels := make([]string, len(cells))
	for i, cell := range cells {
		if t, ok := cell.Emphasized(); ok {
			labels[i] = NormalizeText(t)
		} else {
			labels[i] = NormalizeText(cell.Text())
		}
	}
	return labels
}

func normalizedTexts(row dom.Row) []string {
	texts := row.Texts()
	for i, t := range texts {
		texts[i] = NormalizeText(t)
	}
	return texts
}

func rowHasKeywords(texts []string) bool {
	var length, weight bool
	for _, t := range texts {
		length = length || hasLengthKeyword(t)
		weight = weight || hasWeightKeyword(t)
	}
	return length && weight
}

func completeRows(rows []dom.Row) [][]string {
	var out [][]string
	for _, row := range rows {
		texts := row.Texts()
		if anyEmpty(texts) {
			continue
		}
		out = append(out, texts)
	}
	return out
}

func anyEmpty(texts []string) bool {
	for _, t := range texts {
		if t == "" {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
