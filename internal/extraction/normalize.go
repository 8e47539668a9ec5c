package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/fishlwr/pkg/types/species"
)

// numberToken matches the leading numeric token of a cleaned cell.  A single
// comma is accepted as a decimal separator.
var numberToken = regexp.MustCompile(`^[+-]?(?:\d+(?:[.,]\d+)?|[.,]\d+)`)

// comparisonMarkers are stripped from the front of a cell.
const comparisonMarkers = "<>≤≥~≈±=* "

// NormalizeNumber coerces a raw length or weight cell to a float.
//
//	"45 cm", "45cm", "<45cm", "45b/cm"  → 45
//	"0,35 kg"                          → 0.35
//	"--", "", "40-45", "n/a"           → missing
//
// Unit suffixes and footnote characters after the number are ignored, but a
// second number in the cell makes it ambiguous and therefore missing.
func NormalizeNumber(raw string) (float64, bool) {
	s := strings.Map(dropSuperscript, raw)
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, comparisonMarkers)

	tok := numberToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	if strings.IndexFunc(s[len(tok):], unicode.IsDigit) >= 0 {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// dropSuperscript removes superscript footnote digits before NFKC would fold
// them into ordinary digits.
func dropSuperscript(r rune) rune {
	switch {
	case r == '¹' || r == '²' || r == '³':
		return -1
	case r >= '⁰' && r <= '⁹':
		return -1
	}
	return r
}

// NormalizeText trims and collapses whitespace in a label or measure type.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// BuildRecords converts a resolved grid into measurement records for entity.
// Rows whose length or weight is missing or non-positive are dropped; the
// number dropped is returned alongside the records.
func BuildRecords(g *Grid, entity species.EntityDescriptor, name string) ([]species.MeasurementRecord, int) {
	if name == "" {
		name = entity.Name
	}
	measureCol := inferMeasureColumn(g)

	records := make([]species.MeasurementRecord, 0, len(g.Rows))
	dropped := 0
	for _, row := range g.Rows {
		length, okL := cellNumber(row, g.Columns.Length)
		weight, okW := cellNumber(row, g.Columns.Weight)
		rec := species.MeasurementRecord{
			EntityID:    entity.ID,
			EntityName:  name,
			IsEdible:    entity.IsEdible,
			MeasureType: species.UnknownMeasureType,
			LengthCm:    length,
			WeightKg:    weight,
		}
		if !okL || !okW || !rec.Valid() {
			dropped++
			continue
		}
		if measureCol >= 0 && measureCol < len(row) {
			if mt := NormalizeText(row[measureCol]); mt != "" {
				rec.MeasureType = mt
			}
		}
		records = append(records, rec)
	}
	return records, dropped
}

// inferMeasureColumn returns the measure-type column, falling back to the
// first column when the grid has no such label but its first value reads
// like a measure ("Fork length", "Total length").
func inferMeasureColumn(g *Grid) int {
	if g.Columns.MeasureType >= 0 {
		return g.Columns.MeasureType
	}
	if g.Width() < 3 || g.Columns.Length == 0 || g.Columns.Weight == 0 || len(g.Rows) == 0 {
		return -1
	}
	if first := g.Rows[0]; len(first) > 0 && strings.HasSuffix(strings.ToLower(strings.TrimSpace(first[0])), "length") {
		return 0
	}
	return -1
}

func cellNumber(row []string, col int) (float64, bool) {
	if col < 0 || col >= len(row) {
		return 0, false
	}
	return NormalizeNumber(row[col])
}

//Personal.AI order the ending
