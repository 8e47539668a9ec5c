package extraction

import (
	"strings"

	"github.com/turtacn/fishlwr/pkg/errors"
)

// Role is the semantic meaning of a grid column.
type Role int

const (
	RoleIgnored Role = iota
	RoleMeasureType
	RoleLength
	RoleWeight
)

func (r Role) String() string {
	switch r {
	case RoleMeasureType:
		return "measure_type"
	case RoleLength:
		return "length"
	case RoleWeight:
		return "weight"
	}
	return "ignored"
}

// ColumnMap holds the column index of each role, -1 when absent.
type ColumnMap struct {
	MeasureType int  `json:"measure_type"`
	Length      int  `json:"length"`
	Weight      int  `json:"weight"`
	Positional  bool `json:"positional"`
}

// Resolved reports whether both numeric roles are assigned.
func (c ColumnMap) Resolved() bool { return c.Length >= 0 && c.Weight >= 0 }

// PositionalColumns is the default layout of a three-column grid.
var PositionalColumns = ColumnMap{MeasureType: 0, Length: 1, Weight: 2, Positional: true}

// ClassifyLabel maps a header label onto a Role by case-insensitive
// substring match.  Measure-type keywords are checked first so that
// "Length Type" is not taken as a length column.
func ClassifyLabel(label string) Role {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "measure") || strings.Contains(l, "type"):
		return RoleMeasureType
	case strings.Contains(l, "length"):
		return RoleLength
	case strings.Contains(l, "weight"):
		return RoleWeight
	}
	return RoleIgnored
}

// hasLengthKeyword and hasWeightKeyword are used by the strategies to spot a
// header row before resolving it.
func hasLengthKeyword(s string) bool { return strings.Contains(strings.ToLower(s), "length") }
func hasWeightKeyword(s string) bool { return strings.Contains(strings.ToLower(s), "weight") }

// ResolveColumns assigns roles to labels.  The first label matching each
// role wins.  When neither a length nor a weight label matches and the grid
// is exactly three columns wide, roles fall back to position.
func ResolveColumns(labels []string, width int) (ColumnMap, error) {
	cm := ColumnMap{MeasureType: -1, Length: -1, Weight: -1}
	for i, label := range labels {
		if i >= width {
			break
		}
		switch ClassifyLabel(label) {
		case RoleMeasureType:
			if cm.MeasureType < 0 {
				cm.MeasureType = i
			}
		case RoleLength:
			if cm.Length < 0 {
				cm.Length = i
			}
		case RoleWeight:
			if cm.Weight < 0 {
				cm.Weight = i
			}
		}
	}

	if cm.Resolved() {
		return cm, nil
	}
	if cm.Length < 0 && cm.Weight < 0 && width == 3 {
		return PositionalColumns, nil
	}
	return cm, errors.Newf(errors.ErrCodeColumnUnresolved,
		"cannot resolve length and weight columns from labels %q", labels)
}

//Personal.AI order the ending
