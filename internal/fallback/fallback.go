// Package fallback supplies hand-entered measurement tables for species
// whose detail pages cannot be extracted.  Every record it returns is
// marked synthetic.
package fallback

import (
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Curve generates points from a published W = a·L^b over [From, To].
type Curve struct {
	A    float64 `yaml:"a"`
	B    float64 `yaml:"b"`
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
	Step float64 `yaml:"step"`
}

// Entry is one species in the fallback file.  Points takes precedence over
// Curve when both are set.
type Entry struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Aliases     []string     `yaml:"aliases"`
	Edible      bool         `yaml:"edible"`
	MeasureType string       `yaml:"measure_type"`
	Points      [][2]float64 `yaml:"points"`
	Curve       *Curve       `yaml:"curve"`
}

type file struct {
	Species []Entry `yaml:"species"`
}

// Provider answers lookups against the loaded entries.
type Provider struct {
	entries []Entry
	byID    map[string]int
	byName  map[string]int
}

// Load reads the YAML file at path.  An empty path yields an empty provider.
func Load(path string) (*Provider, error) {
	if path == "" {
		return New(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read fallback file").WithDetail(path)
	}
	return Parse(data)
}

// Parse decodes a fallback document.
func Parse(data []byte) (*Provider, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "malformed fallback file")
	}
	return New(f.Species)
}

// New builds a provider from entries, validating each.
func New(entries []Entry) (*Provider, error) {
	p := &Provider{byID: map[string]int{}, byName: map[string]int{}}
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, errors.Newf(errors.ErrCodeValidation, "fallback entry %d has no name", i)
		}
		if len(e.Points) == 0 {
			if e.Curve == nil {
				return nil, errors.Newf(errors.ErrCodeValidation, "fallback entry %q has neither points nor curve", e.Name)
			}
			if e.Curve.A <= 0 || e.Curve.Step <= 0 || e.Curve.To < e.Curve.From || e.Curve.From <= 0 {
				return nil, errors.Newf(errors.ErrCodeValidation, "fallback entry %q has an invalid curve", e.Name)
			}
		}
		p.entries = append(p.entries, e)
		if id := strings.TrimSpace(e.ID); id != "" {
			p.byID[id] = i
		}
		for _, n := range append([]string{e.Name}, e.Aliases...) {
			p.byName[species.NameKey(n)] = i
		}
	}
	return p, nil
}

// Len returns the number of entries.
func (p *Provider) Len() int { return len(p.entries) }

// Lookup returns synthetic records for entity, matching by id and then by
// name or alias.  The records carry the entity's id and name.
func (p *Provider) Lookup(entity species.EntityDescriptor) ([]species.MeasurementRecord, bool) {
	i, ok := p.byID[strings.TrimSpace(entity.ID)]
	if !ok || entity.ID == "" {
		i, ok = p.byName[species.NameKey(entity.Name)]
	}
	if !ok {
		return nil, false
	}
	e := p.entries[i]

	measure := e.MeasureType
	if measure == "" {
		measure = species.UnknownMeasureType
	}
	var out []species.MeasurementRecord
	for _, pt := range points(e) {
		rec := species.MeasurementRecord{
			EntityID:    entity.ID,
			EntityName:  entity.Name,
			IsEdible:    entity.IsEdible,
			MeasureType: measure,
			LengthCm:    pt[0],
			WeightKg:    pt[1],
			IsSynthetic: true,
		}
		if rec.Valid() {
			out = append(out, rec)
		}
	}
	return out, len(out) > 0
}

func points(e Entry) [][2]float64 {
	if len(e.Points) > 0 {
		return e.Points
	}
	c := e.Curve
	var out [][2]float64
	// Index-based stepping avoids float drift past To.
	n := int(math.Floor((c.To-c.From)/c.Step + 1e-9))
	for k := 0; k <= n; k++ {
		l := c.From + float64(k)*c.Step
		out = append(out, [2]float64{l, c.A * math.Pow(l, c.B)})
	}
	return out
}

//Personal.AI order the ending
