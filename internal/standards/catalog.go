// Package standards holds the reference medical-standard table that
// measurements are validated against.
package standards

import (
	"fmt"
	"sort"

	"github.com/health-attestation-server/internal/domain"
)

// Catalog is an immutable, process-wide table of medical standards keyed by
// exact, case-sensitive test name. It is safe for concurrent use.
type Catalog struct {
	byName map[string]*domain.MedicalStandard
	names  []string
}

// NewCatalog builds a catalog from the given standards. Test names must be
// unique and every named band must lie within the standard's possible range.
func NewCatalog(defs []domain.MedicalStandard) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*domain.MedicalStandard, len(defs))}
	for i := range defs {
		def := defs[i]
		if def.TestName == "" {
			return nil, fmt.Errorf("standard %d has no test name", i)
		}
		if _, dup := c.byName[def.TestName]; dup {
			return nil, fmt.Errorf("duplicate standard %q", def.TestName)
		}
		if def.PossibleRange.Min > def.PossibleRange.Max {
			return nil, fmt.Errorf("standard %q: possible range %s is inverted", def.TestName, def.PossibleRange)
		}
		bands := make(map[string]domain.StandardRange, len(def.Bands))
		for name, band := range def.Bands {
			if band.Min > band.Max {
				return nil, fmt.Errorf("standard %q: band %q %s is inverted", def.TestName, name, band)
			}
			bands[name] = band
		}
		def.Bands = bands
		c.byName[def.TestName] = &def
		c.names = append(c.names, def.TestName)
	}
	sort.Strings(c.names)
	return c, nil
}

// Lookup returns a copy of the standard for testName.
func (c *Catalog) Lookup(testName string) (*domain.MedicalStandard, bool) {
	s, ok := c.byName[testName]
	if !ok {
		return nil, false
	}
	return clone(s), true
}

// Classify returns the sorted names of the advisory bands containing value.
// Bands never gate submission.
func (c *Catalog) Classify(testName string, value float64) ([]string, error) {
	s, ok := c.byName[testName]
	if !ok {
		return nil, domain.NewUnknownTestTypeError(testName)
	}
	matched := []string{}
	for name, band := range s.Bands {
		if band.Contains(value) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

// List returns every standard ordered by test name.
func (c *Catalog) List() []*domain.MedicalStandard {
	out := make([]*domain.MedicalStandard, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, clone(c.byName[name]))
	}
	return out
}

func clone(s *domain.MedicalStandard) *domain.MedicalStandard {
	cp := *s
	cp.Bands = make(map[string]domain.StandardRange, len(s.Bands))
	for k, v := range s.Bands {
		cp.Bands[k] = v
	}
	return &cp
}
