// Package factors resolves monetary damage factors for criteria pollutants,
// greenhouse gases and petroleum-market externalities from reference tables.
package factors

import (
	"fmt"
	"sort"
)

// MissingFactorError reports a reference lookup with no usable entry.
type MissingFactorError struct {
	Table    string
	Year     int
	Selector string
}

func (e *MissingFactorError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("missing %s cost factor for %d (%s)", e.Table, e.Year, e.Selector)
	}
	return fmt.Sprintf("missing %s cost factor for %d", e.Table, e.Year)
}

// Criteria holds $/US-ton factors for one year, class, fuel and rate series.
type Criteria struct {
	PM25Tailpipe float64
	NOxTailpipe  float64
	SO2Tailpipe  float64
	PM25Upstream float64
	NOxUpstream  float64
	SO2Upstream  float64
}

type criteriaSelector struct {
	rate  float64
	class string
	fuel  string
}

// CriteriaTable is sparse by year: a lookup uses the latest reference year not
// after the requested one.
type CriteriaTable struct {
	years   []int
	entries map[int]map[criteriaSelector]Criteria
}

// NewCriteriaTable returns an empty table.
func NewCriteriaTable() *CriteriaTable {
	return &CriteriaTable{entries: make(map[int]map[criteriaSelector]Criteria)}
}

// Add registers the factors for a reference year and selector.
func (t *CriteriaTable) Add(year int, rate float64, regClass, fuel string, c Criteria) {
	sel, ok := t.entries[year]
	if !ok {
		sel = make(map[criteriaSelector]Criteria)
		t.entries[year] = sel
		t.years = append(t.years, year)
		sort.Ints(t.years)
	}
	sel[criteriaSelector{rate: rate, class: regClass, fuel: fuel}] = c
}

// SurrogateFuel maps fuels without their own criteria factors onto the fuel
// whose factors stand in for them.
func SurrogateFuel(fuel string) string {
	switch fuel {
	case "E85", "Hydrogen":
		return "Gasoline"
	}
	return fuel
}

// Lookup resolves the criteria factors for a calendar year, class, fuel and
// criteria discount-rate series (0.03 or 0.07).
func (t *CriteriaTable) Lookup(year int, regClass, fuel string, rate float64) (Criteria, error) {
	ref, ok := t.referenceYear(year)
	if !ok {
		return Criteria{}, &MissingFactorError{Table: "criteria", Year: year}
	}
	fuel = SurrogateFuel(fuel)
	c, ok := t.entries[ref][criteriaSelector{rate: rate, class: regClass, fuel: fuel}]
	if !ok {
		return Criteria{}, &MissingFactorError{
			Table:    "criteria",
			Year:     year,
			Selector: fmt.Sprintf("reference year %d, rate %g, %s, %s", ref, rate, regClass, fuel),
		}
	}
	return c, nil
}

func (t *CriteriaTable) referenceYear(year int) (int, bool) {
	i := sort.SearchInts(t.years, year+1)
	if i == 0 {
		return 0, false
	}
	return t.years[i-1], true
}

// Stream identifies one social-cost-of-GHG estimate series.
type Stream string

const (
	Stream5  Stream = "5.0"
	Stream3  Stream = "3.0"
	Stream25 Stream = "2.5"
	Stream95 Stream = "3.95"
)

// Streams lists the GHG estimate series in reporting order.
var Streams = []Stream{Stream5, Stream3, Stream25, Stream95}

// GHG holds $/metric-ton factors for one gas across the estimate series.
type GHG map[Stream]float64

// SCC holds the social cost factors for CO2, CH4 and N2O in one year.
type SCC struct {
	CO2 GHG
	CH4 GHG
	N2O GHG
}

// SCCTable is dense by year.
type SCCTable struct {
	years map[int]SCC
}

// NewSCCTable returns an empty table.
func NewSCCTable() *SCCTable {
	return &SCCTable{years: make(map[int]SCC)}
}

// Add registers the factors for a year.
func (t *SCCTable) Add(year int, f SCC) {
	t.years[year] = f
}

// Lookup returns the factors for exactly the requested year.
func (t *SCCTable) Lookup(year int) (SCC, error) {
	f, ok := t.years[year]
	if !ok {
		return SCC{}, &MissingFactorError{Table: "social cost of GHG", Year: year}
	}
	return f, nil
}

// EnergySecurityTable holds $/barrel petroleum-market externality premia.
type EnergySecurityTable struct {
	premia map[int]float64
	min    int
	max    int
}

// NewEnergySecurityTable returns an empty table.
func NewEnergySecurityTable() *EnergySecurityTable {
	return &EnergySecurityTable{premia: make(map[int]float64)}
}

// Add registers the premium for a year.
func (t *EnergySecurityTable) Add(year int, perBarrel float64) {
	if len(t.premia) == 0 || year < t.min {
		t.min = year
	}
	if len(t.premia) == 0 || year > t.max {
		t.max = year
	}
	t.premia[year] = perBarrel
}

// Lookup returns the premium for a year. Years past the last reference year use
// the last year's premium.
func (t *EnergySecurityTable) Lookup(year int) (float64, error) {
	if len(t.premia) > 0 && year > t.max {
		year = t.max
	}
	v, ok := t.premia[year]
	if !ok {
		return 0, &MissingFactorError{Table: "energy security", Year: year}
	}
	return v, nil
}
