package valuation

import (
	"fmt"

	"github.com/bcaengine/bcaengine/pkg/factors"
	"github.com/bcaengine/bcaengine/pkg/record"
)

// Inventory attribute names.
const (
	PMTailpipe  = "PM Tailpipe (ustons)"
	PMUpstream  = "PM Upstream (ustons)"
	NOxTailpipe = "NOx Tailpipe (ustons)"
	NOxUpstream = "NOx Upstream (ustons)"
	SO2Tailpipe = "SO2 Tailpipe (ustons)"
	SO2Upstream = "SO2 Upstream (ustons)"
	CO2Total    = "CO2 Total (mmt)"
	CH4Total    = "CH4 Total (t)"
	N2OTotal    = "N2O Total (t)"
)

// Canonical roll-up dimensions.
var (
	FuelTypes  = []string{"Gasoline", "Electricity", "Diesel", "E85", "Hydrogen"}
	RegClasses = []string{"Passenger Car", "Light Truck"}
)

// Factors bundles the reference tables used for emission valuation.
type Factors struct {
	Criteria *factors.CriteriaTable
	SCC      *factors.SCCTable
}

// EmissionCosts values the per-fuel inventory and rolls the results up onto
// costKeys. Costs are in thousands of dollars. Keys of a class other than TOTAL
// sum the canonical fuels; TOTAL keys sum the canonical classes. Fuel or class
// cells absent from the inventory contribute zero.
func EmissionCosts(inventory *record.Store, costKeys []record.Key, f Factors) (*record.Store, error) {
	if f.Criteria == nil || f.SCC == nil {
		return nil, fmt.Errorf("criteria and SCC factor tables are required")
	}
	cache := make(map[record.Key]record.Values)
	cell := func(k record.Key) (record.Values, error) {
		if v, ok := cache[k]; ok {
			return v, nil
		}
		inv, ok := inventory.Get(k)
		if !ok {
			return nil, nil
		}
		v, err := valueEmissions(k, inv, f)
		if err != nil {
			return nil, fmt.Errorf("valuing %v: %w", k, err)
		}
		cache[k] = v
		return v, nil
	}
	return rollup(costKeys, emissionAttrs, cell)
}

func valueEmissions(k record.Key, inv record.Values, f Factors) (record.Values, error) {
	out := make(record.Values, len(emissionAttrs))
	year := k.Year()

	for _, s := range criteriaRates {
		c, err := f.Criteria.Lookup(year, k.Class(), k.Fuel(), s.rate)
		if err != nil {
			return nil, err
		}
		costs := map[Category][2]float64{
			CategoryPM25: {c.PM25Tailpipe * inv[PMTailpipe] / 1000, c.PM25Upstream * inv[PMUpstream] / 1000},
			CategoryNOx:  {c.NOxTailpipe * inv[NOxTailpipe] / 1000, c.NOxUpstream * inv[NOxUpstream] / 1000},
			CategorySO2:  {c.SO2Tailpipe * inv[SO2Tailpipe] / 1000, c.SO2Upstream * inv[SO2Upstream] / 1000},
		}
		var tailpipe, upstream float64
		for _, p := range []Category{CategoryPM25, CategoryNOx, CategorySO2} {
			out[pollutantName(p, "tailpipe", s.suffix)] = costs[p][0]
			out[pollutantName(p, "upstream", s.suffix)] = costs[p][1]
			tailpipe += costs[p][0]
			upstream += costs[p][1]
		}
		out[criteriaSourceName("tailpipe", s.suffix)] = tailpipe
		out[criteriaSourceName("upstream", s.suffix)] = upstream
		out[CriteriaName(s.suffix)] = tailpipe + upstream
	}

	scc, err := f.SCC.Lookup(year)
	if err != nil {
		return nil, err
	}
	for _, s := range ghgRates {
		co2 := scc.CO2[s.stream] * inv[CO2Total] * 1e6 / 1000
		ch4 := scc.CH4[s.stream] * inv[CH4Total] / 1000
		n2o := scc.N2O[s.stream] * inv[N2OTotal] / 1000
		out[ghgName(CategoryCO2, s.suffix)] = co2
		out[ghgName(CategoryCH4, s.suffix)] = ch4
		out[ghgName(CategoryN2O, s.suffix)] = n2o
		out[ghgName(CategoryGHG, s.suffix)] = co2 + ch4 + n2o
	}
	return out, nil
}

// rollup sums per-fuel cells onto cost keys: fuels within a class, classes
// within TOTAL. cell returns nil for an absent inventory entry.
func rollup(costKeys []record.Key, attrs []string, cell func(record.Key) (record.Values, error)) (*record.Store, error) {
	classSum := func(k record.Key) (record.Values, error) {
		sum := make(record.Values, len(attrs))
		for _, fuel := range FuelTypes {
			v, err := cell(k.WithFuel(fuel))
			if err != nil {
				return nil, err
			}
			for _, a := range attrs {
				sum[a] += v[a]
			}
		}
		return sum, nil
	}

	out := record.NewStore()
	for _, k := range costKeys {
		var total record.Values
		if k.Class() != record.Total {
			v, err := classSum(k)
			if err != nil {
				return nil, err
			}
			total = v
		} else {
			total = make(record.Values, len(attrs))
			for _, class := range RegClasses {
				v, err := classSum(k.WithClass(class))
				if err != nil {
					return nil, err
				}
				for _, a := range attrs {
					total[a] += v[a]
				}
			}
		}
		for _, a := range attrs {
			out.Set(k, a, total[a])
		}
	}
	return out, nil
}
