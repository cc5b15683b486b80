package discount

import (
	"math"
	"sort"

	"github.com/bcaengine/bcaengine/pkg/record"
)

// seriesKey identifies one accumulation stream: an annual key without its
// calendar year.
type seriesKey struct {
	scenario string
	class    string
	fuel     string
	rate     float64
}

// PresentValues accumulates discounted values from the discount year onward.
// Annual records become running sums in increasing calendar-year order per
// (scenario, class, fuel, rate); records before the discount year are dropped.
// Cohort records of model years at or after the discount year are summed over
// age into one LifetimeKey record per (scenario, model year, class, fuel, rate).
// Accumulated attributes are nonEmission plus the bound emission attributes.
func (e *Engine) PresentValues(s *record.Store, nonEmission ...string) *record.Store {
	attrs := append(append([]string{}, nonEmission...), e.boundIn(s)...)

	out := record.NewStore()
	series := make(map[seriesKey][]record.AnnualKey)
	var order []record.Key
	for _, k := range s.Keys() {
		switch k := k.(type) {
		case record.AnnualKey:
			if k.CalendarYear < e.DiscountYear {
				continue
			}
			sk := seriesKey{scenario: k.Scenario, class: k.RegClass, fuel: k.FuelType, rate: k.DiscountRate}
			series[sk] = append(series[sk], k)
			order = append(order, k)
		case record.CohortKey:
			if k.ModelYear < e.DiscountYear {
				continue
			}
			row, _ := s.Get(k)
			lk := k.Lifetime()
			for _, a := range attrs {
				out.Set(lk, a, out.Value(lk, a)+row[a])
			}
		}
	}
	if len(series) == 0 {
		return out
	}

	cumulative := make(map[record.Key]record.Values, len(order))
	for _, keys := range series {
		sort.Slice(keys, func(i, j int) bool { return keys[i].CalendarYear < keys[j].CalendarYear })
		running := make(record.Values, len(attrs))
		for _, k := range keys {
			row, _ := s.Get(k)
			v := make(record.Values, len(attrs))
			for _, a := range attrs {
				running[a] += row[a]
				v[a] = running[a]
			}
			cumulative[k] = v
		}
	}
	for _, k := range order {
		for _, a := range attrs {
			out.Set(k, a, cumulative[k][a])
		}
	}
	return out
}

// MaxAge returns the largest age of a cohort record with a positive value of
// attr, or 0.
func MaxAge(s *record.Store, attr string) int {
	maxAge := 0
	for _, k := range s.Keys() {
		ck, ok := k.(record.CohortKey)
		if !ok {
			continue
		}
		if ck.Age > maxAge && s.Value(k, attr) > 0 {
			maxAge = ck.Age
		}
	}
	return maxAge
}

// Annualize converts present values into level annual values:
//
//	AC = PV·r·(1+r)^n / ((1+r)^(n+o) − 1)
//
// with o = Timing.AnnualizedOffset(). n is the discounting period of the
// calendar year for annual records and maxAge plus the timing offset for
// lifetime records. Records at rate 0 are skipped. Bound emission attributes
// use their bound rate.
func (e *Engine) Annualize(pv *record.Store, maxAge int, nonEmission ...string) *record.Store {
	emission := e.boundIn(pv)
	o := float64(e.Timing.AnnualizedOffset())

	out := record.NewStore()
	for _, k := range pv.Keys() {
		r := k.Rate()
		if r == 0 {
			continue
		}
		var n int
		switch k.Shape() {
		case record.ShapeLifetime:
			n = maxAge + e.Timing.Offset()
		default:
			n = k.Year() - e.DiscountYear + e.Timing.Offset()
		}
		row, _ := pv.Get(k)
		out.Set(k, AnnualizationPeriods, float64(n))
		for _, a := range nonEmission {
			out.Set(k, a, Annuity(row[a], r, n, o))
		}
		for _, a := range emission {
			out.Set(k, a, Annuity(row[a], e.Bound[a], n, o))
		}
	}
	return out
}

// Annuity levelizes a present value over n periods at rate r.
func Annuity(pv, r float64, n int, o float64) float64 {
	g := math.Pow(1+r, float64(n))
	return pv * r * g / (math.Pow(1+r, float64(n)+o) - 1)
}
