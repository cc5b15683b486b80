// Package discount discounts monetized streams to a reference year at social
// rates and at the fixed rates bound to emission-cost attributes, accumulates
// present values and levelizes them into annualized values.
package discount

import (
	"fmt"
	"math"

	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
)

// Timing is when within a year costs are incurred.
type Timing string

const (
	StartYear Timing = "start-year"
	EndYear   Timing = "end-year"
)

// ParseTiming validates a timing convention name.
func ParseTiming(s string) (Timing, error) {
	switch t := Timing(s); t {
	case StartYear, EndYear:
		return t, nil
	}
	return "", fmt.Errorf("unknown costs timing %q (want %q or %q)", s, StartYear, EndYear)
}

// Offset is added to the discounting period.
func (t Timing) Offset() int {
	if t == EndYear {
		return 1
	}
	return 0
}

// AnnualizedOffset is the complement of Offset used by the annuity formula.
func (t Timing) AnnualizedOffset() int {
	return 1 - t.Offset()
}

// AnnualizationPeriods is the attribute that records n for annualized rows.
const AnnualizationPeriods = "Annualization_Periods"

// Engine discounts, accumulates and annualizes stores.
type Engine struct {
	DiscountYear int
	Timing       Timing
	// Bound maps emission-cost attributes to the rate they are always
	// discounted at, regardless of the social rate of the row.
	Bound map[string]float64
	// Social, when set, is applied to every store the engine produces.
	Social *social.Calculator
}

// Result holds the three stores of one discounting run.
type Result struct {
	Discounted    *record.Store
	PresentValues *record.Store
	Annualized    *record.Store
	MaxAge        int
}

// Factor returns the divisor (1+rate)^period for a calendar year, or 1 for
// years before the discount year.
func (e *Engine) Factor(rate float64, year int) float64 {
	if year < e.DiscountYear {
		return 1
	}
	return math.Pow(1+rate, float64(year-e.DiscountYear+e.Timing.Offset()))
}

// Discount adds, for every rate-0 record of s and every social rate r, a record
// at rate r holding the discounted nonEmission attributes (at r) and the
// discounted bound emission attributes (at their bound rate). The input
// records are kept. The social calculator then runs over the whole store.
func (e *Engine) Discount(s *record.Store, rates []float64, nonEmission ...string) (*record.Store, error) {
	out := s.Clone()
	emission := e.boundIn(s)
	for _, k := range s.Keys() {
		if k.Rate() != 0 {
			continue
		}
		row, _ := s.Get(k)
		for _, r := range rates {
			if r == 0 {
				continue
			}
			dk := k.WithRate(r)
			v := make(record.Values, len(nonEmission)+len(emission))
			f := e.Factor(r, k.Year())
			for _, a := range nonEmission {
				v[a] = row[a] / f
			}
			for _, a := range emission {
				v[a] = row[a] / e.Factor(e.Bound[a], k.Year())
			}
			out.Put(dk, v)
		}
	}
	if err := e.applySocial(out); err != nil {
		return nil, fmt.Errorf("discounted values: %w", err)
	}
	return out, nil
}

// boundIn returns the bound emission attributes present in s, in s's order.
func (e *Engine) boundIn(s *record.Store) []string {
	var out []string
	for _, a := range s.Attributes() {
		if _, ok := e.Bound[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (e *Engine) applySocial(s *record.Store) error {
	if e.Social == nil {
		return nil
	}
	_, err := e.Social.Apply(s)
	return err
}

// Run discounts s, accumulates present values and annualizes them.
func (e *Engine) Run(s *record.Store, rates []float64, nonEmission ...string) (Result, error) {
	discounted, err := e.Discount(s, rates, nonEmission...)
	if err != nil {
		return Result{}, err
	}
	pv := e.PresentValues(discounted, nonEmission...)
	maxAge := MaxAge(s, retailFuelOutlay(e.Social))
	annualized := e.Annualize(pv, maxAge, nonEmission...)

	if err := e.applySocial(pv); err != nil {
		return Result{}, fmt.Errorf("present values: %w", err)
	}
	if err := e.applySocial(annualized); err != nil {
		return Result{}, fmt.Errorf("annualized values: %w", err)
	}
	return Result{Discounted: discounted, PresentValues: pv, Annualized: annualized, MaxAge: maxAge}, nil
}

func retailFuelOutlay(c *social.Calculator) string {
	if c != nil && c.Categories.RetailFuelOutlay != "" {
		return c.Categories.RetailFuelOutlay
	}
	return social.DefaultCategories().RetailFuelOutlay
}
