// Package social computes baseline-relative fuel savings, social costs,
// benefits and net benefits for every record of a store.
package social

import (
	"fmt"

	"github.com/bcaengine/bcaengine/pkg/record"
)

// Output attribute names.
const (
	TotalFuelSavings     = "TotalFuelSavings"
	FatalityCostsNet     = "FatalityCosts_Net"
	NonFatalCrashCostNet = "Non-FatalCrashCosts_Net"
	TotalCosts           = "TotalCosts"
	NonEmissionBenefits  = "NonEmissionBenefits"
)

// TotalBenefitsName returns the total-benefits attribute for one criteria and
// one GHG series.
func TotalBenefitsName(criteria, ghg string) string {
	return fmt.Sprintf("TotalBenefits_%s_%s", criteria, ghg)
}

// NetBenefitsName returns the net-benefits attribute for one criteria and one
// GHG series.
func NetBenefitsName(criteria, ghg string) string {
	return fmt.Sprintf("NetBenefits_%s_%s", criteria, ghg)
}

// Categories names the input attributes the calculator reads.
type Categories struct {
	RetailFuelOutlay             string   `yaml:"retail_fuel_outlay" json:"retail_fuel_outlay"`
	FuelTaxRevenue               string   `yaml:"fuel_tax_revenue" json:"fuel_tax_revenue"`
	SocialCosts                  []string `yaml:"social_costs" json:"social_costs"`
	ConsumerSurplusAsCost        []string `yaml:"consumer_surplus_as_cost" json:"consumer_surplus_as_cost"`
	FatalityCosts                string   `yaml:"fatality_costs" json:"fatality_costs"`
	FatalityRiskValue            string   `yaml:"fatality_risk_value" json:"fatality_risk_value"`
	NonFatalCrashCosts           string   `yaml:"non_fatal_crash_costs" json:"non_fatal_crash_costs"`
	NonFatalCrashRiskValue       string   `yaml:"non_fatal_crash_risk_value" json:"non_fatal_crash_risk_value"`
	DriveValue                   string   `yaml:"drive_value" json:"drive_value"`
	RefuelingTimeCost            string   `yaml:"refueling_time_cost" json:"refueling_time_cost"`
	PetroleumMarketExternalities string   `yaml:"petroleum_market_externalities" json:"petroleum_market_externalities"`
	CriteriaBenefits             []string `yaml:"criteria_benefits" json:"criteria_benefits"`
	GHGBenefits                  []string `yaml:"ghg_benefits" json:"ghg_benefits"`
}

// DefaultCategories returns the attribute names written by the fleet model and
// the valuation stage.
func DefaultCategories() Categories {
	return Categories{
		RetailFuelOutlay:             "Retail Fuel Outlay",
		FuelTaxRevenue:               "Fuel Tax Revenue",
		SocialCosts:                  []string{"Tech Cost", "Maint/Repair Cost", "Congestion Costs", "Noise Costs"},
		ConsumerSurplusAsCost:        []string{"Foregone Consumer Sales Surplus"},
		FatalityCosts:                "Fatality Costs",
		FatalityRiskValue:            "Fatality Risk Value",
		NonFatalCrashCosts:           "Non-Fatal Crash Costs",
		NonFatalCrashRiskValue:       "Non-Fatal Crash Risk Value",
		DriveValue:                   "Drive Value",
		RefuelingTimeCost:            "Refueling Time Cost",
		PetroleumMarketExternalities: "Petroleum Market Externalities",
		CriteriaBenefits:             []string{"Criteria_Costs_3.0", "Criteria_Costs_7.0"},
		GHGBenefits:                  []string{"GHG_Costs_5.0", "GHG_Costs_3.0", "GHG_Costs_2.5", "GHG_Costs_3.0_95"},
	}
}

// Inputs lists every attribute the calculator reads, in a stable order.
func (c Categories) Inputs() []string {
	out := []string{c.RetailFuelOutlay, c.FuelTaxRevenue}
	out = append(out, c.SocialCosts...)
	out = append(out, c.ConsumerSurplusAsCost...)
	out = append(out,
		c.FatalityCosts, c.FatalityRiskValue,
		c.NonFatalCrashCosts, c.NonFatalCrashRiskValue,
		c.DriveValue, c.RefuelingTimeCost, c.PetroleumMarketExternalities,
	)
	out = append(out, c.CriteriaBenefits...)
	out = append(out, c.GHGBenefits...)
	return out
}

// Outputs lists every attribute Apply writes, in output order.
func (c Categories) Outputs() []string {
	out := []string{TotalFuelSavings, FatalityCostsNet, NonFatalCrashCostNet, TotalCosts, NonEmissionBenefits}
	for _, cr := range c.CriteriaBenefits {
		for _, g := range c.GHGBenefits {
			out = append(out, TotalBenefitsName(cr, g), NetBenefitsName(cr, g))
		}
	}
	return out
}

// MissingBaselineError reports a record whose baseline counterpart is absent.
type MissingBaselineError struct {
	Key      record.Key
	Baseline record.Key
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("missing baseline record %v for %v", e.Baseline, e.Key)
}

// Calculator compares every record against the record of the baseline
// scenario that shares all its other dimensions, including the discount rate.
type Calculator struct {
	Baseline   string
	Categories Categories
}

// NewCalculator returns a calculator over the given baseline scenario.
func NewCalculator(baseline string, c Categories) *Calculator {
	return &Calculator{Baseline: baseline, Categories: c}
}

// Apply writes the social-impact attributes onto every record of s and returns
// s. Baseline records receive zero deltas. A missing input attribute counts as
// zero; a missing baseline record aborts with *MissingBaselineError before any
// record is modified.
func (c *Calculator) Apply(s *record.Store) (*record.Store, error) {
	keys := s.Keys()
	for _, k := range keys {
		if base := k.WithScenario(c.Baseline); !s.Has(base) {
			return nil, &MissingBaselineError{Key: k, Baseline: base}
		}
	}

	results := make([]record.Values, len(keys))
	for i, k := range keys {
		action, _ := s.Get(k)
		base, _ := s.Get(k.WithScenario(c.Baseline))
		results[i] = c.impacts(action, base)
	}

	outputs := c.Categories.Outputs()
	for i, k := range keys {
		for _, name := range outputs {
			s.Set(k, name, results[i][name])
		}
	}
	return s, nil
}

func (c *Calculator) impacts(action, base record.Values) record.Values {
	cat := c.Categories
	out := make(record.Values, 5+2*len(cat.CriteriaBenefits)*len(cat.GHGBenefits))

	fuelSavings := (base[cat.RetailFuelOutlay] - base[cat.FuelTaxRevenue]) -
		(action[cat.RetailFuelOutlay] - action[cat.FuelTaxRevenue])

	var costs float64
	for _, a := range cat.SocialCosts {
		costs += action[a] - base[a]
	}
	for _, a := range cat.ConsumerSurplusAsCost {
		costs += base[a] - action[a]
	}

	fatalityNet := action[cat.FatalityCosts] - action[cat.FatalityRiskValue]
	crashNet := action[cat.NonFatalCrashCosts] - action[cat.NonFatalCrashRiskValue]
	costs += fatalityNet - (base[cat.FatalityCosts] - base[cat.FatalityRiskValue])
	costs += crashNet - (base[cat.NonFatalCrashCosts] - base[cat.NonFatalCrashRiskValue])

	nonEmission := (action[cat.DriveValue] - base[cat.DriveValue]) +
		(base[cat.RefuelingTimeCost] - action[cat.RefuelingTimeCost]) +
		(base[cat.PetroleumMarketExternalities] - action[cat.PetroleumMarketExternalities])

	out[TotalFuelSavings] = fuelSavings
	out[FatalityCostsNet] = fatalityNet
	out[NonFatalCrashCostNet] = crashNet
	out[TotalCosts] = costs
	out[NonEmissionBenefits] = nonEmission

	for _, cr := range cat.CriteriaBenefits {
		criteriaDelta := action[cr] - base[cr]
		for _, g := range cat.GHGBenefits {
			benefits := nonEmission - criteriaDelta - (action[g] - base[g])
			out[TotalBenefitsName(cr, g)] = benefits
			out[NetBenefitsName(cr, g)] = fuelSavings + benefits - costs
		}
	}
	return out
}
