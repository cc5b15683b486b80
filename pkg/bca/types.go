// Package bca runs the benefit-cost pipeline over a set of fleet model reports:
// effects enrichment, emission and energy-security valuation, multi-rate
// discounting, present values and annualized values.
package bca

import (
	"github.com/bcaengine/bcaengine/pkg/discount"
	"github.com/bcaengine/bcaengine/pkg/effects"
	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
)

// Input and output table names.
const (
	TableEffectsSummary = "effects_summary"
	TableEffects        = "effects"
	TableCostsSummary   = "costs_summary"
	TableCosts          = "costs"
	TableCriteria       = "cost_factors-criteria"
	TableSCC            = "cost_factors-scc"
	TableEnergySecurity = "cost_factors-energysecurity"
	TableCompliance     = "compliance_report"

	SuffixPresentValues = "_present-values"
	SuffixAnnualized    = "_annualized-values"
)

// InputTables lists every table a full run reads. The compliance report is
// optional.
var InputTables = []string{
	TableEffectsSummary, TableEffects, TableCostsSummary, TableCosts,
	TableCriteria, TableSCC, TableEnergySecurity, TableCompliance,
}

// Options configures a pipeline run.
type Options struct {
	Baseline         string
	Categories       social.Categories
	DiscountYear     int
	Timing           discount.Timing
	SocialRates      []float64
	SummaryStartYear int
	// ModelYears bounds the cohort report, first and last inclusive.
	ModelYears     []int
	CostsExclude   []string
	EffectsExclude []string
	Effects        effects.Params
	// OffCycleCostPerCredit prices off-cycle credits, in dollars per credit,
	// when a compliance report is given.
	OffCycleCostPerCredit float64
}

// DefaultOptions returns the settings of the 2021 light-duty analysis.
func DefaultOptions() Options {
	return Options{
		Baseline:         "2020hold",
		Categories:       social.DefaultCategories(),
		DiscountYear:     2021,
		Timing:           discount.EndYear,
		SocialRates:      []float64{0.03, 0.07},
		SummaryStartYear: 2020,
		ModelYears:       []int{2020, 2029},
		CostsExclude:     []string{"Damage"},
		EffectsExclude: []string{
			"Admissions", "Asthma", "Attacks", "Bronchitis", "Premature",
			"Respiratory", "Restricted", "Work Loss",
		},
		Effects: effects.DefaultParams(),
	}
}

// Inputs holds the tables of one run. A report pass runs only when both its
// effects and costs tables are present.
type Inputs struct {
	EffectsSummary *record.Table
	Effects        *record.Table
	CostsSummary   *record.Table
	Costs          *record.Table
	Criteria       *record.Table
	SCC            *record.Table
	EnergySecurity *record.Table
	// Compliance, when present, replaces Tech Cost in the cost reports.
	Compliance *record.Table
}

// Set assigns a table by its input name. Unknown names are ignored and
// reported as false.
func (in *Inputs) Set(name string, t *record.Table) bool {
	switch name {
	case TableEffectsSummary:
		in.EffectsSummary = t
	case TableEffects:
		in.Effects = t
	case TableCostsSummary:
		in.CostsSummary = t
	case TableCosts:
		in.Costs = t
	case TableCriteria:
		in.Criteria = t
	case TableSCC:
		in.SCC = t
	case TableEnergySecurity:
		in.EnergySecurity = t
	case TableCompliance:
		in.Compliance = t
	default:
		return false
	}
	return true
}

// NamedTable is an output table and the name it is stored under.
type NamedTable struct {
	Name  string
	Table *record.Table
}

// Result is the output of a run.
type Result struct {
	Baseline     string          `json:"baseline"`
	DiscountYear int             `json:"discount_year"`
	Tables       []NamedTable    `json:"-"`
	Reports      []ReportSummary `json:"reports"`
}

// ReportSummary describes one report pass.
type ReportSummary struct {
	Report           string     `json:"report"`
	Shape            string     `json:"shape"` // annual or cohort
	Rows             int        `json:"rows"`
	PresentValueRows int        `json:"present_value_rows"`
	AnnualizedRows   int        `json:"annualized_rows"`
	MaxAge           int        `json:"max_age,omitempty"`
	Headlines        []Headline `json:"headlines"`
}

// Headline is the fleet-wide present value of one scenario at one social
// discount rate, relative to the baseline.
type Headline struct {
	Scenario      string  `json:"scenario"`
	Rate          float64 `json:"rate"`
	Series        string  `json:"series"` // criteria and GHG series of the benefits
	FuelSavings   float64 `json:"fuel_savings"`
	TotalCosts    float64 `json:"total_costs"`
	TotalBenefits float64 `json:"total_benefits"`
	NetBenefits   float64 `json:"net_benefits"`
}
