package bca

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bcaengine/bcaengine/pkg/discount"
	"github.com/bcaengine/bcaengine/pkg/effects"
	"github.com/bcaengine/bcaengine/pkg/factors"
	"github.com/bcaengine/bcaengine/pkg/offcycle"
	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
	"github.com/bcaengine/bcaengine/pkg/valuation"
)

// Engine runs the benefit-cost pipeline over the summary and cohort reports.
type Engine struct {
	opts Options
	log  zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for progress messages.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a pipeline engine with the given options.
func NewEngine(opts Options, options ...Option) *Engine {
	e := &Engine{opts: opts, log: zerolog.Nop()}
	for _, o := range options {
		o(e)
	}
	return e
}

// Options returns the options the engine was created with.
func (e *Engine) Options() Options { return e.opts }

// factorSet holds the parsed reference tables shared by both passes.
type factorSet struct {
	emissions valuation.Factors
	energy    *factors.EnergySecurityTable
}

// pass is one report: its inputs and where its outputs go.
type pass struct {
	shape   string
	cohort  bool
	effects *record.Table
	costs   *record.Table
	// output table names
	effectsName string
	costsName   string
}

type passResult struct {
	tables  []NamedTable
	summary ReportSummary
}

// Run executes every report pass whose effects and costs tables are both
// present. The summary and cohort passes run concurrently.
func (e *Engine) Run(ctx context.Context, in Inputs) (*Result, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	f, err := loadFactors(in)
	if err != nil {
		return nil, err
	}
	compliance, err := e.applyOffCycle(&in)
	if err != nil {
		return nil, err
	}

	var passes []pass
	for _, p := range []pass{
		{shape: record.ShapeAnnual.String(), effects: in.EffectsSummary, costs: in.CostsSummary,
			effectsName: TableEffectsSummary, costsName: TableCostsSummary},
		{shape: record.ShapeCohort.String(), cohort: true, effects: in.Effects, costs: in.Costs,
			effectsName: TableEffects, costsName: TableCosts},
	} {
		switch {
		case p.effects == nil && p.costs == nil:
			continue
		case p.effects == nil:
			return nil, fmt.Errorf("%s report: %s table is required with %s", p.shape, p.effectsName, p.costsName)
		case p.costs == nil:
			return nil, fmt.Errorf("%s report: %s table is required with %s", p.shape, p.costsName, p.effectsName)
		}
		passes = append(passes, p)
	}
	if len(passes) == 0 {
		return nil, fmt.Errorf("no report to process: need %s and %s, or %s and %s",
			TableEffectsSummary, TableCostsSummary, TableEffects, TableCosts)
	}

	results := make([]passResult, len(passes))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range passes {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.runPass(p, f)
			if err != nil {
				return fmt.Errorf("%s report: %w", p.shape, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{Baseline: e.opts.Baseline, DiscountYear: e.opts.DiscountYear}
	if compliance != nil {
		out.Tables = append(out.Tables, NamedTable{Name: TableCompliance, Table: compliance})
	}
	for _, r := range results {
		out.Tables = append(out.Tables, r.tables...)
		out.Reports = append(out.Reports, r.summary)
	}
	return out, nil
}

func (e *Engine) validate() error {
	if e.opts.Baseline == "" {
		return fmt.Errorf("baseline scenario is required")
	}
	if _, err := discount.ParseTiming(string(e.opts.Timing)); err != nil {
		return err
	}
	if len(e.opts.SocialRates) == 0 {
		return fmt.Errorf("at least one social discount rate is required")
	}
	if n := len(e.opts.ModelYears); n != 0 && n != 2 {
		return fmt.Errorf("model years must be a [first, last] pair, got %d values", n)
	}
	if e.opts.OffCycleCostPerCredit < 0 {
		return fmt.Errorf("off-cycle cost per credit must not be negative")
	}
	return nil
}

// applyOffCycle adjusts the compliance report, if any, and replaces Tech Cost
// in the cost reports with its fleet regulatory cost. It returns the adjusted
// compliance report.
func (e *Engine) applyOffCycle(in *Inputs) (*record.Table, error) {
	if in.Compliance == nil {
		return nil, nil
	}
	c, err := offcycle.Adjust(in.Compliance, e.opts.OffCycleCostPerCredit)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", TableCompliance, err)
	}
	if in.CostsSummary != nil {
		if in.CostsSummary, err = c.ApplySummary(in.CostsSummary); err != nil {
			return nil, fmt.Errorf("off-cycle costs for %s: %w", TableCostsSummary, err)
		}
	}
	if in.Costs != nil {
		if in.Costs, err = c.ApplyCohort(in.Costs); err != nil {
			return nil, fmt.Errorf("off-cycle costs for %s: %w", TableCosts, err)
		}
	}
	e.log.Debug().Int("rows", len(c.Table.Rows)).Msg("off-cycle costs applied")
	return c.Table, nil
}

func loadFactors(in Inputs) (factorSet, error) {
	for name, t := range map[string]*record.Table{
		TableCriteria: in.Criteria, TableSCC: in.SCC, TableEnergySecurity: in.EnergySecurity,
	} {
		if t == nil {
			return factorSet{}, fmt.Errorf("%s table is required", name)
		}
	}
	criteria, err := factors.LoadCriteria(in.Criteria)
	if err != nil {
		return factorSet{}, fmt.Errorf("loading %s: %w", TableCriteria, err)
	}
	scc, err := factors.LoadSCC(in.SCC)
	if err != nil {
		return factorSet{}, fmt.Errorf("loading %s: %w", TableSCC, err)
	}
	energy, err := factors.LoadEnergySecurity(in.EnergySecurity)
	if err != nil {
		return factorSet{}, fmt.Errorf("loading %s: %w", TableEnergySecurity, err)
	}
	return factorSet{
		emissions: valuation.Factors{Criteria: criteria, SCC: scc},
		energy:    energy,
	}, nil
}

func (e *Engine) runPass(p pass, f factorSet) (passResult, error) {
	log := e.log.With().Str("report", p.shape).Logger()

	inventory, err := e.prepareEffects(p.effects, p.cohort)
	if err != nil {
		return passResult{}, fmt.Errorf("reading %s: %w", p.effectsName, err)
	}
	effects.FatalityMetrics(inventory)
	if err := effects.Apply(inventory, e.opts.Baseline, e.opts.Effects); err != nil {
		return passResult{}, fmt.Errorf("effects: %w", err)
	}
	log.Debug().Int("records", inventory.Len()).Msg("effects ready")

	costs, nonEmission, err := e.prepareCosts(p.costs, p.cohort)
	if err != nil {
		return passResult{}, fmt.Errorf("reading %s: %w", p.costsName, err)
	}
	costKeys := costs.Keys()

	emission, err := valuation.EmissionCosts(inventory, costKeys, f.emissions)
	if err != nil {
		return passResult{}, fmt.Errorf("emission costs: %w", err)
	}
	energy, err := valuation.EnergySecurityCosts(inventory, costKeys, f.energy)
	if err != nil {
		return passResult{}, fmt.Errorf("energy security costs: %w", err)
	}
	costs.Delete(valuation.PetroleumMarketExternalities)
	costs.Merge(emission)
	costs.Merge(energy)
	nonEmission = withAttr(nonEmission, valuation.PetroleumMarketExternalities)
	log.Debug().Int("records", costs.Len()).Int("attributes", len(costs.Attributes())).Msg("costs valued")

	de := &discount.Engine{
		DiscountYear: e.opts.DiscountYear,
		Timing:       e.opts.Timing,
		Bound:        valuation.BoundRates(),
		Social:       social.NewCalculator(e.opts.Baseline, e.opts.Categories),
	}
	res, err := de.Run(costs, e.opts.SocialRates, nonEmission...)
	if err != nil {
		return passResult{}, err
	}

	out := passResult{
		tables: []NamedTable{
			{Name: p.effectsName, Table: record.ToTable(inventory, effectsColumns(p.cohort)...)},
			{Name: p.costsName, Table: record.ToTable(res.Discounted, costsColumns(p.cohort)...)},
			{Name: p.costsName + SuffixPresentValues, Table: record.ToTable(res.PresentValues, valueColumns(p.cohort)...)},
			{Name: p.costsName + SuffixAnnualized, Table: record.ToTable(res.Annualized, valueColumns(p.cohort)...)},
		},
		summary: ReportSummary{
			Report:           p.costsName,
			Shape:            p.shape,
			Rows:             res.Discounted.Len(),
			PresentValueRows: res.PresentValues.Len(),
			AnnualizedRows:   res.Annualized.Len(),
			Headlines:        e.headlines(res.PresentValues),
		},
	}
	if p.cohort {
		out.summary.MaxAge = res.MaxAge
	}
	log.Info().
		Int("rows", out.summary.Rows).
		Int("present_values", out.summary.PresentValueRows).
		Int("annualized", out.summary.AnnualizedRows).
		Msg("report complete")
	return out, nil
}

// headlines reads fleet-wide present values per scenario and social rate.
// Annual present values are cumulative, so the last calendar year holds the
// total; lifetime present values are summed over model years.
func (e *Engine) headlines(pv *record.Store) []Headline {
	cat := e.opts.Categories
	var criteria, ghg string
	if len(cat.CriteriaBenefits) > 0 && len(cat.GHGBenefits) > 0 {
		criteria, ghg = cat.CriteriaBenefits[0], cat.GHGBenefits[0]
	}
	rates := make(map[float64]bool, len(e.opts.SocialRates))
	for _, r := range e.opts.SocialRates {
		rates[r] = true
	}

	type group struct {
		scenario string
		rate     float64
	}
	lastYear := make(map[group]int)
	sums := make(map[group]*Headline)
	var order []group
	for _, k := range pv.Keys() {
		if k.Class() != record.Total || k.ScenarioName() == e.opts.Baseline || !rates[k.Rate()] {
			continue
		}
		g := group{scenario: k.ScenarioName(), rate: k.Rate()}
		h, ok := sums[g]
		if !ok {
			h = &Headline{Scenario: g.scenario, Rate: g.rate}
			if criteria != "" {
				h.Series = criteria + "_" + ghg
			}
			sums[g] = h
			order = append(order, g)
		}
		v, _ := pv.Get(k)
		if k.Shape() == record.ShapeAnnual {
			if k.Year() < lastYear[g] {
				continue
			}
			lastYear[g] = k.Year()
			*h = Headline{Scenario: h.Scenario, Rate: h.Rate, Series: h.Series}
		}
		h.FuelSavings += v[social.TotalFuelSavings]
		h.TotalCosts += v[social.TotalCosts]
		if criteria != "" {
			h.TotalBenefits += v[social.TotalBenefitsName(criteria, ghg)]
			h.NetBenefits += v[social.NetBenefitsName(criteria, ghg)]
		}
	}

	out := make([]Headline, 0, len(order))
	for _, g := range order {
		out = append(out, *sums[g])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].Rate < out[j].Rate
	})
	return out
}

func withAttr(attrs []string, attr string) []string {
	for _, a := range attrs {
		if a == attr {
			return attrs
		}
	}
	return append(attrs, attr)
}
