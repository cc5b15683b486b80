package bca

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcaengine/bcaengine/pkg/factors"
	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
)

func csvTable(t *testing.T, s string) *record.Table {
	t.Helper()
	tbl, err := record.ReadCSV(strings.NewReader(strings.TrimSpace(s) + "\n"))
	require.NoError(t, err)
	return tbl
}

func factorInputs(t *testing.T) Inputs {
	t.Helper()
	criteria := csvTable(t, `
calendar_year,discount_rate,reg_class,fuel_type,pm25_tailpipe_USD_per_uston,nox_tailpipe_USD_per_uston,so2_tailpipe_USD_per_uston,pm25_upstream_USD_per_uston,nox_upstream_USD_per_uston,so2_upstream_USD_per_uston
2020,0.03,Passenger Car,Gasoline,1000,0,0,0,0,0
2020,0.07,Passenger Car,Gasoline,500,0,0,0,0,0
2020,0.03,Light Truck,Gasoline,1000,0,0,0,0,0
2020,0.07,Light Truck,Gasoline,500,0,0,0,0,0
`)

	scc := &record.Table{Columns: []string{factors.ColYear}}
	for _, gas := range []string{"co2", "ch4", "n2o"} {
		for _, s := range factors.Streams {
			scc.Columns = append(scc.Columns, factors.SCCColumn(gas, s))
		}
	}
	for _, year := range []string{"2021", "2022"} {
		row := []string{year}
		for range scc.Columns[1:] {
			row = append(row, "50")
		}
		scc.Rows = append(scc.Rows, row)
	}

	energy := &record.Table{
		Columns: []string{factors.ColYear, factors.ColEnergyPremia},
		Rows:    [][]string{{"2021", "3"}, {"2022", "3"}},
	}
	return Inputs{Criteria: criteria, SCC: scc, EnergySecurity: energy}
}

func summaryInputs(t *testing.T) Inputs {
	in := factorInputs(t)
	in.EffectsSummary = csvTable(t, `
Scenario,Scenario Name,Calendar Year,Reg-Class,Fuel Type,Fatalities,Fatalities From Rebound,kVMT,kGallons,PM Tailpipe (t),CO2 Total (mmt)
0,base,2021,Passenger Car,Gasoline,10,1,1000000,4200,907.185,0
0,base,2022,Passenger Car,Gasoline,10,1,1000000,4200,907.185,0
1,action,2021,Passenger Car,Gasoline,10,1,1000000,3780,453.5925,0
1,action,2022,Passenger Car,Gasoline,10,1,1000000,3780,453.5925,0
1,action,2022,TOTAL,TOTAL,99,9,9,9,9,9
`)
	in.CostsSummary = csvTable(t, `
Scenario,Scenario Name,Calendar Year,Reg-Class,Disc-Rate,Tech Cost,Retail Fuel Outlay,Fuel Tax Revenue,Total Social Costs
0,base,2021,Passenger Car,0,0,50,5,1
0,base,2022,Passenger Car,0,0,50,5,1
1,action,2021,Passenger Car,0,100,40,4,1
1,action,2022,Passenger Car,0,100,40,4,1
1,action,2022,Passenger Car,0.03,7,7,7,1
`)
	return in
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Baseline = "base"
	return opts
}

func table(t *testing.T, r *Result, name string) *record.Table {
	t.Helper()
	for _, nt := range r.Tables {
		if nt.Name == name {
			return nt.Table
		}
	}
	require.Failf(t, "missing table", "no output table %q", name)
	return nil
}

func TestRun_SummaryReport(t *testing.T) {
	res, err := NewEngine(testOptions()).Run(context.Background(), summaryInputs(t))
	require.NoError(t, err)

	var names []string
	for _, nt := range res.Tables {
		names = append(names, nt.Name)
	}
	assert.Equal(t, []string{
		TableEffectsSummary,
		TableCostsSummary,
		TableCostsSummary + SuffixPresentValues,
		TableCostsSummary + SuffixAnnualized,
	}, names)

	require.Len(t, res.Reports, 1)
	rep := res.Reports[0]
	assert.Equal(t, "annual", rep.Shape)
	assert.Equal(t, TableCostsSummary, rep.Report)
	// 8 undiscounted rows (2 scenarios, 2 years, car and TOTAL) at rates 0, 3% and 7%
	assert.Equal(t, 24, rep.Rows)
	assert.Zero(t, rep.MaxAge)

	require.Len(t, rep.Headlines, 2)
	h := rep.Headlines[0]
	assert.Equal(t, "action", h.Scenario)
	assert.Equal(t, 0.03, h.Rate)
	assert.Equal(t, "Criteria_Costs_3.0_GHG_Costs_5.0", h.Series)
	assert.InDelta(t, 100/1.03+100/(1.03*1.03), h.TotalCosts, 1e-6)
	// (50-5) - (40-4) per year
	assert.InDelta(t, 9/1.03+9/(1.03*1.03), h.FuelSavings, 1e-6)
	assert.InDelta(t, h.FuelSavings+h.TotalBenefits-h.TotalCosts, h.NetBenefits, 1e-6)
	assert.Greater(t, h.TotalBenefits, 0.0)
	assert.Equal(t, 0.07, rep.Headlines[1].Rate)
}

func TestRun_EffectsTable(t *testing.T) {
	res, err := NewEngine(testOptions()).Run(context.Background(), summaryInputs(t))
	require.NoError(t, err)

	eff := table(t, res, TableEffectsSummary)
	assert.Contains(t, eff.Columns, "PM Tailpipe (ustons)")
	assert.Contains(t, eff.Columns, "Fatality risk per billion VMT")
	assert.Contains(t, eff.Columns, "Barrels of Oil")
	assert.NotContains(t, eff.Columns, "Fatalities From Rebound")
	assert.NotContains(t, eff.Columns, "Scenario")
	// detail, class totals and fleet totals for 2 scenarios and 2 years
	assert.Len(t, eff.Rows, 12)

	costs := table(t, res, TableCostsSummary)
	assert.NotContains(t, costs.Columns, "Total Social Costs")
	assert.Contains(t, costs.Columns, "Petroleum Market Externalities")
	assert.Contains(t, costs.Columns, social.TotalCosts)
}

func TestRun_CriteriaValuedInUSTons(t *testing.T) {
	res, err := NewEngine(testOptions()).Run(context.Background(), summaryInputs(t))
	require.NoError(t, err)

	costs := table(t, res, TableCostsSummary)
	s, err := record.FromTable(costs, costsColumns(false)...)
	require.NoError(t, err)

	k := record.AnnualKey{Scenario: "base", CalendarYear: 2021, RegClass: "Passenger Car"}
	// 907.185 t is 1000 US tons at $1000 per ton, in thousands of dollars
	assert.InDelta(t, 1000.0, s.Value(k, "Criteria_Costs_3.0"), 1e-6)
	assert.InDelta(t, 500.0, s.Value(k, "Criteria_Costs_7.0"), 1e-6)
	assert.InDelta(t, 1000.0, s.Value(k.WithClass(record.Total), "Criteria_Costs_3.0"), 1e-6)
}

func TestRun_OffCycleTechCost(t *testing.T) {
	in := summaryInputs(t)
	in.Compliance = csvTable(t, `
Scenario Name,Model Year,Manufacturer,Reg-Class,Sales,Avg Tech Cost,Avg AC Efficiency Cost,Avg AC Leakage Cost,Off-Cycle Credits
base,2021,A,Passenger Car,1000,0,0,0,0
base,2022,A,Passenger Car,1000,0,0,0,0
action,2021,A,Passenger Car,1000,150,0,0,2
action,2022,A,Passenger Car,1000,150,0,0,2
`)
	opts := testOptions()
	opts.OffCycleCostPerCredit = 25

	res, err := NewEngine(opts).Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, TableCompliance, res.Tables[0].Name)

	costs, err := record.FromTable(table(t, res, TableCostsSummary), costsColumns(false)...)
	require.NoError(t, err)
	k := record.AnnualKey{Scenario: "action", CalendarYear: 2021, RegClass: "Passenger Car"}
	// (150 + 25*2) dollars on 1000 vehicles, in thousands
	assert.InDelta(t, 200.0, costs.Value(k, "Tech Cost"), 1e-9)

	h := res.Reports[0].Headlines[0]
	assert.InDelta(t, 200/1.03+200/(1.03*1.03), h.TotalCosts, 1e-6)

	opts.OffCycleCostPerCredit = -1
	_, err = NewEngine(opts).Run(context.Background(), in)
	require.Error(t, err)
}

func TestRun_RequiresPairedTables(t *testing.T) {
	in := summaryInputs(t)
	in.CostsSummary = nil
	_, err := NewEngine(testOptions()).Run(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TableCostsSummary)

	_, err = NewEngine(testOptions()).Run(context.Background(), factorInputs(t))
	require.Error(t, err)
}

func TestRun_RequiresFactorTables(t *testing.T) {
	in := summaryInputs(t)
	in.SCC = nil
	_, err := NewEngine(testOptions()).Run(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TableSCC)
}

func TestRun_MissingBaseline(t *testing.T) {
	opts := testOptions()
	opts.Baseline = "no-action"
	_, err := NewEngine(opts).Run(context.Background(), summaryInputs(t))
	var mbe *social.MissingBaselineError
	require.ErrorAs(t, err, &mbe)
}

func TestRun_ValidatesOptions(t *testing.T) {
	opts := testOptions()
	opts.Timing = "mid-year"
	_, err := NewEngine(opts).Run(context.Background(), summaryInputs(t))
	require.Error(t, err)

	opts = testOptions()
	opts.SocialRates = nil
	_, err = NewEngine(opts).Run(context.Background(), summaryInputs(t))
	require.Error(t, err)
}

func TestRun_CohortReport(t *testing.T) {
	in := factorInputs(t)
	in.Effects = csvTable(t, `
Scenario Name,Model Year,Age,Calendar Year,Reg-Class,Fuel Type,Fatalities,kVMT,kGallons
base,2021,0,2021,Passenger Car,Gasoline,1,1000,420
base,2021,1,2022,Passenger Car,Gasoline,1,1000,420
action,2021,0,2021,Passenger Car,Gasoline,1,1000,378
action,2021,1,2022,Passenger Car,Gasoline,1,1000,378
action,2035,0,2035,Passenger Car,Gasoline,1,1000,378
`)
	in.Costs = csvTable(t, `
Scenario Name,Model Year,Age,Calendar Year,Reg-Class,Tech Cost,Retail Fuel Outlay
base,2021,0,2021,Passenger Car,0,50
base,2021,1,2022,Passenger Car,0,50
action,2021,0,2021,Passenger Car,100,40
action,2021,1,2022,Passenger Car,0,40
`)

	res, err := NewEngine(testOptions()).Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Reports, 1)

	rep := res.Reports[0]
	assert.Equal(t, "cohort", rep.Shape)
	assert.Equal(t, TableCosts, rep.Report)
	assert.Equal(t, 1, rep.MaxAge)

	require.Len(t, rep.Headlines, 2)
	h := rep.Headlines[0]
	assert.InDelta(t, 100/1.03, h.TotalCosts, 1e-6)
	assert.InDelta(t, 10/1.03+10/(1.03*1.03), h.FuelSavings, 1e-6)

	pv := table(t, res, TableCosts+SuffixPresentValues)
	assert.Equal(t, []string{record.ColScenario, record.ColModelYear, record.ColRegClass, record.ColDiscountRate}, pv.Columns[:4])
}
