package offcycle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcaengine/bcaengine/pkg/record"
)

func csvTable(t *testing.T, s string) *record.Table {
	t.Helper()
	tbl, err := record.ReadCSV(strings.NewReader(strings.TrimSpace(s) + "\n"))
	require.NoError(t, err)
	return tbl
}

func compliance(t *testing.T) *record.Table {
	return csvTable(t, `
Scenario Name,Model Year,Manufacturer,Reg-Class,Sales,Avg Tech Cost,Avg AC Efficiency Cost,Avg AC Leakage Cost,Off-Cycle Credits,Avg Fines
final,2021,A,Passenger Car,100,1000,20,10,2,75
final,2021,B,Passenger Car,300,600,,10,4,0
final,2021,TOTAL,Passenger Car,999,9,9,9,9,9
final,TOTAL,TOTAL,TOTAL,1,1,1,1,1,1
`)
}

func column(t *testing.T, tbl *record.Table, row int, col string) string {
	t.Helper()
	i := tbl.Index(col)
	require.GreaterOrEqual(t, i, 0, "column %q", col)
	return tbl.Rows[row][i]
}

func TestAdjust_RebuildsFleetTotals(t *testing.T) {
	c, err := Adjust(compliance(t), 50)
	require.NoError(t, err)

	assert.Equal(t, Columns, c.Table.Columns)
	require.Len(t, c.Table.Rows, 3)

	// A: 20 + 10 + 50*2 + 1000 per vehicle
	assert.Equal(t, "A", column(t, c.Table, 0, ColManufacturer))
	assert.Equal(t, "100", column(t, c.Table, 0, ColAvgOffCycleCost))
	assert.Equal(t, "1130", column(t, c.Table, 0, ColAvgRegCost))
	assert.Equal(t, "10000", column(t, c.Table, 0, ColOffCycleCost))
	assert.Equal(t, "100000", column(t, c.Table, 0, ColTechCost))
	assert.Equal(t, "113000", column(t, c.Table, 0, ColRegCost))

	total := 2
	assert.Equal(t, record.Total, column(t, c.Table, total, ColManufacturer))
	assert.Equal(t, "400", column(t, c.Table, total, ColSales))
	assert.Equal(t, "700", column(t, c.Table, total, ColAvgTechCost))
	assert.Equal(t, "3.5", column(t, c.Table, total, ColOffCycleCredits))
	assert.Equal(t, "890", column(t, c.Table, total, ColAvgRegCost))
	assert.Equal(t, "356000", column(t, c.Table, total, ColRegCost))

	v, ok := c.RegCost("final", 2021, "Passenger Car")
	require.True(t, ok)
	// fleet cost equals the sum of the manufacturer costs, in thousands
	assert.InDelta(t, (113000.0+243000.0)/1000, v, 1e-9)

	_, ok = c.RegCost("final", 2022, "Passenger Car")
	assert.False(t, ok)
}

func TestAdjust_ZeroCreditCost(t *testing.T) {
	c, err := Adjust(compliance(t), 0)
	require.NoError(t, err)

	v, ok := c.RegCost("final", 2021, "Passenger Car")
	require.True(t, ok)
	assert.InDelta(t, (100*1030.0+300*610.0)/1000, v, 1e-9)
	assert.Equal(t, "0", column(t, c.Table, 0, ColOffCycleCost))
}

func TestAdjust_SchemaErrors(t *testing.T) {
	missing := csvTable(t, `
Scenario Name,Model Year,Manufacturer,Reg-Class,Avg Tech Cost,Avg AC Efficiency Cost,Avg AC Leakage Cost,Off-Cycle Credits
final,2021,A,Passenger Car,1,1,1,1
`)
	_, err := Adjust(missing, 10)
	var se *record.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ColSales, se.Column)

	bad := compliance(t)
	bad.Rows[0][bad.Index(ColOffCycleCredits)] = "many"
	_, err = Adjust(bad, 10)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ColOffCycleCredits, se.Column)

	bad = compliance(t)
	bad.Rows[0][bad.Index(record.ColModelYear)] = "MY21"
	_, err = Adjust(bad, 10)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, record.ColModelYear, se.Column)
}

func TestApplySummary(t *testing.T) {
	c, err := Adjust(compliance(t), 50)
	require.NoError(t, err)

	costs := csvTable(t, `
Scenario Name,Calendar Year,Reg-Class,Disc-Rate,Tech Cost,Retail Fuel Outlay
final,2021,Passenger Car,0,1,50
final,2022,Passenger Car,0,1,50
final,2021,TOTAL,0,1,50
`)
	out, err := c.ApplySummary(costs)
	require.NoError(t, err)

	assert.Equal(t, costs.Columns, out.Columns)
	assert.Equal(t, "356", column(t, out, 0, ColTechCost))
	assert.Equal(t, "", column(t, out, 1, ColTechCost))
	assert.Equal(t, "", column(t, out, 2, ColTechCost))
	assert.Equal(t, "50", column(t, out, 0, "Retail Fuel Outlay"))
	assert.Equal(t, "1", column(t, costs, 0, ColTechCost), "input is not modified")
}

func TestApplySummary_AddsTechCostColumn(t *testing.T) {
	c, err := Adjust(compliance(t), 50)
	require.NoError(t, err)

	out, err := c.ApplySummary(&record.Table{
		Columns: []string{record.ColScenario, record.ColCalendarYear, record.ColRegClass},
		Rows:    [][]string{{"final", "2021", "Passenger Car"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{record.ColScenario, record.ColCalendarYear, record.ColRegClass, ColTechCost}, out.Columns)
	assert.Equal(t, "356", out.Rows[0][3])

	_, err = c.ApplySummary(&record.Table{Columns: []string{record.ColScenario, record.ColRegClass}})
	var se *record.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, record.ColCalendarYear, se.Column)
}

func TestApplyCohort(t *testing.T) {
	c, err := Adjust(compliance(t), 50)
	require.NoError(t, err)

	costs := csvTable(t, `
Scenario Name,Model Year,Age,Calendar Year,Reg-Class,Tech Cost
final,2021,0,2021,Passenger Car,5
final,2021,1,2022,Passenger Car,5
final,2022,0,2022,Passenger Car,5
`)
	out, err := c.ApplyCohort(costs)
	require.NoError(t, err)

	assert.Equal(t, "356", column(t, out, 0, ColTechCost))
	assert.Equal(t, "0", column(t, out, 1, ColTechCost))
	assert.Equal(t, "0", column(t, out, 2, ColTechCost))
}
