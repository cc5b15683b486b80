package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcaengine/bcaengine/pkg/record"
)

const base = "1 Mpg Standards"

func report(rows ...[]string) *record.Table {
	return &record.Table{
		Columns: []string{"Scenario", "Scenario Name", "Model Year", "Calendar Year", "Reg-Class", "Tech Cost"},
		Rows:    rows,
	}
}

func TestCheckBaseScenario(t *testing.T) {
	ok := report([]string{"0", base, "2020", "2020", "Passenger Car", "1"})
	require.NoError(t, CheckBaseScenario(ok, base))

	bad := report([]string{"1", "final", "2020", "2020", "Passenger Car", "1"})
	var bse *BaseScenarioError
	require.ErrorAs(t, CheckBaseScenario(bad, base), &bse)
	assert.Equal(t, "final", bse.Got)
}

func TestScrub(t *testing.T) {
	in := report(
		[]string{"0", base, "2020", "2020", "Passenger Car", "1"},
		[]string{"1", "final", "2020", "2020", "Passenger Car", "2"},
		[]string{"1", "final", "TOTAL", "2020", "Passenger Car", "3"},
	)
	out := Scrub(in, base)

	assert.Equal(t, []string{"Scenario Name", "Model Year", "Calendar Year", "Reg-Class", "Tech Cost"}, out.Columns)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, []string{"final", "2020", "2020", "Passenger Car", "2"}, out.Rows[0])
	assert.Len(t, in.Rows, 3)
}

func TestRuns_InconsistentScenarios(t *testing.T) {
	first := report(
		[]string{"0", base, "2020", "2020", "Passenger Car", "1"},
		[]string{"1", "no-action", "2020", "2020", "Passenger Car", "1"},
	)
	second := report(
		[]string{"0", base, "2020", "2020", "Passenger Car", "1"},
		[]string{"1", "final", "2020", "2020", "Passenger Car", "1"},
	)
	_, err := Runs(base, []Pair{{First: first, Second: second}})
	var ise *InconsistentScenarioError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, []string{"no-action"}, ise.First)
	assert.Equal(t, []string{"final"}, ise.Second)

	out, err := Runs(base, []Pair{{First: first, Second: first}})
	require.NoError(t, err)
	assert.Len(t, out.Rows, 2)
}

func TestScenarios_ProductAndYearShift(t *testing.T) {
	first := report(
		[]string{"0", base, "2020", "2020", "Passenger Car", "1"},
		[]string{"1", "a", "2020", "2048", "Passenger Car", "2"},
		[]string{"2", "b", "2020", "2020", "Passenger Car", "3"},
	)
	second := &record.Table{
		Columns: []string{"Scenario", "Scenario Name", "Model Year", "Calendar Year", "Reg-Class", "Noise Costs"},
		Rows: [][]string{
			{"0", base, "2020", "2020", "Light Truck", "9"},
			{"1", "x", "2020", "2020", "Light Truck", "4"},
		},
	}

	out, err := Scenarios(base, []Pair{{First: first, Second: second, YearShift: 3}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Scenario Name", "Model Year", "Calendar Year", "Reg-Class", "Tech Cost", "Noise Costs"}, out.Columns)
	assert.Equal(t, []string{"a_x", "b_x"}, ScenarioNames(out))

	// a's 2048 row shifts past the last year and is dropped.
	require.Len(t, out.Rows, 3)
	assert.Equal(t, []string{"a_x", "2023", "2023", "Light Truck", "", "4"}, out.Rows[0])
	assert.Equal(t, []string{"b_x", "2023", "2023", "Passenger Car", "3", ""}, out.Rows[1])
}

func TestShiftYears_KeepsNonNumericCells(t *testing.T) {
	in := &record.Table{
		Columns: []string{"Scenario Name", "Calendar Year"},
		Rows:    [][]string{{"a", "TOTAL"}, {"a", "2050"}},
	}
	out := ShiftYears(in, 1)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, []string{"a", "TOTAL"}, out.Rows[0])
}
