package record

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annualTable() *Table {
	return &Table{
		Columns: []string{ColScenario, ColCalendarYear, ColRegClass, "Retail Fuel Outlay", "Note"},
		Rows: [][]string{
			{"2020hold", "2021", "Passenger Car", "100", "x"},
			{"2020hold", "2022", "Passenger Car", "110", "y"},
			{"proposal", "2021", "Passenger Car", "80", ""},
		},
	}
}

func TestFromTable_AnnualDefaultsRateToZero(t *testing.T) {
	s, err := FromTable(annualTable(), ColScenario, ColCalendarYear, ColRegClass)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	k := AnnualKey{Scenario: "proposal", CalendarYear: 2021, RegClass: "Passenger Car"}
	v, ok := s.Get(k)
	require.True(t, ok)
	assert.Equal(t, 80.0, v["Retail Fuel Outlay"])
	assert.Equal(t, 0.0, k.Rate())

	// Non-numeric columns are not attributes.
	assert.Equal(t, []string{"Retail Fuel Outlay"}, s.Attributes())
}

func TestFromTable_CohortWithRate(t *testing.T) {
	tbl := &Table{
		Columns: []string{ColScenario, ColModelYear, ColAge, ColCalendarYear, ColRegClass, ColDiscountRate, "Tech Cost"},
		Rows: [][]string{
			{"a", "2022", "0", "2022", "Light Truck", "0.03", "5"},
			{"a", "2022", "1", "2023.0", "Light Truck", "0.03", "6"},
		},
	}
	s, err := FromTable(tbl, ColScenario, ColModelYear, ColAge, ColCalendarYear, ColRegClass)
	require.NoError(t, err)

	k := CohortKey{Scenario: "a", ModelYear: 2022, Age: 1, CalendarYear: 2023, RegClass: "Light Truck", DiscountRate: 0.03}
	assert.Equal(t, 6.0, s.Value(k, "Tech Cost"))
	assert.Equal(t, ShapeCohort, s.Keys()[0].Shape())
}

func TestFromTable_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		cols   []string
		column string
	}{
		{name: "missing column", cols: []string{ColScenario, ColCalendarYear, ColFuelType}, column: ColFuelType},
		{name: "arity too small", cols: []string{ColScenario, ColCalendarYear}},
		{name: "arity too large", cols: []string{ColScenario, ColModelYear, ColAge, ColCalendarYear, ColRegClass, ColFuelType, "Extra"}},
		{name: "unknown dimension", cols: []string{ColScenario, ColCalendarYear, "Note"}, column: "Note"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromTable(annualTable(), tc.cols...)
			var se *SchemaError
			require.True(t, errors.As(err, &se), "want SchemaError, got %v", err)
			if tc.column != "" {
				assert.Equal(t, tc.column, se.Column)
			}
		})
	}
}

func TestFromTable_LifetimeWithFuel(t *testing.T) {
	tbl := &Table{
		Columns: []string{ColScenario, ColModelYear, ColRegClass, ColFuelType, "Tech Cost"},
		Rows: [][]string{
			{"a", "2025", "Passenger Car", "Gasoline", "1"},
			{"a", "2025", "Passenger Car", "Electricity", "2"},
		},
	}
	s, err := FromTable(tbl, ColScenario, ColModelYear, ColRegClass, ColFuelType)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	k := LifetimeKey{Scenario: "a", ModelYear: 2025, RegClass: "Passenger Car", FuelType: "Electricity"}
	assert.Equal(t, 2.0, s.Value(k, "Tech Cost"))
	assert.Equal(t, ShapeLifetime, s.Keys()[0].Shape())

	out := ToTable(s, ColScenario, ColModelYear, ColRegClass, ColFuelType)
	assert.Equal(t, []string{ColScenario, ColModelYear, ColRegClass, ColFuelType, ColDiscountRate, "Tech Cost"}, out.Columns)
}

func TestFromTable_BadYear(t *testing.T) {
	tbl := annualTable()
	tbl.Rows[1][1] = "TOTAL"
	_, err := FromTable(tbl, ColScenario, ColCalendarYear, ColRegClass)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ColCalendarYear, se.Column)
	assert.Contains(t, se.Error(), "row 2")
}

func TestSumTable_CombinesDuplicates(t *testing.T) {
	tbl := annualTable()
	tbl.Rows = append(tbl.Rows, []string{"proposal", "2021", "Passenger Car", "20", ""})

	last, err := FromTable(tbl, ColScenario, ColCalendarYear, ColRegClass)
	require.NoError(t, err)
	summed, err := SumTable(tbl, ColScenario, ColCalendarYear, ColRegClass)
	require.NoError(t, err)

	k := AnnualKey{Scenario: "proposal", CalendarYear: 2021, RegClass: "Passenger Car"}
	assert.Equal(t, 20.0, last.Value(k, "Retail Fuel Outlay"))
	assert.Equal(t, 100.0, summed.Value(k, "Retail Fuel Outlay"))
}

func TestToTable_RoundTripsKeysAndLeavesStoreIntact(t *testing.T) {
	s := NewStore()
	k1 := AnnualKey{Scenario: "a", CalendarYear: 2021, RegClass: "Passenger Car", FuelType: "Gasoline"}
	k2 := k1.WithRate(0.07)
	s.Set(k1, "kWh", 1.5)
	s.Set(k2, "Barrels of Oil", 2)

	tbl := ToTable(s, ColScenario, ColCalendarYear, ColRegClass, ColFuelType)
	assert.Equal(t, []string{ColScenario, ColCalendarYear, ColRegClass, ColFuelType, ColDiscountRate, "kWh", "Barrels of Oil"}, tbl.Columns)
	assert.Equal(t, []string{"a", "2021", "Passenger Car", "Gasoline", "0", "1.5", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"a", "2021", "Passenger Car", "Gasoline", "0.07", "", "2"}, tbl.Rows[1])

	back, err := FromTable(tbl, ColScenario, ColCalendarYear, ColRegClass, ColFuelType)
	require.NoError(t, err)
	assert.Equal(t, 2.0, back.Value(k2, "Barrels of Oil"))
	assert.Equal(t, 2, s.Len())
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "table.csv")
	require.NoError(t, SaveCSV(path, annualTable()))

	got, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, annualTable(), got)
}

func TestReadCSV_StripsByteOrderMark(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("\ufeffScenario Name,Calendar Year\nbase,2021\n"))
	require.NoError(t, err)
	assert.Equal(t, ColScenario, got.Columns[0])
}

func TestStore_MergeAndDelete(t *testing.T) {
	k := LifetimeKey{Scenario: "a", ModelYear: 2025, RegClass: "TOTAL", DiscountRate: 0.03}
	a := NewStore()
	a.Set(k, "x", 1)
	a.Set(k, "y", 2)

	b := NewStore()
	b.Set(k, "y", 20)
	b.Set(k.WithScenario("b"), "z", 3)

	a.Merge(b)
	assert.Equal(t, 20.0, a.Value(k, "y"))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []string{"x", "y", "z"}, a.Attributes())

	a.Delete("x")
	_, ok := a.Get(k)
	require.True(t, ok)
	assert.Equal(t, []string{"y", "z"}, a.Attributes())
	assert.Equal(t, 0.0, a.Value(k, "x"))
}
