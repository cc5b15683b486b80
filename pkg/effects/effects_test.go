package effects

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
)

func fk(scenario, class, fuel string) record.AnnualKey {
	return record.AnnualKey{Scenario: scenario, CalendarYear: 2030, RegClass: class, FuelType: fuel}
}

func TestFatalityMetrics(t *testing.T) {
	s := record.NewStore()
	s.Put(fk("base", "Light Truck", "Gasoline"), record.Values{Fatalities: 10, FatalitiesFromRebound: 1, KVMT: 2e6})
	s.Put(fk("base", "Light Truck", "Hydrogen"), record.Values{Fatalities: 0, KVMT: 0})

	FatalityMetrics(s)

	assert.NotContains(t, s.Attributes(), FatalitiesFromRebound)
	assert.InDelta(t, 5.0, s.Value(fk("base", "Light Truck", "Gasoline"), FatalityRisk), 1e-9)
	assert.Zero(t, s.Value(fk("base", "Light Truck", "Hydrogen"), FatalityRisk))
}

func TestApply_FatalityDecomposition(t *testing.T) {
	s := record.NewStore()
	s.Put(fk("base", "Passenger Car", "Gasoline"), record.Values{Fatalities: 10, KVMT: 1e6})
	s.Put(fk("action", "Passenger Car", "Gasoline"), record.Values{Fatalities: 12, KVMT: 1e6})
	FatalityMetrics(s)

	require.NoError(t, Apply(s, "base", DefaultParams()))

	k := fk("action", "Passenger Car", "Gasoline")
	// risk 12 vs 10 per billion VMT over one billion VMT
	assert.InDelta(t, 2.0, s.Value(k, FatalitiesFromChangeInRisk), 1e-9)
	assert.InDelta(t, 10.0, s.Value(k, FatalitiesFromChangeInVMT), 1e-9)
	assert.Zero(t, s.Value(fk("base", "Passenger Car", "Gasoline"), FatalitiesFromChangeInRisk))
}

func TestApply_FuelEffects(t *testing.T) {
	p := DefaultParams()
	s := record.NewStore()
	for _, fuel := range []string{"Gasoline", "Diesel", "Electricity", "Hydrogen", record.Total} {
		s.Put(fk("base", "Passenger Car", fuel), record.Values{KGallons: 4200})
	}
	s.Put(fk("base", "Light Truck", "Gasoline"), record.Values{KGallons: 420})
	s.Put(fk("base", "Light Truck", record.Total), record.Values{KGallons: 420})
	s.Put(fk("base", record.Total, record.Total), record.Values{KGallons: 1})

	require.NoError(t, Apply(s, "base", p))

	gas := fk("base", "Passenger Car", "Gasoline")
	// 4.2e6 gallons * 0.9 * 1.0 / 42
	assert.InDelta(t, 90000.0, s.Value(gas, BarrelsOfOil), 1e-6)
	assert.InDelta(t, 81900.0, s.Value(gas, BarrelsOfImportedOil), 1e-6)
	assert.InDelta(t, 81900.0/365, s.Value(gas, BarrelsOfImportedOilPerDay), 1e-9)
	assert.InDelta(t, 4.2e6/1.2e11, s.Value(gas, p.ShareOfGasoline()), 1e-15)
	assert.InDelta(t, 90000/2.94e9, s.Value(gas, p.ShareOfOilOrElectricity()), 1e-15)

	assert.Equal(t, s.Value(gas, BarrelsOfOil), s.Value(fk("base", "Passenger Car", "Diesel"), BarrelsOfOil))
	assert.Zero(t, s.Value(fk("base", "Passenger Car", "Hydrogen"), BarrelsOfOil))

	elec := fk("base", "Passenger Car", "Electricity")
	assert.InDelta(t, 4.2e6*0.031, s.Value(elec, KWh), 1e-6)
	assert.InDelta(t, 4.2e6*0.031/3.802e12, s.Value(elec, p.ShareOfOilOrElectricity()), 1e-18)
	assert.Zero(t, s.Value(elec, BarrelsOfOil))

	carTotal := fk("base", "Passenger Car", record.Total)
	assert.InDelta(t, 180000.0, s.Value(carTotal, BarrelsOfOil), 1e-6)
	assert.InDelta(t, 4.2e6*0.031, s.Value(carTotal, KWh), 1e-6)

	fleet := fk("base", record.Total, record.Total)
	assert.InDelta(t, 189000.0, s.Value(fleet, BarrelsOfOil), 1e-6)
}

func TestApply_MissingBaseline(t *testing.T) {
	s := record.NewStore()
	s.Put(fk("action", "Passenger Car", "Gasoline"), record.Values{KGallons: 1})

	err := Apply(s, "base", DefaultParams())
	var mbe *social.MissingBaselineError
	require.ErrorAs(t, err, &mbe)
}

func TestConvertToUSTons(t *testing.T) {
	tbl := &record.Table{
		Columns: []string{"Scenario Name", "PM Tailpipe (t)", "CH4 Total (t)", "NOx Upstream (t)"},
		Rows:    [][]string{{"base", "907.185", "5", ""}},
	}
	ConvertToUSTons(tbl)

	assert.Equal(t, []string{"Scenario Name", "PM Tailpipe (ustons)", "CH4 Total (t)", "NOx Upstream (ustons)"}, tbl.Columns)
	pm, err := strconv.ParseFloat(tbl.Rows[0][1], 64)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, pm, 1e-9)
	assert.Equal(t, "5", tbl.Rows[0][2])
	assert.Equal(t, "", tbl.Rows[0][3])
}
