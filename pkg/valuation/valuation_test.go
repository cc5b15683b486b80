package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcaengine/bcaengine/pkg/factors"
	"github.com/bcaengine/bcaengine/pkg/record"
)

func testFactors() Factors {
	criteria := factors.NewCriteriaTable()
	for _, class := range RegClasses {
		for _, fuel := range []string{"Gasoline", "Electricity", "Diesel"} {
			criteria.Add(2020, 0.03, class, fuel, factors.Criteria{PM25Tailpipe: 1000, NOxTailpipe: 100, SO2Upstream: 10})
			criteria.Add(2020, 0.07, class, fuel, factors.Criteria{PM25Tailpipe: 500, NOxTailpipe: 50, SO2Upstream: 5})
		}
	}
	scc := factors.NewSCCTable()
	scc.Add(2030, factors.SCC{
		CO2: factors.GHG{factors.Stream5: 20, factors.Stream3: 60, factors.Stream25: 90, factors.Stream95: 180},
		CH4: factors.GHG{factors.Stream3: 1500},
		N2O: factors.GHG{factors.Stream3: 20000},
	})
	return Factors{Criteria: criteria, SCC: scc}
}

func annual(class, fuel string) record.AnnualKey {
	return record.AnnualKey{Scenario: "action", CalendarYear: 2030, RegClass: class, FuelType: fuel}
}

func TestEmissionCosts_UnitConventions(t *testing.T) {
	inv := record.NewStore()
	inv.Put(annual("Passenger Car", "Gasoline"), record.Values{
		PMTailpipe:  2,
		NOxTailpipe: 10,
		SO2Upstream: 100,
		CO2Total:    0.5,
		CH4Total:    4,
		N2OTotal:    1,
	})
	costKey := annual("Passenger Car", "")

	out, err := EmissionCosts(inv, []record.Key{costKey}, testFactors())
	require.NoError(t, err)

	assert.InDelta(t, 2.0, out.Value(costKey, "PM25_Costs_tailpipe_3.0"), 1e-9)
	assert.InDelta(t, 1.0, out.Value(costKey, "NOx_Costs_tailpipe_3.0"), 1e-9)
	assert.InDelta(t, 1.0, out.Value(costKey, "SO2_Costs_upstream_3.0"), 1e-9)
	assert.InDelta(t, 3.0, out.Value(costKey, "Criteria_Costs_tailpipe_3.0"), 1e-9)
	assert.InDelta(t, 1.0, out.Value(costKey, "Criteria_Costs_upstream_3.0"), 1e-9)
	assert.InDelta(t, 4.0, out.Value(costKey, CriteriaName("3.0")), 1e-9)
	assert.InDelta(t, 2.0, out.Value(costKey, CriteriaName("7.0")), 1e-9)

	// 0.5 mmt * 1e6 t * $60 / 1000
	assert.InDelta(t, 30000.0, out.Value(costKey, "CO2_Costs_3.0"), 1e-6)
	assert.InDelta(t, 6.0, out.Value(costKey, "CH4_Costs_3.0"), 1e-9)
	assert.InDelta(t, 20.0, out.Value(costKey, "N2O_Costs_3.0"), 1e-9)
	assert.InDelta(t, 30026.0, out.Value(costKey, GHGName("3.0")), 1e-6)
	assert.InDelta(t, 90000.0, out.Value(costKey, GHGName("3.0_95")), 1e-6)

	assert.Equal(t, EmissionAttributes(), out.Attributes())
}

func TestEmissionCosts_FuelAndClassClosure(t *testing.T) {
	inv := record.NewStore()
	inv.Put(annual("Passenger Car", "Gasoline"), record.Values{PMTailpipe: 1})
	inv.Put(annual("Passenger Car", "Electricity"), record.Values{PMTailpipe: 2})
	inv.Put(annual("Passenger Car", "E85"), record.Values{PMTailpipe: 4})
	inv.Put(annual("Light Truck", "Diesel"), record.Values{PMTailpipe: 8})
	inv.Put(annual("Light Truck", "Hydrogen"), record.Values{PMTailpipe: 16})

	car := annual("Passenger Car", "")
	truck := annual("Light Truck", "")
	total := annual(record.Total, "")

	out, err := EmissionCosts(inv, []record.Key{car, truck, total}, testFactors())
	require.NoError(t, err)

	attr := "PM25_Costs_tailpipe_3.0"
	assert.InDelta(t, 7.0, out.Value(car, attr), 1e-9)
	assert.InDelta(t, 24.0, out.Value(truck, attr), 1e-9)
	assert.InDelta(t, out.Value(car, attr)+out.Value(truck, attr), out.Value(total, attr), 1e-9)
	assert.Equal(t, []record.Key{car, truck, total}, out.Keys())
}

func TestEmissionCosts_MissingFactor(t *testing.T) {
	inv := record.NewStore()
	k := record.AnnualKey{Scenario: "action", CalendarYear: 2031, RegClass: "Passenger Car", FuelType: "Gasoline"}
	inv.Put(k, record.Values{PMTailpipe: 1})

	_, err := EmissionCosts(inv, []record.Key{k.WithFuel("")}, testFactors())
	var mfe *factors.MissingFactorError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, 2031, mfe.Year)
}

func TestEmissionCosts_NoInventoryIsZero(t *testing.T) {
	k := annual("Light Truck", "")
	out, err := EmissionCosts(record.NewStore(), []record.Key{k}, testFactors())
	require.NoError(t, err)
	assert.True(t, out.Has(k))
	assert.Zero(t, out.Value(k, GHGName("5.0")))
}

func TestEnergySecurityCosts(t *testing.T) {
	premia := factors.NewEnergySecurityTable()
	premia.Add(2029, 3)
	premia.Add(2030, 4)

	inv := record.NewStore()
	k := record.CohortKey{Scenario: "action", ModelYear: 2030, Age: 5, CalendarYear: 2035, RegClass: "Light Truck", FuelType: "Gasoline"}
	inv.Put(k, record.Values{ImportedBarrels: 5000})
	inv.Put(k.WithFuel("Diesel"), record.Values{ImportedBarrels: 1000})

	costKey := k.WithFuel("")
	total := costKey.WithClass(record.Total)
	out, err := EnergySecurityCosts(inv, []record.Key{costKey, total}, premia)
	require.NoError(t, err)

	assert.InDelta(t, 24.0, out.Value(costKey, PetroleumMarketExternalities), 1e-9)
	assert.InDelta(t, 24.0, out.Value(total, PetroleumMarketExternalities), 1e-9)
}

func TestBoundRates(t *testing.T) {
	rates := BoundRates()
	assert.Equal(t, 0.03, rates[CriteriaName("3.0")])
	assert.Equal(t, 0.07, rates["NOx_Costs_upstream_7.0"])
	assert.Equal(t, 0.025, rates["CH4_Costs_2.5"])
	assert.Equal(t, 0.03, rates[GHGName("3.0_95")])
	assert.Len(t, rates, len(EmissionAttributes()))

	tag, ok := TagOf("SO2_Costs_tailpipe_7.0")
	require.True(t, ok)
	assert.Equal(t, Tag{Category: CategorySO2, Rate: 0.07}, tag)

	_, ok = TagOf("Tech Cost")
	assert.False(t, ok)
}
