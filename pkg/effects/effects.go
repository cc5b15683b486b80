// Package effects derives physical effects the fleet model does not report:
// fatality decomposition, petroleum and electricity quantities, and US-ton
// criteria inventories.
package effects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
	"github.com/bcaengine/bcaengine/pkg/valuation"
)

// Attribute names read and written by this package.
const (
	Fatalities                 = "Fatalities"
	FatalitiesFromRebound      = "Fatalities From Rebound"
	FatalityRisk               = "Fatality risk per billion VMT"
	FatalitiesFromChangeInRisk = "Fatalities from Change in Risk"
	FatalitiesFromChangeInVMT  = "Fatalities from Change in VMT"
	KVMT                       = "kVMT"
	KGallons                   = "kGallons"
	BarrelsOfOil               = "Barrels of Oil"
	BarrelsOfImportedOil       = valuation.ImportedBarrels
	BarrelsOfImportedOilPerDay = "Barrels of Imported Oil per Day"
	KWh                        = "kWh"
)

// Params are the physical constants used for fuel effects.
type Params struct {
	GalPerBbl               float64 `yaml:"gal_per_bbl" json:"gal_per_bbl"`
	KWhPerGGE               float64 `yaml:"kwh_per_gge" json:"kwh_per_gge"`
	E0InRetailGasoline      float64 `yaml:"e0_in_retail_gasoline" json:"e0_in_retail_gasoline"`
	EnergyDensityRatioE0    float64 `yaml:"energy_density_ratio_e0" json:"energy_density_ratio_e0"`
	ImportedOilShare        float64 `yaml:"imported_oil_share" json:"imported_oil_share"`
	KWhUSAnnual             float64 `yaml:"kwh_us_annual" json:"kwh_us_annual"`
	BblOilUSAnnual          float64 `yaml:"bbl_oil_us_annual" json:"bbl_oil_us_annual"`
	GallonsGasolineUSAnnual float64 `yaml:"gallons_of_gasoline_us_annual" json:"gallons_of_gasoline_us_annual"`
	YearForCompares         int     `yaml:"year_for_compares" json:"year_for_compares"`
}

// DefaultParams returns 2020 US consumption figures.
func DefaultParams() Params {
	return Params{
		GalPerBbl:               42,
		KWhPerGGE:               0.031,
		E0InRetailGasoline:      0.9,
		EnergyDensityRatioE0:    1.0,
		ImportedOilShare:        0.91,
		KWhUSAnnual:             3.802e12,
		BblOilUSAnnual:          2.94e9,
		GallonsGasolineUSAnnual: 1.2e11,
		YearForCompares:         2020,
	}
}

// ShareOfGasoline is the attribute holding the share of annual US gasoline use.
func (p Params) ShareOfGasoline() string {
	return fmt.Sprintf("Share of %d US gasoline", p.YearForCompares)
}

// ShareOfOilOrElectricity is the attribute holding the share of annual US oil or
// electricity use.
func (p Params) ShareOfOilOrElectricity() string {
	return fmt.Sprintf("Share of %d US oil/elec", p.YearForCompares)
}

// FuelAttributes lists the fuel effects in output order.
func (p Params) FuelAttributes() []string {
	return []string{
		p.ShareOfGasoline(),
		BarrelsOfOil,
		p.ShareOfOilOrElectricity(),
		BarrelsOfImportedOil,
		BarrelsOfImportedOilPerDay,
		KWh,
	}
}

// FatalityMetrics replaces Fatalities From Rebound with the fatality risk per
// billion VMT. Records without VMT get a zero risk.
func FatalityMetrics(s *record.Store) {
	s.Delete(FatalitiesFromRebound)
	for _, k := range s.Keys() {
		var risk float64
		if vmt := s.Value(k, KVMT); vmt != 0 {
			risk = s.Value(k, Fatalities) / vmt * 1e6
		}
		s.Set(k, FatalityRisk, risk)
	}
}

// Apply adds fatality decomposition and fuel effects to every record of s,
// then re-sums the fuel effects onto fuel TOTAL and class TOTAL records. s
// must carry a fuel dimension and FatalityMetrics must have run.
func Apply(s *record.Store, baseline string, p Params) error {
	keys := s.Keys()
	for _, k := range keys {
		if !s.Has(k.WithScenario(baseline)) {
			return &social.MissingBaselineError{Key: k, Baseline: k.WithScenario(baseline)}
		}
	}

	for _, k := range keys {
		base := k.WithScenario(baseline)
		kvmt := s.Value(k, KVMT)
		fromRisk := (s.Value(k, FatalityRisk) - s.Value(base, FatalityRisk)) * kvmt / 1e6
		s.Set(k, FatalitiesFromChangeInRisk, fromRisk)
		s.Set(k, FatalitiesFromChangeInVMT, s.Value(k, Fatalities)-fromRisk)

		fuel := p.fuelEffects(k.Fuel(), s.Value(k, KGallons))
		for _, a := range p.FuelAttributes() {
			s.Set(k, a, fuel[a])
		}
	}
	Rollup(s, p.FuelAttributes()...)
	return nil
}

func (p Params) fuelEffects(fuel string, kGallons float64) record.Values {
	out := make(record.Values, 6)
	gallons := kGallons * 1000
	if fuel == "Electricity" {
		kwh := gallons * p.KWhPerGGE
		out[KWh] = kwh
		out[p.ShareOfOilOrElectricity()] = kwh / p.KWhUSAnnual
		return out
	}

	// Diesel and E85 gallons are gasoline equivalents and are treated as retail gasoline.
	share, ratio := p.E0InRetailGasoline, p.EnergyDensityRatioE0
	if fuel == "Hydrogen" {
		share, ratio = 0, 0
	}
	oil := gallons * share * ratio / p.GalPerBbl
	imported := oil * p.ImportedOilShare
	out[BarrelsOfOil] = oil
	out[BarrelsOfImportedOil] = imported
	out[BarrelsOfImportedOilPerDay] = imported / 365
	out[p.ShareOfGasoline()] = gallons / p.GallonsGasolineUSAnnual
	out[p.ShareOfOilOrElectricity()] = oil / p.BblOilUSAnnual
	return out
}

// Rollup overwrites attrs on existing fuel TOTAL records with the sum over the
// canonical fuels of their class, then on class TOTAL, fuel TOTAL records with
// the sum over the canonical classes. Absent records contribute zero.
func Rollup(s *record.Store, attrs ...string) {
	var classTotals []record.Key
	for _, k := range s.Keys() {
		if k.Fuel() != record.Total {
			continue
		}
		if k.Class() == record.Total {
			classTotals = append(classTotals, k)
			continue
		}
		for _, a := range attrs {
			var sum float64
			for _, fuel := range valuation.FuelTypes {
				sum += s.Value(k.WithFuel(fuel), a)
			}
			s.Set(k, a, sum)
		}
	}
	for _, k := range classTotals {
		for _, a := range attrs {
			var sum float64
			for _, class := range valuation.RegClasses {
				sum += s.Value(k.WithClass(class), a)
			}
			s.Set(k, a, sum)
		}
	}
}

// USTonsPerMetricTon converts metric tons to US short tons.
const USTonsPerMetricTon = 1e6 / 907185

// ConvertToUSTons rescales every "(t)" column other than CO2, CH4 and N2O to US
// tons and renames it "<first two words> (ustons)". Non-numeric cells are left
// as they are.
func ConvertToUSTons(t *record.Table) {
	for i, col := range t.Columns {
		if !strings.Contains(col, "(t)") || strings.Contains(col, "CO2") ||
			strings.Contains(col, "CH4") || strings.Contains(col, "N2O") {
			continue
		}
		for _, row := range t.Rows {
			if i >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				continue
			}
			row[i] = strconv.FormatFloat(v*USTonsPerMetricTon, 'f', -1, 64)
		}
		words := strings.Fields(col)
		if len(words) >= 2 {
			t.Columns[i] = words[0] + " " + words[1] + " (ustons)"
		}
	}
}
