// Package record implements the composite-key record store shared by every stage
// of the benefit-cost engine. A store maps a typed key (annual, cohort or lifetime)
// to a set of named numeric attributes, and converts to and from flat tables.
package record

import (
	"fmt"
	"strconv"
)

// Canonical identifying column names.
const (
	ColScenario     = "Scenario Name"
	ColModelYear    = "Model Year"
	ColAge          = "Age"
	ColCalendarYear = "Calendar Year"
	ColRegClass     = "Reg-Class"
	ColFuelType     = "Fuel Type"
	ColDiscountRate = "Disc-Rate"
)

// Total is the class or fuel value of roll-up rows.
const Total = "TOTAL"

// Shape identifies which key variant a record uses.
type Shape int

const (
	ShapeAnnual Shape = iota
	ShapeCohort
	ShapeLifetime
)

func (s Shape) String() string {
	switch s {
	case ShapeAnnual:
		return "annual"
	case ShapeCohort:
		return "cohort"
	case ShapeLifetime:
		return "lifetime"
	default:
		return "unknown"
	}
}

// Key is a composite record key. All implementations are comparable and can be
// used directly as map keys.
type Key interface {
	Shape() Shape
	ScenarioName() string
	// Year returns the calendar year, or 0 for lifetime keys.
	Year() int
	Class() string
	// Fuel returns the fuel type, or "" when the key carries no fuel dimension.
	Fuel() string
	Rate() float64

	WithScenario(name string) Key
	WithClass(class string) Key
	WithFuel(fuel string) Key
	WithRate(rate float64) Key

	// dimension returns the formatted value for an identifying column.
	dimension(col string) (string, bool)
}

// AnnualKey identifies a calendar-year record.
type AnnualKey struct {
	Scenario     string
	CalendarYear int
	RegClass     string
	FuelType     string
	DiscountRate float64
}

func (k AnnualKey) Shape() Shape         { return ShapeAnnual }
func (k AnnualKey) ScenarioName() string { return k.Scenario }
func (k AnnualKey) Year() int            { return k.CalendarYear }
func (k AnnualKey) Class() string        { return k.RegClass }
func (k AnnualKey) Fuel() string         { return k.FuelType }
func (k AnnualKey) Rate() float64        { return k.DiscountRate }

func (k AnnualKey) WithScenario(name string) Key { k.Scenario = name; return k }
func (k AnnualKey) WithClass(class string) Key   { k.RegClass = class; return k }
func (k AnnualKey) WithFuel(fuel string) Key     { k.FuelType = fuel; return k }
func (k AnnualKey) WithRate(rate float64) Key    { k.DiscountRate = rate; return k }

func (k AnnualKey) String() string {
	return fmt.Sprintf("(%s, %d, %s, %s, %s)", k.Scenario, k.CalendarYear, k.RegClass, fuelLabel(k.FuelType), formatRate(k.DiscountRate))
}

func (k AnnualKey) dimension(col string) (string, bool) {
	switch col {
	case ColScenario:
		return k.Scenario, true
	case ColCalendarYear:
		return strconv.Itoa(k.CalendarYear), true
	case ColRegClass:
		return k.RegClass, true
	case ColFuelType:
		return k.FuelType, k.FuelType != ""
	case ColDiscountRate:
		return formatRate(k.DiscountRate), true
	}
	return "", false
}

// CohortKey identifies a record of one model-year cohort at one age.
type CohortKey struct {
	Scenario     string
	ModelYear    int
	Age          int
	CalendarYear int
	RegClass     string
	FuelType     string
	DiscountRate float64
}

func (k CohortKey) Shape() Shape         { return ShapeCohort }
func (k CohortKey) ScenarioName() string { return k.Scenario }
func (k CohortKey) Year() int            { return k.CalendarYear }
func (k CohortKey) Class() string        { return k.RegClass }
func (k CohortKey) Fuel() string         { return k.FuelType }
func (k CohortKey) Rate() float64        { return k.DiscountRate }

func (k CohortKey) WithScenario(name string) Key { k.Scenario = name; return k }
func (k CohortKey) WithClass(class string) Key   { k.RegClass = class; return k }
func (k CohortKey) WithFuel(fuel string) Key     { k.FuelType = fuel; return k }
func (k CohortKey) WithRate(rate float64) Key    { k.DiscountRate = rate; return k }

// Lifetime drops the age and calendar-year dimensions.
func (k CohortKey) Lifetime() LifetimeKey {
	return LifetimeKey{Scenario: k.Scenario, ModelYear: k.ModelYear, RegClass: k.RegClass,
		FuelType: k.FuelType, DiscountRate: k.DiscountRate}
}

func (k CohortKey) String() string {
	return fmt.Sprintf("(%s, MY%d, age %d, %d, %s, %s, %s)", k.Scenario, k.ModelYear, k.Age, k.CalendarYear, k.RegClass, fuelLabel(k.FuelType), formatRate(k.DiscountRate))
}

func (k CohortKey) dimension(col string) (string, bool) {
	switch col {
	case ColScenario:
		return k.Scenario, true
	case ColModelYear:
		return strconv.Itoa(k.ModelYear), true
	case ColAge:
		return strconv.Itoa(k.Age), true
	case ColCalendarYear:
		return strconv.Itoa(k.CalendarYear), true
	case ColRegClass:
		return k.RegClass, true
	case ColFuelType:
		return k.FuelType, k.FuelType != ""
	case ColDiscountRate:
		return formatRate(k.DiscountRate), true
	}
	return "", false
}

// LifetimeKey identifies a full-lifetime aggregate of a model-year cohort.
// FuelType is empty for cohorts that are not split by fuel.
type LifetimeKey struct {
	Scenario     string
	ModelYear    int
	RegClass     string
	FuelType     string
	DiscountRate float64
}

func (k LifetimeKey) Shape() Shape         { return ShapeLifetime }
func (k LifetimeKey) ScenarioName() string { return k.Scenario }
func (k LifetimeKey) Year() int            { return 0 }
func (k LifetimeKey) Class() string        { return k.RegClass }
func (k LifetimeKey) Fuel() string         { return k.FuelType }
func (k LifetimeKey) Rate() float64        { return k.DiscountRate }

func (k LifetimeKey) WithScenario(name string) Key { k.Scenario = name; return k }
func (k LifetimeKey) WithClass(class string) Key   { k.RegClass = class; return k }
func (k LifetimeKey) WithFuel(fuel string) Key     { k.FuelType = fuel; return k }
func (k LifetimeKey) WithRate(rate float64) Key    { k.DiscountRate = rate; return k }

func (k LifetimeKey) String() string {
	return fmt.Sprintf("(%s, MY%d, %s, %s, %s)", k.Scenario, k.ModelYear, k.RegClass, fuelLabel(k.FuelType), formatRate(k.DiscountRate))
}

func (k LifetimeKey) dimension(col string) (string, bool) {
	switch col {
	case ColScenario:
		return k.Scenario, true
	case ColModelYear:
		return strconv.Itoa(k.ModelYear), true
	case ColRegClass:
		return k.RegClass, true
	case ColFuelType:
		return k.FuelType, k.FuelType != ""
	case ColDiscountRate:
		return formatRate(k.DiscountRate), true
	}
	return "", false
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func fuelLabel(f string) string {
	if f == "" {
		return "-"
	}
	return f
}
