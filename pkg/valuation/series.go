// Package valuation converts physical inventories into monetized damages and
// petroleum-market externalities, rolled up from fuel to class to fleet totals.
package valuation

import "github.com/bcaengine/bcaengine/pkg/factors"

// Category is the pollutant group an emission-cost attribute belongs to.
type Category string

const (
	CategoryPM25     Category = "PM25"
	CategoryNOx      Category = "NOx"
	CategorySO2      Category = "SO2"
	CategoryCriteria Category = "Criteria"
	CategoryCO2      Category = "CO2"
	CategoryCH4      Category = "CH4"
	CategoryN2O      Category = "N2O"
	CategoryGHG      Category = "GHG"
)

// Tag binds an emission-cost attribute to its category and to the discount
// rate it is always discounted and annualized at.
type Tag struct {
	Category Category
	Rate     float64
}

type criteriaSeries struct {
	suffix string
	rate   float64
}

type ghgSeries struct {
	suffix string
	stream factors.Stream
	rate   float64
}

var criteriaRates = []criteriaSeries{
	{suffix: "3.0", rate: 0.03},
	{suffix: "7.0", rate: 0.07},
}

// The 3.95 estimate stream is reported as 3.0_95 and discounted at 3%.
var ghgRates = []ghgSeries{
	{suffix: "5.0", stream: factors.Stream5, rate: 0.05},
	{suffix: "3.0", stream: factors.Stream3, rate: 0.03},
	{suffix: "2.5", stream: factors.Stream25, rate: 0.025},
	{suffix: "3.0_95", stream: factors.Stream95, rate: 0.03},
}

var (
	emissionAttrs []string
	tags          = map[string]Tag{}
)

func register(name string, c Category, rate float64) {
	emissionAttrs = append(emissionAttrs, name)
	tags[name] = Tag{Category: c, Rate: rate}
}

func init() {
	pollutants := []Category{CategoryPM25, CategoryNOx, CategorySO2}
	for _, s := range criteriaRates {
		for _, p := range pollutants {
			register(pollutantName(p, "tailpipe", s.suffix), p, s.rate)
			register(pollutantName(p, "upstream", s.suffix), p, s.rate)
		}
	}
	for _, s := range criteriaRates {
		register(criteriaSourceName("tailpipe", s.suffix), CategoryCriteria, s.rate)
		register(criteriaSourceName("upstream", s.suffix), CategoryCriteria, s.rate)
	}
	for _, s := range criteriaRates {
		register(CriteriaName(s.suffix), CategoryCriteria, s.rate)
	}
	for _, c := range []Category{CategoryCO2, CategoryCH4, CategoryN2O, CategoryGHG} {
		for _, s := range ghgRates {
			register(ghgName(c, s.suffix), c, s.rate)
		}
	}
}

func pollutantName(c Category, source, suffix string) string {
	return string(c) + "_Costs_" + source + "_" + suffix
}

func criteriaSourceName(source, suffix string) string {
	return "Criteria_Costs_" + source + "_" + suffix
}

// CriteriaName returns the combined criteria-pollutant cost attribute for a
// series suffix ("3.0", "7.0").
func CriteriaName(suffix string) string {
	return "Criteria_Costs_" + suffix
}

// GHGName returns the combined greenhouse-gas cost attribute for a series
// suffix ("5.0", "3.0", "2.5", "3.0_95").
func GHGName(suffix string) string {
	return ghgName(CategoryGHG, suffix)
}

func ghgName(c Category, suffix string) string {
	return string(c) + "_Costs_" + suffix
}

// EmissionAttributes lists every emission-cost attribute in output order.
func EmissionAttributes() []string {
	out := make([]string, len(emissionAttrs))
	copy(out, emissionAttrs)
	return out
}

// TagOf returns the tag of an emission-cost attribute.
func TagOf(attr string) (Tag, bool) {
	t, ok := tags[attr]
	return t, ok
}

// BoundRates maps every emission-cost attribute to its bound discount rate.
func BoundRates() map[string]float64 {
	out := make(map[string]float64, len(tags))
	for name, t := range tags {
		out[name] = t.Rate
	}
	return out
}
