package bca

import (
	"strconv"
	"strings"

	"github.com/bcaengine/bcaengine/pkg/combine"
	"github.com/bcaengine/bcaengine/pkg/effects"
	"github.com/bcaengine/bcaengine/pkg/record"
)

// Fleet model cost totals recomputed by the social calculator.
var modelTotals = []string{"Total Social Costs", "Total Social Benefits", "Net Social Benefits"}

func effectsColumns(cohort bool) []string {
	if cohort {
		return []string{record.ColScenario, record.ColModelYear, record.ColAge, record.ColCalendarYear, record.ColRegClass, record.ColFuelType}
	}
	return []string{record.ColScenario, record.ColCalendarYear, record.ColRegClass, record.ColFuelType}
}

func costsColumns(cohort bool) []string {
	if cohort {
		return []string{record.ColScenario, record.ColModelYear, record.ColAge, record.ColCalendarYear, record.ColRegClass}
	}
	return []string{record.ColScenario, record.ColCalendarYear, record.ColRegClass}
}

func valueColumns(cohort bool) []string {
	if cohort {
		return []string{record.ColScenario, record.ColModelYear, record.ColRegClass}
	}
	return costsColumns(false)
}

// prepareEffects drops fleet model totals, out-of-range years and excluded
// metrics, converts criteria inventories to US tons, sums duplicate rows and
// rebuilds the class and fuel totals. The cohort report also gets per-fuel
// fleet totals.
func (e *Engine) prepareEffects(t *record.Table, cohort bool) (*record.Store, error) {
	t = e.filterRows(t, cohort, func(col func(string) string) bool {
		return col(record.ColRegClass) != record.Total && col(record.ColFuelType) != record.Total
	})
	t = dropColumns(t, func(c string) bool {
		return c == combine.ColScenarioIndex || matchesAny(c, e.opts.EffectsExclude)
	})
	effects.ConvertToUSTons(t)

	detail, err := record.SumTable(t, effectsColumns(cohort)...)
	if err != nil {
		return nil, err
	}

	fuelTotals := record.NewStore()
	classTotals := record.NewStore()
	fleet := record.NewStore()
	for _, k := range detail.Keys() {
		row, _ := detail.Get(k)
		if cohort {
			fuelTotals.Add(k.WithClass(record.Total), row)
		}
		classTotals.Add(k.WithFuel(record.Total), row)
		fleet.Add(k.WithClass(record.Total).WithFuel(record.Total), row)
	}
	detail.Merge(fuelTotals)
	detail.Merge(classTotals)
	detail.Merge(fleet)
	return detail, nil
}

// prepareCosts keeps undiscounted rows in range, drops excluded metrics and the
// fleet model's social totals, sums duplicate rows and rebuilds class totals.
// It returns the store and its attributes, which are all non-emission costs.
func (e *Engine) prepareCosts(t *record.Table, cohort bool) (*record.Store, []string, error) {
	t = e.filterRows(t, cohort, func(col func(string) string) bool {
		if col(record.ColRegClass) == record.Total {
			return false
		}
		if rate := col(record.ColDiscountRate); rate != "" {
			if r, err := strconv.ParseFloat(rate, 64); err == nil && r != 0 {
				return false
			}
		}
		return true
	})
	t = dropColumns(t, func(c string) bool {
		if c == combine.ColScenarioIndex {
			return true
		}
		for _, m := range modelTotals {
			if c == m {
				return true
			}
		}
		return matchesAny(c, e.opts.CostsExclude) && !strings.Contains(c, "Property")
	})

	detail, err := record.SumTable(t, costsColumns(cohort)...)
	if err != nil {
		return nil, nil, err
	}
	nonEmission := detail.Attributes()

	totals := record.NewStore()
	for _, k := range detail.Keys() {
		row, _ := detail.Get(k)
		totals.Add(k.WithClass(record.Total), row)
	}
	detail.Merge(totals)
	return detail, nonEmission, nil
}

// filterRows keeps rows accepted by keep whose calendar year is not before the
// summary start year and, for cohort reports, whose model year is inside the
// configured range. Year TOTAL rows are dropped; other year cells that do not
// parse are kept for the key builder to reject.
func (e *Engine) filterRows(t *record.Table, cohort bool, keep func(col func(string) string) bool) *record.Table {
	out := &record.Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		col := func(name string) string {
			i := t.Index(name)
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if !keep(col) || col(record.ColModelYear) == record.Total || col(record.ColCalendarYear) == record.Total {
			continue
		}
		if y, ok := year(col(record.ColCalendarYear)); ok && y < e.opts.SummaryStartYear {
			continue
		}
		if cohort && len(e.opts.ModelYears) > 0 {
			first, last := e.opts.ModelYears[0], e.opts.ModelYears[len(e.opts.ModelYears)-1]
			if y, ok := year(col(record.ColModelYear)); ok && (y < first || y > last) {
				continue
			}
		}
		out.Rows = append(out.Rows, append([]string(nil), row...))
	}
	return out
}

func year(s string) (int, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func dropColumns(t *record.Table, drop func(string) bool) *record.Table {
	var keep []int
	out := &record.Table{}
	for i, c := range t.Columns {
		if !drop(c) {
			keep = append(keep, i)
			out.Columns = append(out.Columns, c)
		}
	}
	for _, row := range t.Rows {
		r := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				r[j] = row[i]
			}
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

func matchesAny(col string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(col, kw) {
			return true
		}
	}
	return false
}
