// Package offcycle prices off-cycle credits in the fleet compliance report and
// carries the resulting regulatory cost into the cost reports as Tech Cost.
//
// Fleet model compliance costs include fines, which are not a cost of the
// rule. The adjusted regulatory cost is rebuilt from its parts:
//
//	Avg Reg-Cost = Avg AC Efficiency Cost + Avg AC Leakage Cost + Avg Off-Cycle Cost + Avg Tech Cost
//	Avg Off-Cycle Cost = cost per credit × Off-Cycle Credits
package offcycle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bcaengine/bcaengine/pkg/record"
)

// Compliance report columns.
const (
	ColManufacturer    = "Manufacturer"
	ColSales           = "Sales"
	ColOffCycleCredits = "Off-Cycle Credits"
	ColAvgACEfficiency = "Avg AC Efficiency Cost"
	ColAvgACLeakage    = "Avg AC Leakage Cost"
	ColAvgTechCost     = "Avg Tech Cost"
	ColAvgOffCycleCost = "Avg Off-Cycle Cost"
	ColAvgRegCost      = "Avg Reg-Cost"
	ColOffCycleCost    = "Off-Cycle Cost"
	ColTechCost        = "Tech Cost"
	ColRegCost         = "Reg-Cost"
)

// Columns lists the columns of an adjusted compliance report in order.
var Columns = []string{
	record.ColScenario, record.ColModelYear, ColManufacturer, record.ColRegClass,
	ColSales, ColOffCycleCredits, ColAvgACEfficiency, ColAvgACLeakage, ColAvgTechCost,
	ColAvgOffCycleCost, ColAvgRegCost, ColOffCycleCost, ColTechCost, ColRegCost,
}

// Averages weighted by sales when manufacturers are combined. Within one
// reg-class the VMT weight is constant, so sales weighting is enough for the
// credits as well.
var weighted = []string{ColOffCycleCredits, ColAvgACEfficiency, ColAvgACLeakage, ColAvgTechCost}

type fleetKey struct {
	scenario  string
	modelYear int
	class     string
}

type row struct {
	fleetKey
	manufacturer string
	sales        float64
	avg          map[string]float64
}

// Compliance is an adjusted compliance report.
type Compliance struct {
	Table *record.Table
	// regulatory cost of the manufacturer TOTAL rows, thousands of dollars
	regCosts map[fleetKey]float64
}

// Adjust rebuilds the manufacturer TOTAL rows of a compliance report from the
// manufacturer rows and prices off-cycle credits at costPerCredit dollars each.
// Model Year TOTAL rows and existing manufacturer TOTAL rows are dropped. Empty
// numeric cells count as zero.
func Adjust(t *record.Table, costPerCredit float64) (*Compliance, error) {
	required := append([]string{record.ColScenario, record.ColModelYear, ColManufacturer,
		record.ColRegClass, ColSales}, weighted...)
	idx := make(map[string]int, len(required))
	for _, c := range required {
		i := t.Index(c)
		if i < 0 {
			return nil, &record.SchemaError{Column: c, Reason: "not found in compliance report"}
		}
		idx[c] = i
	}

	var (
		rows   []row
		totals = make(map[fleetKey]*row)
		order  []fleetKey
	)
	for n, cells := range t.Rows {
		cell := func(col string) string {
			i := idx[col]
			if i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}
		if cell(record.ColModelYear) == record.Total || cell(ColManufacturer) == record.Total {
			continue
		}
		my, err := strconv.Atoi(cell(record.ColModelYear))
		if err != nil {
			return nil, &record.SchemaError{Column: record.ColModelYear,
				Reason: fmt.Sprintf("row %d: %q is not a model year", n+1, cell(record.ColModelYear))}
		}
		r := row{
			fleetKey:     fleetKey{scenario: cell(record.ColScenario), modelYear: my, class: cell(record.ColRegClass)},
			manufacturer: cell(ColManufacturer),
			avg:          make(map[string]float64, len(weighted)),
		}
		if r.sales, err = number(cell(ColSales), ColSales, n); err != nil {
			return nil, err
		}
		for _, c := range weighted {
			if r.avg[c], err = number(cell(c), c, n); err != nil {
				return nil, err
			}
		}
		rows = append(rows, r)

		tot, ok := totals[r.fleetKey]
		if !ok {
			tot = &row{fleetKey: r.fleetKey, manufacturer: record.Total, avg: make(map[string]float64, len(weighted))}
			totals[r.fleetKey] = tot
			order = append(order, r.fleetKey)
		}
		tot.sales += r.sales
		for _, c := range weighted {
			tot.avg[c] += r.avg[c] * r.sales
		}
	}

	out := &Compliance{
		Table:    &record.Table{Columns: append([]string(nil), Columns...)},
		regCosts: make(map[fleetKey]float64, len(order)),
	}
	for _, r := range rows {
		out.Table.Rows = append(out.Table.Rows, r.cells(costPerCredit))
	}
	for _, k := range order {
		tot := totals[k]
		for _, c := range weighted {
			if tot.sales != 0 {
				tot.avg[c] /= tot.sales
			} else {
				tot.avg[c] = 0
			}
		}
		out.Table.Rows = append(out.Table.Rows, tot.cells(costPerCredit))
		out.regCosts[k] = tot.regCost(costPerCredit) / 1000
	}
	return out, nil
}

func (r row) avgRegCost(costPerCredit float64) float64 {
	return r.avg[ColAvgACEfficiency] + r.avg[ColAvgACLeakage] + costPerCredit*r.avg[ColOffCycleCredits] + r.avg[ColAvgTechCost]
}

func (r row) regCost(costPerCredit float64) float64 {
	return r.avgRegCost(costPerCredit) * r.sales
}

func (r row) cells(costPerCredit float64) []string {
	avgOffCycle := costPerCredit * r.avg[ColOffCycleCredits]
	return []string{
		r.scenario, strconv.Itoa(r.modelYear), r.manufacturer, r.class,
		format(r.sales), format(r.avg[ColOffCycleCredits]),
		format(r.avg[ColAvgACEfficiency]), format(r.avg[ColAvgACLeakage]), format(r.avg[ColAvgTechCost]),
		format(avgOffCycle), format(r.avgRegCost(costPerCredit)),
		format(avgOffCycle * r.sales), format(r.avg[ColAvgTechCost] * r.sales), format(r.regCost(costPerCredit)),
	}
}

// RegCost returns the fleet regulatory cost of one scenario, model year and
// reg-class in thousands of dollars.
func (c *Compliance) RegCost(scenario string, modelYear int, class string) (float64, bool) {
	v, ok := c.regCosts[fleetKey{scenario: scenario, modelYear: modelYear, class: class}]
	return v, ok
}

// ApplySummary returns a copy of an annual cost report whose Tech Cost is the
// fleet regulatory cost of the model year equal to the row's calendar year.
// Rows without a matching fleet cost get an empty Tech Cost.
func (c *Compliance) ApplySummary(costs *record.Table) (*record.Table, error) {
	return c.apply(costs, []string{record.ColScenario, record.ColCalendarYear, record.ColRegClass},
		func(get func(string) string) string {
			year, err := strconv.Atoi(get(record.ColCalendarYear))
			if err != nil {
				return ""
			}
			if v, ok := c.RegCost(get(record.ColScenario), year, get(record.ColRegClass)); ok {
				return format(v)
			}
			return ""
		})
}

// ApplyCohort returns a copy of a cohort cost report whose Tech Cost is the
// fleet regulatory cost at age 0 and zero at every other age.
func (c *Compliance) ApplyCohort(costs *record.Table) (*record.Table, error) {
	return c.apply(costs, []string{record.ColScenario, record.ColModelYear, record.ColAge, record.ColRegClass},
		func(get func(string) string) string {
			my, err := strconv.Atoi(get(record.ColModelYear))
			if age, aerr := strconv.ParseFloat(get(record.ColAge), 64); err != nil || aerr != nil || age != 0 {
				return "0"
			}
			if v, ok := c.RegCost(get(record.ColScenario), my, get(record.ColRegClass)); ok {
				return format(v)
			}
			return "0"
		})
}

func (c *Compliance) apply(costs *record.Table, keyCols []string, techCost func(get func(string) string) string) (*record.Table, error) {
	for _, col := range keyCols {
		if costs.Index(col) < 0 {
			return nil, &record.SchemaError{Column: col, Reason: "not found in cost report"}
		}
	}
	out := &record.Table{Columns: append([]string(nil), costs.Columns...)}
	tech := out.Index(ColTechCost)
	if tech < 0 {
		tech = len(out.Columns)
		out.Columns = append(out.Columns, ColTechCost)
	}
	for _, cells := range costs.Rows {
		r := make([]string, len(out.Columns))
		copy(r, cells)
		get := func(col string) string {
			i := costs.Index(col)
			if i < 0 || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}
		r[tech] = techCost(get)
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

func number(s, col string, n int) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, &record.SchemaError{Column: col, Reason: fmt.Sprintf("row %d: %q is not a number", n+1, s)}
	}
	return v, nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
