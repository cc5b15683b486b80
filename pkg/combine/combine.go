// Package combine merges the reports of paired model runs (one run per OEM
// group) into a single report before benefit-cost processing.
package combine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bcaengine/bcaengine/pkg/record"
)

// ColScenarioIndex is the numeric scenario column dropped by Scrub.
const ColScenarioIndex = "Scenario"

// LastYear is the last calendar or model year kept after a year shift.
const LastYear = 2050

// BaseScenarioError reports a report whose first row is not the base scenario.
type BaseScenarioError struct {
	Want string
	Got  string
}

func (e *BaseScenarioError) Error() string {
	return fmt.Sprintf("scenario 0 should be %q, got %q", e.Want, e.Got)
}

// InconsistentScenarioError reports paired runs whose scenario names differ.
type InconsistentScenarioError struct {
	First  []string
	Second []string
}

func (e *InconsistentScenarioError) Error() string {
	return fmt.Sprintf("scenario names do not match: [%s] vs [%s]",
		strings.Join(e.First, ", "), strings.Join(e.Second, ", "))
}

// Pair is the same report read from two runs, with an optional year shift
// applied to the combined scenarios.
type Pair struct {
	First     *record.Table
	Second    *record.Table
	YearShift int
}

// CheckBaseScenario verifies that the first data row belongs to base.
func CheckBaseScenario(t *record.Table, base string) error {
	i := t.Index(record.ColScenario)
	if i < 0 {
		return &record.SchemaError{Column: record.ColScenario, Reason: "not found in table"}
	}
	got := ""
	if len(t.Rows) > 0 && i < len(t.Rows[0]) {
		got = t.Rows[0][i]
	}
	if got != base {
		return &BaseScenarioError{Want: base, Got: got}
	}
	return nil
}

// Scrub returns a copy of t without base scenario rows, without the numeric
// Scenario column and without Model Year TOTAL rows.
func Scrub(t *record.Table, base string) *record.Table {
	scen := t.Index(record.ColScenario)
	model := t.Index(record.ColModelYear)
	drop := t.Index(ColScenarioIndex)

	out := &record.Table{}
	for i, c := range t.Columns {
		if i != drop {
			out.Columns = append(out.Columns, c)
		}
	}
	for _, row := range t.Rows {
		if cell(row, scen) == base {
			continue
		}
		if model >= 0 && cell(row, model) == record.Total {
			continue
		}
		kept := make([]string, 0, len(out.Columns))
		for i := range t.Columns {
			if i != drop {
				kept = append(kept, cell(row, i))
			}
		}
		out.Rows = append(out.Rows, kept)
	}
	return out
}

// ScenarioNames returns the distinct scenario names in order of appearance.
func ScenarioNames(t *record.Table) []string {
	i := t.Index(record.ColScenario)
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		name := cell(row, i)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// CheckScenarioSets requires both tables to list the same scenarios in the
// same order.
func CheckScenarioSets(a, b *record.Table) error {
	na, nb := ScenarioNames(a), ScenarioNames(b)
	if len(na) != len(nb) {
		return &InconsistentScenarioError{First: na, Second: nb}
	}
	for i := range na {
		if na[i] != nb[i] {
			return &InconsistentScenarioError{First: na, Second: nb}
		}
	}
	return nil
}

// Runs stacks the scrubbed reports of every pair. Both reports of a pair must
// start with the base scenario and carry the same scenarios.
func Runs(base string, pairs []Pair) (*record.Table, error) {
	var parts []*record.Table
	for n, p := range pairs {
		first, second, err := prepare(base, p)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", n+1, err)
		}
		if err := CheckScenarioSets(first, second); err != nil {
			return nil, fmt.Errorf("pair %d: %w", n+1, err)
		}
		parts = append(parts, first, second)
	}
	return Concat(parts...), nil
}

// Scenarios combines every scenario of the first report with every scenario
// of the second into a scenario named "<first>_<second>", shifting years when
// the pair asks for it.
func Scenarios(base string, pairs []Pair) (*record.Table, error) {
	var parts []*record.Table
	for n, p := range pairs {
		first, second, err := prepare(base, p)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", n+1, err)
		}
		for _, a := range ScenarioNames(first) {
			for _, b := range ScenarioNames(second) {
				combined := Concat(only(first, a), only(second, b))
				rename(combined, a+"_"+b)
				if p.YearShift != 0 {
					combined = ShiftYears(combined, p.YearShift)
				}
				parts = append(parts, combined)
			}
		}
	}
	return Concat(parts...), nil
}

func prepare(base string, p Pair) (*record.Table, *record.Table, error) {
	if p.First == nil || p.Second == nil {
		return nil, nil, fmt.Errorf("both reports are required")
	}
	if err := CheckBaseScenario(p.First, base); err != nil {
		return nil, nil, err
	}
	if err := CheckBaseScenario(p.Second, base); err != nil {
		return nil, nil, err
	}
	return Scrub(p.First, base), Scrub(p.Second, base), nil
}

// ShiftYears adds shift to numeric Calendar Year and Model Year cells and
// drops rows whose shifted year is after LastYear.
func ShiftYears(t *record.Table, shift int) *record.Table {
	cols := []int{t.Index(record.ColCalendarYear), t.Index(record.ColModelYear)}
	out := &record.Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		shifted := append([]string(nil), row...)
		keep := true
		for _, i := range cols {
			if i < 0 || i >= len(shifted) {
				continue
			}
			y, err := strconv.Atoi(strings.TrimSpace(shifted[i]))
			if err != nil {
				continue
			}
			y += shift
			shifted[i] = strconv.Itoa(y)
			if y > LastYear {
				keep = false
			}
		}
		if keep {
			out.Rows = append(out.Rows, shifted)
		}
	}
	return out
}

// Concat stacks tables. The result has the columns of the first table followed
// by any columns first seen in later tables; missing cells are empty.
func Concat(tables ...*record.Table) *record.Table {
	out := &record.Table{}
	pos := make(map[string]int)
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			merged := make([]string, len(out.Columns))
			for i, c := range t.Columns {
				merged[pos[c]] = cell(row, i)
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}

func only(t *record.Table, scenario string) *record.Table {
	i := t.Index(record.ColScenario)
	out := &record.Table{Columns: t.Columns}
	for _, row := range t.Rows {
		if cell(row, i) == scenario {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

func rename(t *record.Table, scenario string) {
	i := t.Index(record.ColScenario)
	for _, row := range t.Rows {
		if i < len(row) {
			row[i] = scenario
		}
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
