package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a flat, header-named table of string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// SchemaError reports a table that does not match the requested key layout.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
	}
	return "schema error: " + e.Reason
}

// FromTable builds a store keyed by idColumns. The key variant follows from the
// columns named: Age selects CohortKey, Model Year without Calendar Year selects
// LifetimeKey, anything else AnnualKey. A Disc-Rate column, when present in the
// table, becomes the rate dimension; otherwise the rate is 0. Later rows replace
// earlier rows with the same key.
func FromTable(t *Table, idColumns ...string) (*Store, error) {
	return build(t, idColumns, (*Store).Put)
}

// SumTable is FromTable but sums the attributes of rows sharing a key.
func SumTable(t *Table, idColumns ...string) (*Store, error) {
	return build(t, idColumns, (*Store).Add)
}

// ToTable flattens a store into a table with the given identifying columns, a
// Disc-Rate column and one column per attribute. Dimensions a key does not carry
// and attributes a row lacks are written as empty cells.
func ToTable(s *Store, idColumns ...string) *Table {
	cols := make([]string, 0, len(idColumns)+1+len(s.attrs))
	for _, c := range idColumns {
		if c != ColDiscountRate {
			cols = append(cols, c)
		}
	}
	dims := len(cols)
	cols = append(cols, ColDiscountRate)
	cols = append(cols, s.attrs...)

	t := &Table{Columns: cols, Rows: make([][]string, 0, len(s.keys))}
	for _, k := range s.keys {
		row := make([]string, len(cols))
		for i := 0; i <= dims; i++ {
			row[i], _ = k.dimension(cols[i])
		}
		vals := s.rows[k]
		for i, attr := range s.attrs {
			if v, ok := vals[attr]; ok {
				row[dims+1+i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

type layout struct {
	shape    Shape
	scenario int
	model    int
	age      int
	calendar int
	class    int
	fuel     int
	rate     int
}

func build(t *Table, idColumns []string, insert func(*Store, Key, Values)) (*Store, error) {
	lay, err := resolveLayout(t, idColumns)
	if err != nil {
		return nil, err
	}

	isID := make(map[int]bool)
	for _, i := range []int{lay.scenario, lay.model, lay.age, lay.calendar, lay.class, lay.fuel, lay.rate} {
		if i >= 0 {
			isID[i] = true
		}
	}

	s := NewStore()
	for i, col := range t.Columns {
		if !isID[i] {
			s.note(col)
		}
	}

	for n, row := range t.Rows {
		k, err := lay.key(row, n)
		if err != nil {
			return nil, err
		}
		vals := make(Values)
		for i, cell := range row {
			if isID[i] || i >= len(t.Columns) {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			vals[t.Columns[i]] = v
		}
		insert(s, k, vals)
	}

	// Drop attribute columns that never held a number.
	var empty []string
	for _, a := range s.attrs {
		found := false
		for _, k := range s.keys {
			if _, ok := s.rows[k][a]; ok {
				found = true
				break
			}
		}
		if !found {
			empty = append(empty, a)
		}
	}
	if len(empty) > 0 {
		s.Delete(empty...)
	}
	return s, nil
}

func resolveLayout(t *Table, idColumns []string) (layout, error) {
	lay := layout{scenario: -1, model: -1, age: -1, calendar: -1, class: -1, fuel: -1, rate: t.Index(ColDiscountRate)}

	var dims []string
	for _, c := range idColumns {
		if c != ColDiscountRate {
			dims = append(dims, c)
		}
	}
	if len(dims) < 3 || len(dims) > 6 {
		return lay, &SchemaError{Reason: fmt.Sprintf("key arity %d outside 3..6", len(dims))}
	}

	for _, c := range dims {
		idx := t.Index(c)
		if idx < 0 {
			return lay, &SchemaError{Column: c, Reason: "not found in table"}
		}
		switch c {
		case ColScenario:
			lay.scenario = idx
		case ColModelYear:
			lay.model = idx
		case ColAge:
			lay.age = idx
		case ColCalendarYear:
			lay.calendar = idx
		case ColRegClass:
			lay.class = idx
		case ColFuelType:
			lay.fuel = idx
		default:
			return lay, &SchemaError{Column: c, Reason: "not an identifying dimension"}
		}
	}

	switch {
	case lay.age >= 0:
		lay.shape = ShapeCohort
		if lay.model < 0 || lay.calendar < 0 {
			return lay, &SchemaError{Reason: "cohort keys need Model Year, Age and Calendar Year"}
		}
	case lay.model >= 0 && lay.calendar < 0:
		lay.shape = ShapeLifetime
	default:
		lay.shape = ShapeAnnual
		if lay.calendar < 0 {
			return lay, &SchemaError{Column: ColCalendarYear, Reason: "annual keys need a calendar year"}
		}
		if lay.model >= 0 {
			return lay, &SchemaError{Column: ColModelYear, Reason: "model year requires Age"}
		}
	}
	if lay.scenario < 0 || lay.class < 0 {
		return lay, &SchemaError{Reason: "keys need Scenario Name and Reg-Class"}
	}
	return lay, nil
}

func (l layout) key(row []string, n int) (Key, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	year := func(i int, col string) (int, error) {
		v, err := strconv.ParseFloat(cell(i), 64)
		if err != nil || v != math.Trunc(v) {
			return 0, &SchemaError{Column: col, Reason: fmt.Sprintf("row %d: %q is not an integer", n+1, cell(i))}
		}
		return int(v), nil
	}

	rate := 0.0
	if l.rate >= 0 && cell(l.rate) != "" {
		r, err := strconv.ParseFloat(cell(l.rate), 64)
		if err != nil {
			return nil, &SchemaError{Column: ColDiscountRate, Reason: fmt.Sprintf("row %d: %q is not a number", n+1, cell(l.rate))}
		}
		rate = r
	}

	switch l.shape {
	case ShapeCohort:
		my, err := year(l.model, ColModelYear)
		if err != nil {
			return nil, err
		}
		age, err := year(l.age, ColAge)
		if err != nil {
			return nil, err
		}
		cy, err := year(l.calendar, ColCalendarYear)
		if err != nil {
			return nil, err
		}
		return CohortKey{Scenario: cell(l.scenario), ModelYear: my, Age: age, CalendarYear: cy,
			RegClass: cell(l.class), FuelType: cell(l.fuel), DiscountRate: rate}, nil
	case ShapeLifetime:
		my, err := year(l.model, ColModelYear)
		if err != nil {
			return nil, err
		}
		return LifetimeKey{Scenario: cell(l.scenario), ModelYear: my, RegClass: cell(l.class),
			FuelType: cell(l.fuel), DiscountRate: rate}, nil
	default:
		cy, err := year(l.calendar, ColCalendarYear)
		if err != nil {
			return nil, err
		}
		return AnnualKey{Scenario: cell(l.scenario), CalendarYear: cy, RegClass: cell(l.class),
			FuelType: cell(l.fuel), DiscountRate: rate}, nil
	}
}
