package factors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bcaengine/bcaengine/pkg/record"
)

// Reference table column names.
const (
	ColYear         = "calendar_year"
	ColRate         = "discount_rate"
	ColRegClass     = "reg_class"
	ColFuelType     = "fuel_type"
	ColEnergyPremia = "2018 $ / barrel"
)

var criteriaColumns = []string{
	"pm25_tailpipe_USD_per_uston",
	"nox_tailpipe_USD_per_uston",
	"so2_tailpipe_USD_per_uston",
	"pm25_upstream_USD_per_uston",
	"nox_upstream_USD_per_uston",
	"so2_upstream_USD_per_uston",
}

// SCCColumn returns the reference column for a gas ("co2", "ch4", "n2o") and stream.
func SCCColumn(gas string, s Stream) string {
	return fmt.Sprintf("%s_%s_USD_per_metricton", gas, s)
}

// LoadCriteria builds a CriteriaTable from a reference table.
func LoadCriteria(t *record.Table) (*CriteriaTable, error) {
	r, err := newReader(t, "criteria", append([]string{ColYear, ColRate, ColRegClass, ColFuelType}, criteriaColumns...))
	if err != nil {
		return nil, err
	}
	out := NewCriteriaTable()
	for n, row := range t.Rows {
		year, err := r.int(row, n, ColYear)
		if err != nil {
			return nil, err
		}
		rate, err := r.float(row, n, ColRate)
		if err != nil {
			return nil, err
		}
		var v [6]float64
		for i, col := range criteriaColumns {
			if v[i], err = r.float(row, n, col); err != nil {
				return nil, err
			}
		}
		out.Add(year, rate, r.str(row, ColRegClass), r.str(row, ColFuelType), Criteria{
			PM25Tailpipe: v[0], NOxTailpipe: v[1], SO2Tailpipe: v[2],
			PM25Upstream: v[3], NOxUpstream: v[4], SO2Upstream: v[5],
		})
	}
	return out, nil
}

// LoadSCC builds an SCCTable from a reference table.
func LoadSCC(t *record.Table) (*SCCTable, error) {
	cols := []string{ColYear}
	for _, gas := range []string{"co2", "ch4", "n2o"} {
		for _, s := range Streams {
			cols = append(cols, SCCColumn(gas, s))
		}
	}
	r, err := newReader(t, "social cost of GHG", cols)
	if err != nil {
		return nil, err
	}

	out := NewSCCTable()
	for n, row := range t.Rows {
		year, err := r.int(row, n, ColYear)
		if err != nil {
			return nil, err
		}
		f := SCC{CO2: GHG{}, CH4: GHG{}, N2O: GHG{}}
		for gas, dst := range map[string]GHG{"co2": f.CO2, "ch4": f.CH4, "n2o": f.N2O} {
			for _, s := range Streams {
				if dst[s], err = r.float(row, n, SCCColumn(gas, s)); err != nil {
					return nil, err
				}
			}
		}
		out.Add(year, f)
	}
	return out, nil
}

// LoadEnergySecurity builds an EnergySecurityTable from a reference table.
func LoadEnergySecurity(t *record.Table) (*EnergySecurityTable, error) {
	r, err := newReader(t, "energy security", []string{ColYear, ColEnergyPremia})
	if err != nil {
		return nil, err
	}
	out := NewEnergySecurityTable()
	for n, row := range t.Rows {
		year, err := r.int(row, n, ColYear)
		if err != nil {
			return nil, err
		}
		v, err := r.float(row, n, ColEnergyPremia)
		if err != nil {
			return nil, err
		}
		out.Add(year, v)
	}
	return out, nil
}

type reader struct {
	name string
	idx  map[string]int
}

func newReader(t *record.Table, name string, required []string) (*reader, error) {
	r := &reader{name: name, idx: make(map[string]int)}
	for _, col := range required {
		i := t.Index(col)
		if i < 0 {
			return nil, &record.SchemaError{Column: col, Reason: fmt.Sprintf("missing from %s factor table", name)}
		}
		r.idx[col] = i
	}
	return r, nil
}

func (r *reader) str(row []string, col string) string {
	i := r.idx[col]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (r *reader) float(row []string, n int, col string) (float64, error) {
	v, err := strconv.ParseFloat(r.str(row, col), 64)
	if err != nil {
		return 0, &record.SchemaError{Column: col, Reason: fmt.Sprintf("%s factor row %d: %q is not a number", r.name, n+1, r.str(row, col))}
	}
	return v, nil
}

func (r *reader) int(row []string, n int, col string) (int, error) {
	v, err := r.float(row, n, col)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
