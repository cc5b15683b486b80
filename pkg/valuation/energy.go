package valuation

import (
	"fmt"

	"github.com/bcaengine/bcaengine/pkg/factors"
	"github.com/bcaengine/bcaengine/pkg/record"
)

const (
	ImportedBarrels              = "Barrels of Imported Oil"
	PetroleumMarketExternalities = "Petroleum Market Externalities"
)

var energyAttrs = []string{PetroleumMarketExternalities}

// EnergySecurityCosts values imported barrels at the year's $/barrel premium,
// in thousands of dollars, summed onto costKeys the same way as EmissionCosts.
func EnergySecurityCosts(inventory *record.Store, costKeys []record.Key, premia *factors.EnergySecurityTable) (*record.Store, error) {
	if premia == nil {
		return nil, fmt.Errorf("energy security factor table is required")
	}
	cell := func(k record.Key) (record.Values, error) {
		inv, ok := inventory.Get(k)
		if !ok {
			return nil, nil
		}
		perBarrel, err := premia.Lookup(k.Year())
		if err != nil {
			return nil, fmt.Errorf("valuing %v: %w", k, err)
		}
		return record.Values{PetroleumMarketExternalities: perBarrel * inv[ImportedBarrels] / 1000}, nil
	}
	return rollup(costKeys, energyAttrs, cell)
}
