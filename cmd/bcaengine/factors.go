package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bcaengine/bcaengine/pkg/bca"
	"github.com/bcaengine/bcaengine/pkg/factors"
	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/surface"
)

func newFactorsCmd() *cobra.Command {
	var opts factorsOpts

	cmd := &cobra.Command{
		Use:   "factors",
		Short: "Show the cost factors that apply to a calendar year",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFactors(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputs, "inputs", "", "Directory holding the cost_factors-*.csv tables (required)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "Calendar year (required)")
	cmd.Flags().StringVar(&opts.regClass, "reg-class", "Passenger Car", "Regulatory class for criteria factors")
	cmd.Flags().StringVar(&opts.fuel, "fuel", "Gasoline", "Fuel type for criteria factors")
	cmd.Flags().Float64Var(&opts.rate, "rate", 0.03, "Criteria discount-rate series: 0.03 or 0.07")
	_ = cmd.MarkFlagRequired("inputs")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

type factorsOpts struct {
	inputs   string
	year     int
	regClass string
	fuel     string
	rate     float64
}

func runFactors(cmd *cobra.Command, opts factorsOpts) error {
	if _, _, err := setup(cmd); err != nil {
		return err
	}
	load := func(name string) (*record.Table, error) {
		return record.LoadCSV(filepath.Join(opts.inputs, name+".csv"))
	}

	criteriaTbl, err := load(bca.TableCriteria)
	if err != nil {
		return err
	}
	sccTbl, err := load(bca.TableSCC)
	if err != nil {
		return err
	}
	energyTbl, err := load(bca.TableEnergySecurity)
	if err != nil {
		return err
	}

	criteria, err := factors.LoadCriteria(criteriaTbl)
	if err != nil {
		return err
	}
	scc, err := factors.LoadSCC(sccTbl)
	if err != nil {
		return err
	}
	energy, err := factors.LoadEnergySecurity(energyTbl)
	if err != nil {
		return err
	}

	c, err := criteria.Lookup(opts.year, opts.regClass, opts.fuel, opts.rate)
	if err != nil {
		return err
	}
	g, err := scc.Lookup(opts.year)
	if err != nil {
		return err
	}
	premium, err := energy.Lookup(opts.year)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fuel := opts.fuel
	if s := factors.SurrogateFuel(fuel); s != fuel {
		fuel = fmt.Sprintf("%s (as %s)", fuel, s)
	}
	fmt.Fprintf(w, "Cost factors for %d\n\n", opts.year)
	fmt.Fprintf(w, "Criteria, $/US ton (%s, %s, %s series)\n", opts.regClass, fuel, surface.Percent(opts.rate))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tPM2.5\tNOx\tSO2\t")
	fmt.Fprintf(tw, "tailpipe\t%.2f\t%.2f\t%.2f\t\n", c.PM25Tailpipe, c.NOxTailpipe, c.SO2Tailpipe)
	fmt.Fprintf(tw, "upstream\t%.2f\t%.2f\t%.2f\t\n", c.PM25Upstream, c.NOxUpstream, c.SO2Upstream)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nSocial cost of GHG, $/metric ton\n")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, s := range factors.Streams {
		fmt.Fprintf(tw, "%s%%\t", s)
	}
	fmt.Fprintln(tw)
	for _, row := range []struct {
		gas string
		ghg factors.GHG
	}{{"CO2", g.CO2}, {"CH4", g.CH4}, {"N2O", g.N2O}} {
		fmt.Fprintf(tw, "%s\t", row.gas)
		for _, s := range factors.Streams {
			fmt.Fprintf(tw, "%.2f\t", row.ghg[s])
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nEnergy security: $%.2f per barrel of imported oil\n", premium)
	return nil
}
