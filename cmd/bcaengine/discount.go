package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcaengine/bcaengine/pkg/bca"
	"github.com/bcaengine/bcaengine/pkg/combine"
	"github.com/bcaengine/bcaengine/pkg/discount"
	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
	"github.com/bcaengine/bcaengine/pkg/valuation"
)

func newDiscountCmd() *cobra.Command {
	var opts discountOpts

	cmd := &cobra.Command{
		Use:   "discount",
		Short: "Discount an already-valued costs table",
		Long: `Reads a costs table whose emission costs are already valued, discounts it at
the social rates, and writes the discounted, present-value and annualized
tables next to each other in --out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscount(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.costs, "costs", "", "Costs CSV to discount (required)")
	cmd.Flags().StringVar(&opts.out, "out", ".", "Output directory")
	cmd.Flags().StringVar(&opts.baseline, "baseline", "", "Baseline scenario name (overrides config)")
	cmd.Flags().StringVar(&opts.rates, "rates", "", "Comma-separated social discount rates (overrides config)")
	cmd.Flags().IntVar(&opts.discountYear, "discount-year", 0, "Year values are discounted to (overrides config)")
	cmd.Flags().StringVar(&opts.timing, "costs-start", "", "start-year or end-year (overrides config)")
	_ = cmd.MarkFlagRequired("costs")

	return cmd
}

type discountOpts struct {
	costs        string
	out          string
	baseline     string
	rates        string
	discountYear int
	timing       string
}

func runDiscount(cmd *cobra.Command, opts discountOpts) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	o := cfg.Options()
	if opts.baseline != "" {
		o.Baseline = opts.baseline
	}
	if opts.discountYear != 0 {
		o.DiscountYear = opts.discountYear
	}
	if opts.timing != "" {
		t, err := discount.ParseTiming(opts.timing)
		if err != nil {
			return err
		}
		o.Timing = t
	}
	if opts.rates != "" {
		rates, err := parseRates(opts.rates)
		if err != nil {
			return err
		}
		o.SocialRates = rates
	}

	t, err := record.LoadCSV(opts.costs)
	if err != nil {
		return err
	}
	cohort := t.Index(record.ColModelYear) >= 0
	ids := []string{record.ColScenario, record.ColCalendarYear, record.ColRegClass}
	if cohort {
		ids = []string{record.ColScenario, record.ColModelYear, record.ColAge, record.ColCalendarYear, record.ColRegClass}
	}
	s, err := record.FromTable(t, ids...)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.costs, err)
	}
	s = s.Filter(func(k record.Key) bool { return k.Rate() == 0 })
	s.Delete(combine.ColScenarioIndex)

	bound := valuation.BoundRates()
	var nonEmission []string
	for _, a := range s.Attributes() {
		if _, ok := bound[a]; !ok {
			nonEmission = append(nonEmission, a)
		}
	}

	e := &discount.Engine{
		DiscountYear: o.DiscountYear,
		Timing:       o.Timing,
		Bound:        bound,
		Social:       social.NewCalculator(o.Baseline, o.Categories),
	}
	res, err := e.Run(s, o.SocialRates, nonEmission...)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(opts.costs), filepath.Ext(opts.costs))
	valueIDs := []string{record.ColScenario, record.ColCalendarYear, record.ColRegClass}
	if cohort {
		valueIDs = []string{record.ColScenario, record.ColModelYear, record.ColRegClass}
	}
	for file, tbl := range map[string]*record.Table{
		name + "_discounted":           record.ToTable(res.Discounted, ids...),
		name + bca.SuffixPresentValues: record.ToTable(res.PresentValues, valueIDs...),
		name + bca.SuffixAnnualized:    record.ToTable(res.Annualized, valueIDs...),
	} {
		path := filepath.Join(opts.out, file+".csv")
		if err := record.SaveCSV(path, tbl); err != nil {
			return err
		}
		log.Info().Str("path", path).Int("rows", len(tbl.Rows)).Msg("wrote table")
	}
	if cohort {
		fmt.Fprintf(cmd.ErrOrStderr(), "Lifetime values annualized with max age %d\n", res.MaxAge)
	}
	return nil
}

func parseRates(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid discount rate %q", part)
		}
		if r < 0 {
			return nil, fmt.Errorf("discount rate %q must not be negative", part)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no discount rates in %q", s)
	}
	return out, nil
}
