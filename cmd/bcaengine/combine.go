package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcaengine/bcaengine/pkg/combine"
	"github.com/bcaengine/bcaengine/pkg/record"
)

func newCombineCmd() *cobra.Command {
	var opts combineOpts

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Combine the reports of two fleet model runs",
		Long: `Each --pair names the same report from two runs as first.csv,second.csv with
an optional year shift (first.csv,second.csv,3). In "runs" mode the scrubbed
reports are stacked; in "scenarios" mode every scenario of the first run is
combined with every scenario of the second.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCombine(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "runs", "Combination mode: runs or scenarios")
	cmd.Flags().StringVar(&opts.base, "base", "", "Base scenario every report must start with (overrides config)")
	cmd.Flags().StringArrayVar(&opts.pairs, "pair", nil, "first.csv,second.csv[,year-shift] (repeatable, required)")
	cmd.Flags().StringVar(&opts.out, "out", "", "Output CSV path (required)")
	_ = cmd.MarkFlagRequired("pair")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

type combineOpts struct {
	mode  string
	base  string
	pairs []string
	out   string
}

func runCombine(cmd *cobra.Command, opts combineOpts) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	base := firstNonEmpty(opts.base, cfg.BaseScenario)

	var pairs []combine.Pair
	for _, arg := range opts.pairs {
		p, err := loadPair(arg)
		if err != nil {
			return err
		}
		pairs = append(pairs, p)
	}

	var out *record.Table
	switch opts.mode {
	case "runs":
		out, err = combine.Runs(base, pairs)
	case "scenarios":
		out, err = combine.Scenarios(base, pairs)
	default:
		return fmt.Errorf("unknown combine mode %q (want runs or scenarios)", opts.mode)
	}
	if err != nil {
		return err
	}

	if err := record.SaveCSV(opts.out, out); err != nil {
		return err
	}
	log.Info().
		Str("path", opts.out).
		Int("rows", len(out.Rows)).
		Strs("scenarios", combine.ScenarioNames(out)).
		Msg("combined")
	return nil
}

type pairArg struct {
	first, second string
	shift         int
}

func parsePair(s string) (pairArg, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return pairArg{}, fmt.Errorf("invalid pair %q: want first.csv,second.csv[,year-shift]", s)
	}
	p := pairArg{first: strings.TrimSpace(parts[0]), second: strings.TrimSpace(parts[1])}
	if p.first == "" || p.second == "" {
		return pairArg{}, fmt.Errorf("invalid pair %q: both reports are required", s)
	}
	if len(parts) == 3 {
		shift, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return pairArg{}, fmt.Errorf("invalid year shift in pair %q", s)
		}
		p.shift = shift
	}
	return p, nil
}

func loadPair(s string) (combine.Pair, error) {
	pa, err := parsePair(s)
	if err != nil {
		return combine.Pair{}, err
	}
	first, err := record.LoadCSV(pa.first)
	if err != nil {
		return combine.Pair{}, err
	}
	second, err := record.LoadCSV(pa.second)
	if err != nil {
		return combine.Pair{}, err
	}
	return combine.Pair{First: first, Second: second, YearShift: pa.shift}, nil
}
