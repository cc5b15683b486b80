package surface

import (
	"fmt"
	"io"
	"os"

	"github.com/bcaengine/bcaengine/pkg/bca"
)

// TerminalRenderer renders results as colored terminal output.
type TerminalRenderer struct{}

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
)

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func netColor(v float64) string {
	if v < 0 {
		return colorRed
	}
	return colorGreen
}

func (r *TerminalRenderer) Render(w io.Writer, result *bca.Result) error {
	fmt.Fprintf(w, "%s\n",
		bold(fmt.Sprintf("Benefit-cost analysis: baseline %s, discounted to %d", result.Baseline, result.DiscountYear)))
	fmt.Fprintf(w, "%s\n\n", dim("present values in millions of dollars"))

	if len(result.Reports) == 0 {
		fmt.Fprintln(w, "No reports.")
		return nil
	}

	for _, rep := range result.Reports {
		fmt.Fprintf(w, "%s (%s): %d rows / %d present values / %d annualized",
			bold(rep.Report), rep.Shape, rep.Rows, rep.PresentValueRows, rep.AnnualizedRows)
		if rep.MaxAge > 0 {
			fmt.Fprintf(w, " / max age %d", rep.MaxAge)
		}
		fmt.Fprintln(w)

		if len(rep.Headlines) == 0 {
			fmt.Fprintln(w, "  No scenarios besides the baseline.")
			fmt.Fprintln(w)
			continue
		}

		fmt.Fprintf(w, "  %-24s %6s %14s %14s %14s %14s\n",
			"Scenario", "Rate", "Fuel savings", "Costs", "Benefits", "Net")
		for _, h := range rep.Headlines {
			net := fmt.Sprintf("%14s", Millions(h.NetBenefits))
			fmt.Fprintf(w, "  %-24s %6s %14s %14s %14s %s\n",
				h.Scenario, Percent(h.Rate),
				Millions(h.FuelSavings), Millions(h.TotalCosts), Millions(h.TotalBenefits),
				colored(net, netColor(h.NetBenefits)))
		}
		if s := rep.Headlines[0].Series; s != "" {
			fmt.Fprintf(w, "  %s\n", dim("benefits use "+s))
		}
		fmt.Fprintln(w)
	}
	return nil
}
