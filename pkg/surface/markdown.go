package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/bcaengine/bcaengine/pkg/bca"
)

// MarkdownRenderer produces a Markdown summary suitable for reports and pull
// request comments.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, result *bca.Result) error {
	_, err := io.WriteString(w, BuildMarkdownSummary(result))
	return err
}

// BuildMarkdownSummary renders every report as a headline table.
func BuildMarkdownSummary(result *bca.Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Benefit-cost analysis: baseline %s, discounted to %d\n\n", result.Baseline, result.DiscountYear))

	for _, rep := range result.Reports {
		sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", rep.Report, rep.Shape))
		sb.WriteString("| Output | Rows |\n|--------|------|\n")
		sb.WriteString(fmt.Sprintf("| Discounted | %d |\n", rep.Rows))
		sb.WriteString(fmt.Sprintf("| Present values | %d |\n", rep.PresentValueRows))
		sb.WriteString(fmt.Sprintf("| Annualized values | %d |\n", rep.AnnualizedRows))
		sb.WriteString("\n")

		if len(rep.Headlines) == 0 {
			sb.WriteString("_No scenarios besides the baseline._\n\n")
			continue
		}
		sb.WriteString("| Scenario | Rate | Fuel savings ($M) | Costs ($M) | Benefits ($M) | Net ($M) |\n")
		sb.WriteString("|----------|------|-------------------|------------|---------------|----------|\n")
		for _, h := range rep.Headlines {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				h.Scenario, Percent(h.Rate),
				Millions(h.FuelSavings), Millions(h.TotalCosts), Millions(h.TotalBenefits), netMark(h.NetBenefits)))
		}
		if s := rep.Headlines[0].Series; s != "" {
			sb.WriteString(fmt.Sprintf("\nBenefits use `%s`.\n", s))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func netMark(v float64) string {
	if v < 0 {
		return ":red_circle: " + Millions(v)
	}
	return ":green_circle: " + Millions(v)
}
