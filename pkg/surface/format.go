package surface

import (
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var thousand = decimal.NewFromInt(1000)

// Millions formats an amount in thousands of dollars as millions with one
// decimal and thousand separators, e.g. 1234567 -> "1,234.6".
func Millions(thousands float64) string {
	d := decimal.NewFromFloat(thousands).Div(thousand).Round(1)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0)
	tenths := d.Sub(whole).Shift(1).IntPart()
	return sign + printer.Sprintf("%d", whole.IntPart()) + "." + strconv.FormatInt(tenths, 10)
}

// Percent formats a rate such as 0.03 as "3%".
func Percent(rate float64) string {
	return decimal.NewFromFloat(rate).Shift(2).String() + "%"
}
