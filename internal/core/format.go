package core

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// CurrencySymbol prefixes formatted amounts.
const CurrencySymbol = "¥"

// FormatCurrency formats a as yen with thousands grouping and no fraction
// digits, rounding half away from zero (e.g. "¥12,345", "-¥800").
func FormatCurrency(a Amount) string {
	r := a.Decimal.Round(0)
	digits := humanize.BigComma(r.Abs().BigInt())
	if r.IsNegative() {
		return "-" + CurrencySymbol + digits
	}
	return CurrencySymbol + digits
}

// FormatSignedCurrency prefixes the amount with + for income and - for expense.
func FormatSignedCurrency(k Kind, a Amount) string {
	abs := Amount{Decimal: a.Decimal.Abs()}
	if k == Income {
		return "+" + FormatCurrency(abs)
	}
	return "-" + FormatCurrency(abs)
}

// FormatDate renders a short month/day label such as "1月15日".
// Unparsable dates fall back to their raw text.
func FormatDate(d Date) string {
	if d.IsZero() {
		return d.raw
	}
	return fmt.Sprintf("%d月%d日", int(d.Time.Month()), d.Time.Day())
}

// FormatDateForInput renders t as the YYYY-MM-DD value of a date input.
func FormatDateForInput(t time.Time) string {
	return t.Format(DateLayout)
}
