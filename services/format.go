package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatEUR formats an amount in French euro notation: spaces group
// thousands, a comma separates two decimals and the symbol trails
// (e.g. 1 234,56 €).
func FormatEUR(amount float64) string {
	raw := roundMoney(amount).StringFixed(2)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	intPart, decPart, _ := strings.Cut(raw, ".")
	result := groupThousands(intPart) + "," + decPart + " €"
	if negative && strings.Trim(intPart+decPart, "0") != "" {
		result = "-" + result
	}
	return result
}

// FormatPercent formats a percentage with one decimal and a French comma.
func FormatPercent(pct float64) string {
	return strings.Replace(fmt.Sprintf("%.1f %%", pct), ".", ",", 1)
}

// groupThousands inserts a space every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// roundMoney rounds half away from zero to the cent.
func roundMoney(amount float64) decimal.Decimal {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(amount).Round(2)
}

// formatQty returns whole numbers without decimals and fractional values
// with up to three, using a French comma.
func formatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%.0f", qty)
	}
	s := decimal.NewFromFloat(qty).Round(3).String()
	return strings.Replace(s, ".", ",", 1)
}
