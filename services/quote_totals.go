package services

import "github.com/shopspring/decimal"

// QuoteTotals summarises purchase cost against selling price.
type QuoteTotals struct {
	TotalAchat   float64 `json:"totalAchat"`
	TotalVente   float64 `json:"totalVente"`
	Marge        float64 `json:"marge"`
	MargePercent float64 `json:"margePercent"`
}

// CalcPositionTotals sums every line of a position, synthetic lines
// included, and multiplies by the position quantity.
func CalcPositionTotals(p Position) QuoteTotals {
	achat := decimal.Zero
	vente := decimal.Zero
	for _, l := range p.Lines {
		achat = achat.Add(decimal.NewFromFloat(l.TotalAchat))
		vente = vente.Add(decimal.NewFromFloat(l.PVente))
	}
	qty := decimal.NewFromFloat(p.Quantite)
	return newTotals(achat.Mul(qty), vente.Mul(qty))
}

// CalcProjectTotals sums the totals of every position.
func CalcProjectTotals(p Project) QuoteTotals {
	achat := decimal.Zero
	vente := decimal.Zero
	for _, pos := range p.Positions {
		t := CalcPositionTotals(pos)
		achat = achat.Add(decimal.NewFromFloat(t.TotalAchat))
		vente = vente.Add(decimal.NewFromFloat(t.TotalVente))
	}
	return newTotals(achat, vente)
}

func newTotals(achat, vente decimal.Decimal) QuoteTotals {
	totals := QuoteTotals{
		TotalAchat: achat.InexactFloat64(),
		TotalVente: vente.InexactFloat64(),
		Marge:      vente.Sub(achat).InexactFloat64(),
	}
	if !vente.IsZero() {
		totals.MargePercent = vente.Sub(achat).Div(vente).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return totals
}

// syntheticAmounts returns the summed selling price of the management and
// commission lines of a project.
func syntheticAmounts(p Project) (management, commission float64) {
	pm := decimal.Zero
	ca := decimal.Zero
	for _, pos := range p.Positions {
		for _, l := range pos.Lines {
			switch {
			case l.IsProjectManagement:
				pm = pm.Add(decimal.NewFromFloat(l.PVente))
			case l.IsCommissionAgence:
				ca = ca.Add(decimal.NewFromFloat(l.PVente))
			}
		}
	}
	return pm.InexactFloat64(), ca.InexactFloat64()
}
