package services

import (
	"fmt"
	"strings"
)

// ExportRow is a single row of the quote export: a position header or one
// of its lines.
type ExportRow struct {
	Level         int    // 0 = position, 1 = line
	Index         string // "1", "1.1" etc
	Description   string
	PrixUnitAchat float64
	Quantite      float64
	Coeff         float64
	TotalAchat    float64
	PVente        float64
	Marge         float64 // percent
	Formulas      string  // "quantite: =@ligne[...]" for formula inputs
	Synthetic     bool
}

// ExportData holds all data needed for a quote export.
type ExportData struct {
	Title           string
	ClientName      string
	ReferenceNumber string
	CreatedDate     string
	Rows            []ExportRow
	TotalAchat      float64
	TotalVente      float64
	Marge           float64
	MargePercent    float64
}

// BuildExportData flattens a project into export rows. Position rows carry
// the position totals; line amounts are per single unit of the position.
func BuildExportData(p Project, createdDate string) ExportData {
	data := ExportData{
		Title:           p.Name,
		ClientName:      p.ClientName,
		ReferenceNumber: p.ReferenceNumber,
		CreatedDate:     createdDate,
	}

	for i, pos := range p.Positions {
		totals := CalcPositionTotals(pos)
		data.Rows = append(data.Rows, ExportRow{
			Level:       0,
			Index:       fmt.Sprintf("%d", i+1),
			Description: pos.Name,
			Quantite:    pos.Quantite,
			TotalAchat:  totals.TotalAchat,
			PVente:      totals.TotalVente,
			Marge:       totals.MargePercent,
		})
		for j, l := range pos.Lines {
			data.Rows = append(data.Rows, ExportRow{
				Level:         1,
				Index:         fmt.Sprintf("%d.%d", i+1, j+1),
				Description:   l.Designation,
				PrixUnitAchat: l.PrixUnitAchat.Float(),
				Quantite:      l.Quantite.Float(),
				Coeff:         l.Coeff.Float(),
				TotalAchat:    l.TotalAchat,
				PVente:        l.PVente,
				Marge:         l.Marge,
				Formulas:      lineFormulas(l),
				Synthetic:     l.IsSynthetic(),
			})
		}
	}

	totals := CalcProjectTotals(p)
	data.TotalAchat = totals.TotalAchat
	data.TotalVente = totals.TotalVente
	data.Marge = totals.Marge
	data.MargePercent = totals.MargePercent
	return data
}

func lineFormulas(l PricingLine) string {
	var parts []string
	for _, name := range InputFields {
		v := lineField(&l, name)
		if v.IsFormula && v.Formula != nil {
			parts = append(parts, name+": "+v.Raw())
		}
	}
	return strings.Join(parts, "; ")
}
