package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// GenerateQuotePDF renders the quote as a landscape A4 PDF.
func GenerateQuotePDF(data ExportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addQuoteHeader(m, data)
	addQuoteTableHeader(m)
	for _, r := range data.Rows {
		addQuoteRow(m, r)
	}
	addQuoteSummary(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addQuoteHeader(m core.Maroto, data ExportData) {
	grey := &props.Color{Red: 80, Green: 80, Blue: 80}
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(data.Title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}),
			),
		),
		row.New(8).Add(
			col.New(4).Add(
				text.New("Client : "+data.ClientName, props.Text{Size: 9, Align: align.Left, Color: grey}),
			),
			col.New(4).Add(
				text.New("Réf. : "+data.ReferenceNumber, props.Text{Size: 9, Align: align.Center, Color: grey}),
			),
			col.New(4).Add(
				text.New("Date : "+data.CreatedDate, props.Text{Size: 9, Align: align.Right, Color: grey}),
			),
		),
		row.New(4),
	)
}

func addQuoteTableHeader(m core.Maroto) {
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerCell := &props.Cell{BackgroundColor: &props.Color{Red: 33, Green: 37, Blue: 41}}

	labels := []struct {
		size  int
		label string
	}{
		{1, "#"}, {4, "Désignation"}, {2, "Prix unit. achat"}, {1, "Qté"},
		{1, "Coeff"}, {1, "Total achat"}, {1, "Prix de vente"}, {1, "Marge"},
	}
	cols := make([]core.Col, 0, len(labels))
	for _, l := range labels {
		cols = append(cols, col.New(l.size).Add(text.New(l.label, headerText)).WithStyle(headerCell))
	}
	m.AddRows(row.New(8).Add(cols...))
}

func addQuoteRow(m core.Maroto, r ExportRow) {
	base := props.Text{Size: 7, Align: align.Center}
	var cellStyle *props.Cell
	desc := r.Description
	switch {
	case r.Level == 0:
		base.Style = fontstyle.Bold
		base.Size = 8
		cellStyle = &props.Cell{BackgroundColor: &props.Color{Red: 235, Green: 235, Blue: 235}}
		desc = fmt.Sprintf("%s (x %s)", r.Description, formatQty(r.Quantite))
	case r.Synthetic:
		base.Style = fontstyle.Italic
		desc = "  " + desc
	default:
		desc = "  " + desc
	}
	left := base
	left.Align = align.Left
	right := base
	right.Align = align.Right

	var pua, qty, coeff string
	if r.Level > 0 {
		pua = FormatEUR(r.PrixUnitAchat)
		qty = formatQty(r.Quantite)
		coeff = formatQty(r.Coeff)
	}

	cols := []core.Col{
		col.New(1).Add(text.New(r.Index, base)),
		col.New(4).Add(text.New(desc, left)),
		col.New(2).Add(text.New(pua, right)),
		col.New(1).Add(text.New(qty, right)),
		col.New(1).Add(text.New(coeff, right)),
		col.New(1).Add(text.New(FormatEUR(r.TotalAchat), right)),
		col.New(1).Add(text.New(FormatEUR(r.PVente), right)),
		col.New(1).Add(text.New(FormatPercent(r.Marge), right)),
	}
	if cellStyle != nil {
		for i := range cols {
			cols[i] = cols[i].WithStyle(cellStyle)
		}
	}
	m.AddRows(row.New(7).Add(cols...))
}

func addQuoteSummary(m core.Maroto, data ExportData) {
	m.AddRows(row.New(6))

	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	style := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}

	lines := []struct {
		label string
		value float64
	}{
		{"Total achat", data.TotalAchat},
		{"Total vente", data.TotalVente},
		{fmt.Sprintf("Marge (%s)", FormatPercent(data.MargePercent)), data.Marge},
	}
	for _, l := range lines {
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(text.New(l.label, style)).WithStyle(summaryCell),
				col.New(4).Add(text.New(FormatEUR(l.value), style)).WithStyle(summaryCell),
			),
		)
	}
}
