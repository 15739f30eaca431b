package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// GenerateQuoteExcel creates an Excel workbook of the quote and returns the
// file contents.
func GenerateQuoteExcel(data ExportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Sheet names are limited to 31 characters.
	sheetName := []rune(data.Title)
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}
	sheet := string(sheetName)
	if sheet == "" {
		sheet = "Devis"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	lastCol := columns[len(columns)-1]
	widths := []float64{7, 40, 16, 9, 8, 16, 16, 10, 40}
	for i, col := range columns {
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}
	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#333333"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	positionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#EEEEEE"},
			Pattern: 1,
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create position style: %w", err)
	}
	lineStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create line style: %w", err)
	}
	syntheticStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10, Italic: true, Color: "#555555"},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create synthetic style: %w", err)
	}
	summaryLabelStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary label style: %w", err)
	}
	summaryValueStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary value style: %w", err)
	}

	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheet, "A1", sanitizeExcelCell(data.Title))
	f.SetCellStyle(sheet, "A1", lastCol+"1", titleStyle)

	subtitle := "Client : " + data.ClientName
	if data.ReferenceNumber != "" {
		subtitle += "    Réf. : " + data.ReferenceNumber
	}
	if err := f.MergeCell(sheet, "A2", lastCol+"2"); err != nil {
		return nil, fmt.Errorf("merge subtitle: %w", err)
	}
	f.SetCellValue(sheet, "A2", sanitizeExcelCell(subtitle))
	f.SetCellStyle(sheet, "A2", lastCol+"2", subtitleStyle)

	if err := f.MergeCell(sheet, "A3", lastCol+"3"); err != nil {
		return nil, fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(sheet, "A3", "Date : "+data.CreatedDate)
	f.SetCellStyle(sheet, "A3", lastCol+"3", subtitleStyle)

	headers := []string{"#", "Désignation", "Prix unit. achat", "Qté", "Coeff", "Total achat", "Prix de vente", "Marge %", "Formules"}
	for i, h := range headers {
		f.SetCellValue(sheet, columns[i]+"5", h)
	}
	f.SetCellStyle(sheet, "A5", lastCol+"5", headerStyle)

	row := 6
	for _, r := range data.Rows {
		n := fmt.Sprintf("%d", row)
		f.SetCellValue(sheet, "A"+n, r.Index)
		if r.Level == 0 {
			f.SetCellValue(sheet, "B"+n, sanitizeExcelCell(r.Description))
			f.SetCellValue(sheet, "D"+n, r.Quantite)
			f.SetCellValue(sheet, "F"+n, FormatEUR(r.TotalAchat))
			f.SetCellValue(sheet, "G"+n, FormatEUR(r.PVente))
			f.SetCellValue(sheet, "H"+n, FormatPercent(r.Marge))
			f.SetCellStyle(sheet, "A"+n, lastCol+n, positionStyle)
		} else {
			f.SetCellValue(sheet, "B"+n, sanitizeExcelCell("  "+r.Description))
			f.SetCellValue(sheet, "C"+n, FormatEUR(r.PrixUnitAchat))
			f.SetCellValue(sheet, "D"+n, r.Quantite)
			f.SetCellValue(sheet, "E"+n, r.Coeff)
			f.SetCellValue(sheet, "F"+n, FormatEUR(r.TotalAchat))
			f.SetCellValue(sheet, "G"+n, FormatEUR(r.PVente))
			f.SetCellValue(sheet, "H"+n, FormatPercent(r.Marge))
			f.SetCellValue(sheet, "I"+n, sanitizeExcelCell(r.Formulas))
			style := lineStyle
			if r.Synthetic {
				style = syntheticStyle
			}
			f.SetCellStyle(sheet, "A"+n, lastCol+n, style)
		}
		row++
	}

	row++
	summary := []struct {
		label string
		value string
	}{
		{"Total achat :", FormatEUR(data.TotalAchat)},
		{"Total vente :", FormatEUR(data.TotalVente)},
		{fmt.Sprintf("Marge (%s) :", FormatPercent(data.MargePercent)), FormatEUR(data.Marge)},
	}
	for _, s := range summary {
		n := fmt.Sprintf("%d", row)
		f.SetCellValue(sheet, "F"+n, s.label)
		f.SetCellStyle(sheet, "F"+n, "F"+n, summaryLabelStyle)
		f.SetCellValue(sheet, "G"+n, s.value)
		f.SetCellStyle(sheet, "G"+n, "G"+n, summaryValueStyle)
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Quote formulas start with "=" and must be
// shown as text, never evaluated by the spreadsheet.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
