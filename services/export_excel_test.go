package services

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"projets/formula"
)

// sampleExportProject returns one position with a formula line, already
// reconciled.
func sampleExportProject(t *testing.T) Project {
	t.Helper()
	pos := Position{ID: "pos1", Name: "Façade", Quantite: 2, ProjectManagementPercentage: 10}
	pos, err := AddQuoteLine(pos, NewQuoteLine("L1", "Caisson lumineux", 400, 1, 2))
	if err != nil {
		t.Fatalf("AddQuoteLine: %v", err)
	}
	l2 := NewQuoteLine("L2", "Pose", 50, 2, 1.5)
	two := 2.0
	l2.Quantite = formula.FormulaValue(&formula.Formula{
		Expression:   "@ligne[pos1_L1].quantite*2",
		IsValid:      true,
		Dependencies: []string{"@ligne[pos1_L1].quantite"},
		Result:       &two,
	})
	pos, err = AddQuoteLine(pos, l2)
	if err != nil {
		t.Fatalf("AddQuoteLine: %v", err)
	}
	return Project{ID: "p1", Name: "Boulangerie Martin", ClientName: "Martin SARL", ReferenceNumber: "DEV-042", Positions: []Position{pos}}
}

func TestBuildExportData(t *testing.T) {
	p := sampleExportProject(t)
	data := BuildExportData(p, "15/01/2026")

	// one position row + 2 regular lines + 2 synthetic lines
	if len(data.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(data.Rows))
	}
	if data.Rows[0].Level != 0 || data.Rows[0].Index != "1" || data.Rows[0].Description != "Façade" {
		t.Errorf("unexpected position row: %+v", data.Rows[0])
	}
	if data.Rows[2].Index != "1.2" || !strings.Contains(data.Rows[2].Formulas, "quantite: =@ligne[pos1_L1].quantite*2") {
		t.Errorf("formula line not exported: %+v", data.Rows[2])
	}
	if !data.Rows[3].Synthetic || !data.Rows[4].Synthetic {
		t.Error("management and commission rows must be flagged synthetic")
	}
	totals := CalcProjectTotals(p)
	if !floatClose(data.TotalVente, totals.TotalVente) || !floatClose(data.MargePercent, totals.MargePercent) {
		t.Errorf("export totals %+v do not match project totals %+v", data, totals)
	}
}

func TestGenerateQuoteExcel_Basic(t *testing.T) {
	data := BuildExportData(sampleExportProject(t), "15/01/2026")

	result, err := GenerateQuoteExcel(data)
	if err != nil {
		t.Fatalf("GenerateQuoteExcel() error = %v", err)
	}

	f, err := excelize.OpenReader(bytesReader(result))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 || sheets[0] != "Boulangerie Martin" {
		t.Fatalf("expected sheet 'Boulangerie Martin', got %v", sheets)
	}
	title, _ := f.GetCellValue(sheets[0], "A1")
	if title != "Boulangerie Martin" {
		t.Errorf("expected title, got %q", title)
	}
	header, _ := f.GetCellValue(sheets[0], "B5")
	if header != "Désignation" {
		t.Errorf("expected header 'Désignation', got %q", header)
	}
	pos, _ := f.GetCellValue(sheets[0], "B6")
	if pos != "Façade" {
		t.Errorf("expected position row, got %q", pos)
	}
	formulas, _ := f.GetCellValue(sheets[0], "I8")
	if !strings.Contains(formulas, "=@ligne[pos1_L1].quantite*2") {
		t.Errorf("expected formula text in I8, got %q", formulas)
	}
}

func TestGenerateQuoteExcel_EmptyTitle(t *testing.T) {
	result, err := GenerateQuoteExcel(ExportData{CreatedDate: "15/01/2026"})
	if err != nil {
		t.Fatalf("GenerateQuoteExcel() error = %v", err)
	}
	f, err := excelize.OpenReader(bytesReader(result))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); sheets[0] != "Devis" {
		t.Errorf("expected default sheet name 'Devis', got %q", sheets[0])
	}
}

func TestGenerateQuoteExcel_LongTitle(t *testing.T) {
	data := ExportData{Title: "Rénovation complète de la signalétique du centre commercial"}
	result, err := GenerateQuoteExcel(data)
	if err != nil {
		t.Fatalf("GenerateQuoteExcel() error = %v", err)
	}
	f, err := excelize.OpenReader(bytesReader(result))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	if n := len([]rune(f.GetSheetList()[0])); n > 31 {
		t.Errorf("sheet name exceeds 31 characters: %d", n)
	}
}

func TestSanitizeExcelCell(t *testing.T) {
	tests := []struct {
		input, expect string
	}{
		{"", ""},
		{"Pose", "Pose"},
		{"=SUM(A1)", "'=SUM(A1)"},
		{"@ligne", "'@ligne"},
		{"-5", "'-5"},
	}
	for _, tt := range tests {
		if got := sanitizeExcelCell(tt.input); got != tt.expect {
			t.Errorf("sanitizeExcelCell(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}
