package services

import "testing"

func TestGenerateQuotePDF_Basic(t *testing.T) {
	data := BuildExportData(sampleExportProject(t), "15/01/2026")

	result, err := GenerateQuotePDF(data)
	if err != nil {
		t.Fatalf("GenerateQuotePDF() error = %v", err)
	}
	if len(result) < 5 || string(result[:5]) != "%PDF-" {
		t.Fatalf("result does not start with a PDF header")
	}
}

func TestGenerateQuotePDF_Empty(t *testing.T) {
	result, err := GenerateQuotePDF(ExportData{Title: "Vide", CreatedDate: "15/01/2026"})
	if err != nil {
		t.Fatalf("GenerateQuotePDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateQuotePDF() returned empty bytes")
	}
}
