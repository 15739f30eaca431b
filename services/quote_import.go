package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ImportError is a single field-level error on one row of an uploaded file.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportedLine is a quote line read from a file. Input fields are kept as
// typed (a number or "=" formula) so they go through the formula engine.
type ImportedLine struct {
	Designation   string
	PrixUnitAchat string
	Quantite      string
	Coeff         string
}

// ImportResult is returned after parsing an uploaded quote-line file.
type ImportResult struct {
	TotalRows int            `json:"total_rows"`
	ValidRows int            `json:"valid_rows"`
	ErrorRows int            `json:"error_rows"`
	Errors    []ImportError  `json:"errors"`
	Lines     []ImportedLine `json:"-"`
}

// importColumns maps normalised header labels to ImportedLine fields.
var importColumns = map[string]string{
	"désignation":      "designation",
	"designation":      "designation",
	"prix unit. achat": FieldPrixUnitAchat,
	"prix unitaire":    FieldPrixUnitAchat,
	"prixunitachat":    FieldPrixUnitAchat,
	"qté":              FieldQuantite,
	"quantité":         FieldQuantite,
	"quantite":         FieldQuantite,
	"coeff":            FieldCoeff,
	"coefficient":      FieldCoeff,
}

// parseCSV reads a CSV file and returns headers + data rows. Both comma and
// semicolon separated files are accepted.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		reader.Comma = ';'
	}
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the
// first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return rows[0], rows[1:], nil
}

// mapImportHeaders returns the field key of every column ("" when the column
// is not recognised).
func mapImportHeaders(headers []string) []string {
	keys := make([]string, len(headers))
	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.TrimSpace(strings.TrimSuffix(norm, "*"))
		keys[i] = importColumns[norm]
	}
	return keys
}

// ParseQuoteLineFile reads quote lines from a .csv or .xlsx upload. Rows
// without a designation are reported; empty numeric cells default to
// quantity 1 and coefficient 1. Numeric cells are checked here, formulas
// are checked when applied to the position.
func ParseQuoteLineFile(file io.Reader, fileName string) (*ImportResult, error) {
	var headers []string
	var dataRows [][]string
	var err error

	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		headers, dataRows, err = parseCSV(file)
	case strings.HasSuffix(lowerName, ".xlsx"):
		headers, dataRows, err = parseExcel(file)
	default:
		return nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
	if err != nil {
		return nil, err
	}

	keys := mapImportHeaders(headers)
	hasDesignation := false
	for _, k := range keys {
		if k == "designation" {
			hasDesignation = true
		}
	}
	if !hasDesignation {
		return nil, fmt.Errorf("missing required column %q", "Désignation")
	}

	result := &ImportResult{}
	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2 // 1-indexed, +1 for header row
		values := make(map[string]string)
		blank := true
		for colIdx, key := range keys {
			if key == "" || colIdx >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[colIdx])
			if v != "" {
				blank = false
			}
			values[key] = v
		}
		if blank {
			continue
		}
		result.TotalRows++

		line := ImportedLine{
			Designation:   values["designation"],
			PrixUnitAchat: defaultCell(values[FieldPrixUnitAchat], "0"),
			Quantite:      defaultCell(values[FieldQuantite], "1"),
			Coeff:         defaultCell(values[FieldCoeff], "1"),
		}

		var rowErrors []ImportError
		if line.Designation == "" {
			rowErrors = append(rowErrors, ImportError{Row: rowNum, Field: "Désignation", Message: "Désignation is required"})
		}
		for _, c := range []struct{ label, value string }{
			{"Prix unit. achat", line.PrixUnitAchat},
			{"Qté", line.Quantite},
			{"Coeff", line.Coeff},
		} {
			if !strings.HasPrefix(c.value, "=") && !isDecimal(c.value) {
				rowErrors = append(rowErrors, ImportError{Row: rowNum, Field: c.label, Message: fmt.Sprintf("%q is not a number", c.value)})
			}
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorRows++
			continue
		}
		result.Lines = append(result.Lines, line)
	}
	result.ValidRows = len(result.Lines)
	return result, nil
}

func defaultCell(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// isDecimal accepts both "12.5" and "12,5".
func isDecimal(s string) bool {
	s = strings.ReplaceAll(s, ",", ".")
	_, err := decimal.NewFromString(s)
	return err == nil
}

// GenerateImportErrorReport creates a downloadable .xlsx listing import errors.
func GenerateImportErrorReport(errors []ImportError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Erreurs"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Ligne")
	f.SetCellValue(sheet, "B1", "Champ")
	f.SetCellValue(sheet, "C1", "Erreur")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errors {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, e.Field)
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}
