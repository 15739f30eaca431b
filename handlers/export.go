package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/services"
)

// buildExportData loads the project and flattens it for export.
func buildExportData(app *pocketbase.PocketBase, projectID string) (services.ExportData, error) {
	rec, err := app.FindRecordById("projects", projectID)
	if err != nil {
		return services.ExportData{}, fmt.Errorf("project not found: %w", err)
	}
	p, err := services.LoadProject(app, projectID)
	if err != nil {
		return services.ExportData{}, err
	}

	createdDate := "—"
	if dt := rec.GetDateTime("created"); !dt.IsZero() {
		createdDate = dt.Time().Format("02/01/2006")
	}
	return services.BuildExportData(p, createdDate), nil
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	return strings.NewReplacer(" ", "-", "/", "-", "\\", "-", ":", "-", `"`, "").Replace(s)
}

// exportFilename is "<reference>_<name>" or just the name for projects
// without a reference.
func exportFilename(data services.ExportData, ext string) string {
	base := sanitizeFilename(data.Title)
	if data.ReferenceNumber != "" {
		base = sanitizeFilename(data.ReferenceNumber) + "_" + base
	}
	return base + "." + ext
}

// HandleQuoteExportExcel returns a handler that generates and downloads an Excel file for a quote.
func HandleQuoteExportExcel(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("id")
		if projectID == "" {
			return e.String(http.StatusBadRequest, "Missing project ID")
		}

		data, err := buildExportData(app, projectID)
		if err != nil {
			log.Printf("export_excel: %v", err)
			return e.String(http.StatusNotFound, "Project not found")
		}

		xlsxBytes, err := services.GenerateQuoteExcel(data)
		if err != nil {
			log.Printf("export_excel: failed to generate: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
		}

		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(data, "xlsx")))
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}

// HandleQuoteExportPDF returns a handler that generates and downloads a PDF file for a quote.
func HandleQuoteExportPDF(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("id")
		if projectID == "" {
			return e.String(http.StatusBadRequest, "Missing project ID")
		}

		data, err := buildExportData(app, projectID)
		if err != nil {
			log.Printf("export_pdf: %v", err)
			return e.String(http.StatusNotFound, "Project not found")
		}

		pdfBytes, err := services.GenerateQuotePDF(data)
		if err != nil {
			log.Printf("export_pdf: failed to generate: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate PDF file")
		}

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(data, "pdf")))
		_, err = e.Response.Write(pdfBytes)
		return err
	}
}
