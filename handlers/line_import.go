package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/services"
)

// HandleLineImport adds the lines of an uploaded .csv or .xlsx file to a
// position. The import is all or nothing: when a row is invalid no line is
// added and the errors are sent in the importErrors HX-Trigger event.
// Route: POST /projects/{id}/positions/{positionId}/lines/import
func HandleLineImport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		idx, ok, err := findPosition(e, p)
		if !ok {
			return err
		}

		// Parse multipart form (max 10MB)
		if err := e.Request.ParseMultipartForm(10 << 20); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "File too large or invalid form data")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()

		result, err := services.ParseQuoteLineFile(file, header.Filename)
		if err != nil {
			log.Printf("line_import: %v", err)
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}
		if result.ErrorRows > 0 {
			SetTrigger(e, "importErrors", result.Errors)
			return ErrorToast(e, http.StatusUnprocessableEntity,
				fmt.Sprintf("%d of %d rows have errors, nothing was imported", result.ErrorRows, result.TotalRows))
		}

		positionID := p.Positions[idx].ID
		eng := services.NewProjectEngine(p, validationMode(e.Request))
		fieldErrors := make(map[string]string)
		for _, in := range result.Lines {
			pi := services.FindPosition(p, positionID)
			key := services.NextLineKey(p.Positions[pi])
			pos, err := services.AddQuoteLine(p.Positions[pi], services.NewQuoteLine(key, in.Designation, 0, 1, 1))
			if err != nil {
				return lineEditError(e, err)
			}
			p.Positions[pi] = pos

			var errs map[string]string
			p, errs, err = applyInputs(eng, p, map[string][]string{
				services.FieldPrixUnitAchat: {in.PrixUnitAchat},
				services.FieldQuantite:      {in.Quantite},
				services.FieldCoeff:         {in.Coeff},
			}, positionID, key)
			if err != nil {
				return lineEditError(e, err)
			}
			for path, msg := range errs {
				fieldErrors[path] = msg
			}
		}

		log.Printf("line_import: project %s position %s: imported %d line(s) from %s\n",
			p.ID, positionID, len(result.Lines), header.Filename)
		SetToast(e, "success", fmt.Sprintf("%d line(s) imported", len(result.Lines)))
		return commitQuote(app, e, p, fieldErrors)
	}
}

// HandleLineImportErrorReport downloads import errors as an Excel file.
// Route: POST /projects/{id}/positions/{positionId}/lines/import/errors
func HandleLineImportErrorReport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var errors []services.ImportError
		if err := json.NewDecoder(e.Request.Body).Decode(&errors); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid error data")
		}

		xlsxBytes, err := services.GenerateImportErrorReport(errors)
		if err != nil {
			log.Printf("line_import: error report: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		filename := fmt.Sprintf("Import_Erreurs_%s.xlsx", time.Now().Format("2006-01-02"))
		e.Response.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}
