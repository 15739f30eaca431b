package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/services"
)

// HandleProjectSettingsSave changes the project-management percentage of a
// project. New positions start from it; with apply_to_positions set, every
// existing position takes it too and the quote is recalculated.
// Route: POST /projects/{id}/settings
func HandleProjectSettingsSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		pct, err := parseAmount(e.Request.FormValue("project_management_percentage"), GetConfig(e.Request).DefaultManagementPercentage)
		if err != nil || pct < 0 {
			return ErrorToast(e, http.StatusBadRequest, "Percentage must be a positive number")
		}

		record, err := app.FindRecordById("projects", p.ID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Project not found")
		}
		record.Set("project_management_percentage", pct)
		if err := app.Save(record); err != nil {
			log.Printf("project_settings: could not save project %s: %v", p.ID, err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		applyAll := e.Request.FormValue("apply_to_positions") == "on" ||
			e.Request.FormValue("apply_to_positions") == "true"
		if applyAll {
			for i := range p.Positions {
				p.Positions[i] = services.SetManagementPercentage(p.Positions[i], pct)
			}
		}

		SetToast(e, "success", "Settings saved")
		return commitQuote(app, e, p, nil)
	}
}
