package handlers

import (
	"log"
	"net/http"
	"slices"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/collections"
)

// HandleProjectUpdate changes the name, client or status of a project.
// Fields missing from the form are left untouched.
func HandleProjectUpdate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("id")
		record, err := app.FindRecordById("projects", projectID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Project not found")
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		if e.Request.Form.Has("name") {
			name := strings.TrimSpace(e.Request.FormValue("name"))
			if name == "" {
				return ErrorToast(e, http.StatusBadRequest, "Project name is required")
			}
			record.Set("name", name)
		}
		if e.Request.Form.Has("client_name") {
			record.Set("client_name", strings.TrimSpace(e.Request.FormValue("client_name")))
		}
		if e.Request.Form.Has("status") {
			status := strings.TrimSpace(e.Request.FormValue("status"))
			if !slices.Contains(collections.ProjectStatuses, status) {
				return ErrorToast(e, http.StatusBadRequest, "Unknown status "+status)
			}
			record.Set("status", status)
		}

		if err := app.Save(record); err != nil {
			log.Printf("project_edit: could not save project %s: %v", projectID, err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		SetToast(e, "success", "Project updated")
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		return renderQuote(e, p, nil)
	}
}
