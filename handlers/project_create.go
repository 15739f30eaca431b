package handlers

import (
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/collections"
	"projets/formula"
	"projets/services"
	"projets/templates"
)

func HandleProjectCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cfg := GetConfig(e.Request)
		data := templates.ProjectCreateData{
			Status:                      collections.ProjectStatuses[0],
			ProjectManagementPercentage: formula.NumberValue(cfg.DefaultManagementPercentage).Raw(),
			StatusOptions:               collections.ProjectStatuses,
			Errors:                      make(map[string]string),
		}
		return templates.ProjectCreatePage(data).Render(e.Request.Context(), e.Response)
	}
}

func HandleProjectSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		cfg := GetConfig(e.Request)
		name := strings.TrimSpace(e.Request.FormValue("name"))
		clientName := strings.TrimSpace(e.Request.FormValue("client_name"))
		status := strings.TrimSpace(e.Request.FormValue("status"))
		pctRaw := strings.TrimSpace(e.Request.FormValue("project_management_percentage"))

		errors := make(map[string]string)
		if name == "" {
			errors["name"] = "Project name is required"
		}
		if !slices.Contains(collections.ProjectStatuses, status) {
			status = collections.ProjectStatuses[0]
		}
		pct, err := parseAmount(pctRaw, cfg.DefaultManagementPercentage)
		if err != nil || pct < 0 {
			errors["project_management_percentage"] = "Percentage must be a positive number"
		}

		if len(errors) > 0 {
			SetToast(e, "warning", "Please fix the errors below")
			data := templates.ProjectCreateData{
				Name:                        name,
				ClientName:                  clientName,
				Status:                      status,
				ProjectManagementPercentage: pctRaw,
				StatusOptions:               collections.ProjectStatuses,
				Errors:                      errors,
			}
			e.Response.WriteHeader(http.StatusUnprocessableEntity)
			return templates.ProjectCreatePage(data).Render(e.Request.Context(), e.Response)
		}

		projectsCol, err := app.FindCollectionByNameOrId("projects")
		if err != nil {
			log.Printf("project_create: could not find projects collection: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		ref, err := services.GenerateQuoteReference(app, time.Now())
		if err != nil {
			log.Printf("project_create: could not generate reference: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		record := core.NewRecord(projectsCol)
		record.Set("name", name)
		record.Set("client_name", clientName)
		record.Set("reference_number", ref)
		record.Set("status", status)
		record.Set("project_management_percentage", pct)

		if err := app.Save(record); err != nil {
			log.Printf("project_create: could not save project: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		SetToast(e, "success", "Project "+ref+" created")

		target := "/projects/" + record.Id
		if isHTMX(e) {
			e.Response.Header().Set("HX-Redirect", target)
			return e.String(http.StatusOK, "")
		}
		return e.Redirect(http.StatusFound, target)
	}
}
