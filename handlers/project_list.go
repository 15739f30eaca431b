package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/services"
	"projets/templates"
)

func HandleProjectList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		search := strings.TrimSpace(e.Request.URL.Query().Get("q"))

		filter := "id != ''"
		params := map[string]any{}
		if search != "" {
			filter = "name ~ {:q} || client_name ~ {:q} || reference_number ~ {:q}"
			params["q"] = search
		}

		records, err := app.FindRecordsByFilter("projects", filter, "-created", 0, 0, params)
		if err != nil {
			log.Printf("project_list: could not query projects: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		var items []templates.ProjectListItem
		for _, rec := range records {
			item := templates.ProjectListItem{
				ID:              rec.Id,
				Name:            rec.GetString("name"),
				ClientName:      rec.GetString("client_name"),
				ReferenceNumber: rec.GetString("reference_number"),
				Status:          rec.GetString("status"),
			}
			p, err := services.LoadProject(app, rec.Id)
			if err != nil {
				log.Printf("project_list: could not load project %s: %v", rec.Id, err)
			} else {
				item.PositionCount = len(p.Positions)
				item.TotalVente = services.FormatEUR(services.CalcProjectTotals(p).TotalVente)
			}
			items = append(items, item)
		}

		data := templates.ProjectListData{Items: items, Search: search}
		if isHTMX(e) {
			return templates.ProjectListContent(data).Render(e.Request.Context(), e.Response)
		}
		return templates.ProjectListPage(data).Render(e.Request.Context(), e.Response)
	}
}
