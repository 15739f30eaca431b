package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/services"
)

// findPosition resolves the {positionId} path value, which is a position
// key, inside the loaded project.
func findPosition(e *core.RequestEvent, p services.Project) (int, bool, error) {
	key := e.Request.PathValue("positionId")
	idx := services.FindPosition(p, key)
	if idx < 0 {
		return -1, false, ErrorToast(e, http.StatusNotFound, "Position not found")
	}
	return idx, true, nil
}

// HandlePositionAdd creates a position with the next free key. The
// management percentage defaults to the project's.
func HandlePositionAdd(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		name := strings.TrimSpace(e.Request.FormValue("name"))
		if name == "" {
			return ErrorToast(e, http.StatusBadRequest, "Position name is required")
		}
		qty, err := parseAmount(e.Request.FormValue("quantite"), 1)
		if err != nil || qty < 0 {
			return ErrorToast(e, http.StatusBadRequest, "Invalid quantity")
		}

		projectRecord, err := app.FindRecordById("projects", p.ID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Project not found")
		}
		pct, err := parseAmount(e.Request.FormValue("project_management_percentage"),
			projectRecord.GetFloat("project_management_percentage"))
		if err != nil || pct < 0 {
			return ErrorToast(e, http.StatusBadRequest, "Invalid percentage")
		}

		positionsCol, err := app.FindCollectionByNameOrId("positions")
		if err != nil {
			log.Printf("positions: could not find positions collection: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		key := services.NextPositionKey(p)
		record := core.NewRecord(positionsCol)
		record.Set("project", p.ID)
		record.Set("position_key", key)
		record.Set("sort_order", len(p.Positions)+1)
		record.Set("name", name)
		record.Set("quantite", qty)
		record.Set("project_management_percentage", pct)
		if err := app.Save(record); err != nil {
			log.Printf("positions: could not save position: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		p.Positions = append(p.Positions, services.Position{
			ID:                          key,
			RecordID:                    record.Id,
			Name:                        name,
			Quantite:                    qty,
			ProjectManagementPercentage: pct,
		})
		SetToast(e, "success", "Position "+key+" added")
		return commitQuote(app, e, p, nil)
	}
}

// HandlePositionUpdate changes the name, quantity or management percentage
// of a position and recalculates the quote.
func HandlePositionUpdate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		idx, ok, err := findPosition(e, p)
		if !ok {
			return err
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		pos := p.Positions[idx]
		if e.Request.Form.Has("quantite") {
			qty, err := parseAmount(e.Request.FormValue("quantite"), 0)
			if err != nil || qty < 0 {
				return ErrorToast(e, http.StatusBadRequest, "Invalid quantity")
			}
			pos.Quantite = qty
		}
		if e.Request.Form.Has("project_management_percentage") {
			pct, err := parseAmount(e.Request.FormValue("project_management_percentage"), 0)
			if err != nil || pct < 0 {
				return ErrorToast(e, http.StatusBadRequest, "Invalid percentage")
			}
			pos = services.SetManagementPercentage(pos, pct)
		}
		if e.Request.Form.Has("name") {
			name := strings.TrimSpace(e.Request.FormValue("name"))
			if name == "" {
				return ErrorToast(e, http.StatusBadRequest, "Position name is required")
			}
			record, err := app.FindRecordById("positions", pos.RecordID)
			if err != nil {
				return ErrorToast(e, http.StatusNotFound, "Position not found")
			}
			record.Set("name", name)
			if err := app.Save(record); err != nil {
				log.Printf("positions: could not rename position %s: %v", pos.ID, err)
				return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
			}
			pos.Name = name
		}

		p.Positions[idx] = pos
		return commitQuote(app, e, p, nil)
	}
}

// HandlePositionDelete removes a position and its lines. Formulas of other
// positions that referenced it are reported as unresolvable.
func HandlePositionDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		idx, ok, err := findPosition(e, p)
		if !ok {
			return err
		}

		record, err := app.FindRecordById("positions", p.Positions[idx].RecordID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Position not found")
		}
		if err := app.Delete(record); err != nil {
			log.Printf("positions: could not delete position %s: %v", p.Positions[idx].ID, err)
			return ErrorToast(e, http.StatusInternalServerError, "Failed to delete position")
		}

		p.Positions = append(p.Positions[:idx:idx], p.Positions[idx+1:]...)
		SetToast(e, "success", "Position deleted")
		return commitQuote(app, e, p, nil)
	}
}
