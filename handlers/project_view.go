package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/services"
)

// HandleProjectView renders the quote editor of a project.
func HandleProjectView(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		return renderQuote(e, p, nil)
	}
}

// HandleProjectJSON returns the project with its positions and lines.
func HandleProjectJSON(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		return e.JSON(http.StatusOK, map[string]any{
			"project": p,
			"totals":  services.CalcProjectTotals(p),
		})
	}
}
