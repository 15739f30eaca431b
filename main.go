package main

import (
	"log"
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"projets/collections"
	"projets/commands"
	"projets/config"
	"projets/handlers"
	"projets/services"
)

func main() {
	cfg := config.Load()
	app := pocketbase.New()

	app.RootCmd.AddCommand(commands.NewFormulaCommand(app))

	// Create collections, seed and migrate on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if cfg.Seed {
			if err := collections.Seed(app); err != nil {
				log.Printf("Warning: seed data failed: %v", err)
			}
		}
		if err := collections.MigratePositionKeys(app); err != nil {
			log.Printf("Warning: position key migration failed: %v", err)
		}
		if err := collections.MigrateLineKeys(app); err != nil {
			log.Printf("Warning: line key migration failed: %v", err)
		}
		if err := services.MigrateSyntheticLines(app); err != nil {
			log.Printf("Warning: synthetic line migration failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		se.Router.BindFunc(handlers.ConfigMiddleware(cfg))

		// ── Project CRUD ─────────────────────────────────────────
		se.Router.GET("/projects", handlers.HandleProjectList(app))
		se.Router.GET("/projects/create", handlers.HandleProjectCreate(app))
		se.Router.POST("/projects", handlers.HandleProjectSave(app))
		se.Router.GET("/projects/{id}/json", handlers.HandleProjectJSON(app))
		se.Router.POST("/projects/{id}/save", handlers.HandleProjectUpdate(app))
		se.Router.POST("/projects/{id}/settings", handlers.HandleProjectSettingsSave(app))
		se.Router.DELETE("/projects/{id}", handlers.HandleProjectDelete(app))

		// ── Positions ────────────────────────────────────────────
		se.Router.POST("/projects/{id}/positions", handlers.HandlePositionAdd(app))
		se.Router.PATCH("/projects/{id}/positions/{positionId}", handlers.HandlePositionUpdate(app))
		se.Router.DELETE("/projects/{id}/positions/{positionId}", handlers.HandlePositionDelete(app))

		// ── Quote lines ──────────────────────────────────────────
		// Import routes are registered before {lineId} so "import" is not read as a line key.
		se.Router.POST("/projects/{id}/positions/{positionId}/lines/import", handlers.HandleLineImport(app))
		se.Router.POST("/projects/{id}/positions/{positionId}/lines/import/errors", handlers.HandleLineImportErrorReport(app))
		se.Router.POST("/projects/{id}/positions/{positionId}/lines", handlers.HandleLineAdd(app))
		se.Router.PATCH("/projects/{id}/positions/{positionId}/lines/{lineId}", handlers.HandleLineUpdate(app))
		se.Router.DELETE("/projects/{id}/positions/{positionId}/lines/{lineId}", handlers.HandleLineDelete(app))

		// ── Formulas ─────────────────────────────────────────────
		se.Router.POST("/projects/{id}/formulas/validate", handlers.HandleFormulaValidate(app))
		se.Router.POST("/projects/{id}/formulas/evaluate", handlers.HandleFormulaEvaluate(app))
		se.Router.POST("/projects/{id}/formulas/check", handlers.HandleQuoteCheck(app))

		// ── Export ───────────────────────────────────────────────
		se.Router.GET("/projects/{id}/export/excel", handlers.HandleQuoteExportExcel(app))
		se.Router.GET("/projects/{id}/export/pdf", handlers.HandleQuoteExportPDF(app))

		// Quote view (after specific /projects/{id}/* routes)
		se.Router.GET("/projects/{id}", handlers.HandleProjectView(app))

		// Redirect home to projects list
		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.Redirect(http.StatusFound, "/projects")
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
