package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/formula"
)

// MigrateSyntheticLines loads every project, reconciles its synthetic
// lines, recomputes derived amounts and refreshes formula results, then
// saves the projects whose stored state differed. It replaces the reactive
// fix-up a form would otherwise do on load. Safe to call on every startup.
func MigrateSyntheticLines(app *pocketbase.PocketBase) error {
	projectsCol, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		return fmt.Errorf("migrate_quotes: could not find projects collection: %w", err)
	}
	projects, err := app.FindAllRecords(projectsCol)
	if err != nil {
		return fmt.Errorf("migrate_quotes: could not query projects: %w", err)
	}

	fixed := 0
	for _, rec := range projects {
		p, err := LoadProject(app, rec.Id)
		if err != nil {
			log.Printf("migrate_quotes: failed to load project %s: %v\n", rec.Id, err)
			continue
		}

		eng := NewProjectEngine(p, formula.ValidateOnSave)
		next, report := RecalculateProject(eng, p)
		for path, msg := range report.Errors {
			log.Printf("migrate_quotes: project %s: %s: %s\n", rec.Id, path, msg)
		}

		if sameQuote(p, next) {
			continue
		}
		err = app.RunInTransaction(func(txApp core.App) error {
			return SaveProjectLines(txApp, &next)
		})
		if err != nil {
			log.Printf("migrate_quotes: failed to save project %s: %v\n", rec.Id, err)
			continue
		}
		fixed++
	}

	if fixed > 0 {
		log.Printf("migrate_quotes: updated %d project(s).\n", fixed)
	}
	return nil
}

// sameQuote compares the persisted shape of two projects.
func sameQuote(a, b Project) bool {
	ja, errA := json.Marshal(a.Positions)
	jb, errB := json.Marshal(b.Positions)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
