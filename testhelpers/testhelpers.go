// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// CreateTestProject creates a project record with the given name and returns it.
func CreateTestProject(t *testing.T, app *pocketbase.PocketBase, name string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		t.Fatalf("failed to find projects collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("client_name", "Client "+name)
	record.Set("status", "devis")
	record.Set("project_management_percentage", 10)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test project: %v", err)
	}

	return record
}

// CreateTestPosition creates a position linked to a project and returns it.
func CreateTestPosition(t *testing.T, app *pocketbase.PocketBase, projectID, key, name string, quantite, pmPct float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("positions")
	if err != nil {
		t.Fatalf("failed to find positions collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("position_key", key)
	record.Set("name", name)
	record.Set("quantite", quantite)
	record.Set("project_management_percentage", pmPct)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test position: %v", err)
	}

	return record
}

// CreateTestQuoteLine creates a regular quote line with literal inputs.
// Derived amounts are left at zero.
func CreateTestQuoteLine(t *testing.T, app *pocketbase.PocketBase, positionID, key string, sortOrder int, designation string, prixUnitAchat, quantite, coeff float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("quote_lines")
	if err != nil {
		t.Fatalf("failed to find quote_lines collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("position", positionID)
	record.Set("line_key", key)
	record.Set("sort_order", sortOrder)
	record.Set("designation", designation)
	record.Set("prix_unit_achat", map[string]any{"value": prixUnitAchat, "isFormula": false})
	record.Set("quantite", map[string]any{"value": quantite, "isFormula": false})
	record.Set("coeff", map[string]any{"value": coeff, "isFormula": false})

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test quote line: %v", err)
	}

	return record
}

// CountRecords returns the number of records of a collection matching filter.
func CountRecords(t *testing.T, app *pocketbase.PocketBase, collection, filter string, params map[string]any) int {
	t.Helper()

	records, err := app.FindRecordsByFilter(collection, filter, "", 0, 0, params)
	if err != nil {
		t.Fatalf("failed to query %s: %v", collection, err)
	}
	return len(records)
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

// AssertHXRedirect checks that the response has an HX-Redirect header with the expected URL.
func AssertHXRedirect(t *testing.T, headerVal, expectedURL string) {
	t.Helper()

	if headerVal != expectedURL {
		t.Errorf("expected HX-Redirect %q, got %q", expectedURL, headerVal)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
