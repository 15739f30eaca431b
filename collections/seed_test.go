package collections_test

import (
	"testing"

	"projets/collections"
	"projets/testhelpers"
)

func TestSeed_CreatesData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	projectsCol, _ := app.FindCollectionByNameOrId("projects")
	projects, err := app.FindAllRecords(projectsCol)
	if err != nil {
		t.Fatalf("query projects error: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}

	positionsCol, _ := app.FindCollectionByNameOrId("positions")
	positions, _ := app.FindAllRecords(positionsCol)
	if len(positions) != 3 {
		t.Errorf("expected 3 positions, got %d", len(positions))
	}
	for _, p := range positions {
		if p.GetString("position_key") == "" {
			t.Errorf("position %s has no key", p.Id)
		}
	}

	linesCol, _ := app.FindCollectionByNameOrId("quote_lines")
	lines, _ := app.FindAllRecords(linesCol)
	if len(lines) != 8 {
		t.Errorf("expected 8 quote lines, got %d", len(lines))
	}

	formulas := 0
	for _, l := range lines {
		for _, f := range []string{"prix_unit_achat", "quantite", "coeff"} {
			var v struct {
				IsFormula bool `json:"isFormula"`
			}
			if err := l.UnmarshalJSONField(f, &v); err != nil {
				t.Errorf("line %s field %s: %v", l.Id, f, err)
			}
			if v.IsFormula {
				formulas++
			}
		}
	}
	if formulas != 2 {
		t.Errorf("expected 2 formula inputs, got %d", formulas)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("first Seed() error: %v", err)
	}
	if err := collections.Seed(app); err != nil {
		t.Fatalf("second Seed() error: %v", err)
	}

	projectsCol, _ := app.FindCollectionByNameOrId("projects")
	projects, _ := app.FindAllRecords(projectsCol)
	if len(projects) != 2 {
		t.Errorf("expected 2 projects after second Seed(), got %d", len(projects))
	}
}

func TestSeed_SkipsWhenProjectsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestProject(t, app, "Existing")

	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	linesCol, _ := app.FindCollectionByNameOrId("quote_lines")
	lines, _ := app.FindAllRecords(linesCol)
	if len(lines) != 0 {
		t.Errorf("expected no seeded lines, got %d", len(lines))
	}
}
