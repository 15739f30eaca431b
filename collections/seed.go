package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ── Definition structs ───────────────────────────────────────────────────

type lineDef struct {
	key         string
	designation string
	// each input is a number or a string holding a formula expression
	prixUnitAchat any
	quantite      any
	coeff         any
}

type positionDef struct {
	key      string
	name     string
	quantite float64
	pmPct    float64
	lines    []lineDef
}

type projectDef struct {
	name            string
	clientName      string
	referenceNumber string
	status          string
	pmPct           float64
	positions       []positionDef
}

// seedInput converts a lineDef input to the stored field value shape.
func seedInput(v any) map[string]any {
	if expr, ok := v.(string); ok {
		return map[string]any{
			"value":     map[string]any{"expression": expr, "isValid": true},
			"isFormula": true,
		}
	}
	return map[string]any{"value": v, "isFormula": false}
}

var seedProjects = []projectDef{
	{
		name:            "Boulangerie Martin - Enseigne façade",
		clientName:      "Martin SARL",
		referenceNumber: "DEV-2026-001",
		status:          "devis",
		pmPct:           10,
		positions: []positionDef{
			{
				key: "pos1", name: "Enseigne lumineuse", quantite: 1, pmPct: 10,
				lines: []lineDef{
					{"L1", "Lettres boîtier LED", 85.0, 12.0, 1.8},
					{"L2", "Alimentation 12V", 45.0, "@ligne[pos1_L1].quantite/4", 1.5},
					{"L3", "Pose nacelle", 380.0, 1.0, 1.3},
				},
			},
			{
				key: "pos2", name: "Vitrophanie", quantite: 2, pmPct: 5,
				lines: []lineDef{
					{"L1", "Adhésif dépoli (m²)", 22.0, 6.5, 2.2},
					{"L2", "Pose", "@ligne[pos2_L1].quantite*8", 1.0, 1.0},
				},
			},
		},
	},
	{
		name:            "Garage Durand - Totem",
		clientName:      "Durand Automobiles",
		referenceNumber: "DEV-2026-002",
		status:          "en_cours",
		pmPct:           8,
		positions: []positionDef{
			{
				key: "pos1", name: "Totem double face", quantite: 1, pmPct: 8,
				lines: []lineDef{
					{"L1", "Structure acier", 1200.0, 1.0, 1.6},
					{"L2", "Faces dibond imprimées", 95.0, 2.0, 2.0},
					{"L3", "Massif béton", 450.0, 1.0, 1.2},
				},
			},
		},
	},
}

// Seed populates the collections with sample signage quotes. It is safe to
// call on every startup because it returns early if any project records
// already exist. Derived amounts and synthetic lines are filled in by the
// quote migration that runs afterwards.
func Seed(app *pocketbase.PocketBase) error {
	// ── idempotency: skip if projects already exist ──────────────────
	projectsCol, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		return fmt.Errorf("seed: could not find projects collection: %w", err)
	}
	existing, err := app.FindAllRecords(projectsCol)
	if err != nil {
		return fmt.Errorf("seed: could not query projects: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	log.Println("seed: projects collection is empty – inserting seed data …")

	positionsCol, err := app.FindCollectionByNameOrId("positions")
	if err != nil {
		return fmt.Errorf("seed: could not find positions collection: %w", err)
	}
	linesCol, err := app.FindCollectionByNameOrId("quote_lines")
	if err != nil {
		return fmt.Errorf("seed: could not find quote_lines collection: %w", err)
	}

	for _, pd := range seedProjects {
		p := core.NewRecord(projectsCol)
		p.Set("name", pd.name)
		p.Set("client_name", pd.clientName)
		p.Set("reference_number", pd.referenceNumber)
		p.Set("status", pd.status)
		p.Set("project_management_percentage", pd.pmPct)
		if err := app.Save(p); err != nil {
			return fmt.Errorf("seed: save project %q: %w", pd.name, err)
		}

		for i, posDef := range pd.positions {
			pos := core.NewRecord(positionsCol)
			pos.Set("project", p.Id)
			pos.Set("position_key", posDef.key)
			pos.Set("sort_order", i+1)
			pos.Set("name", posDef.name)
			pos.Set("quantite", posDef.quantite)
			pos.Set("project_management_percentage", posDef.pmPct)
			if err := app.Save(pos); err != nil {
				return fmt.Errorf("seed: save position %q: %w", posDef.name, err)
			}

			for j, ld := range posDef.lines {
				l := core.NewRecord(linesCol)
				l.Set("position", pos.Id)
				l.Set("sort_order", j+1)
				l.Set("line_key", ld.key)
				l.Set("designation", ld.designation)
				l.Set("prix_unit_achat", seedInput(ld.prixUnitAchat))
				l.Set("quantite", seedInput(ld.quantite))
				l.Set("coeff", seedInput(ld.coeff))
				if err := app.Save(l); err != nil {
					return fmt.Errorf("seed: save line %q: %w", ld.designation, err)
				}
			}
		}
		log.Printf("seed: created project %q with %d position(s)\n", pd.name, len(pd.positions))
	}

	log.Println("seed: done.")
	return nil
}
