package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ProjectStatuses are the allowed values of projects.status, in workflow order.
var ProjectStatuses = []string{"devis", "en_cours", "livre", "facture"}

// Setup programmatically creates/ensures the projects, positions and
// quote_lines collections exist.
func Setup(app *pocketbase.PocketBase) {
	projects := ensureCollection(app, "projects", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "client_name", Required: false})
		c.Fields.Add(&core.TextField{Name: "reference_number", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    ProjectStatuses,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.NumberField{Name: "project_management_percentage", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	positions := ensureCollection(app, "positions", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		// position_key is the identifier used in formula references (e.g. "pos1").
		c.Fields.Add(&core.TextField{Name: "position_key", Required: false, Pattern: `^([A-Za-z_][A-Za-z0-9_]*)?$`})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.NumberField{Name: "quantite", Required: false})
		c.Fields.Add(&core.NumberField{Name: "project_management_percentage", Required: false})
	})

	ensureCollection(app, "quote_lines", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "position",
			Required:      true,
			CollectionId:  positions.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.TextField{Name: "line_key", Required: false, Pattern: `^([A-Za-z_][A-Za-z0-9_]*)?$`})
		c.Fields.Add(&core.TextField{Name: "designation", Required: false})
		// Input fields hold {"value": ..., "isFormula": ...}.
		c.Fields.Add(&core.JSONField{Name: "prix_unit_achat"})
		c.Fields.Add(&core.JSONField{Name: "quantite"})
		c.Fields.Add(&core.JSONField{Name: "coeff"})
		c.Fields.Add(&core.NumberField{Name: "total_achat"})
		c.Fields.Add(&core.NumberField{Name: "p_vente"})
		c.Fields.Add(&core.NumberField{Name: "p_unitaire"})
		c.Fields.Add(&core.NumberField{Name: "marge"})
		c.Fields.Add(&core.BoolField{Name: "is_project_management"})
		c.Fields.Add(&core.BoolField{Name: "is_commission_agence"})
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
