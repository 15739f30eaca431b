package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"

	"projets/formula"
)

// ErrProjectNotFound is returned when the project record does not exist.
var ErrProjectNotFound = errors.New("project not found")

// LoadProject reads a project with its positions and lines, ordered by
// sort_order.
func LoadProject(app core.App, projectID string) (Project, error) {
	rec, err := app.FindRecordById("projects", projectID)
	if err != nil {
		return Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	p := Project{
		ID:              rec.Id,
		Name:            rec.GetString("name"),
		ClientName:      rec.GetString("client_name"),
		ReferenceNumber: rec.GetString("reference_number"),
		Status:          rec.GetString("status"),
	}

	posRecords, err := app.FindRecordsByFilter("positions", "project = {:projectId}", "sort_order", 0, 0,
		map[string]any{"projectId": projectID})
	if err != nil {
		return Project{}, fmt.Errorf("load positions: %w", err)
	}

	for _, pr := range posRecords {
		pos := Position{
			ID:                          pr.GetString("position_key"),
			RecordID:                    pr.Id,
			Name:                        pr.GetString("name"),
			Quantite:                    pr.GetFloat("quantite"),
			ProjectManagementPercentage: pr.GetFloat("project_management_percentage"),
		}
		if pos.ID == "" {
			pos.ID = pr.Id
		}

		lineRecords, err := app.FindRecordsByFilter("quote_lines", "position = {:positionId}", "sort_order", 0, 0,
			map[string]any{"positionId": pr.Id})
		if err != nil {
			return Project{}, fmt.Errorf("load lines of position %s: %w", pos.ID, err)
		}
		for _, lr := range lineRecords {
			pos.Lines = append(pos.Lines, lineFromRecord(lr))
		}
		p.Positions = append(p.Positions, pos)
	}
	return p, nil
}

func lineFromRecord(r *core.Record) PricingLine {
	l := PricingLine{
		ID:                  r.GetString("line_key"),
		RecordID:            r.Id,
		Designation:         r.GetString("designation"),
		PrixUnitAchat:       recordFieldValue(r, "prix_unit_achat"),
		Quantite:            recordFieldValue(r, "quantite"),
		Coeff:               recordFieldValue(r, "coeff"),
		TotalAchat:          r.GetFloat("total_achat"),
		PVente:              r.GetFloat("p_vente"),
		PUnitaire:           r.GetFloat("p_unitaire"),
		Marge:               r.GetFloat("marge"),
		IsProjectManagement: r.GetBool("is_project_management"),
		IsCommissionAgence:  r.GetBool("is_commission_agence"),
	}
	if l.ID == "" {
		l.ID = r.Id
	}
	return l
}

func recordFieldValue(r *core.Record, field string) formula.FieldValue {
	var v formula.FieldValue
	raw := r.GetString(field)
	if raw == "" || raw == "null" {
		return v
	}
	if err := r.UnmarshalJSONField(field, &v); err != nil {
		log.Printf("quote_store: recordFieldValue: line %s field %s: %v", r.Id, field, err)
		return formula.FieldValue{}
	}
	return v
}

// SaveProjectLines writes the given positions and their lines. Line records
// are updated in place, created when they have no RecordID, and deleted when
// they no longer belong to the position. RecordIDs of created records are
// written back into p. It should run inside app.RunInTransaction.
func SaveProjectLines(app core.App, p *Project) error {
	linesCol, err := app.FindCollectionByNameOrId("quote_lines")
	if err != nil {
		return fmt.Errorf("find quote_lines collection: %w", err)
	}

	for pi := range p.Positions {
		pos := &p.Positions[pi]
		if pos.RecordID == "" {
			return fmt.Errorf("position %s has not been saved", pos.ID)
		}
		posRec, err := app.FindRecordById("positions", pos.RecordID)
		if err != nil {
			return fmt.Errorf("find position %s: %w", pos.ID, err)
		}
		posRec.Set("quantite", pos.Quantite)
		posRec.Set("project_management_percentage", pos.ProjectManagementPercentage)
		if err := app.Save(posRec); err != nil {
			return fmt.Errorf("save position %s: %w", pos.ID, err)
		}

		existing, err := app.FindRecordsByFilter(linesCol, "position = {:positionId}", "", 0, 0,
			map[string]any{"positionId": pos.RecordID})
		if err != nil {
			return fmt.Errorf("load lines of position %s: %w", pos.ID, err)
		}
		byID := make(map[string]*core.Record, len(existing))
		for _, r := range existing {
			byID[r.Id] = r
		}

		for li := range pos.Lines {
			l := &pos.Lines[li]
			rec := byID[l.RecordID]
			if rec == nil {
				rec = core.NewRecord(linesCol)
				rec.Set("position", pos.RecordID)
			}
			delete(byID, l.RecordID)

			rec.Set("sort_order", li+1)
			rec.Set("line_key", l.ID)
			rec.Set("designation", l.Designation)
			rec.Set("prix_unit_achat", l.PrixUnitAchat)
			rec.Set("quantite", l.Quantite)
			rec.Set("coeff", l.Coeff)
			rec.Set("total_achat", l.TotalAchat)
			rec.Set("p_vente", l.PVente)
			rec.Set("p_unitaire", l.PUnitaire)
			rec.Set("marge", l.Marge)
			rec.Set("is_project_management", l.IsProjectManagement)
			rec.Set("is_commission_agence", l.IsCommissionAgence)
			if err := app.Save(rec); err != nil {
				return fmt.Errorf("save line %s of position %s: %w", l.ID, pos.ID, err)
			}
			l.RecordID = rec.Id
		}

		for _, stale := range byID {
			if err := app.Delete(stale); err != nil {
				return fmt.Errorf("delete line %s: %w", stale.Id, err)
			}
		}
	}
	return nil
}

// NextPositionKey returns the first free "posN" key of the project.
func NextPositionKey(p Project) string {
	for n := 1; ; n++ {
		key := fmt.Sprintf("pos%d", n)
		if FindPosition(p, key) < 0 {
			return key
		}
	}
}

// NextLineKey returns the first free "LN" key of the position.
func NextLineKey(pos Position) string {
	for n := 1; ; n++ {
		key := fmt.Sprintf("L%d", n)
		if indexOfLine(pos.Lines, key) < 0 {
			return key
		}
	}
}
