package services

import "projets/formula"

// Field names exposed to formulas.
const (
	FieldPrixUnitAchat = "prixUnitAchat"
	FieldQuantite      = "quantite"
	FieldCoeff         = "coeff"
	FieldTotalAchat    = "totalAchat"
	FieldPVente        = "pVente"
	FieldPUnitaire     = "pUnitaire"
	FieldMarge         = "marge"

	FieldProjectManagementPercentage = "projectManagementPercentage"
	FieldTotalVente                  = "totalVente"
	FieldProjectManagement           = "projectManagement"
	FieldCommissionAgence            = "commissionAgence"
	FieldNbPositions                 = "nbPositions"
)

// InputFields are the line fields a user may turn into formulas.
var InputFields = []string{FieldPrixUnitAchat, FieldQuantite, FieldCoeff}

// LineKey is the key of a line in the formula context, e.g. "pos1_L1".
func LineKey(positionID, lineID string) string {
	return positionID + "_" + lineID
}

// LineFieldPath is the reference token addressing a line field.
func LineFieldPath(positionID, lineID, field string) string {
	return formula.Token(formula.ScopeLigne, LineKey(positionID, lineID), field)
}

// lineField returns a pointer to an editable input field of a line.
func lineField(l *PricingLine, field string) *formula.FieldValue {
	switch field {
	case FieldPrixUnitAchat:
		return &l.PrixUnitAchat
	case FieldQuantite:
		return &l.Quantite
	case FieldCoeff:
		return &l.Coeff
	}
	return nil
}

// IsInputField reports whether field can be edited on a regular line.
func IsInputField(field string) bool {
	var l PricingLine
	return lineField(&l, field) != nil
}

// BuildFormulaContext snapshots the project's current values for reference
// resolution: every line, every position and the project aggregates.
func BuildFormulaContext(p Project) *formula.Context {
	ctx := formula.NewContext()
	for _, pos := range p.Positions {
		totals := CalcPositionTotals(pos)
		ctx.Positions[pos.ID] = formula.Entity{
			FieldQuantite:                    pos.Quantite,
			FieldProjectManagementPercentage: pos.ProjectManagementPercentage,
			FieldTotalAchat:                  totals.TotalAchat,
			FieldTotalVente:                  totals.TotalVente,
			FieldMarge:                       totals.Marge,
		}
		for _, l := range pos.Lines {
			ctx.Lignes[LineKey(pos.ID, l.ID)] = formula.Entity{
				FieldPrixUnitAchat: l.PrixUnitAchat.Float(),
				FieldQuantite:      l.Quantite.Float(),
				FieldCoeff:         l.Coeff.Float(),
				FieldTotalAchat:    l.TotalAchat,
				FieldPVente:        l.PVente,
				FieldPUnitaire:     l.PUnitaire,
				FieldMarge:         l.Marge,
			}
		}
	}

	totals := CalcProjectTotals(p)
	management, commission := syntheticAmounts(p)
	ctx.Global = formula.Entity{
		FieldTotalAchat:        totals.TotalAchat,
		FieldTotalVente:        totals.TotalVente,
		FieldMarge:             totals.Marge,
		FieldProjectManagement: management,
		FieldCommissionAgence:  commission,
		FieldNbPositions:       float64(len(p.Positions)),
	}
	return ctx
}

// FormulaFields lists every formula input of every regular line as
// path -> expression.
func FormulaFields(p Project) map[string]string {
	fields := make(map[string]string)
	for _, pos := range p.Positions {
		for i := range pos.Lines {
			l := &pos.Lines[i]
			if l.IsSynthetic() {
				continue
			}
			for _, name := range InputFields {
				v := lineField(l, name)
				if v.IsFormula && v.Formula != nil {
					fields[LineFieldPath(pos.ID, l.ID, name)] = v.Formula.Expression
				}
			}
		}
	}
	return fields
}

// NewProjectEngine builds an engine over the project's current values with
// every existing formula registered for cycle detection.
func NewProjectEngine(p Project, mode formula.ValidationMode) *formula.Engine {
	eng := formula.NewEngine(BuildFormulaContext(p), mode)
	for path, expr := range FormulaFields(p) {
		eng.Register(path, expr)
	}
	return eng
}
