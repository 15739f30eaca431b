package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projets/formula"
)

func twoLineProject(t *testing.T) Project {
	t.Helper()
	pos := Position{ID: "pos1", Name: "Enseigne", Quantite: 1, ProjectManagementPercentage: 10}
	pos, err := AddQuoteLine(pos, NewQuoteLine("L1", "Lettres", 100, 2, 1.5))
	require.NoError(t, err)
	pos, err = AddQuoteLine(pos, NewQuoteLine("L2", "Pose", 30, 1, 1))
	require.NoError(t, err)
	return Project{ID: "p1", Name: "Test", Positions: []Position{pos}}
}

func lineByID(t *testing.T, p Project, posID, lineID string) PricingLine {
	t.Helper()
	pi := FindPosition(p, posID)
	require.GreaterOrEqual(t, pi, 0)
	idx := indexOfLine(p.Positions[pi].Lines, lineID)
	require.GreaterOrEqual(t, idx, 0)
	return p.Positions[pi].Lines[idx]
}

func TestApplyLineEdit_FormulaReferencingAnotherLine(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)

	got, res, report, err := ApplyLineEdit(eng, p, "pos1", "L2", FieldQuantite, "=@ligne[pos1_L1].quantite*3")
	require.NoError(t, err)
	require.True(t, res.IsValid, res.Error)
	assert.True(t, report.Converged)
	assert.Empty(t, report.Errors)

	l2 := lineByID(t, got, "pos1", "L2")
	assert.True(t, l2.Quantite.IsFormula)
	assert.InDelta(t, 6, l2.Quantite.Float(), 1e-9)
	assert.InDelta(t, 180, l2.PVente, 1e-9)

	// management = (300 + 180) * 10% = 48
	pm := lineByID(t, got, "pos1", ManagementLineID)
	assert.InDelta(t, 48, pm.PVente, 1e-9)

	// input project untouched
	assert.False(t, lineByID(t, p, "pos1", "L2").Quantite.IsFormula)
}

func TestRecalculateProject_PropagatesUpstreamChange(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)
	p, _, _, err := ApplyLineEdit(eng, p, "pos1", "L2", FieldPrixUnitAchat, "=@ligne[pos1_L1].pVente/10")
	require.NoError(t, err)
	assert.InDelta(t, 30, lineByID(t, p, "pos1", "L2").PrixUnitAchat.Float(), 1e-9)

	p, res, report, err := ApplyLineEdit(eng, p, "pos1", "L1", FieldQuantite, "4")
	require.NoError(t, err)
	require.True(t, res.IsValid)
	assert.True(t, report.Converged)

	// L1 pVente = 100 * 4 * 1.5 = 600, so L2 prixUnitAchat = 60
	assert.InDelta(t, 60, lineByID(t, p, "pos1", "L2").PrixUnitAchat.Float(), 1e-9)
	assert.InDelta(t, 60, lineByID(t, p, "pos1", "L2").PVente, 1e-9)
}

func TestRecalculateProject_ChainInReverseOrder(t *testing.T) {
	p := twoLineProject(t)
	pos, err := AddQuoteLine(p.Positions[0], NewQuoteLine("L3", "Transport", 0, 1, 1))
	require.NoError(t, err)
	p.Positions[0] = pos
	eng := NewProjectEngine(p, formula.ValidateOnChange)

	// L1 depends on L2 which depends on L3
	p, _, _, err = ApplyLineEdit(eng, p, "pos1", "L2", FieldPrixUnitAchat, "=@ligne[pos1_L3].prixUnitAchat+5")
	require.NoError(t, err)
	p, _, _, err = ApplyLineEdit(eng, p, "pos1", "L1", FieldPrixUnitAchat, "=@ligne[pos1_L2].prixUnitAchat*2")
	require.NoError(t, err)

	p, _, report, err := ApplyLineEdit(eng, p, "pos1", "L3", FieldPrixUnitAchat, "10")
	require.NoError(t, err)
	assert.True(t, report.Converged)
	assert.InDelta(t, 15, lineByID(t, p, "pos1", "L2").PrixUnitAchat.Float(), 1e-9)
	assert.InDelta(t, 30, lineByID(t, p, "pos1", "L1").PrixUnitAchat.Float(), 1e-9)
}

func TestApplyLineEdit_CycleRejectedOnChange(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)
	p, _, _, err := ApplyLineEdit(eng, p, "pos1", "L2", FieldQuantite, "=@ligne[pos1_L1].quantite")
	require.NoError(t, err)

	got, res, report, err := ApplyLineEdit(eng, p, "pos1", "L1", FieldQuantite, "=@ligne[pos1_L2].quantite+1")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.CircularDependencies)

	// the invalid formula is stored with its last known good value
	l1 := lineByID(t, got, "pos1", "L1")
	assert.True(t, l1.Quantite.IsFormula)
	assert.False(t, l1.Quantite.Formula.IsValid)
	assert.InDelta(t, 2, l1.Quantite.Float(), 1e-9)
	assert.Contains(t, report.Errors, LineFieldPath("pos1", "L1", FieldQuantite))
	assert.InDelta(t, 2, lineByID(t, got, "pos1", "L2").Quantite.Float(), 1e-9)
}

func TestRecalculateProject_RejectedFormulaDoesNotBlockValidOnes(t *testing.T) {
	p := twoLineProject(t)
	pos, err := AddQuoteLine(p.Positions[0], NewQuoteLine("L3", "Transport", 0, 1, 1))
	require.NoError(t, err)
	p.Positions[0] = pos
	eng := NewProjectEngine(p, formula.ValidateOnChange)

	p, res, _, err := ApplyLineEdit(eng, p, "pos1", "L2", FieldQuantite, "=@ligne[pos1_L1].quantite+@ligne[pos1_L3].quantite")
	require.NoError(t, err)
	require.True(t, res.IsValid, res.Error)
	assert.InDelta(t, 3, lineByID(t, p, "pos1", "L2").Quantite.Float(), 1e-9)

	// closes L1 -> L2 -> L1: rejected, L1 keeps 2
	p, res, _, err = ApplyLineEdit(eng, p, "pos1", "L1", FieldQuantite, "=@ligne[pos1_L2].quantite+1")
	require.NoError(t, err)
	require.False(t, res.IsValid)

	p, _, report, err := ApplyLineEdit(eng, p, "pos1", "L3", FieldQuantite, "5")
	require.NoError(t, err)
	assert.True(t, report.Converged)

	l1Path := LineFieldPath("pos1", "L1", FieldQuantite)
	l2Path := LineFieldPath("pos1", "L2", FieldQuantite)
	assert.Contains(t, report.Errors, l1Path)
	assert.NotContains(t, report.Errors, l2Path)
	assert.InDelta(t, 2, lineByID(t, p, "pos1", "L1").Quantite.Float(), 1e-9)
	assert.InDelta(t, 7, lineByID(t, p, "pos1", "L2").Quantite.Float(), 1e-9)
	assert.True(t, lineByID(t, p, "pos1", "L2").Quantite.Formula.IsValid)
}

func TestRecalculateProject_RejectedFormulaRecovers(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)

	p, res, _, err := ApplyLineEdit(eng, p, "pos1", "L2", FieldQuantite, "=@ligne[pos1_L3].quantite*2")
	require.NoError(t, err)
	require.False(t, res.IsValid)
	require.NotEmpty(t, res.MissingReferences)

	pos, err := AddQuoteLine(p.Positions[0], NewQuoteLine("L3", "Transport", 0, 4, 1))
	require.NoError(t, err)
	p.Positions[0] = pos

	p, report := RecalculateProject(eng, p)
	assert.Empty(t, report.Errors)
	l2 := lineByID(t, p, "pos1", "L2")
	assert.True(t, l2.Quantite.Formula.IsValid)
	assert.InDelta(t, 8, l2.Quantite.Float(), 1e-9)
}

func TestApplyLineEdit_SelfReferenceKeepsLastValue(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnSave)

	got, res, _, err := ApplyLineEdit(eng, p, "pos1", "L1", FieldCoeff, "=@ligne[pos1_L1].coeff*2")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.InDelta(t, 1.5, lineByID(t, got, "pos1", "L1").Coeff.Float(), 1e-9)
	assert.InDelta(t, 300, lineByID(t, got, "pos1", "L1").PVente, 1e-9)
}

func TestApplyLineEdit_Rejections(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)

	_, res, _, err := ApplyLineEdit(eng, p, "pos1", "L1", FieldQuantite, "abc")
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	_, _, _, err = ApplyLineEdit(eng, p, "pos1", "L1", FieldPVente, "3")
	assert.Error(t, err)

	_, _, _, err = ApplyLineEdit(eng, p, "nope", "L1", FieldQuantite, "3")
	assert.ErrorIs(t, err, ErrPositionNotFound)

	_, _, _, err = ApplyLineEdit(eng, p, "pos1", "nope", FieldQuantite, "3")
	assert.ErrorIs(t, err, ErrLineNotFound)

	_, _, _, err = ApplyLineEdit(eng, p, "pos1", ManagementLineID, FieldQuantite, "3")
	assert.ErrorIs(t, err, ErrSyntheticLine)
}

func TestApplyLineEdit_GlobalReference(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)

	got, res, report, err := ApplyLineEdit(eng, p, "pos1", "L2", FieldCoeff, "=@global.nbPositions+0.5")
	require.NoError(t, err)
	require.True(t, res.IsValid, res.Error)
	assert.True(t, report.Converged)
	assert.InDelta(t, 1.5, lineByID(t, got, "pos1", "L2").Coeff.Float(), 1e-9)
}

func TestRecalculateProject_NoFormulas(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)
	got, report := RecalculateProject(eng, p)
	assert.True(t, report.Converged)
	assert.Nil(t, report.Errors)
	assert.Equal(t, len(p.Positions[0].Lines), len(got.Positions[0].Lines))
	assert.InDelta(t, CalcProjectTotals(p).TotalVente, CalcProjectTotals(got).TotalVente, 1e-9)
}

func TestBuildFormulaContext(t *testing.T) {
	p := twoLineProject(t)
	ctx := BuildFormulaContext(p)

	assert.InDelta(t, 300, ctx.Lignes["pos1_L1"][FieldPVente], 1e-9)
	assert.Contains(t, ctx.Lignes, "pos1_PM")
	assert.InDelta(t, 10, ctx.Positions["pos1"][FieldProjectManagementPercentage], 1e-9)
	assert.InDelta(t, 1, ctx.Global[FieldNbPositions], 1e-9)
	assert.InDelta(t, 33, ctx.Global[FieldProjectManagement], 1e-9)
	assert.InDelta(t, CalcProjectTotals(p).TotalVente, ctx.Global[FieldTotalVente], 1e-9)

	v, ok := formula.Resolve("@position[pos1].totalVente", ctx)
	assert.True(t, ok)
	assert.InDelta(t, CalcPositionTotals(p.Positions[0]).TotalVente, v, 1e-9)
}

func TestFormulaFieldsAndEngine(t *testing.T) {
	p := twoLineProject(t)
	eng := NewProjectEngine(p, formula.ValidateOnChange)
	p, _, _, err := ApplyLineEdit(eng, p, "pos1", "L2", FieldQuantite, "=@ligne[pos1_L1].quantite")
	require.NoError(t, err)

	fields := FormulaFields(p)
	assert.Equal(t, map[string]string{
		LineFieldPath("pos1", "L2", FieldQuantite): "@ligne[pos1_L1].quantite",
	}, fields)

	fresh := NewProjectEngine(p, formula.ValidateOnChange)
	res := fresh.Validate("@ligne[pos1_L2].quantite", LineFieldPath("pos1", "L1", FieldQuantite))
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.CircularDependencies)
}
