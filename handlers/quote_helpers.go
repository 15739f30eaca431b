package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/formula"
	"projets/services"
	"projets/templates"
)

func isHTMX(e *core.RequestEvent) bool {
	return e.Request.Header.Get("HX-Request") == "true"
}

// parseAmount reads a French or English formatted number. Blank input gives
// def.
func parseAmount(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// loadProjectOrError loads the project named by the {id} path value and
// writes the error response when it cannot.
func loadProjectOrError(app *pocketbase.PocketBase, e *core.RequestEvent) (services.Project, bool, error) {
	projectID := e.Request.PathValue("id")
	if projectID == "" {
		return services.Project{}, false, ErrorToast(e, http.StatusBadRequest, "Missing project ID")
	}
	p, err := services.LoadProject(app, projectID)
	if errors.Is(err, services.ErrProjectNotFound) {
		return services.Project{}, false, ErrorToast(e, http.StatusNotFound, "Project not found")
	}
	if err != nil {
		log.Printf("quote_helpers: loadProjectOrError: %v", err)
		return services.Project{}, false, ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
	return p, true, nil
}

// saveProject writes positions and lines in a single transaction.
func saveProject(app *pocketbase.PocketBase, p *services.Project) error {
	return app.RunInTransaction(func(txApp core.App) error {
		return services.SaveProjectLines(txApp, p)
	})
}

// commitQuote recalculates p, saves it, and renders the updated quote.
// fieldErrors are formula errors to show next to inputs that were rejected
// and so are not part of the recalculation report.
func commitQuote(app *pocketbase.PocketBase, e *core.RequestEvent, p services.Project, fieldErrors map[string]string) error {
	eng := services.NewProjectEngine(p, validationMode(e.Request))
	p, report := services.RecalculateProject(eng, p)
	if err := saveProject(app, &p); err != nil {
		log.Printf("quote_helpers: commitQuote: project %s: %v", p.ID, err)
		return ErrorToast(e, http.StatusInternalServerError, "Failed to save quote")
	}
	SetTrigger(e, "quoteRecalculated", report)

	errs := make(map[string]string, len(report.Errors)+len(fieldErrors))
	for path, msg := range report.Errors {
		errs[path] = msg
	}
	for path, msg := range fieldErrors {
		errs[path] = msg
	}
	return renderQuote(e, p, errs)
}

// renderQuote writes the quote editor: the fragment for HTMX requests, the
// full page otherwise.
func renderQuote(e *core.RequestEvent, p services.Project, errs map[string]string) error {
	data := buildQuoteView(p, errs)
	if isHTMX(e) {
		return templates.QuoteViewContent(data).Render(e.Request.Context(), e.Response)
	}
	return templates.QuoteViewPage(data).Render(e.Request.Context(), e.Response)
}

// buildQuoteView formats a project for display. errs maps a field path to
// the error shown next to it.
func buildQuoteView(p services.Project, errs map[string]string) templates.QuoteViewData {
	totals := services.CalcProjectTotals(p)
	data := templates.QuoteViewData{
		ProjectID:       p.ID,
		Name:            p.Name,
		ClientName:      p.ClientName,
		ReferenceNumber: p.ReferenceNumber,
		Status:          p.Status,
		TotalAchat:      services.FormatEUR(totals.TotalAchat),
		TotalVente:      services.FormatEUR(totals.TotalVente),
		Marge:           services.FormatEUR(totals.Marge),
		MargePercent:    services.FormatPercent(totals.MargePercent),
	}

	var management, commission float64
	for _, pos := range p.Positions {
		pt := services.CalcPositionTotals(pos)
		pv := templates.PositionView{
			ID:                          pos.ID,
			Name:                        pos.Name,
			Quantite:                    formula.NumberValue(pos.Quantite).Raw(),
			ProjectManagementPercentage: formula.NumberValue(pos.ProjectManagementPercentage).Raw(),
			TotalAchat:                  services.FormatEUR(pt.TotalAchat),
			TotalVente:                  services.FormatEUR(pt.TotalVente),
		}
		for _, l := range pos.Lines {
			switch {
			case l.IsProjectManagement:
				management += l.PVente * pos.Quantite
			case l.IsCommissionAgence:
				commission += l.PVente * pos.Quantite
			}
			lv := templates.LineView{
				ID:            l.ID,
				Designation:   l.Designation,
				PrixUnitAchat: l.PrixUnitAchat.Raw(),
				Quantite:      l.Quantite.Raw(),
				Coeff:         l.Coeff.Raw(),
				TotalAchat:    services.FormatEUR(l.TotalAchat),
				PVente:        services.FormatEUR(l.PVente),
				PUnitaire:     services.FormatEUR(l.PUnitaire),
				Marge:         services.FormatPercent(l.Marge),
				Synthetic:     l.IsSynthetic(),
			}
			for field, v := range map[string]formula.FieldValue{
				services.FieldPrixUnitAchat: l.PrixUnitAchat,
				services.FieldQuantite:      l.Quantite,
				services.FieldCoeff:         l.Coeff,
			} {
				msg, ok := errs[services.LineFieldPath(pos.ID, l.ID, field)]
				if !ok && v.IsFormula && v.Formula != nil && !v.Formula.IsValid {
					msg, ok = v.Formula.Error, v.Formula.Error != ""
				}
				if ok {
					if lv.Errors == nil {
						lv.Errors = make(map[string]string)
					}
					lv.Errors[field] = msg
				}
			}
			pv.Lines = append(pv.Lines, lv)
		}
		data.Positions = append(data.Positions, pv)
	}
	data.Management = services.FormatEUR(management)
	data.Commission = services.FormatEUR(commission)
	return data
}
