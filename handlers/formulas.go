package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/formula"
	"projets/services"
	"projets/templates"
)

// formulaInput reads the expression of a validate or evaluate request:
// the "expression" form value, or the value of the field named by the
// "field" query parameter. It reports false when the input is a plain
// number rather than a formula.
func formulaInput(e *core.RequestEvent) (string, bool) {
	raw := e.Request.FormValue("expression")
	if raw == "" {
		if field := e.Request.URL.Query().Get("field"); field != "" {
			raw = e.Request.FormValue(field)
		}
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "=") {
		return raw, false
	}
	return strings.TrimSpace(raw[1:]), true
}

// HandleFormulaValidate checks a formula as it is typed, against the
// current values of the project. The optional "path" query parameter names
// the field being edited so self and circular references are caught.
// Route: POST /projects/{id}/formulas/validate
func HandleFormulaValidate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		expr, isFormula := formulaInput(e)
		var res formula.ValidationResult
		var preview string
		var value *float64
		if isFormula {
			eng := services.NewProjectEngine(p, validationMode(e.Request))
			res = eng.Validate(expr, e.Request.URL.Query().Get("path"))
			if res.IsValid {
				if v, err := eng.Evaluate(expr); err == nil {
					value = &v
					preview = formula.NumberValue(v).Raw()
				}
			}
		} else {
			res = formula.ValidationResult{IsValid: true}
		}

		if isHTMX(e) {
			return templates.FormulaFeedback(res, preview).Render(e.Request.Context(), e.Response)
		}
		return e.JSON(http.StatusOK, map[string]any{
			"validation": res,
			"value":      value,
		})
	}
}

// HandleFormulaEvaluate evaluates a formula against the project and returns
// its value as JSON.
// Route: POST /projects/{id}/formulas/evaluate
func HandleFormulaEvaluate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		expr, _ := formulaInput(e)
		eng := services.NewProjectEngine(p, validationMode(e.Request))
		v, err := eng.Evaluate(expr)
		if err != nil {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		}
		return e.JSON(http.StatusOK, map[string]any{"expression": expr, "value": v})
	}
}

// HandleQuoteCheck validates every formula of the quote at once, always
// checking circular dependencies across the whole quote.
// Route: POST /projects/{id}/formulas/check
func HandleQuoteCheck(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}

		eng := services.NewProjectEngine(p, formula.ValidateOnSave)
		report := eng.ValidateAll(services.FormulaFields(p))
		if !report.IsValid {
			SetToast(e, "warning", "Some formulas are invalid")
		}

		if isHTMX(e) {
			return templates.FormulaCheckReport(report).Render(e.Request.Context(), e.Response)
		}
		return e.JSON(http.StatusOK, report)
	}
}
