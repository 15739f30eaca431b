package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/formula"
	"projets/services"
)

// applyInputs applies every input field present in the form to a regular
// line. Rejected formulas are returned as path -> error; a value that is
// neither a number nor a formula aborts with a validation result.
func applyInputs(eng *formula.Engine, p services.Project, form map[string][]string, positionID, lineID string) (services.Project, map[string]string, error) {
	fieldErrors := make(map[string]string)
	for _, field := range services.InputFields {
		values, ok := form[field]
		if !ok || len(values) == 0 {
			continue
		}
		raw := values[0]
		next, res, _, err := services.ApplyLineEdit(eng, p, positionID, lineID, field, raw)
		if err != nil {
			return p, nil, err
		}
		if !res.IsValid {
			if !strings.HasPrefix(strings.TrimSpace(raw), "=") {
				return p, nil, &inputError{field: field, msg: res.Error}
			}
			fieldErrors[services.LineFieldPath(positionID, lineID, field)] = res.Error
		}
		p = next
	}
	return p, fieldErrors, nil
}

type inputError struct {
	field string
	msg   string
}

func (e *inputError) Error() string { return e.field + ": " + e.msg }

// lineEditError writes the response for an error returned while editing a
// line.
func lineEditError(e *core.RequestEvent, err error) error {
	var inErr *inputError
	switch {
	case errors.As(err, &inErr):
		return ErrorToast(e, http.StatusUnprocessableEntity, inErr.Error())
	case errors.Is(err, services.ErrSyntheticLine):
		return ErrorToast(e, http.StatusBadRequest, "Synthetic lines are computed automatically")
	case errors.Is(err, services.ErrLineNotFound), errors.Is(err, services.ErrPositionNotFound):
		return ErrorToast(e, http.StatusNotFound, "Line not found")
	}
	return ErrorToast(e, http.StatusBadRequest, err.Error())
}

// HandleLineAdd appends a regular line to a position. Inputs default to a
// unit price of 0, a quantity of 1 and a coefficient of 1; each may be a
// formula.
func HandleLineAdd(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		idx, ok, err := findPosition(e, p)
		if !ok {
			return err
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}

		designation := strings.TrimSpace(e.Request.FormValue("designation"))
		if designation == "" {
			return ErrorToast(e, http.StatusBadRequest, "Designation is required")
		}

		pos := p.Positions[idx]
		key := services.NextLineKey(pos)
		pos, err = services.AddQuoteLine(pos, services.NewQuoteLine(key, designation, 0, 1, 1))
		if err != nil {
			return lineEditError(e, err)
		}
		p.Positions[idx] = pos

		inputs := make(map[string][]string)
		for _, field := range services.InputFields {
			if v := strings.TrimSpace(e.Request.FormValue(field)); v != "" {
				inputs[field] = []string{v}
			}
		}
		eng := services.NewProjectEngine(p, validationMode(e.Request))
		p, fieldErrors, err := applyInputs(eng, p, inputs, pos.ID, key)
		if err != nil {
			return lineEditError(e, err)
		}

		if len(fieldErrors) > 0 {
			SetToast(e, "warning", "Line added with invalid formulas")
		} else {
			SetToast(e, "success", "Line "+key+" added")
		}
		return commitQuote(app, e, p, fieldErrors)
	}
}

// HandleLineUpdate edits a regular line: its designation and any input
// field, each given as a number or "=" followed by a formula. A rejected
// formula is stored as typed and the field keeps its last valid value.
func HandleLineUpdate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		idx, ok, err := findPosition(e, p)
		if !ok {
			return err
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Invalid form data")
		}
		positionID := p.Positions[idx].ID
		lineID := e.Request.PathValue("lineId")

		if e.Request.Form.Has("designation") {
			designation := strings.TrimSpace(e.Request.FormValue("designation"))
			pos, err := services.UpdateQuoteLine(p.Positions[idx], lineID, func(l services.PricingLine) services.PricingLine {
				l.Designation = designation
				return l
			})
			if err != nil {
				return lineEditError(e, err)
			}
			p.Positions[idx] = pos
		}

		eng := services.NewProjectEngine(p, validationMode(e.Request))
		p, fieldErrors, err := applyInputs(eng, p, e.Request.Form, positionID, lineID)
		if err != nil {
			return lineEditError(e, err)
		}

		if len(fieldErrors) > 0 {
			for path, msg := range fieldErrors {
				log.Printf("lines: project %s: rejected formula %s: %s", p.ID, path, msg)
			}
			SetToast(e, "warning", "Formula rejected, previous value kept")
		}
		return commitQuote(app, e, p, fieldErrors)
	}
}

// HandleLineDelete removes a regular line.
func HandleLineDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, ok, err := loadProjectOrError(app, e)
		if !ok {
			return err
		}
		idx, ok, err := findPosition(e, p)
		if !ok {
			return err
		}

		pos, err := services.DeleteQuoteLine(p.Positions[idx], e.Request.PathValue("lineId"))
		if err != nil {
			return lineEditError(e, err)
		}
		p.Positions[idx] = pos
		SetToast(e, "success", "Line deleted")
		return commitQuote(app, e, p, nil)
	}
}
