package services

import (
	"fmt"
	"log"
	"math"
	"slices"
	"strings"

	"projets/formula"
)

// RecalcReport describes a project recalculation.
type RecalcReport struct {
	Passes    int               `json:"passes"`
	Converged bool              `json:"converged"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type formulaSlot struct {
	pos, line int
	field     string
	path      string
}

// RecalculateProject re-evaluates every formula input against a fresh
// snapshot of the project, recomputes derived amounts and synthetic lines,
// and repeats until no formula result changes. Fields that belong to a
// dependency cycle are left at their last known good value and reported.
// A rejected formula never blocks the valid formulas it points at.
func RecalculateProject(eng *formula.Engine, p Project) (Project, RecalcReport) {
	p = cloneProject(p)
	report := RecalcReport{Errors: make(map[string]string)}

	graph := formula.NewDependencyGraph()
	var slots, rejected []formulaSlot
	for pi, pos := range p.Positions {
		for li := range pos.Lines {
			l := &p.Positions[pi].Lines[li]
			if l.IsSynthetic() {
				continue
			}
			for _, name := range InputFields {
				v := lineField(l, name)
				if !v.IsFormula || v.Formula == nil {
					continue
				}
				s := formulaSlot{pos: pi, line: li, field: name, path: LineFieldPath(pos.ID, l.ID, name)}
				if !v.Formula.IsValid {
					rejected = append(rejected, s)
					continue
				}
				graph.SetDependencies(s.path, formula.Dependencies(v.Formula.Expression))
				slots = append(slots, s)
			}
		}
	}

	blocked := make(map[string]bool)
	for _, path := range graph.CyclicFields() {
		blocked[path] = true
		report.Errors[path] = (&formula.CycleError{Path: graph.FindCycle(path)}).Error()
	}

	// An invalid formula is retried only when it no longer closes a cycle;
	// otherwise it alone keeps its last known good value.
	for _, s := range rejected {
		v := lineField(&p.Positions[s.pos].Lines[s.line], s.field)
		deps := formula.Dependencies(v.Formula.Expression)
		trial := graph.Clone()
		trial.SetDependencies(s.path, deps)
		if cycle := trial.FindCycle(s.path); cycle != nil {
			blocked[s.path] = true
			report.Errors[s.path] = (&formula.CycleError{Path: cycle}).Error()
			continue
		}
		graph.SetDependencies(s.path, deps)
		slots = append(slots, s)
	}

	order, _ := graph.CalculationOrder()
	rank := make(map[string]int, len(order))
	for i, path := range order {
		rank[path] = i
	}
	slices.SortStableFunc(slots, func(a, b formulaSlot) int {
		return rank[a.path] - rank[b.path]
	})

	maxPasses := len(slots) + 2
	for pass := 1; pass <= maxPasses; pass++ {
		report.Passes = pass
		ctx := BuildFormulaContext(p)
		eng.UpdateContext(ctx)

		changed := false
		for _, s := range slots {
			if blocked[s.path] {
				continue
			}
			l := &p.Positions[s.pos].Lines[s.line]
			v := lineField(l, s.field)
			before := v.Float()
			if err := eng.Refresh(v); err != nil {
				report.Errors[s.path] = err.Error()
				continue
			}
			delete(report.Errors, s.path)
			// later slots in this pass read the new value
			ctx.Set(s.path, v.Float())
			if math.Abs(v.Float()-before) > 1e-9 {
				changed = true
			}
		}

		for i := range p.Positions {
			p.Positions[i] = ReconcileSyntheticLines(p.Positions[i])
		}

		if !changed && pass > 1 {
			report.Converged = true
			break
		}
	}

	if !report.Converged {
		log.Printf("quote_recalc: RecalculateProject: project %s did not stabilise after %d passes", p.ID, report.Passes)
	}
	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return p, report
}

// ApplyLineEdit applies a user edit of one input field of a regular line,
// then recalculates the project. raw is a number or "=" followed by a
// formula. The validation result is returned even when the edit is
// rejected; the project is unchanged in that case except for the stored
// invalid formula text.
func ApplyLineEdit(eng *formula.Engine, p Project, positionID, lineID, field, raw string) (Project, formula.ValidationResult, RecalcReport, error) {
	if !IsInputField(field) {
		return p, formula.ValidationResult{}, RecalcReport{}, fmt.Errorf("field %q cannot be edited", field)
	}
	pi := FindPosition(p, positionID)
	if pi < 0 {
		return p, formula.ValidationResult{}, RecalcReport{}, fmt.Errorf("%w: %s", ErrPositionNotFound, positionID)
	}
	li := indexOfLine(p.Positions[pi].Lines, lineID)
	if li < 0 {
		return p, formula.ValidationResult{}, RecalcReport{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}

	path := LineFieldPath(positionID, lineID, field)
	current := p.Positions[pi].Lines[li]
	next, res := eng.Apply(*lineField(&current, field), path, raw)
	if !res.IsValid && !strings.HasPrefix(strings.TrimSpace(raw), "=") {
		return p, res, RecalcReport{}, nil
	}

	pos, err := UpdateQuoteLine(p.Positions[pi], lineID, func(l PricingLine) PricingLine {
		*lineField(&l, field) = next
		return l
	})
	if err != nil {
		return p, res, RecalcReport{}, err
	}
	p = cloneProject(p)
	p.Positions[pi] = pos

	recalculated, report := RecalculateProject(eng, p)
	return recalculated, res, report, nil
}

func cloneProject(p Project) Project {
	positions := make([]Position, len(p.Positions))
	for i, pos := range p.Positions {
		pos.Lines = slices.Clone(pos.Lines)
		positions[i] = pos
	}
	p.Positions = positions
	return p
}
