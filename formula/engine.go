package formula

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
)

// ValidationMode selects when transitive cycles across fields are checked.
type ValidationMode int

const (
	// ValidateOnChange checks transitive cycles on every edit.
	ValidateOnChange ValidationMode = iota
	// ValidateOnSave only rejects direct self-references on edit; transitive
	// cycles are reported by ValidateAll when the quote is saved.
	ValidateOnSave
)

func (m ValidationMode) String() string {
	if m == ValidateOnSave {
		return "save"
	}
	return "change"
}

// ParseValidationMode accepts "change" or "save".
func ParseValidationMode(s string) (ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "change", "on_change", "on-change":
		return ValidateOnChange, nil
	case "save", "on_save", "on-save":
		return ValidateOnSave, nil
	}
	return ValidateOnChange, fmt.Errorf("formula: unknown validation mode %q", s)
}

// ValidationResult is what the form layer shows next to a formula field.
type ValidationResult struct {
	IsValid              bool     `json:"isValid"`
	Error                string   `json:"error,omitempty"`
	CircularDependencies []string `json:"circularDependencies,omitempty"`
	MissingReferences    []string `json:"missingReferences,omitempty"`
}

// snapshotVersions numbers context snapshots across every engine, so a
// result cached by one engine is never taken as fresh by another.
var snapshotVersions atomic.Uint64

// Engine validates and evaluates formulas against a context snapshot. It is
// not safe for concurrent use; callers build one per request or per
// recalculation.
type Engine struct {
	ctx     *Context
	version uint64
	mode    ValidationMode
	graph   *DependencyGraph
}

// NewEngine creates an engine over ctx. A nil ctx is treated as empty.
func NewEngine(ctx *Context, mode ValidationMode) *Engine {
	if ctx == nil {
		ctx = NewContext()
	}
	return &Engine{
		ctx:     ctx,
		version: snapshotVersions.Add(1),
		mode:    mode,
		graph:   NewDependencyGraph(),
	}
}

// Mode returns the engine's validation mode.
func (e *Engine) Mode() ValidationMode { return e.mode }

// Version identifies the current context snapshot. Cached formula results
// computed under another version are stale.
func (e *Engine) Version() uint64 { return e.version }

// Context returns the current snapshot. Callers must not mutate it.
func (e *Engine) Context() *Context { return e.ctx }

// Graph exposes the registered formula dependencies.
func (e *Engine) Graph() *DependencyGraph { return e.graph }

// UpdateContext swaps in a new snapshot and invalidates every cached result.
func (e *Engine) UpdateContext(ctx *Context) {
	if ctx == nil {
		ctx = NewContext()
	}
	e.ctx = ctx
	e.version = snapshotVersions.Add(1)
}

// Register records the dependencies of an existing formula field so that
// later edits can detect cycles through it.
func (e *Engine) Register(path, expression string) {
	e.graph.SetDependencies(path, Dependencies(expression))
}

// Unregister forgets a field, e.g. when it reverts to a plain number.
func (e *Engine) Unregister(path string) {
	e.graph.Remove(path)
}

// Validate runs the ordered checks on expression: missing references,
// circular dependencies, structural completeness, then a trial evaluation.
// currentFieldPath may be empty when the expression is not bound to a field.
func (e *Engine) Validate(expression, currentFieldPath string) ValidationResult {
	return e.validate(expression, currentFieldPath, e.graph, e.mode == ValidateOnChange)
}

func (e *Engine) validate(expression, path string, graph *DependencyGraph, transitive bool) ValidationResult {
	if strings.TrimSpace(expression) == "" {
		return ValidationResult{IsValid: true}
	}

	deps := Dependencies(expression)

	var missing []string
	for _, dep := range deps {
		if _, ok := Resolve(dep, e.ctx); !ok {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return ValidationResult{
			Error:             "missing references: " + strings.Join(missing, ", "),
			MissingReferences: missing,
		}
	}

	if path != "" {
		var cycle []string
		if slices.Contains(deps, path) {
			cycle = []string{path, path}
		} else if transitive {
			g := graph.Clone()
			g.SetDependencies(path, deps)
			cycle = g.FindCycle(path)
		}
		if cycle != nil {
			return ValidationResult{
				Error:                (&CycleError{Path: cycle}).Error(),
				CircularDependencies: cycle,
			}
		}
	}

	if err := checkComplete(expression); err != nil {
		return ValidationResult{Error: err.Error()}
	}

	if _, err := e.Evaluate(expression); err != nil {
		return ValidationResult{Error: err.Error()}
	}
	return ValidationResult{IsValid: true}
}

// checkComplete rejects expressions that are obviously still being typed.
func checkComplete(expression string) error {
	trimmed := strings.TrimRight(expression, " \t\r\n")
	if trimmed == "" {
		return nil
	}
	switch trimmed[len(trimmed)-1] {
	case '+', '-', '*', '/', '(', '.', ',':
		return ErrIncompleteExpression
	}
	if strings.Count(trimmed, "(") != strings.Count(trimmed, ")") {
		return ErrIncompleteExpression
	}
	return nil
}

// Evaluate substitutes every reference with its resolved value and computes
// the resulting arithmetic expression. An empty expression evaluates to 0.
func (e *Engine) Evaluate(expression string) (float64, error) {
	if strings.TrimSpace(expression) == "" {
		return 0, nil
	}

	resolved := make(map[string]float64)
	for dep := range ParseExpression(expression) {
		if _, done := resolved[dep]; done {
			continue
		}
		v, ok := Resolve(dep, e.ctx)
		if !ok {
			return 0, &EvaluationError{Expression: expression, Cause: &ReferenceError{References: []string{dep}}}
		}
		resolved[dep] = v
	}

	substituted := referencePattern.ReplaceAllStringFunc(expression, func(tok string) string {
		return literal(resolved[tok])
	})

	v, err := evalArithmetic(substituted)
	if err != nil {
		return 0, &EvaluationError{Expression: expression, Cause: err}
	}
	return v, nil
}

// Apply handles a user edit of the field at path. raw is either a number or
// a formula prefixed with "=". On an invalid formula the returned value keeps
// the previous last known good result.
func (e *Engine) Apply(prev FieldValue, path, raw string) (FieldValue, ValidationResult) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "=") {
		if text == "" {
			text = "0"
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil {
			return prev, ValidationResult{Error: fmt.Sprintf("%q is not a number", raw)}
		}
		if path != "" {
			e.Unregister(path)
		}
		return NumberValue(n), ValidationResult{IsValid: true}
	}

	expression := strings.TrimSpace(text[1:])
	res := e.Validate(expression, path)
	f := &Formula{
		Expression:   expression,
		IsValid:      res.IsValid,
		Error:        res.Error,
		Dependencies: Dependencies(expression),
	}

	if !res.IsValid {
		switch {
		case prev.IsFormula && prev.Formula != nil && prev.Formula.Result != nil:
			last := *prev.Formula.Result
			f.Result = &last
			f.CacheValidAt = prev.Formula.CacheValidAt
		case !prev.IsFormula:
			last := prev.Number
			f.Result = &last
		}
		return FormulaValue(f), res
	}

	v, err := e.Evaluate(expression)
	if err != nil {
		// Validate already ran the same evaluation.
		f.IsValid = false
		f.Error = err.Error()
		return FormulaValue(f), ValidationResult{Error: err.Error()}
	}
	f.Result = &v
	f.CacheValidAt = e.version
	if path != "" {
		e.graph.SetDependencies(path, f.Dependencies)
	}
	return FormulaValue(f), res
}

// Refresh re-evaluates a formula field whose cached result predates the
// current context. On failure the previous result is kept and the formula is
// marked invalid.
func (e *Engine) Refresh(v *FieldValue) error {
	if v == nil || !v.IsFormula || v.Formula == nil {
		return nil
	}
	if _, fresh := v.Formula.CachedResult(e.version); fresh {
		return nil
	}

	next := *v.Formula
	next.Dependencies = Dependencies(next.Expression)
	result, err := e.Evaluate(next.Expression)
	if err != nil {
		next.IsValid = false
		next.Error = err.Error()
		v.Formula = &next
		return err
	}
	next.IsValid = true
	next.Error = ""
	next.Result = &result
	next.CacheValidAt = e.version
	v.Formula = &next
	return nil
}

// SaveReport is the outcome of validating every formula of a quote at once.
type SaveReport struct {
	IsValid bool                        `json:"isValid"`
	Cycles  [][]string                  `json:"cycles,omitempty"`
	Fields  map[string]ValidationResult `json:"fields"`
}

// ValidateAll validates a set of formula fields (path -> expression)
// together, always checking transitive cycles across the whole set and the
// fields already registered with the engine.
func (e *Engine) ValidateAll(fields map[string]string) SaveReport {
	graph := e.graph.Clone()
	for path, expr := range fields {
		graph.SetDependencies(path, Dependencies(expr))
	}

	report := SaveReport{
		IsValid: true,
		Cycles:  graph.Cycles(),
		Fields:  make(map[string]ValidationResult, len(fields)),
	}
	for path, expr := range fields {
		res := e.validate(expr, path, graph, true)
		report.Fields[path] = res
		if !res.IsValid {
			report.IsValid = false
		}
	}
	if len(report.Cycles) > 0 {
		report.IsValid = false
	}
	return report
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// literal renders a resolved value for substitution. It is always
// parenthesised: "2-@x" with x=-3 stays well-formed, and a value next to a
// digit or a dot ("2@x", "@x.5") cannot merge into another number.
func literal(v float64) string {
	return "(" + formatNumber(v) + ")"
}
