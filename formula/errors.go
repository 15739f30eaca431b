package formula

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingReference     = errors.New("missing reference")
	ErrCircularDependency   = errors.New("circular dependency")
	ErrIncompleteExpression = errors.New("incomplete expression")
	ErrEvaluation           = errors.New("evaluation error")

	ErrDivisionByZero       = errors.New("division by zero")
	ErrDisallowedCharacters = errors.New("disallowed characters")
	ErrNonFinite            = errors.New("result is not a finite number")
	ErrMalformed            = errors.New("malformed arithmetic expression")
)

// ReferenceError reports tokens that could not be resolved.
type ReferenceError struct {
	References []string
}

func (e *ReferenceError) Error() string {
	if len(e.References) == 1 {
		return "reference not found: " + e.References[0]
	}
	return "references not found: " + strings.Join(e.References, ", ")
}

func (e *ReferenceError) Unwrap() error { return ErrMissingReference }

// CycleError reports a dependency cycle. Path starts and ends with the same field.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "circular dependency: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCircularDependency }

// EvaluationError wraps the cause of a failed evaluation.
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %v", e.Expression, e.Cause)
}

func (e *EvaluationError) Unwrap() []error { return []error{ErrEvaluation, e.Cause} }
