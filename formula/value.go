// Package formula implements the pricing formula engine: reference parsing,
// resolution against a context snapshot, validation and arithmetic evaluation.
package formula

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Formula is a user-authored expression with its last computed result.
// Result is only meaningful while CacheValidAt matches the version of the
// context it was computed against. CacheValidAt is not serialised: a formula
// read back from storage is always stale.
type Formula struct {
	Expression   string   `json:"expression"`
	IsValid      bool     `json:"isValid"`
	Error        string   `json:"error,omitempty"`
	Dependencies []string `json:"dependencies"`
	Result       *float64 `json:"result,omitempty"`
	CacheValidAt uint64   `json:"-"`
}

// CachedResult returns the cached result and whether it is still fresh for
// the given context version.
func (f *Formula) CachedResult(version uint64) (float64, bool) {
	if f == nil || f.Result == nil {
		return 0, false
	}
	return *f.Result, f.CacheValidAt == version
}

// FieldValue holds either a literal number or a formula.
type FieldValue struct {
	Number    float64
	Formula   *Formula
	IsFormula bool
}

// NumberValue wraps a literal number.
func NumberValue(n float64) FieldValue {
	return FieldValue{Number: n}
}

// FormulaValue wraps a formula.
func FormulaValue(f *Formula) FieldValue {
	return FieldValue{Formula: f, IsFormula: true}
}

// Float returns the numeric value of the field: the literal number, or the
// last known good result of the formula (0 if it was never computed).
func (v FieldValue) Float() float64 {
	if !v.IsFormula {
		return v.Number
	}
	if v.Formula == nil || v.Formula.Result == nil {
		return 0
	}
	return *v.Formula.Result
}

// Raw returns the text a user would edit: the number, or "=" + expression.
func (v FieldValue) Raw() string {
	if v.IsFormula && v.Formula != nil {
		return "=" + v.Formula.Expression
	}
	return formatNumber(v.Number)
}

type fieldValueJSON struct {
	Value     json.RawMessage `json:"value"`
	IsFormula bool            `json:"isFormula"`
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	var raw []byte
	var err error
	if v.IsFormula {
		if v.Formula == nil {
			return nil, fmt.Errorf("formula: field marked as formula has no formula")
		}
		raw, err = json.Marshal(v.Formula)
	} else {
		raw, err = json.Marshal(v.Number)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldValueJSON{Value: raw, IsFormula: v.IsFormula})
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	// A bare number is accepted for fields stored before formulas existed.
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("formula: invalid field value: %w", err)
		}
		*v = NumberValue(n)
		return nil
	}

	var aux fieldValueJSON
	if err := json.Unmarshal(trimmed, &aux); err != nil {
		return fmt.Errorf("formula: invalid field value: %w", err)
	}
	if len(aux.Value) == 0 || string(aux.Value) == "null" {
		*v = NumberValue(0)
		return nil
	}
	if !aux.IsFormula {
		var n float64
		if err := json.Unmarshal(aux.Value, &n); err != nil {
			return fmt.Errorf("formula: non-formula field must hold a number: %w", err)
		}
		*v = NumberValue(n)
		return nil
	}
	var f Formula
	if err := json.Unmarshal(aux.Value, &f); err != nil {
		return fmt.Errorf("formula: formula field must hold a formula object: %w", err)
	}
	*v = FormulaValue(&f)
	return nil
}
