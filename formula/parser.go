package formula

import (
	"iter"
	"regexp"
	"slices"
)

// Scope is the first segment of a reference token.
type Scope string

const (
	ScopeLigne    Scope = "ligne"
	ScopePosition Scope = "position"
	ScopeGlobal   Scope = "global"
)

const identifier = `[a-zA-Z_][a-zA-Z0-9_]*`

var (
	referencePattern      = regexp.MustCompile(`@(ligne|position|global)(?:\[(` + identifier + `)\])?\.(` + identifier + `)`)
	exactReferencePattern = regexp.MustCompile(`^` + referencePattern.String() + `$`)
)

// Reference is a parsed reference token such as @ligne[pos1_L1].prixUnitAchat.
type Reference struct {
	Scope Scope
	Index string
	Field string
}

// String renders the reference back into its token form.
func (r Reference) String() string {
	if r.Index == "" {
		return "@" + string(r.Scope) + "." + r.Field
	}
	return "@" + string(r.Scope) + "[" + r.Index + "]." + r.Field
}

// Token builds the reference token for a field of an indexed entity.
func Token(scope Scope, index, field string) string {
	return Reference{Scope: scope, Index: index, Field: field}.String()
}

// ParseReference splits a whole token into scope, index and field. It
// reports false when the token does not match the reference grammar.
func ParseReference(token string) (Reference, bool) {
	m := exactReferencePattern.FindStringSubmatch(token)
	if m == nil {
		return Reference{}, false
	}
	return Reference{Scope: Scope(m[1]), Index: m[2], Field: m[3]}, true
}

// ParseExpression yields every reference token found in expr, in order of
// appearance. The sequence can be ranged over any number of times.
func ParseExpression(expr string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := expr
		for {
			loc := referencePattern.FindStringIndex(rest)
			if loc == nil {
				return
			}
			if !yield(rest[loc[0]:loc[1]]) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

// Dependencies returns the reference tokens of expr with duplicates removed,
// keeping first-appearance order.
func Dependencies(expr string) []string {
	var deps []string
	for tok := range ParseExpression(expr) {
		if !slices.Contains(deps, tok) {
			deps = append(deps, tok)
		}
	}
	return deps
}
