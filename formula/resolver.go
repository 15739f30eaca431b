package formula

import "log"

// Resolve looks a reference token up in ctx. It reports false when the
// token is malformed, when an indexed scope has no index, or when the line
// or position key does not exist. A missing field on an existing entity, or
// on the global entity, resolves to 0.
func Resolve(token string, ctx *Context) (value float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("formula: Resolve: recovered while resolving %q: %v", token, r)
			value, ok = 0, false
		}
	}()

	ref, valid := ParseReference(token)
	if !valid || ctx == nil {
		return 0, false
	}

	switch ref.Scope {
	case ScopeLigne:
		return lookupIndexed(ctx.Lignes, ref)
	case ScopePosition:
		return lookupIndexed(ctx.Positions, ref)
	case ScopeGlobal:
		return ctx.Global[ref.Field], true
	}
	return 0, false
}

func lookupIndexed(entities map[string]Entity, ref Reference) (float64, bool) {
	if ref.Index == "" {
		return 0, false
	}
	entity, exists := entities[ref.Index]
	if !exists {
		return 0, false
	}
	return entity[ref.Field], true
}
