package formula

import "maps"

// Entity is a flat set of named numeric fields (a line, a position or the
// project-level aggregates).
type Entity map[string]float64

// Context is the lookup environment references are resolved against. The
// engine treats it as a read-only snapshot.
type Context struct {
	Lignes    map[string]Entity
	Positions map[string]Entity
	Global    Entity
}

// NewContext returns an empty context with all maps allocated.
func NewContext() *Context {
	return &Context{
		Lignes:    make(map[string]Entity),
		Positions: make(map[string]Entity),
		Global:    make(Entity),
	}
}

// Clone returns a deep copy of the context.
func (c *Context) Clone() *Context {
	out := NewContext()
	if c == nil {
		return out
	}
	for k, e := range c.Lignes {
		out.Lignes[k] = maps.Clone(e)
	}
	for k, e := range c.Positions {
		out.Positions[k] = maps.Clone(e)
	}
	if c.Global != nil {
		out.Global = maps.Clone(c.Global)
	}
	return out
}

// Set writes a value addressed by a reference token into the context,
// creating the entity if needed. Used when building derived snapshots.
func (c *Context) Set(token string, value float64) bool {
	ref, ok := ParseReference(token)
	if !ok {
		return false
	}
	var target Entity
	switch ref.Scope {
	case ScopeLigne, ScopePosition:
		if ref.Index == "" {
			return false
		}
		m := c.Lignes
		if ref.Scope == ScopePosition {
			m = c.Positions
		}
		target = m[ref.Index]
		if target == nil {
			target = make(Entity)
			m[ref.Index] = target
		}
	case ScopeGlobal:
		if c.Global == nil {
			c.Global = make(Entity)
		}
		target = c.Global
	}
	target[ref.Field] = value
	return true
}
