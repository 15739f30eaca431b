package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencyGraph_FindCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("a", []string{"b"})
	g.SetDependencies("b", []string{"c", "d"})
	g.SetDependencies("d", []string{"a"})

	assert.Equal(t, []string{"a", "b", "d", "a"}, g.FindCycle("a"))
	assert.Nil(t, g.FindCycle("c"))

	g.Remove("d")
	assert.Nil(t, g.FindCycle("a"))

	g.SetDependencies("self", []string{"self"})
	assert.Equal(t, []string{"self", "self"}, g.FindCycle("self"))
}

func TestDependencyGraph_Cycles(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("x", []string{"y"})
	g.SetDependencies("y", []string{"z"})
	g.SetDependencies("z", []string{"x"})
	g.SetDependencies("p", []string{"q"})

	cycles := g.Cycles()
	assert.Equal(t, [][]string{{"x", "y", "z", "x"}}, cycles)
}

func TestDependencyGraph_CyclicFields(t *testing.T) {
	g := NewDependencyGraph()
	// d lies on a -> d -> b -> c -> a, which Cycles does not report
	g.SetDependencies("a", []string{"b", "d"})
	g.SetDependencies("b", []string{"c"})
	g.SetDependencies("c", []string{"a"})
	g.SetDependencies("d", []string{"b"})
	g.SetDependencies("e", []string{"a"})
	g.SetDependencies("self", []string{"self"})

	assert.Equal(t, []string{"a", "b", "c", "d", "self"}, g.CyclicFields())
	assert.Equal(t, []string{"d", "b", "c", "a", "d"}, g.FindCycle("d"))

	g.Remove("c")
	assert.Equal(t, []string{"self"}, g.CyclicFields())
}

func TestDependencyGraph_CalculationOrder(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("total", []string{"sub", "tax"})
	g.SetDependencies("tax", []string{"sub"})

	order, acyclic := g.CalculationOrder()
	assert.True(t, acyclic)
	assert.Equal(t, []string{"sub", "tax", "total"}, order)

	g.SetDependencies("sub", []string{"total"})
	_, acyclic = g.CalculationOrder()
	assert.False(t, acyclic)
}

func TestDependencyGraph_CloneIsIndependent(t *testing.T) {
	g := NewDependencyGraph()
	g.SetDependencies("a", []string{"b"})
	c := g.Clone()
	c.SetDependencies("b", []string{"a"})

	assert.Nil(t, g.FindCycle("a"))
	assert.NotNil(t, c.FindCycle("a"))
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 2, c.Len())
}
