package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docweaver/docweaver/internal/graph"
)

func graphOf(entities ...graph.Entity) *graph.Graph {
	g := &graph.Graph{}
	for i, e := range entities {
		e.Index = i
		g.Entities = append(g.Entities, e)
	}
	return g
}

func TestComputeChain(t *testing.T) {
	// A references B, B references C: dependencies come first.
	g := graphOf(
		graph.Entity{ID: "A", Refs: []string{"B"}},
		graph.Entity{ID: "B", Refs: []string{"C"}},
		graph.Entity{ID: "C"},
	)

	o := Compute(g)
	assert.Equal(t, []string{"C", "B", "A"}, o.IDs)
	assert.Empty(t, o.Broken)
}

func TestComputeCycle(t *testing.T) {
	// X and Y reference each other: the sorter terminates, produces a total
	// order, and records exactly one broken edge.
	g := graphOf(
		graph.Entity{ID: "X", Refs: []string{"Y"}},
		graph.Entity{ID: "Y", Refs: []string{"X"}},
	)

	o := Compute(g)
	require.Len(t, o.IDs, 2)
	assert.ElementsMatch(t, []string{"X", "Y"}, o.IDs)
	require.Len(t, o.Broken, 1)
	assert.Equal(t, BrokenEdge{From: "Y", To: "X"}, o.Broken[0])
}

func TestComputeIndependentEntitiesFollowExtractionIndex(t *testing.T) {
	g := graphOf(
		graph.Entity{ID: "first"},
		graph.Entity{ID: "second"},
		graph.Entity{ID: "third"},
	)

	o := Compute(g)
	assert.Equal(t, []string{"first", "second", "third"}, o.IDs)
}

func TestComputeDeterministic(t *testing.T) {
	g := graphOf(
		graph.Entity{ID: "a", Refs: []string{"b", "c"}},
		graph.Entity{ID: "b", Refs: []string{"d"}},
		graph.Entity{ID: "c", Refs: []string{"d", "a"}},
		graph.Entity{ID: "d"},
	)

	first := Compute(g)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute(g))
	}
}

func TestComputeBrokenEdgeCountMatchesBackEdges(t *testing.T) {
	// Two independent 2-cycles: two back-edges, two broken records.
	g := graphOf(
		graph.Entity{ID: "a", Refs: []string{"b"}},
		graph.Entity{ID: "b", Refs: []string{"a"}},
		graph.Entity{ID: "c", Refs: []string{"d"}},
		graph.Entity{ID: "d", Refs: []string{"c"}},
	)

	o := Compute(g)
	assert.Len(t, o.IDs, 4)
	assert.Len(t, o.Broken, 2)
}

func TestComputeAllEntitiesAppearOnce(t *testing.T) {
	g := graphOf(
		graph.Entity{ID: "m"},
		graph.Entity{ID: "x", Refs: []string{"y", "z"}},
		graph.Entity{ID: "y", Refs: []string{"z", "x"}},
		graph.Entity{ID: "z", Refs: []string{"x"}},
	)

	o := Compute(g)
	seen := map[string]int{}
	for _, id := range o.IDs {
		seen[id]++
	}
	assert.Len(t, seen, 4)
	for id, n := range seen {
		assert.Equal(t, 1, n, "entity %s", id)
	}
}

func TestComputeDependencyPrecedence(t *testing.T) {
	g := graphOf(
		graph.Entity{ID: "app", Refs: []string{"db", "web"}},
		graph.Entity{ID: "db", Refs: []string{"util"}},
		graph.Entity{ID: "web", Refs: []string{"util"}},
		graph.Entity{ID: "util"},
	)

	o := Compute(g)
	pos := o.Position()
	assert.Less(t, pos["util"], pos["db"])
	assert.Less(t, pos["util"], pos["web"])
	assert.Less(t, pos["db"], pos["app"])
	assert.Less(t, pos["web"], pos["app"])
}

func TestReversed(t *testing.T) {
	o := &Order{IDs: []string{"c", "b", "a"}}
	assert.Equal(t, []string{"a", "b", "c"}, o.Reversed())
	// Original untouched.
	assert.Equal(t, []string{"c", "b", "a"}, o.IDs)
}
