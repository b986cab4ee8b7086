// Package order computes the processing order over snippets: a depth-first
// postorder of the reference graph, so every dependency precedes its
// dependents. Cycles never fail the sort; a back-edge found during traversal
// is excluded from ordering and recorded so downstream consumers can see that
// generation for the cycle members may lack full context.
//
// The order is fully deterministic for identical input graphs: roots are
// taken ascending by extraction index and an entity's references are visited
// ascending by the target's extraction index.
package order

import (
	"sort"

	"github.com/docweaver/docweaver/internal/graph"
)

// BrokenEdge records a reference edge excluded from ordering because it
// closed a cycle. From references To.
type BrokenEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Order is the sorter stage artifact payload: a total ordering of entity IDs
// with dependencies first, plus the edges broken to make the graph acyclic.
type Order struct {
	IDs    []string     `json:"ids"`
	Broken []BrokenEdge `json:"broken,omitempty"`
}

// Position returns a lookup map from entity ID to its order position.
func (o *Order) Position() map[string]int {
	pos := make(map[string]int, len(o.IDs))
	for i, id := range o.IDs {
		pos[id] = i
	}
	return pos
}

// Reversed returns the order with dependents first. Used for document layout
// where high-level entities lead; processing always uses the forward order.
func (o *Order) Reversed() []string {
	ids := make([]string, len(o.IDs))
	for i, id := range o.IDs {
		ids[len(ids)-1-i] = id
	}
	return ids
}

// traversal colors.
const (
	white = iota // unvisited
	gray         // on the current DFS path
	black        // finished
)

// Compute produces the processing order for the given entity graph. Every
// entity appears exactly once; a reference discovered while its target is
// still on the DFS path is a back-edge and is recorded as broken.
func Compute(g *graph.Graph) *Order {
	byID := g.ByID()

	// Pre-resolve each entity's references to graph positions, ascending by
	// the target's extraction index. Unresolvable refs were dropped by the
	// builder, so every ref here has a target.
	refs := make([][]int, len(g.Entities))
	for i, e := range g.Entities {
		for _, r := range e.Refs {
			if j, ok := byID[r]; ok {
				refs[i] = append(refs[i], j)
			}
		}
		sort.Ints(refs[i])
	}

	o := &Order{}
	state := make([]int, len(g.Entities))

	var visit func(i int)
	visit = func(i int) {
		state[i] = gray
		for _, j := range refs[i] {
			switch state[j] {
			case white:
				visit(j)
			case gray:
				o.Broken = append(o.Broken, BrokenEdge{
					From: g.Entities[i].ID,
					To:   g.Entities[j].ID,
				})
			}
		}
		state[i] = black
		o.IDs = append(o.IDs, g.Entities[i].ID)
	}

	for i := range g.Entities {
		if state[i] == white {
			visit(i)
		}
	}

	return o
}
