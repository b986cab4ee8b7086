package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docweaver/docweaver/internal/generate"
	"github.com/docweaver/docweaver/internal/graph"
	"github.com/docweaver/docweaver/internal/order"
)

func fixtureGraph() *graph.Graph {
	return &graph.Graph{Entities: []graph.Entity{
		{ID: "app.py", Kind: "module", Name: "app.py", File: "app.py", Index: 0},
		{ID: "app.py:Greeter", Kind: "class", Name: "Greeter", File: "app.py", Parent: "app.py", Index: 1},
		{ID: "app.py:Greeter.greet", Kind: "method", Name: "Greeter.greet", File: "app.py", Parent: "app.py:Greeter", Index: 2},
		{ID: "app.py:main", Kind: "function", Name: "main", File: "app.py", Parent: "app.py", Index: 3},
		{ID: "util.py", Kind: "module", Name: "util.py", File: "util.py", Index: 4},
	}}
}

func fixtureOrder() *order.Order {
	// Dependencies first: main depends on Greeter.greet.
	return &order.Order{IDs: []string{
		"util.py",
		"app.py:Greeter.greet",
		"app.py:Greeter",
		"app.py:main",
		"app.py",
	}}
}

func successResults(ids ...string) map[string]generate.Result {
	out := make(map[string]generate.Result, len(ids))
	for _, id := range ids {
		out[id] = generate.Result{ID: id, Status: generate.StatusSuccess, Text: "docs for " + id}
	}
	return out
}

func collectIDs(roots []*Node) []string {
	var ids []string
	var walk func(*Node)
	walk = func(n *Node) {
		ids = append(ids, n.ID)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return ids
}

func TestBuildMirrorsForest(t *testing.T) {
	tree := Build(fixtureGraph(), fixtureOrder(), successResults(), false)

	require.Len(t, tree.Roots, 2)

	ids := collectIDs(tree.Roots)
	assert.ElementsMatch(t, []string{
		"app.py", "app.py:Greeter", "app.py:Greeter.greet", "app.py:main", "util.py",
	}, ids)

	// Greeter.greet is nested under Greeter, not under the module.
	var appRoot *Node
	for _, r := range tree.Roots {
		if r.ID == "app.py" {
			appRoot = r
		}
	}
	require.NotNil(t, appRoot)
	require.Len(t, appRoot.Children, 2)
	for _, c := range appRoot.Children {
		if c.ID == "app.py:Greeter" {
			require.Len(t, c.Children, 1)
			assert.Equal(t, "app.py:Greeter.greet", c.Children[0].ID)
		}
	}
}

func TestBuildChildOrderFollowsDependencyOrder(t *testing.T) {
	tree := Build(fixtureGraph(), fixtureOrder(), nil, false)

	// util.py comes before app.py in the order, so it leads the roots.
	assert.Equal(t, "util.py", tree.Roots[0].ID)
	assert.Equal(t, "app.py", tree.Roots[1].ID)

	app := tree.Roots[1]
	assert.Equal(t, "app.py:Greeter", app.Children[0].ID)
	assert.Equal(t, "app.py:main", app.Children[1].ID)
}

func TestBuildReverseInvertsOrder(t *testing.T) {
	tree := Build(fixtureGraph(), fixtureOrder(), nil, true)

	assert.Equal(t, "app.py", tree.Roots[0].ID)
	assert.Equal(t, "util.py", tree.Roots[1].ID)

	app := tree.Roots[0]
	assert.Equal(t, "app.py:main", app.Children[0].ID)
	assert.Equal(t, "app.py:Greeter", app.Children[1].ID)
}

func TestBuildOrphanedParentPromotesToRoot(t *testing.T) {
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "a.py:lost", Kind: "function", Name: "lost", Parent: "a.py"},
	}}

	tree := Build(g, &order.Order{IDs: []string{"a.py:lost"}}, nil, false)
	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "a.py:lost", tree.Roots[0].ID)
}

func TestDocumentsTotality(t *testing.T) {
	results := successResults("app.py", "app.py:Greeter", "util.py")
	results["app.py:main"] = generate.Result{ID: "app.py:main", Status: generate.StatusFailed}
	results["app.py:Greeter.greet"] = generate.Result{ID: "app.py:Greeter.greet", Status: generate.StatusSkipped}

	tree := Build(fixtureGraph(), fixtureOrder(), results, false)
	docs := Documents(tree, "My Project")

	// Index page plus one page per module.
	require.Len(t, docs, 3)
	assert.Equal(t, "_index.md", docs[0].Path)

	var appPage Document
	for _, d := range docs {
		if d.Path == "app.py.md" {
			appPage = d
		}
	}
	require.NotEmpty(t, appPage.Content)

	assert.Contains(t, appPage.Content, "docs for app.py")
	assert.Contains(t, appPage.Content, "## Class `Greeter`")
	assert.Contains(t, appPage.Content, "### Method `Greeter.greet`")
	assert.Contains(t, appPage.Content, "_This entity was skipped during generation._")
	assert.Contains(t, appPage.Content, "_Documentation generation failed for this entity._")
}

func TestDocumentsIndexListsModulesAndCycles(t *testing.T) {
	tree := Build(fixtureGraph(), fixtureOrder(), successResults(), false)
	tree.Broken = []order.BrokenEdge{{From: "app.py:main", To: "app.py:Greeter.greet"}}

	docs := Documents(tree, "")
	index := docs[0]

	assert.Contains(t, index.Content, "# Code Documentation")
	assert.Contains(t, index.Content, "[app.py](app.py.md)")
	assert.Contains(t, index.Content, "[util.py](util.py.md)")
	assert.Contains(t, index.Content, "## Dependency Cycles")
	assert.Contains(t, index.Content, "`app.py:main`")
}

func TestDocumentsMissingResultGetsPlaceholder(t *testing.T) {
	tree := Build(fixtureGraph(), fixtureOrder(), nil, false)
	docs := Documents(tree, "X")

	var util Document
	for _, d := range docs {
		if d.Path == "util.py.md" {
			util = d
		}
	}
	assert.Contains(t, util.Content, "_No documentation was generated for this entity._")
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Function", capitalize("function"))
	assert.Equal(t, "Class", capitalize("Class"))
	assert.Equal(t, "", capitalize(""))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "lib_util.py", slug("lib/util.py"))
	assert.Equal(t, "app.py_main", slug("app.py:main"))
}
