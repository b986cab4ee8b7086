// Package assembler rebuilds the entity forest as a document tree carrying
// the generated text, then renders it. Rendering is total: every entity with
// a forest position appears in the output, and entities without a successful
// result get an explicit placeholder instead of being dropped.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docweaver/docweaver/internal/generate"
	"github.com/docweaver/docweaver/internal/graph"
	"github.com/docweaver/docweaver/internal/order"
)

// Node is one entry in the document tree, mirroring an entity's forest
// position.
type Node struct {
	ID       string
	Kind     string
	Name     string
	File     string
	Status   string
	Text     string
	Children []*Node
}

// DocumentTree is the assembled output structure: one root per module, with
// the broken ordering edges carried along for the rendered notes section.
type DocumentTree struct {
	Roots  []*Node
	Broken []order.BrokenEdge
}

// Document represents a single output page.
type Document struct {
	Path    string
	Title   string
	Content string
}

// Build regroups generation results into the entity forest. Children within
// each node follow their order-relative sequence; with reverse set,
// high-level entities lead instead of dependencies.
func Build(g *graph.Graph, ord *order.Order, results map[string]generate.Result, reverse bool) *DocumentTree {
	pos := ord.Position()
	seq := func(id string) int {
		p, ok := pos[id]
		if !ok {
			return len(ord.IDs)
		}
		if reverse {
			return len(ord.IDs) - 1 - p
		}
		return p
	}

	nodes := make(map[string]*Node, len(g.Entities))
	for _, e := range g.Entities {
		n := &Node{
			ID:   e.ID,
			Kind: e.Kind,
			Name: e.Name,
			File: e.File,
		}
		if r, ok := results[e.ID]; ok {
			n.Status = r.Status
			n.Text = r.Text
		}
		nodes[e.ID] = n
	}

	tree := &DocumentTree{Broken: ord.Broken}
	for _, e := range g.Entities {
		n := nodes[e.ID]
		if e.Parent == "" {
			tree.Roots = append(tree.Roots, n)
			continue
		}
		if parent, ok := nodes[e.Parent]; ok {
			parent.Children = append(parent.Children, n)
		} else {
			tree.Roots = append(tree.Roots, n)
		}
	}

	sortNodes := func(ns []*Node) {
		sort.SliceStable(ns, func(i, j int) bool {
			return seq(ns[i].ID) < seq(ns[j].ID)
		})
	}
	sortNodes(tree.Roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}

	return tree
}

// Documents renders the tree into output pages: an index listing every
// module, plus one page per module with its entities nested by heading depth.
func Documents(tree *DocumentTree, title string) []Document {
	if title == "" {
		title = "Code Documentation"
	}

	var docs []Document
	docs = append(docs, buildIndexPage(tree, title))
	for _, root := range tree.Roots {
		docs = append(docs, buildModulePage(root))
	}
	return docs
}

// buildIndexPage creates _index.md with a module listing and, when the
// sorter broke cycles, a note naming the affected edges.
func buildIndexPage(tree *DocumentTree, title string) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(tree.Roots) > 0 {
		b.WriteString("## Modules\n\n")
		for _, root := range tree.Roots {
			fmt.Fprintf(&b, "- [%s](%s.md)\n", root.Name, slug(root.ID))
		}
		b.WriteString("\n")
	}

	if len(tree.Broken) > 0 {
		b.WriteString("## Dependency Cycles\n\n")
		b.WriteString("The following references form cycles; documentation for these entities was generated without full dependency context:\n\n")
		for _, e := range tree.Broken {
			fmt.Fprintf(&b, "- `%s` → `%s`\n", e.From, e.To)
		}
		b.WriteString("\n")
	}

	return Document{
		Path:    "_index.md",
		Title:   title,
		Content: b.String(),
	}
}

// buildModulePage renders one module and all of its nested entities,
// separated by horizontal rules at the top level.
func buildModulePage(root *Node) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", root.Name)
	writeBody(&b, root)

	for i, child := range root.Children {
		if i > 0 || root.Text != "" || root.Status != generate.StatusSuccess {
			b.WriteString("---\n\n")
		}
		writeNode(&b, child, 2)
	}

	return Document{
		Path:    slug(root.ID) + ".md",
		Title:   root.Name,
		Content: b.String(),
	}
}

// writeNode renders a node heading and body at the given depth, then recurses
// into children one level deeper.
func writeNode(b *strings.Builder, n *Node, depth int) {
	if depth > 6 {
		depth = 6
	}
	fmt.Fprintf(b, "%s %s `%s`\n\n", strings.Repeat("#", depth), capitalize(n.Kind), n.Name)
	writeBody(b, n)

	for _, child := range n.Children {
		writeNode(b, child, depth+1)
	}
}

// writeBody renders a node's generated text, or the placeholder that keeps
// the document structurally complete when generation did not succeed.
func writeBody(b *strings.Builder, n *Node) {
	switch n.Status {
	case generate.StatusSuccess:
		text := strings.TrimSpace(n.Text)
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	case generate.StatusFailed:
		b.WriteString("_Documentation generation failed for this entity._\n\n")
	case generate.StatusSkipped:
		b.WriteString("_This entity was skipped during generation._\n\n")
	default:
		b.WriteString("_No documentation was generated for this entity._\n\n")
	}
}

// capitalize upper-cases the first letter of an ASCII word.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

// slug converts an entity ID into a file-name-safe slug.
func slug(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
