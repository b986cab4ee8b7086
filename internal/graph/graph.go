// Package graph builds the entity graph from per-file analysis facts. Each
// documentable code unit becomes an Entity with a globally unique qualified
// ID; entities form a forest by parent relation and a directed graph by
// reference relation. Reference names are resolved same-file first, then
// project-wide; names that resolve to nothing outside the project are dropped.
package graph

import (
	"errors"
	"strings"

	"github.com/docweaver/docweaver/internal/analyzer"
)

// ErrAnalysisIncomplete indicates the analysis stage produced no entities for
// a non-empty project. The run cannot continue.
var ErrAnalysisIncomplete = errors.New("analysis incomplete: no entities found in project")

// Entity kinds.
const (
	KindModule   = "module"
	KindClass    = "class"
	KindFunction = "function"
	KindMethod   = "method"
)

// Entity is a documentable code unit. ID is the file path for modules and
// "path:NamePath" for everything else, so IDs are unique across the project.
type Entity struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	File      string   `json:"file"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
	Parent    string   `json:"parent,omitempty"` // ID of the enclosing entity, "" for modules
	Refs      []string `json:"refs,omitempty"`   // IDs of entities this one references
	Index     int      `json:"index"`            // discovery order, stable tie-break downstream
}

// Graph is the entity graph artifact payload. Entities are stored in
// discovery order; Index mirrors the slice position.
type Graph struct {
	Entities []Entity `json:"entities"`
}

// ByID returns a lookup map from entity ID to its position in Entities.
func (g *Graph) ByID() map[string]int {
	idx := make(map[string]int, len(g.Entities))
	for i, e := range g.Entities {
		idx[e.ID] = i
	}
	return idx
}

// ModuleID returns the entity ID for a file's module entity.
func ModuleID(path string) string {
	return path
}

// EntityID returns the qualified ID for a named declaration within a file.
func EntityID(path, namePath string) string {
	return path + ":" + namePath
}

// Build constructs the entity graph from analysis facts. Duplicate
// declarations are merged into one entity keeping the first-seen span;
// reference edges that resolve to nothing inside the project are dropped.
// Returns ErrAnalysisIncomplete when no entities can be built.
func Build(facts *analyzer.Facts) (*Graph, error) {
	g := &Graph{}
	byID := make(map[string]int)

	add := func(e Entity) int {
		if i, ok := byID[e.ID]; ok {
			return i
		}
		e.Index = len(g.Entities)
		byID[e.ID] = e.Index
		g.Entities = append(g.Entities, e)
		return e.Index
	}

	// First pass: declare every entity so references can resolve forward.
	for _, f := range facts.Files {
		end := f.Lines
		if end < 1 {
			end = 1
		}
		add(Entity{
			ID:        ModuleID(f.Path),
			Kind:      KindModule,
			Name:      f.Path,
			File:      f.Path,
			StartLine: 1,
			EndLine:   end,
		})

		for _, s := range f.Symbols {
			parent := ModuleID(f.Path)
			if s.Parent != "" {
				parent = EntityID(f.Path, s.Parent)
			}
			add(Entity{
				ID:        EntityID(f.Path, s.NamePath),
				Kind:      s.Kind,
				Name:      s.Name,
				File:      f.Path,
				StartLine: s.StartLine,
				EndLine:   s.EndLine,
				Parent:    parent,
			})
		}
	}

	if len(g.Entities) == 0 {
		return nil, ErrAnalysisIncomplete
	}

	// Name index for project-wide resolution, first declaration wins.
	byName := make(map[string]int)
	for i, e := range g.Entities {
		if e.Kind == KindModule {
			continue
		}
		if _, ok := byName[e.Name]; !ok {
			byName[e.Name] = i
		}
	}

	// Per-file name index for same-file-first resolution.
	fileByName := make(map[string]map[string]int)
	for i, e := range g.Entities {
		if e.Kind == KindModule {
			continue
		}
		m := fileByName[e.File]
		if m == nil {
			m = make(map[string]int)
			fileByName[e.File] = m
		}
		if _, ok := m[e.Name]; !ok {
			m[e.Name] = i
		}
	}

	// Module path index for import resolution.
	moduleByPath := buildModuleIndex(facts)

	// Second pass: resolve references.
	for _, f := range facts.Files {
		mi := byID[ModuleID(f.Path)]
		for _, imp := range f.Imports {
			if target, ok := moduleByPath(imp); ok && target != g.Entities[mi].ID {
				addRef(&g.Entities[mi], target)
			}
		}

		for _, s := range f.Symbols {
			ei := byID[EntityID(f.Path, s.NamePath)]
			for _, call := range s.Calls {
				ti, ok := fileByName[f.Path][call]
				if !ok {
					ti, ok = byName[call]
				}
				if !ok {
					continue // external, not documented
				}
				target := g.Entities[ti].ID
				if target == g.Entities[ei].ID {
					continue
				}
				addRef(&g.Entities[ei], target)
			}
		}
	}

	return g, nil
}

// addRef appends a reference ID if not already present, preserving the order
// references were discovered in.
func addRef(e *Entity, target string) {
	for _, r := range e.Refs {
		if r == target {
			return
		}
	}
	e.Refs = append(e.Refs, target)
}

// buildModuleIndex returns a resolver from an import string to the module
// entity ID of a project file, matching the import's slash form against file
// paths with their extension stripped. "pkg.mod" matches "pkg/mod.py" and
// "utils" matches "src/utils.py".
func buildModuleIndex(facts *analyzer.Facts) func(string) (string, bool) {
	type candidate struct {
		stem string // path without extension, slash-separated
		id   string
	}
	var candidates []candidate
	for _, f := range facts.Files {
		stem := f.Path
		if i := strings.LastIndex(stem, "."); i > strings.LastIndex(stem, "/") {
			stem = stem[:i]
		}
		candidates = append(candidates, candidate{stem: stem, id: ModuleID(f.Path)})
	}

	return func(imp string) (string, bool) {
		want := strings.ReplaceAll(imp, ".", "/")
		want = strings.Trim(want, "/")
		if want == "" {
			return "", false
		}
		for _, c := range candidates {
			if c.stem == want || strings.HasSuffix(c.stem, "/"+want) {
				return c.id, true
			}
		}
		return "", false
	}
}
