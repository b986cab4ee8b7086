// Package parser provides tree-sitter-based multi-language source code parsing
// with automatic language detection from file extensions. It extracts symbol
// declarations (classes, functions, methods) with their containment structure,
// the identifiers each declaration calls, and module-level imports.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Symbol represents a declaration found in source code, positioned within the
// file's containment structure. NamePath joins enclosing declaration names
// with dots (e.g. "Server.handle"), so it is unique within a file for
// non-overloaded declarations.
type Symbol struct {
	Kind      string // "class", "function", or "method"
	Name      string
	NamePath  string
	Parent    string // NamePath of the enclosing declaration, "" at top level
	StartLine int    // 1-indexed, inclusive
	EndLine   int    // 1-indexed, inclusive
	Calls     []string
}

// langInfo holds tree-sitter language metadata: which node types represent
// class-like containers, callable declarations, call sites, and imports.
type langInfo struct {
	lang        *sitter.Language
	classNodes  []string
	funcNodes   []string
	callNodes   []string
	importNodes []string
	callField   string // field holding the callee inside a call node
}

// registry maps file extensions to language info for auto-detection.
var registry = map[string]langInfo{
	".go": {
		lang:        golang.GetLanguage(),
		funcNodes:   []string{"function_declaration", "method_declaration"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"import_declaration"},
		callField:   "function",
	},
	".py": {
		lang:        python.GetLanguage(),
		classNodes:  []string{"class_definition"},
		funcNodes:   []string{"function_definition"},
		callNodes:   []string{"call"},
		importNodes: []string{"import_statement", "import_from_statement"},
		callField:   "function",
	},
	".js": {
		lang:        javascript.GetLanguage(),
		classNodes:  []string{"class_declaration"},
		funcNodes:   []string{"function_declaration", "method_definition"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"import_statement"},
		callField:   "function",
	},
	".ts": {
		lang:        typescript.GetLanguage(),
		classNodes:  []string{"class_declaration"},
		funcNodes:   []string{"function_declaration", "method_definition"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"import_statement"},
		callField:   "function",
	},
	".java": {
		lang:        java.GetLanguage(),
		classNodes:  []string{"class_declaration", "interface_declaration"},
		funcNodes:   []string{"method_declaration", "constructor_declaration"},
		callNodes:   []string{"method_invocation"},
		importNodes: []string{"import_declaration"},
		callField:   "name",
	},
	".rs": {
		lang:        rust.GetLanguage(),
		funcNodes:   []string{"function_item"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"use_declaration"},
		callField:   "function",
	},
	".rb": {
		lang:        ruby.GetLanguage(),
		classNodes:  []string{"class"},
		funcNodes:   []string{"method"},
		callNodes:   []string{"call"},
		importNodes: []string{"call"}, // require/require_relative calls
		callField:   "method",
	},
	".c": {
		lang:        c.GetLanguage(),
		funcNodes:   []string{"function_definition"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"preproc_include"},
		callField:   "function",
	},
	".h": {
		lang:        c.GetLanguage(),
		funcNodes:   []string{"function_definition"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"preproc_include"},
		callField:   "function",
	},
	".cc": {
		lang:        cpp.GetLanguage(),
		classNodes:  []string{"class_specifier"},
		funcNodes:   []string{"function_definition"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"preproc_include"},
		callField:   "function",
	},
	".cpp": {
		lang:        cpp.GetLanguage(),
		classNodes:  []string{"class_specifier"},
		funcNodes:   []string{"function_definition"},
		callNodes:   []string{"call_expression"},
		importNodes: []string{"preproc_include"},
		callField:   "function",
	},
}

// Supported reports whether the filename's extension maps to a known language.
func Supported(filename string) bool {
	_, ok := registry[filepath.Ext(filename)]
	return ok
}

// Parser wraps tree-sitter to parse source files with automatic language detection.
type Parser struct {
	inner *sitter.Parser
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		inner: sitter.NewParser(),
	}
}

// Parse parses source code from the given filename, auto-detecting the language
// from the file extension. Returns an error for unsupported extensions.
func (p *Parser) Parse(filename string, source []byte) (*Tree, error) {
	ext := filepath.Ext(filename)
	info, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension %q: language not in registry", ext)
	}

	p.inner.SetLanguage(info.lang)
	sitterTree, err := p.inner.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	return &Tree{
		tree:   sitterTree,
		source: source,
		info:   info,
	}, nil
}

// Tree wraps a parsed tree-sitter syntax tree with convenience methods for
// extracting symbols and imports.
type Tree struct {
	tree   *sitter.Tree
	source []byte
	info   langInfo
}

// RootNode returns the root node of the parsed syntax tree.
func (t *Tree) RootNode() *sitter.Node {
	return t.tree.RootNode()
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Symbols extracts all class, function, and method declarations from the
// syntax tree in source order, with containment recorded through Parent and
// NamePath and call sites collected per declaration.
func (t *Tree) Symbols() []Symbol {
	classTypes := typeSet(t.info.classNodes)
	funcTypes := typeSet(t.info.funcNodes)

	var symbols []Symbol
	var collect func(node *sitter.Node, parentPath string, inClass bool)
	collect = func(node *sitter.Node, parentPath string, inClass bool) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child == nil {
				continue
			}

			switch {
			case classTypes[child.Type()]:
				name := declName(child, t.source)
				if name == "" {
					continue
				}
				path := joinPath(parentPath, name)
				symbols = append(symbols, Symbol{
					Kind:      "class",
					Name:      name,
					NamePath:  path,
					Parent:    parentPath,
					StartLine: int(child.StartPoint().Row) + 1,
					EndLine:   int(child.EndPoint().Row) + 1,
					Calls:     t.callsIn(child),
				})
				collect(child, path, true)

			case funcTypes[child.Type()]:
				name := declName(child, t.source)
				if name == "" {
					continue
				}
				kind := "function"
				if inClass {
					kind = "method"
				}
				path := joinPath(parentPath, name)
				symbols = append(symbols, Symbol{
					Kind:      kind,
					Name:      name,
					NamePath:  path,
					Parent:    parentPath,
					StartLine: int(child.StartPoint().Row) + 1,
					EndLine:   int(child.EndPoint().Row) + 1,
					Calls:     t.callsIn(child),
				})
				collect(child, path, inClass)

			default:
				collect(child, parentPath, inClass)
			}
		}
	}

	collect(t.RootNode(), "", false)
	return symbols
}

// callsIn collects the callee identifiers of call sites directly owned by the
// given declaration node. Call sites inside nested declarations are excluded:
// each declaration reports its own calls.
func (t *Tree) callsIn(decl *sitter.Node) []string {
	callTypes := typeSet(t.info.callNodes)
	declTypes := typeSet(append(append([]string{}, t.info.classNodes...), t.info.funcNodes...))

	var calls []string
	seen := make(map[string]bool)

	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child == nil {
				continue
			}
			if declTypes[child.Type()] {
				continue
			}
			if callTypes[child.Type()] {
				if name := t.calleeName(child); name != "" && !seen[name] {
					seen[name] = true
					calls = append(calls, name)
				}
			}
			visit(child)
		}
	}
	visit(decl)

	return calls
}

// calleeName extracts the called identifier from a call node. For attribute
// or selector callees (obj.method, pkg.Func) the rightmost identifier is
// returned, which is what name-based resolution matches on.
func (t *Tree) calleeName(call *sitter.Node) string {
	callee := call.ChildByFieldName(t.info.callField)
	if callee == nil {
		return ""
	}

	text := callee.Content(t.source)
	switch callee.Type() {
	case "identifier", "field_identifier", "property_identifier", "constant":
		return text
	default:
		if idx := strings.LastIndexAny(text, ".:"); idx >= 0 && idx+1 < len(text) {
			return text[idx+1:]
		}
		return text
	}
}

// Imports extracts import paths/module names from the syntax tree.
func (t *Tree) Imports() []string {
	importTypes := typeSet(t.info.importNodes)

	var imports []string
	walk(t.RootNode(), func(node *sitter.Node) {
		if !importTypes[node.Type()] {
			return
		}
		text := node.Content(t.source)
		paths := extractImportPaths(text, node, t.source)
		imports = append(imports, paths...)
	})

	return imports
}

// walk performs a depth-first traversal of the syntax tree, calling fn for each node.
func walk(node *sitter.Node, fn func(*sitter.Node)) {
	if node == nil {
		return
	}
	fn(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil {
			walk(child, fn)
		}
	}
}

// typeSet builds a lookup set from a list of node type names.
func typeSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// joinPath appends a name to a dotted name path.
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// declName finds the name identifier within a declaration node. It checks the
// "name" field first (most languages), then the "declarator" field for C/C++
// function_definition nodes.
func declName(node *sitter.Node, source []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode != nil {
		return nameNode.Content(source)
	}

	// C/C++: function_definition -> declarator (function_declarator) -> declarator (identifier)
	declNode := node.ChildByFieldName("declarator")
	if declNode != nil {
		innerName := declNode.ChildByFieldName("declarator")
		if innerName != nil {
			return innerName.Content(source)
		}
	}

	return ""
}

// extractImportPaths parses import statement text to extract clean module/package paths.
func extractImportPaths(text string, node *sitter.Node, source []byte) []string {
	switch node.Type() {
	case "import_declaration":
		// Go: import "fmt" or import ( "fmt"\n"os" )
		// Java: import java.util.List;
		return extractImportDeclaration(node, source)
	case "import_statement":
		// Python: import os, sys
		// JS/TS: import { foo } from 'bar'
		return extractGenericImport(text)
	case "import_from_statement":
		// Python: from pathlib import Path
		return extractPythonFromImport(text)
	case "use_declaration":
		// Rust: use std::io;
		return extractRustUse(text)
	case "preproc_include":
		// C/C++: #include <stdio.h> or #include "myheader.h"
		return extractCInclude(text)
	case "call":
		// Ruby: require 'foo' or require_relative 'bar'
		return extractRubyRequire(text)
	default:
		return []string{extractImportPath(text)}
	}
}

// extractImportDeclaration handles import declarations for Go and Java.
func extractImportDeclaration(node *sitter.Node, source []byte) []string {
	var paths []string
	seen := make(map[string]bool)

	walk(node, func(n *sitter.Node) {
		var content string
		switch n.Type() {
		case "import_spec":
			content = extractImportPath(n.Content(source))
		case "interpreted_string_literal":
			content = extractImportPath(n.Content(source))
		case "scoped_identifier":
			// Java: java.util.List; only take the top-level scoped_identifier
			if n.Parent() != nil && n.Parent().Type() == "scoped_identifier" {
				return
			}
			content = n.Content(source)
		default:
			return
		}
		if content != "" && !seen[content] {
			seen[content] = true
			paths = append(paths, content)
		}
	})
	return paths
}

// extractGenericImport handles Python "import x, y" and JS/TS "import ... from 'x'" statements.
func extractGenericImport(text string) []string {
	// JS/TS: import { foo } from 'bar'
	if strings.Contains(text, " from ") {
		parts := strings.SplitN(text, " from ", 2)
		if len(parts) == 2 {
			return []string{extractImportPath(parts[1])}
		}
	}

	// Python: import os, sys
	text = strings.TrimPrefix(text, "import ")
	text = strings.TrimSpace(text)
	parts := strings.Split(text, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		// Handle "import os as operating_system"
		if idx := strings.Index(p, " as "); idx >= 0 {
			p = p[:idx]
		}
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// extractPythonFromImport handles Python "from x import y" statements.
func extractPythonFromImport(text string) []string {
	text = strings.TrimPrefix(text, "from ")
	parts := strings.SplitN(text, " import ", 2)
	if len(parts) >= 1 {
		module := strings.TrimSpace(parts[0])
		if module != "" {
			return []string{module}
		}
	}
	return nil
}

// extractRustUse handles Rust "use std::io;" statements.
func extractRustUse(text string) []string {
	text = strings.TrimPrefix(text, "use ")
	text = strings.TrimSuffix(text, ";")
	text = strings.TrimSpace(text)
	if text != "" {
		return []string{text}
	}
	return nil
}

// extractCInclude handles C/C++ #include directives.
func extractCInclude(text string) []string {
	text = strings.TrimPrefix(text, "#include")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "<>\"")
	text = strings.TrimSpace(text)
	if text != "" {
		return []string{text}
	}
	return nil
}

// extractRubyRequire handles Ruby require and require_relative calls.
func extractRubyRequire(text string) []string {
	if !strings.HasPrefix(text, "require") {
		return nil
	}
	for _, prefix := range []string{"require_relative ", "require "} {
		if strings.HasPrefix(text, prefix) {
			rest := strings.TrimPrefix(text, prefix)
			cleaned := extractImportPath(rest)
			if cleaned != "" {
				return []string{cleaned}
			}
		}
	}
	return nil
}

// extractImportPath cleans an import path string by removing quotes, semicolons,
// and other surrounding syntax.
func extractImportPath(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"'`();")
	text = strings.TrimSpace(text)
	return text
}
