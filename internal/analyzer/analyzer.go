// Package analyzer discovers source files in a project and extracts per-file
// facts: the declarations each file contains, their containment structure,
// the names they call, and the modules they import. Its output feeds the
// symbol graph builder.
package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docweaver/docweaver/internal/parser"
)

// skipDirs contains directory names that should be excluded from scanning.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
	".docweaver":   true,
}

// FileFacts holds everything extracted from a single source file.
type FileFacts struct {
	Path    string          `json:"path"`  // relative, slash-separated
	Lines   int             `json:"lines"` // total line count
	Symbols []parser.Symbol `json:"symbols,omitempty"`
	Imports []string        `json:"imports,omitempty"`
}

// Facts is the analysis stage artifact payload.
type Facts struct {
	Project string      `json:"project"`
	Files   []FileFacts `json:"files"`
}

// Analyze discovers source files under dir and extracts declarations and
// imports using the provided parser. It uses git ls-files when inside a git
// repository; otherwise it falls back to filepath.WalkDir. Files that fail
// to read or parse are logged and dropped rather than failing the run.
func Analyze(ctx context.Context, dir string, p *parser.Parser) (*Facts, error) {
	relPaths, err := listFiles(ctx, dir)
	if err != nil {
		return nil, err
	}

	facts := &Facts{Project: dir}
	for _, rel := range relPaths {
		if shouldSkip(rel) {
			continue
		}
		if !parser.Supported(rel) {
			continue
		}

		absPath := filepath.Join(dir, rel)
		info, err := os.Stat(absPath)
		if err != nil || info.IsDir() {
			continue
		}

		source, err := os.ReadFile(absPath)
		if err != nil {
			log.Printf("analyzer: skipping %s: %v", rel, err)
			continue
		}

		symbols, imports, err := parseFile(p, rel, source)
		if err != nil {
			log.Printf("analyzer: skipping %s: %v", rel, err)
			continue
		}

		facts.Files = append(facts.Files, FileFacts{
			Path:    filepath.ToSlash(rel),
			Lines:   countLines(source),
			Symbols: symbols,
			Imports: imports,
		})
	}

	return facts, nil
}

// listFiles returns relative file paths under dir. It tries git ls-files
// first; if dir is not a git repo it falls back to filepath.WalkDir.
func listFiles(ctx context.Context, dir string) ([]string, error) {
	paths, err := gitLsFiles(ctx, dir)
	if err == nil {
		return paths, nil
	}
	return walkFiles(dir)
}

// gitLsFiles lists files in dir via git, including untracked files that are
// not ignored. Returns an error if dir is not inside a git repository.
func gitLsFiles(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, scanner.Err()
}

// walkFiles uses filepath.WalkDir to list all files under dir, skipping
// directories in the skipDirs set.
func walkFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("analyzer: skipping path %q: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	return paths, err
}

// shouldSkip returns true if the relative path is inside a directory that
// should be excluded from scanning.
func shouldSkip(relPath string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, part := range parts {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

// countLines returns the number of lines in source, counting a trailing
// partial line.
func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte{'\n'})
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}

// parseFile parses a single file and returns its symbols and imports.
// The tree is closed before returning, avoiding use-after-free when
// called in a loop.
func parseFile(p *parser.Parser, filename string, source []byte) ([]parser.Symbol, []string, error) {
	tree, err := p.Parse(filename, source)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()
	return tree.Symbols(), tree.Imports(), nil
}
