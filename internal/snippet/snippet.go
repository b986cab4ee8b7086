// Package snippet extracts the literal source text for each graph entity by
// its recorded span. Extraction is per-entity and order-independent: the
// result depends only on the entity's span and the file content at run time.
// An entity whose span no longer fits the file is marked skipped, not fatal.
package snippet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docweaver/docweaver/internal/graph"
)

// SpanError reports an entity span that does not fit the current file
// content, usually stale analysis against an edited file.
type SpanError struct {
	ID        string
	StartLine int
	EndLine   int
	FileLines int
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("span %d-%d for %s out of range: file has %d lines",
		e.StartLine, e.EndLine, e.ID, e.FileLines)
}

// Snippet is the extracted text and metadata for one entity. Index is the
// extraction order, used downstream as a deterministic tie-break.
type Snippet struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	File       string `json:"file"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	Parent     string `json:"parent,omitempty"`
	Index      int    `json:"index"`
	Text       string `json:"text,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skipReason,omitempty"`
}

// Set is the extraction stage artifact payload.
type Set struct {
	Snippets []Snippet `json:"snippets"`
}

// ByID returns a lookup map from snippet ID to its position in Snippets.
func (s *Set) ByID() map[string]int {
	idx := make(map[string]int, len(s.Snippets))
	for i, sn := range s.Snippets {
		idx[sn.ID] = i
	}
	return idx
}

// Options control span expansion at extraction time.
type Options struct {
	// PadLines adds N context lines above and below each span, clamped to
	// file bounds.
	PadLines int
	// IncludeDecorators expands spans upward over contiguous decorator or
	// annotation lines directly above the declaration.
	IncludeDecorators bool
}

// Extract produces one snippet per graph entity, in graph discovery order.
// Entities whose span falls outside the current file content are marked
// skipped with the span error as reason. A file that cannot be read skips
// all of its entities.
func Extract(projectDir string, g *graph.Graph, opts Options) (*Set, error) {
	files := make(map[string][]string)

	readLines := func(rel string) ([]string, error) {
		if lines, ok := files[rel]; ok {
			return lines, nil
		}
		data, err := os.ReadFile(filepath.Join(projectDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		lines := splitLines(string(data))
		files[rel] = lines
		return lines, nil
	}

	set := &Set{}
	for _, e := range g.Entities {
		sn := Snippet{
			ID:        e.ID,
			Kind:      e.Kind,
			Name:      e.Name,
			File:      e.File,
			StartLine: e.StartLine,
			EndLine:   e.EndLine,
			Parent:    e.Parent,
			Index:     len(set.Snippets),
		}

		lines, err := readLines(e.File)
		if err != nil {
			sn.Skipped = true
			sn.SkipReason = fmt.Sprintf("reading %s: %v", e.File, err)
			set.Snippets = append(set.Snippets, sn)
			continue
		}

		start, end := e.StartLine, e.EndLine

		// An empty file still yields its snippet, with empty text.
		if len(lines) == 0 && start == 1 {
			set.Snippets = append(set.Snippets, sn)
			continue
		}

		if start < 1 || end < start || end > len(lines) {
			spanErr := &SpanError{ID: e.ID, StartLine: start, EndLine: end, FileLines: len(lines)}
			sn.Skipped = true
			sn.SkipReason = spanErr.Error()
			set.Snippets = append(set.Snippets, sn)
			continue
		}

		if opts.IncludeDecorators {
			start = expandDecorators(lines, start)
		}
		if opts.PadLines > 0 {
			start -= opts.PadLines
			end += opts.PadLines
			if start < 1 {
				start = 1
			}
			if end > len(lines) {
				end = len(lines)
			}
		}

		sn.StartLine = start
		sn.EndLine = end
		sn.Text = strings.Join(lines[start-1:end], "\n")
		set.Snippets = append(set.Snippets, sn)
	}

	return set, nil
}

// expandDecorators moves start upward over contiguous decorator or annotation
// lines (@decorator, #[attr]) directly above the declaration.
func expandDecorators(lines []string, start int) int {
	for start > 1 {
		above := strings.TrimSpace(lines[start-2])
		if strings.HasPrefix(above, "@") || strings.HasPrefix(above, "#[") {
			start--
			continue
		}
		break
	}
	return start
}

// WriteFiles dumps each non-skipped snippet to dir, one file per snippet
// named from its sanitized ID.
func WriteFiles(set *Set, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snippet directory %s: %w", dir, err)
	}
	for _, sn := range set.Snippets {
		if sn.Skipped {
			continue
		}
		name := SanitizeID(sn.ID) + ".txt"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sn.Text), 0o644); err != nil {
			return fmt.Errorf("writing snippet %s: %w", sn.ID, err)
		}
	}
	return nil
}

// SanitizeID converts an entity ID into a filesystem-safe name.
func SanitizeID(id string) string {
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

// splitLines splits source into lines without treating a trailing newline as
// an extra empty line.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
