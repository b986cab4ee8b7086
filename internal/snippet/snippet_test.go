package snippet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docweaver/docweaver/internal/graph"
)

const source = `import os

@app.route("/")
def index():
    return "ok"

def broken():
    pass
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(source), 0o644))
	return dir
}

func snippetByID(t *testing.T, set *Set, id string) Snippet {
	t.Helper()
	i, ok := set.ByID()[id]
	require.True(t, ok, "snippet %q not found", id)
	return set.Snippets[i]
}

func TestExtract(t *testing.T) {
	dir := writeProject(t)
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "app.py", Kind: "module", Name: "app.py", File: "app.py", StartLine: 1, EndLine: 8},
		{ID: "app.py:index", Kind: "function", Name: "index", File: "app.py", StartLine: 4, EndLine: 5, Parent: "app.py"},
	}}

	set, err := Extract(dir, g, Options{})
	require.NoError(t, err)
	require.Len(t, set.Snippets, 2)

	index := snippetByID(t, set, "app.py:index")
	assert.Equal(t, "def index():\n    return \"ok\"", index.Text)
	assert.False(t, index.Skipped)
	assert.Equal(t, 1, index.Index)

	mod := snippetByID(t, set, "app.py")
	assert.Equal(t, 0, mod.Index)
	assert.Contains(t, mod.Text, "import os")
}

func TestExtractSpanOutOfRange(t *testing.T) {
	dir := writeProject(t)
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "app.py:stale", Kind: "function", Name: "stale", File: "app.py", StartLine: 50, EndLine: 60},
		{ID: "app.py:index", Kind: "function", Name: "index", File: "app.py", StartLine: 4, EndLine: 5},
	}}

	set, err := Extract(dir, g, Options{})
	require.NoError(t, err)

	stale := snippetByID(t, set, "app.py:stale")
	assert.True(t, stale.Skipped)
	assert.Contains(t, stale.SkipReason, "out of range")
	assert.Empty(t, stale.Text)

	// A bad span never affects other entities.
	index := snippetByID(t, set, "app.py:index")
	assert.False(t, index.Skipped)
}

func TestExtractEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.py"), nil, 0o644))
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "empty.py", Kind: "module", Name: "empty.py", File: "empty.py", StartLine: 1, EndLine: 1},
	}}

	set, err := Extract(dir, g, Options{})
	require.NoError(t, err)

	mod := snippetByID(t, set, "empty.py")
	assert.False(t, mod.Skipped)
	assert.Empty(t, mod.Text)
}

func TestExtractMissingFile(t *testing.T) {
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "gone.py", Kind: "module", Name: "gone.py", File: "gone.py", StartLine: 1, EndLine: 1},
	}}

	set, err := Extract(t.TempDir(), g, Options{})
	require.NoError(t, err)

	gone := snippetByID(t, set, "gone.py")
	assert.True(t, gone.Skipped)
	assert.Contains(t, gone.SkipReason, "reading gone.py")
}

func TestExtractIncludeDecorators(t *testing.T) {
	dir := writeProject(t)
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "app.py:index", Kind: "function", Name: "index", File: "app.py", StartLine: 4, EndLine: 5},
	}}

	set, err := Extract(dir, g, Options{IncludeDecorators: true})
	require.NoError(t, err)

	index := snippetByID(t, set, "app.py:index")
	assert.Equal(t, 3, index.StartLine)
	assert.Contains(t, index.Text, "@app.route")
}

func TestExtractPadLines(t *testing.T) {
	dir := writeProject(t)
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "app.py:index", Kind: "function", Name: "index", File: "app.py", StartLine: 4, EndLine: 5},
	}}

	set, err := Extract(dir, g, Options{PadLines: 2})
	require.NoError(t, err)

	index := snippetByID(t, set, "app.py:index")
	assert.Equal(t, 2, index.StartLine)
	assert.Equal(t, 7, index.EndLine)
}

func TestExtractPadClampsToFileBounds(t *testing.T) {
	dir := writeProject(t)
	g := &graph.Graph{Entities: []graph.Entity{
		{ID: "app.py:broken", Kind: "function", Name: "broken", File: "app.py", StartLine: 7, EndLine: 8},
	}}

	set, err := Extract(dir, g, Options{PadLines: 100})
	require.NoError(t, err)

	broken := snippetByID(t, set, "app.py:broken")
	assert.Equal(t, 1, broken.StartLine)
	assert.Equal(t, 8, broken.EndLine)
}

func TestWriteFiles(t *testing.T) {
	set := &Set{Snippets: []Snippet{
		{ID: "app.py:index", Text: "def index(): pass"},
		{ID: "app.py:stale", Skipped: true},
	}}

	out := t.TempDir()
	require.NoError(t, WriteFiles(set, out))

	data, err := os.ReadFile(filepath.Join(out, "app.py_index.txt"))
	require.NoError(t, err)
	assert.Equal(t, "def index(): pass", string(data))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "app.py_Greeter.greet", SanitizeID("app.py:Greeter.greet"))
	assert.Equal(t, "lib_util.py", SanitizeID("lib/util.py"))
}
