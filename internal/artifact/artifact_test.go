package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Names []string `json:"names"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	runID := NewRunID()

	in := payload{Names: []string{"a", "b"}}
	require.NoError(t, Save(dir, FactsFile, runID, "analyze", in))

	var out payload
	hdr, err := Load(dir, FactsFile, "analyze", &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, runID, hdr.RunID)
	assert.Equal(t, "analyze", hdr.Stage)
	assert.Equal(t, SchemaVersion, hdr.SchemaVersion)
	assert.False(t, hdr.CreatedAt.IsZero())
}

func TestLoadMissingFile(t *testing.T) {
	var out payload
	_, err := Load(t.TempDir(), FactsFile, "analyze", &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, IsCorrupt(err))
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FactsFile), []byte("{not json"), 0o644))

	var out payload
	_, err := Load(dir, FactsFile, "analyze", &out)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
}

func TestLoadStageMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, FactsFile, NewRunID(), "analyze", payload{}))

	var out payload
	_, err := Load(dir, FactsFile, "order", &out)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
	assert.Contains(t, err.Error(), "stage mismatch")
}

func TestLoadIncompatibleSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	content := `{"schemaVersion":"2.0.0","runId":"r","stage":"analyze","createdAt":"2026-01-01T00:00:00Z","payload":{}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FactsFile), []byte(content), 0o644))

	var out payload
	_, err := Load(dir, FactsFile, "analyze", &out)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, OrderFile, NewRunID(), "order", payload{Names: []string{"old"}}))
	require.NoError(t, Save(dir, OrderFile, NewRunID(), "order", payload{Names: []string{"new"}}))

	var out payload
	_, err := Load(dir, OrderFile, "order", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, out.Names)

	// No temp file left behind.
	_, err = os.Stat(filepath.Join(dir, OrderFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir, GraphFile))
	require.NoError(t, Save(dir, GraphFile, NewRunID(), "graph", payload{}))
	assert.True(t, Exists(dir, GraphFile))
}

func TestCheckCompatible(t *testing.T) {
	assert.NoError(t, checkCompatible(SchemaVersion))
	assert.NoError(t, checkCompatible("1.0.0"))
	assert.Error(t, checkCompatible("2.0.0"))
	assert.Error(t, checkCompatible("99.1.0"))
	assert.Error(t, checkCompatible("not-a-version"))
}
