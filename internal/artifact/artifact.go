// Package artifact handles the persisted stage files that connect pipeline
// stages and make runs resumable. Each JSON artifact carries a header with a
// schema version, run ID, and stage name; loading validates the header before
// handing the payload to the stage.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// SchemaVersion is the current artifact schema version. Artifacts written by
// an incompatible major version are rejected on load.
const SchemaVersion = "1.0.0"

// Stage file names, numbered by pipeline position.
const (
	FactsFile    = "01_facts.json"
	GraphFile    = "02_graph.json"
	SnippetsFile = "03_snippets.json"
	OrderFile    = "04_order.json"
	ResultsFile  = "05_results.db"
	DocumentDir  = "06_document"
)

// Header identifies an artifact file. It is embedded in every JSON artifact.
type Header struct {
	SchemaVersion string    `json:"schemaVersion"`
	RunID         string    `json:"runId"`
	Stage         string    `json:"stage"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CorruptError reports an artifact that exists but cannot be used: it failed
// to decode, carries an incompatible schema version, or belongs to a
// different stage. A corrupt artifact forces a re-run of its stage.
type CorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact %s is corrupt: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("artifact %s is corrupt: %s", e.Path, e.Reason)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err indicates a corrupt artifact.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// NewHeader builds a header for the given run and stage.
func NewHeader(runID, stage string) Header {
	return Header{
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		Stage:         stage,
		CreatedAt:     time.Now().UTC(),
	}
}

// envelope is the on-disk shape of a JSON artifact.
type envelope struct {
	Header
	Payload json.RawMessage `json:"payload"`
}

// Save writes payload as a JSON artifact at dir/name with a header for the
// given run and stage. The file is written atomically via a temp file so a
// crash mid-write never leaves a half-written artifact behind.
func Save(dir, name, runID, stage string, payload any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", stage, err)
	}

	env := envelope{
		Header:  NewHeader(runID, stage),
		Payload: raw,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s artifact: %w", stage, err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// Load reads the artifact at dir/name, validates its header against the
// expected stage, and decodes the payload into out. A missing file is
// reported with os.ErrNotExist; any other failure is a *CorruptError.
func Load(dir, name, stage string, out any) (Header, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Header{}, fmt.Errorf("artifact %s: %w", path, os.ErrNotExist)
		}
		return Header{}, &CorruptError{Path: path, Reason: "unreadable", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Header{}, &CorruptError{Path: path, Reason: "invalid JSON", Err: err}
	}

	if err := checkCompatible(env.SchemaVersion); err != nil {
		return Header{}, &CorruptError{Path: path, Reason: "schema version", Err: err}
	}
	if env.Stage != stage {
		return Header{}, &CorruptError{
			Path:   path,
			Reason: fmt.Sprintf("stage mismatch: have %q, want %q", env.Stage, stage),
		}
	}
	if len(env.Payload) == 0 {
		return Header{}, &CorruptError{Path: path, Reason: "empty payload"}
	}

	if err := json.Unmarshal(env.Payload, out); err != nil {
		return Header{}, &CorruptError{Path: path, Reason: "invalid payload", Err: err}
	}

	return env.Header, nil
}

// Exists reports whether the artifact file dir/name is present.
func Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// checkCompatible verifies that a stored schema version can be read by this
// build: same major version, not newer than the current version.
func checkCompatible(stored string) error {
	have, err := semver.NewVersion(stored)
	if err != nil {
		return fmt.Errorf("parsing schema version %q: %w", stored, err)
	}
	current := semver.MustParse(SchemaVersion)

	if have.Major() != current.Major() {
		return fmt.Errorf("schema version %s is incompatible with %s", stored, SchemaVersion)
	}
	if have.GreaterThan(current) {
		return fmt.Errorf("schema version %s is newer than supported %s", stored, SchemaVersion)
	}
	return nil
}
