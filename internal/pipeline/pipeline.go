// Package pipeline wires the stages together: analyze -> graph -> snippets ->
// order -> generate -> assemble. Each stage is a pure function from one
// persisted artifact to the next; with resume enabled, stages whose artifact
// already exists and validates are skipped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/docweaver/docweaver/internal/analyzer"
	"github.com/docweaver/docweaver/internal/artifact"
	"github.com/docweaver/docweaver/internal/assembler"
	"github.com/docweaver/docweaver/internal/generate"
	"github.com/docweaver/docweaver/internal/graph"
	"github.com/docweaver/docweaver/internal/order"
	"github.com/docweaver/docweaver/internal/parser"
	"github.com/docweaver/docweaver/internal/provider"
	"github.com/docweaver/docweaver/internal/snippet"
)

// Config holds all pipeline configuration.
type Config struct {
	Project      string
	ArtifactsDir string
	OutputDir    string // defaults to ArtifactsDir/06_document
	Resume       bool

	PadLines          int
	IncludeDecorators bool
	EmitSnippets      bool

	Model     string
	MaxTokens int
	Generate  generate.Options

	Format       string // raw-md, hugo, docusaurus
	ReverseOrder bool
	Title        string
}

// Run executes the full documentation pipeline against cfg.Project.
func Run(ctx context.Context, cfg Config, llm provider.LLMProvider, p *parser.Parser) error {
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = ".docweaver"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.ArtifactsDir, artifact.DocumentDir)
	}

	runID := artifact.NewRunID()

	// Stage 1: Analyze
	facts := &analyzer.Facts{}
	err := stage(cfg, "analyze", artifact.FactsFile, runID, facts, func() (*analyzer.Facts, error) {
		fmt.Fprintf(os.Stderr, "docweaver: analyzing %s...\n", cfg.Project)
		return analyzer.Analyze(ctx, cfg.Project, p)
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	// Stage 2: Build entity graph
	g := &graph.Graph{}
	err = stage(cfg, "graph", artifact.GraphFile, runID, g, func() (*graph.Graph, error) {
		fmt.Fprintf(os.Stderr, "docweaver: building entity graph from %d files...\n", len(facts.Files))
		return graph.Build(facts)
	})
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}

	// Stage 3: Extract snippets
	set := &snippet.Set{}
	err = stage(cfg, "snippets", artifact.SnippetsFile, runID, set, func() (*snippet.Set, error) {
		fmt.Fprintf(os.Stderr, "docweaver: extracting %d snippets...\n", len(g.Entities))
		return snippet.Extract(cfg.Project, g, snippet.Options{
			PadLines:          cfg.PadLines,
			IncludeDecorators: cfg.IncludeDecorators,
		})
	})
	if err != nil {
		return fmt.Errorf("snippets: %w", err)
	}

	if cfg.EmitSnippets {
		if err := snippet.WriteFiles(set, filepath.Join(cfg.ArtifactsDir, "snippets")); err != nil {
			return fmt.Errorf("snippets: %w", err)
		}
	}

	// Stage 4: Compute processing order
	ord := &order.Order{}
	err = stage(cfg, "order", artifact.OrderFile, runID, ord, func() (*order.Order, error) {
		fmt.Fprintf(os.Stderr, "docweaver: ordering snippets...\n")
		return order.Compute(g), nil
	})
	if err != nil {
		return fmt.Errorf("order: %w", err)
	}
	if len(ord.Broken) > 0 {
		log.Printf("WARNING: broke %d dependency cycle edge(s)", len(ord.Broken))
	}

	// Stage 5: Generate documentation
	dbPath := filepath.Join(cfg.ArtifactsDir, artifact.ResultsFile)
	if !cfg.Resume {
		// A fresh run starts from an empty checkpoint.
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("generate: clearing checkpoint: %w", err)
		}
	}

	store, err := generate.OpenResultStore(dbPath, runID)
	if err != nil {
		if artifact.IsCorrupt(err) {
			log.Printf("WARNING: %v; starting a fresh checkpoint", err)
			if rmErr := os.Remove(dbPath); rmErr != nil {
				return fmt.Errorf("generate: %w", rmErr)
			}
			store, err = generate.OpenResultStore(dbPath, runID)
		}
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
	}
	defer store.Close()

	refs := make(map[string][]string, len(g.Entities))
	for _, e := range g.Entities {
		if len(e.Refs) > 0 {
			refs[e.ID] = e.Refs
		}
	}
	gen := generate.NewSynthesizer(llm, cfg.Model, cfg.MaxTokens, refs)

	fmt.Fprintf(os.Stderr, "docweaver: generating documentation for %d snippets...\n", len(ord.IDs))
	summary, err := generate.Run(ctx, ord, set, gen, store, cfg.Generate)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	// Stage 6: Assemble and render
	results, err := store.All()
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	fmt.Fprintf(os.Stderr, "docweaver: assembling document...\n")
	tree := assembler.Build(g, ord, results, cfg.ReverseOrder)
	documents := assembler.Documents(tree, cfg.Title)

	fmt.Fprintf(os.Stderr, "docweaver: rendering %d documents to %s...\n", len(documents), cfg.OutputDir)
	err = assembler.Render(documents, assembler.RendererConfig{
		Format:    cfg.Format,
		OutputDir: cfg.OutputDir,
		Title:     cfg.Title,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	fmt.Fprintf(os.Stderr, "docweaver: done: %s.\n", summary)
	return nil
}

// stage loads a persisted artifact when resuming, or runs the stage and
// persists its output. A corrupt artifact is logged and the stage re-runs.
func stage[T any](cfg Config, name, file, runID string, out *T, run func() (*T, error)) error {
	if cfg.Resume && artifact.Exists(cfg.ArtifactsDir, file) {
		_, err := artifact.Load(cfg.ArtifactsDir, file, name, out)
		if err == nil {
			fmt.Fprintf(os.Stderr, "docweaver: reusing %s...\n", file)
			return nil
		}
		if !artifact.IsCorrupt(err) && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if artifact.IsCorrupt(err) {
			log.Printf("WARNING: %v; re-running stage %s", err, name)
		}
	}

	result, err := run()
	if err != nil {
		return err
	}
	*out = *result

	return artifact.Save(cfg.ArtifactsDir, file, runID, name, result)
}
