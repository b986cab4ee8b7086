package assembler

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"gopkg.in/yaml.v3"
)

// RendererConfig controls how the renderer writes output files.
type RendererConfig struct {
	Format      string // "raw-md", "hugo", or "docusaurus"
	OutputDir   string // root output directory
	Title       string // site title for generated configs
	Concurrency int    // parallel file writes, 0 for a default
}

// DefaultRendererConfig returns a RendererConfig with sensible defaults.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		Format:      "raw-md",
		OutputDir:   "docs",
		Title:       "Code Documentation",
		Concurrency: 8,
	}
}

// Render writes the given documents to disk in the configured format.
func Render(documents []Document, cfg RendererConfig) error {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Title == "" {
		cfg.Title = "Code Documentation"
	}

	switch cfg.Format {
	case "raw-md":
		return renderRawMarkdown(documents, cfg)
	case "hugo":
		return renderHugo(documents, cfg)
	case "docusaurus":
		return renderDocusaurus(documents, cfg)
	default:
		return fmt.Errorf("unsupported render format: %s", cfg.Format)
	}
}

// renderRawMarkdown writes each document as-is under OutputDir.
func renderRawMarkdown(documents []Document, cfg RendererConfig) error {
	return writeAll(documents, cfg.Concurrency, func(doc Document, _ int) (string, string, error) {
		return filepath.Join(cfg.OutputDir, doc.Path), doc.Content, nil
	})
}

// renderHugo writes documents with YAML front matter under OutputDir/content/
// and generates a config.toml at OutputDir/config.toml.
func renderHugo(documents []Document, cfg RendererConfig) error {
	err := writeAll(documents, cfg.Concurrency, func(doc Document, i int) (string, string, error) {
		fm, err := frontMatter(map[string]any{
			"title":  doc.Title,
			"weight": i + 1,
		})
		if err != nil {
			return "", "", err
		}
		return filepath.Join(cfg.OutputDir, "content", doc.Path), fm + doc.Content, nil
	})
	if err != nil {
		return err
	}

	configContent := fmt.Sprintf(`baseURL = "/"
languageCode = "en-us"
title = %q
theme = "hugo-book"
`, cfg.Title)
	return writeDoc(filepath.Join(cfg.OutputDir, "config.toml"), configContent)
}

// renderDocusaurus writes documents with YAML front matter under
// OutputDir/docs/ and generates a docusaurus.config.js.
func renderDocusaurus(documents []Document, cfg RendererConfig) error {
	err := writeAll(documents, cfg.Concurrency, func(doc Document, i int) (string, string, error) {
		fm, err := frontMatter(map[string]any{
			"sidebar_position": i + 1,
			"sidebar_label":    doc.Title,
		})
		if err != nil {
			return "", "", err
		}
		return filepath.Join(cfg.OutputDir, "docs", doc.Path), fm + doc.Content, nil
	})
	if err != nil {
		return err
	}

	configContent := fmt.Sprintf(`// @ts-check

/** @type {import('@docusaurus/types').Config} */
const config = {
  title: %q,
  url: 'https://your-project-url.example.com',
  baseUrl: '/',
  presets: [
    [
      'classic',
      /** @type {import('@docusaurus/preset-classic').Options} */
      ({
        docs: {
          routeBasePath: '/',
        },
      }),
    ],
  ],
};

module.exports = config;
`, cfg.Title)
	return writeDoc(filepath.Join(cfg.OutputDir, "docusaurus.config.js"), configContent)
}

// writeAll writes every document concurrently, collecting the first error.
func writeAll(documents []Document, concurrency int, build func(Document, int) (string, string, error)) error {
	p := pool.New().WithMaxGoroutines(concurrency)
	var mu sync.Mutex
	var firstErr error

	for i, doc := range documents {
		i, doc := i, doc
		p.Go(func() {
			path, content, err := build(doc, i)
			if err == nil {
				err = writeDoc(path, content)
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
	}
	p.Wait()

	return firstErr
}

// frontMatter marshals fields into a YAML front matter block.
func frontMatter(fields map[string]any) (string, error) {
	data, err := yaml.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshalling front matter: %w", err)
	}
	return "---\n" + string(data) + "---\n\n", nil
}

// writeDoc creates parent directories and writes content to the given path.
func writeDoc(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
