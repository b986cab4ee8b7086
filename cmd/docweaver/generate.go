// cmd/docweaver/generate.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docweaver/docweaver/internal/generate"
	"github.com/docweaver/docweaver/internal/parser"
	"github.com/docweaver/docweaver/internal/pipeline"
	"github.com/docweaver/docweaver/internal/provider"
)

func generateCmd() *cobra.Command {
	var (
		artifactsFlag   string
		outputFlag      string
		formatFlag      string
		resumeFlag      bool
		reverseFlag     bool
		concurrencyFlag int
		attemptsFlag    int
		rpsFlag         float64
		batchFlag       int
		padFlag         int
		decoratorsFlag  bool
		emitFlag        bool
		onlyIDsFlag     string
		titleFlag       string
	)

	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Generate documentation for a codebase",
		Long: `Analyze a codebase, order its entities so dependencies come first,
generate documentation for each one, and assemble the results into a
hierarchical document. Progress is checkpointed; an interrupted run can be
resumed with --resume.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			llm, err := provider.NewProvider(cfg)
			if err != nil {
				return fmt.Errorf("creating provider: %w", err)
			}

			pcfg := pipeline.Config{
				Project:           dir,
				ArtifactsDir:      cfg.Pipeline.ArtifactsDir,
				OutputDir:         outputFlag,
				Resume:            cfg.Pipeline.Resume,
				PadLines:          cfg.Pipeline.PadLines,
				IncludeDecorators: cfg.Pipeline.IncludeDecorators,
				EmitSnippets:      cfg.Pipeline.EmitSnippets,
				Model:             cfg.Provider.Model,
				MaxTokens:         cfg.Generate.MaxTokens,
				Generate: generate.Options{
					Concurrency:       cfg.Generate.Concurrency,
					MaxAttempts:       cfg.Generate.MaxAttempts,
					BackoffBase:       cfg.Generate.BackoffBase.Duration,
					BackoffCeiling:    cfg.Generate.BackoffCeiling.Duration,
					RequestsPerSecond: cfg.Generate.RequestsPerSecond,
					BatchSize:         cfg.Generate.BatchSize,
					OnlyIDs:           cfg.Pipeline.OnlyIDs,
				},
				Format:       cfg.Render.Format,
				ReverseOrder: cfg.Render.ReverseOrder,
				Title:        cfg.Render.Title,
			}

			// Flag overrides.
			if artifactsFlag != "" {
				pcfg.ArtifactsDir = artifactsFlag
			}
			if cmd.Flags().Changed("resume") {
				pcfg.Resume = resumeFlag
			}
			if cmd.Flags().Changed("reverse") {
				pcfg.ReverseOrder = reverseFlag
			}
			if cmd.Flags().Changed("format") {
				pcfg.Format = formatFlag
			}
			if cmd.Flags().Changed("concurrency") {
				pcfg.Generate.Concurrency = concurrencyFlag
			}
			if cmd.Flags().Changed("max-attempts") {
				pcfg.Generate.MaxAttempts = attemptsFlag
			}
			if cmd.Flags().Changed("rps") {
				pcfg.Generate.RequestsPerSecond = rpsFlag
			}
			if cmd.Flags().Changed("batch-size") {
				pcfg.Generate.BatchSize = batchFlag
			}
			if cmd.Flags().Changed("pad-lines") {
				pcfg.PadLines = padFlag
			}
			if cmd.Flags().Changed("include-decorators") {
				pcfg.IncludeDecorators = decoratorsFlag
			}
			if cmd.Flags().Changed("emit-snippets") {
				pcfg.EmitSnippets = emitFlag
			}
			if onlyIDsFlag != "" {
				ids, err := parseOnlyIDs(onlyIDsFlag)
				if err != nil {
					return err
				}
				pcfg.Generate.OnlyIDs = ids
			}
			if titleFlag != "" {
				pcfg.Title = titleFlag
			}

			// Interrupt stops dispatching new synthesis calls; in-flight
			// calls finish and persist before teardown.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return pipeline.Run(ctx, pcfg, llm, parser.NewParser())
		},
	}

	cmd.Flags().StringVar(&artifactsFlag, "artifacts", "", "artifact directory (default .docweaver)")
	cmd.Flags().StringVar(&outputFlag, "output", "", "output directory (default <artifacts>/06_document)")
	cmd.Flags().StringVar(&formatFlag, "format", "raw-md", "output format: raw-md, hugo, docusaurus")
	cmd.Flags().BoolVar(&resumeFlag, "resume", false, "reuse valid stage artifacts and checkpointed results")
	cmd.Flags().BoolVar(&reverseFlag, "reverse", false, "list high-level entities first in the document")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", 4, "max parallel LLM calls")
	cmd.Flags().IntVar(&attemptsFlag, "max-attempts", 3, "max synthesis attempts per snippet")
	cmd.Flags().Float64Var(&rpsFlag, "rps", 2, "max synthesis requests per second")
	cmd.Flags().IntVar(&batchFlag, "batch-size", 8, "snippets dispatched per batch")
	cmd.Flags().IntVar(&padFlag, "pad-lines", 0, "context lines added around each snippet")
	cmd.Flags().BoolVar(&decoratorsFlag, "include-decorators", false, "expand snippets over decorator lines")
	cmd.Flags().BoolVar(&emitFlag, "emit-snippets", false, "write extracted snippets to files")
	cmd.Flags().StringVar(&onlyIDsFlag, "only-ids", "", "comma-separated entity IDs, or @file with one ID per line")
	cmd.Flags().StringVar(&titleFlag, "title", "", "document title")

	return cmd
}

// parseOnlyIDs parses a comma-separated ID list, or reads IDs one per line
// from a file when the value starts with '@'.
func parseOnlyIDs(value string) ([]string, error) {
	var raw []string
	if name, ok := strings.CutPrefix(value, "@"); ok {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading only-ids file: %w", err)
		}
		raw = strings.Split(string(data), "\n")
	} else {
		raw = strings.Split(value, ",")
	}

	var ids []string
	for _, id := range raw {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids, nil
}
