// cmd/docweaver/preview.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/docweaver/docweaver/internal/artifact"
)

func previewCmd() *cobra.Command {
	var (
		artifactsFlag string
		widthFlag     int
	)

	cmd := &cobra.Command{
		Use:   "preview [page]",
		Short: "Render a generated document page in the terminal",
		Long: `Render a page from the assembled document as styled terminal output.
Without an argument, the index page is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			page := "_index.md"
			if len(args) > 0 {
				page = args[0]
			}

			path := filepath.Join(artifactsFlag, artifact.DocumentDir, page)
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(widthFlag),
			)
			if err != nil {
				return fmt.Errorf("creating renderer: %w", err)
			}

			out, err := r.Render(string(data))
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&artifactsFlag, "artifacts", ".docweaver", "artifact directory")
	cmd.Flags().IntVar(&widthFlag, "width", 100, "word wrap width")

	return cmd
}
