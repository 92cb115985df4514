package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docgraph/ingest/internal/documents"
)

var ingestNoLink bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest PDF files into the graph",
	Long: `Extracts, summarises, chunks and embeds each PDF, then runs the targeted
linking pass for it. Re-ingesting a file replaces its chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestNoLink, "no-link", false, "skip the linking pass")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingester == nil {
		return errors.New("ingestion service not configured")
	}
	if !ingestNoLink && linker == nil {
		return errors.New("linking service not configured")
	}

	ctx := cmd.Context()
	for _, path := range args {
		res, err := ingester.Ingest(ctx, documents.IngestRequest{Path: path, Filename: filepath.Base(path)})
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		cmd.Printf("Ingested %s: %d blocks, %d chunks\n", res.Filename, res.Blocks, res.Chunks)
		cmd.Printf("  Summary: %s\n", res.Metadata.Summary)

		if ingestNoLink {
			continue
		}
		links, err := linker.Link(ctx, res.Filename)
		if err != nil {
			return fmt.Errorf("linking failed: %w", err)
		}
		cmd.Printf("  References: %d\n", links)
	}

	return nil
}
