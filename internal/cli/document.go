package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docgraph/ingest/internal/graph"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect stored documents",
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List document ids",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [filename]",
	Short: "Show document metadata and references",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if store == nil {
		return errors.New("graph store not configured")
	}

	ids, err := store.ListDocumentIDs(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	for _, id := range ids {
		cmd.Println(id)
	}
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if store == nil {
		return errors.New("graph store not configured")
	}

	ctx := cmd.Context()
	doc, err := store.GetDocument(ctx, args[0])
	if errors.Is(err, graph.ErrNotFound) {
		return fmt.Errorf("document %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	refs, err := store.References(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to get references: %w", err)
	}

	cmd.Printf("Document:  %s\n", doc.ID)
	cmd.Printf("Summary:   %s\n", doc.Summary)
	cmd.Printf("Needs:     %s\n", joinOrNone(doc.SemanticNeeds))
	cmd.Printf("Explicit:  %s\n", joinOrNone(doc.ExplicitRefs))
	if !doc.UpdatedAt.IsZero() {
		cmd.Printf("Updated:   %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	targets := make([]string, 0, len(refs))
	for _, r := range refs {
		targets = append(targets, r.Target)
	}
	cmd.Printf("References: %s\n", joinOrNone(targets))
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
