package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create graph constraints and the vector index",
	Long: `Creates the uniqueness constraints on documents and chunks and the
vector index over chunk embeddings. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	if store == nil {
		return errors.New("graph store not configured")
	}

	if err := store.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("schema setup failed: %w", err)
	}

	cmd.Println("Schema ready.")
	return nil
}
