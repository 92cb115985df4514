package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link [filename]",
	Short: "Link one document to the documents it references",
	Long: `Runs the targeted pass for one document. Edges go from the document to
every document matching its needs or explicit references; edges into it are
left to the referring documents or to relink.`,
	Args: cobra.ExactArgs(1),
	RunE: runLink,
}

var relinkCmd = &cobra.Command{
	Use:   "relink",
	Short: "Run the linking pass for every document",
	Long: `Runs the targeted pass for every stored document. This repairs edges into
documents that were ingested after the documents referring to them.`,
	Args: cobra.NoArgs,
	RunE: runRelink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(relinkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	if linker == nil {
		return errors.New("linking service not configured")
	}

	links, err := linker.Link(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("linking failed: %w", err)
	}

	cmd.Printf("Linked %s: %d references.\n", args[0], links)
	return nil
}

func runRelink(cmd *cobra.Command, _ []string) error {
	if linker == nil {
		return errors.New("linking service not configured")
	}

	cmd.Println("Relinking all documents...")
	links, err := linker.RelinkAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("relink failed: %w", err)
	}

	cmd.Printf("Relink complete: %d references.\n", links)
	return nil
}
