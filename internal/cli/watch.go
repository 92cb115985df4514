package cli

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docgraph/ingest/internal/worker"
)

var watchDebounce = worker.DefaultDebounce

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest PDFs as they appear in a directory",
	Long: `Watches a directory and runs the ingest and link steps for every PDF that
is created or rewritten. Removing a PDF deletes its document. Stops on
interrupt.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", worker.DefaultDebounce, "quiet period before a changed file is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if triggers == nil {
		return errors.New("event handler not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.NewWatcher(args[0], triggers, watchDebounce, logger)
	w.OnResult = func(s worker.Status) {
		switch s.Status {
		case worker.StatusError:
			cmd.Printf("%s: error: %s\n", s.Filename, s.Message)
		case worker.StatusSkipped:
			cmd.Printf("%s: deleted\n", s.Filename)
		default:
			cmd.Printf("%s: %d chunks, %d references\n", s.Filename, s.Chunks, s.Links)
		}
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(ctx)
}
