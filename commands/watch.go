package commands

import (
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *options) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the report whenever an event file changes",
		Long: `Prints the report once, then watches the input for created or modified
.jsonl files and prints a fresh report after changes settle.

Changes are debounced (ALLOC_WATCH_DEBOUNCE, default 500ms). Stop with Ctrl+C.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), true)
		},
	}
	watchCmd.Flags().DurationVar(&opts.config.WatchDebounce, "debounce", opts.config.WatchDebounce,
		"Quiet period before a change triggers a new report")
	return watchCmd
}
