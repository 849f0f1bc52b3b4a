package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotDescription string

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot [paths...]",
	Short: "Take a manual checkpoint of files",
	Long: `Snapshot captures the current content of the given files (or every
scanned file when none are given) as a manual checkpoint in the undo
history. 'codesweep undo' restores the checkpointed state.

Examples:
  # Checkpoint everything before a risky hand-edit
  codesweep snapshot -m "before refactor"

  # Checkpoint specific files
  codesweep snapshot src/app.js src/server.js
`,
	RunE: runSnapshot,
}

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the undo history, newest first",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(historyCmd)
	snapshotCmd.Flags().StringVarP(&snapshotDescription, "message", "m", "manual checkpoint", "Checkpoint description")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	paths := args
	if len(paths) == 0 {
		ctx, cancel := interruptibleContext()
		defer cancel()

		result, err := a.scan(ctx, NewScanProgressReporter(true))
		if err != nil {
			return err
		}
		paths = result.Graph.Files()
	}

	mgr, err := a.manager()
	if err != nil {
		return err
	}
	entry, err := mgr.Checkpoint(snapshotDescription, paths)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Checkpoint %s (%d files)\n", entry.ID, len(entry.Captures))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	mgr, err := a.manager()
	if err != nil {
		return err
	}

	history := mgr.History()
	if len(history) == 0 {
		fmt.Println("History is empty.")
		return nil
	}
	for _, s := range history {
		kind := "op"
		if s.Manual {
			kind = "checkpoint"
		}
		fmt.Printf("%s  %s  %-10s  %s (%d files)\n",
			s.CreatedAt.Format("2006-01-02 15:04:05"), s.ID[:8], kind, s.Description, s.FileCount)
	}
	return nil
}
