package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codesweep/internal/snapshot"
)

// undoCmd represents the undo command
var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the most recent operation",
	Long: `Undo restores every file captured by the most recent operation to its
exact pre-operation state: edited files get their old content back,
deleted files are recreated, created files are removed.

History is bounded (undo_depth in the config, default 12); each undo
consumes one entry.`,
	RunE: runUndo,
}

func init() {
	rootCmd.AddCommand(undoCmd)
}

func runUndo(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	mgr, err := a.manager()
	if err != nil {
		return err
	}

	entry, err := mgr.Undo()
	if errors.Is(err, snapshot.ErrNothingToUndo) {
		fmt.Println("Nothing to undo.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ Undid %q (%d files restored)\n", entry.Description, len(entry.Captures))
	return nil
}
