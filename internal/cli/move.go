package cli

import (
	"github.com/spf13/cobra"
)

var (
	moveQuiet   bool
	moveNoCache bool
	moveDryRun  bool
	moveYes     bool
)

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:   "move <old-path> <new-path>",
	Short: "Move a file and rewrite every import of it",
	Long: `Move renames a scanned file and rewrites the import text in every file
that referenced it, plus the moved file's own relative imports, so
everything keeps resolving from the new location.

Imports that cannot be rewritten unambiguously (dynamic paths, repeated
path strings on one line) are flagged for manual review and left alone.

Examples:
  # Preview the rewrites
  codesweep move src/util/dates.js src/lib/dates.js --dry-run

  # Move it
  codesweep move src/util/dates.js src/lib/dates.js
`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
	moveCmd.Flags().BoolVarP(&moveQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	moveCmd.Flags().BoolVar(&moveNoCache, "no-cache", false, "Bypass the scan cache")
	moveCmd.Flags().BoolVar(&moveDryRun, "dry-run", false, "Show the plan without executing it")
	moveCmd.Flags().BoolVarP(&moveYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptibleContext()
	defer cancel()

	a, err := newApp(moveNoCache)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scan(ctx, NewScanProgressReporter(moveQuiet))
	if err != nil {
		return err
	}

	p, err := a.planner(result).MoveFile(args[0], args[1])
	if err != nil {
		return err
	}
	return executePlan(a, p, moveDryRun, moveYes)
}
