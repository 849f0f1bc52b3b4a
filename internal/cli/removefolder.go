package cli

import (
	"github.com/spf13/cobra"
)

var (
	removeFolderQuiet   bool
	removeFolderNoCache bool
	removeFolderDryRun  bool
	removeFolderYes     bool
	removeFolderMode    string
)

// removeFolderCmd represents the remove-folder command
var removeFolderCmd = &cobra.Command{
	Use:   "remove-folder <dir>",
	Short: "Delete a folder and fix every import pointing into it",
	Long: `Remove-folder deletes every scanned file under the given directory and
rewrites the import lines in every file outside it that pointed into the
subtree, either commenting them out or removing them.

The whole operation is one transaction: pre-images of every touched file
are captured first, and 'codesweep undo' reverts it completely.

Examples:
  # Preview without changing anything
  codesweep remove-folder src/legacy --dry-run

  # Delete and comment out dangling imports
  codesweep remove-folder src/legacy

  # Delete and strip the import lines instead
  codesweep remove-folder src/legacy --mode remove --yes
`,
	Args: cobra.ExactArgs(1),
	RunE: runRemoveFolder,
}

func init() {
	rootCmd.AddCommand(removeFolderCmd)
	removeFolderCmd.Flags().BoolVarP(&removeFolderQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	removeFolderCmd.Flags().BoolVar(&removeFolderNoCache, "no-cache", false, "Bypass the scan cache")
	removeFolderCmd.Flags().BoolVar(&removeFolderDryRun, "dry-run", false, "Show the plan without executing it")
	removeFolderCmd.Flags().BoolVarP(&removeFolderYes, "yes", "y", false, "Skip the confirmation prompt")
	removeFolderCmd.Flags().StringVar(&removeFolderMode, "mode", "", "Import rewrite mode: comment or remove (default from config)")
}

func runRemoveFolder(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptibleContext()
	defer cancel()

	a, err := newApp(removeFolderNoCache)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := a.rewriteMode(removeFolderMode)
	if err != nil {
		return err
	}

	result, err := a.scan(ctx, NewScanProgressReporter(removeFolderQuiet))
	if err != nil {
		return err
	}

	p, err := a.planner(result).RemoveFolder(args[0], mode)
	if err != nil {
		return err
	}
	return executePlan(a, p, removeFolderDryRun, removeFolderYes)
}
