package cli

import (
	"github.com/spf13/cobra"
)

var (
	rewriteQuiet   bool
	rewriteNoCache bool
	rewriteDryRun  bool
	rewriteYes     bool
	rewriteMode    string
)

// rewriteImportsCmd represents the rewrite-imports command
var rewriteImportsCmd = &cobra.Command{
	Use:   "rewrite-imports <dir>",
	Short: "Comment out or remove every import into a directory",
	Long: `Rewrite-imports edits the import lines in every file that imports
something under the given directory, without deleting the directory
itself. Useful for severing a dependency before extracting or retiring a
subtree.

Examples:
  # Comment out all imports into src/legacy
  codesweep rewrite-imports src/legacy

  # Strip the lines entirely
  codesweep rewrite-imports src/legacy --mode remove
`,
	Args: cobra.ExactArgs(1),
	RunE: runRewriteImports,
}

func init() {
	rootCmd.AddCommand(rewriteImportsCmd)
	rewriteImportsCmd.Flags().BoolVarP(&rewriteQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	rewriteImportsCmd.Flags().BoolVar(&rewriteNoCache, "no-cache", false, "Bypass the scan cache")
	rewriteImportsCmd.Flags().BoolVar(&rewriteDryRun, "dry-run", false, "Show the plan without executing it")
	rewriteImportsCmd.Flags().BoolVarP(&rewriteYes, "yes", "y", false, "Skip the confirmation prompt")
	rewriteImportsCmd.Flags().StringVar(&rewriteMode, "mode", "", "Import rewrite mode: comment or remove (default from config)")
}

func runRewriteImports(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptibleContext()
	defer cancel()

	a, err := newApp(rewriteNoCache)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := a.rewriteMode(rewriteMode)
	if err != nil {
		return err
	}

	result, err := a.scan(ctx, NewScanProgressReporter(rewriteQuiet))
	if err != nil {
		return err
	}

	p, err := a.planner(result).RewriteImports(args[0], mode)
	if err != nil {
		return err
	}
	return executePlan(a, p, rewriteDryRun, rewriteYes)
}
