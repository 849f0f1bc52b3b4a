package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	brokenQuiet   bool
	brokenNoCache bool
)

// brokenCmd represents the broken command
var brokenCmd = &cobra.Command{
	Use:   "broken",
	Short: "Report imports that resolve to nothing in the project",
	Long: `Broken scans the project and lists every import that looks like a local
reference but matches no file on disk: relative paths to deleted files,
dotted module paths with no corresponding module, quoted includes that
are gone.

Imports of external packages (npm modules, pip packages, platform
classes) are not reported.`,
	RunE: runBroken,
}

func init() {
	rootCmd.AddCommand(brokenCmd)
	brokenCmd.Flags().BoolVarP(&brokenQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	brokenCmd.Flags().BoolVar(&brokenNoCache, "no-cache", false, "Bypass the scan cache")
}

func runBroken(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptibleContext()
	defer cancel()

	a, err := newApp(brokenNoCache)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scan(ctx, NewScanProgressReporter(brokenQuiet))
	if err != nil {
		return err
	}

	broken := result.Graph.Broken()
	if len(broken) == 0 {
		fmt.Println("No broken imports found.")
		return nil
	}

	fmt.Printf("%d broken imports:\n", len(broken))
	for _, b := range broken {
		fmt.Printf("  %s:%d  %s\n", b.File, b.Line, b.Target)
	}
	return nil
}
