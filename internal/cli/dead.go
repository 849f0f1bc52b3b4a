package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	deadQuiet   bool
	deadNoCache bool
	deadAll     bool
)

// deadCmd represents the dead command
var deadCmd = &cobra.Command{
	Use:   "dead",
	Short: "Report files unreachable from any entry point",
	Long: `Dead scans the project and reports every file that no entry point
reaches through resolved imports and that no exemption rule covers.

Detection is a heuristic: dynamically loaded modules, generated files, and
reflection-style references can be reported dead even though something
uses them. Review the list before deleting anything; removals are
snapshotted and undoable either way.

Examples:
  # Report dead files
  codesweep dead

  # Include the reachable and exempt classifications
  codesweep dead --all
`,
	RunE: runDead,
}

func init() {
	rootCmd.AddCommand(deadCmd)
	deadCmd.Flags().BoolVarP(&deadQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	deadCmd.Flags().BoolVar(&deadNoCache, "no-cache", false, "Bypass the scan cache")
	deadCmd.Flags().BoolVar(&deadAll, "all", false, "Show reachable and exempt files too")
}

func runDead(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptibleContext()
	defer cancel()

	a, err := newApp(deadNoCache)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scan(ctx, NewScanProgressReporter(deadQuiet))
	if err != nil {
		return err
	}
	report, err := a.analyzeGraph(result)
	if err != nil {
		return err
	}

	dead := report.DeadFiles()
	if len(dead) == 0 {
		fmt.Println("No dead files found.")
	} else {
		fmt.Printf("%d dead files:\n", len(dead))
		for _, f := range dead {
			fmt.Printf("  %s (%s)\n", f, report.Dead[f])
		}
	}

	if deadAll {
		printClassification("Exempt", report.Exempt)
		printClassification("Reachable", report.Reachable)
	}
	return nil
}

func printClassification(title string, classified map[string]string) {
	if len(classified) == 0 {
		return
	}
	paths := make([]string, 0, len(classified))
	for p := range classified {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fmt.Printf("%s (%d):\n", title, len(paths))
	for _, p := range paths {
		fmt.Printf("  %s (%s)\n", p, classified[p])
	}
}
