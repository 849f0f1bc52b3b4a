package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	scanQuiet   bool
	scanNoCache bool
	scanVerbose bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the project and build the import graph",
	Long: `Scan walks the configured roots, classifies every file by extension,
extracts its import statements, and resolves them against the project.
Results are cached per file; unchanged files are served from the cache on
the next scan.

Examples:
  # Scan with progress bars
  codesweep scan

  # Force a full re-extraction
  codesweep scan --no-cache

  # List every file and its imports
  codesweep scan --verbose
`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Bypass the scan cache")
	scanCmd.Flags().BoolVarP(&scanVerbose, "verbose", "v", false, "List every file with its imports")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptibleContext()
	defer cancel()

	a, err := newApp(scanNoCache)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scan(ctx, NewScanProgressReporter(scanQuiet))
	if err != nil {
		return err
	}

	if !scanQuiet {
		fmt.Printf("  Cache: %d hits, %d misses", result.CacheHits, result.CacheMisses)
		if result.Skipped > 0 {
			fmt.Printf(", %d skipped", result.Skipped)
		}
		fmt.Println()
	}

	if scanVerbose {
		for _, f := range result.Graph.Files() {
			node, _ := result.Graph.Node(f)
			fmt.Printf("%s (%s)\n", f, node.Language)
			for _, e := range node.Edges {
				fmt.Printf("  %d: %s -> %s [%s]\n", e.Line, e.Target, e.Resolved, e.Status)
			}
		}
	}

	referenced := 0
	for _, f := range result.Graph.Files() {
		if len(result.Graph.Referrers(f)) > 0 {
			referenced++
		}
	}
	if !scanQuiet {
		langCounts := make(map[string]int)
		for _, f := range result.Graph.Files() {
			node, _ := result.Graph.Node(f)
			langCounts[string(node.Language)]++
		}
		names := make([]string, 0, len(langCounts))
		for name := range langCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-12s %d files\n", name, langCounts[name])
		}
		fmt.Printf("  %d of %d files are imported by something\n", referenced, result.Graph.Len())
	}
	return nil
}
