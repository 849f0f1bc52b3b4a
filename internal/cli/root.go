package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codesweep",
	Short: "Codesweep - cross-language import graph maintenance",
	Long: `Codesweep scans a polyglot source tree, builds an import graph across
languages, and uses it to find dead files, broken imports, and to perform
restructuring operations (folder removal, file moves, import stripping)
with automatic snapshots and multi-step undo.

Every destructive operation runs as a transaction: pre-images of all
touched files are captured first, any failure rolls everything back, and
successful operations can be reverted with 'codesweep undo'.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
