// Command rbvm hosts the bytecode interpreter's two external entry points:
// `rbvm run <file>` and `rbvm repl`. Grounded on golang-debug's viewcore
// command tree (cmd/viewcore/*.go's cobra.Command + Flags().Get* style),
// adapted from a single flat command to a root with subcommands since rbvm
// has two genuinely different modes rather than one dispatch switch.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rbvm",
		Short: "rbvm runs compiled bytecode programs for a Ruby-shaped scripting language",
	}
	root.AddCommand(runCmd())
	root.AddCommand(replCmd())
	return root
}
