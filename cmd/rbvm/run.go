package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"j5.nz/rbvm/internal/vm"
)

func runCmd() *cobra.Command {
	var includeDirs []string
	cmd := &cobra.Command{
		Use:   "run <file> [args...]",
		Short: "load and execute a program, binding $0 and ARGV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			loadPath := append(append([]string(nil), includeDirs...), splitLoadPath(os.Getenv("RBVM_LOAD_PATH"))...)

			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("rbvm run: %w", err)
			}

			m := vm.New()
			m.SetArgs(path, args[1:])

			entry, err := compileSource(path, src, loadPath)
			if err != nil {
				return reportRuntimeErr(err)
			}
			if _, err := m.Run(entry); err != nil {
				return reportRuntimeErr(err)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&includeDirs, "include", "I", nil, "add a directory to $LOAD_PATH (repeatable)")
	return cmd
}

// splitLoadPath implements RBVM_LOAD_PATH, the $LOAD_PATH-equivalent
// environment variable: a PATH-style list of directories searched by
// require/load, after any --include directories passed explicitly.
func splitLoadPath(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, string(os.PathListSeparator))
}
