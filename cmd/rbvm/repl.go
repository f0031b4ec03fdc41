package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"j5.nz/rbvm/internal/vm"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "start an interactive read-eval-print loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.OutOrStdout())
		},
	}
}

// runRepl drives github.com/chzyer/readline for line editing and history,
// buffering lines until compileSource reports either a finished program or
// a hard error — a front end's Incomplete report (see frontend.go) would
// instead re-prompt with a continuation marker for one more line, the way
// an unterminated string or unclosed `do` block keeps a real Ruby REPL
// waiting rather than erroring mid-statement.
func runRepl(out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">> ",
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	m := vm.New()
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			buf.Reset()
			rl.SetPrompt(">> ")
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)

		entry, cerr := compileSource("(repl)", []byte(buf.String()), nil)
		var fe *frontendError
		if errors.As(cerr, &fe) && fe.Incomplete {
			rl.SetPrompt(".. ")
			continue
		}
		buf.Reset()
		rl.SetPrompt(">> ")
		if cerr != nil {
			fmt.Fprintln(out, reportRuntimeErr(cerr))
			continue
		}

		result, rerr := m.Run(entry)
		if rerr != nil {
			fmt.Fprintln(out, reportRuntimeErr(rerr))
			continue
		}
		fmt.Fprintf(out, "=> %s\n", m.Inspect(result))
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.rbvm_history"
}
