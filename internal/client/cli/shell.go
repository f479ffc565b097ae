package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// runShell is a read-eval-print loop over the command tree. Each line is
// parsed by a fresh tree sharing rt, so flags never leak between lines. A
// failing command prints its toast and the prompt comes back. The loop
// ends on EOF, "exit" or "quit", or when ctx ends.
func runShell(ctx context.Context, rt *runtime) error {
	a := rt.app
	rt.inShell = true
	defer func() { rt.inShell = false }()

	fmt.Fprintln(a.out, "voicefeed shell (type 'help' for commands, 'exit' to leave)")
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(a.out, "voicefeed %s> ", a.getStatus())

		line, err := a.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(a.out)
			return nil
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return nil
		case "shell":
			fmt.Fprintln(a.out, "Already in the shell")
			continue
		}

		cmd := rt.rootCmd()
		cmd.SetArgs(parts)
		if err := cmd.ExecuteContext(ctx); err != nil {
			a.toast(err)
		}
	}
}

func newShellCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.app.requireUser(cmd.Context()); err == nil {
				rt.app.setView(ViewFeed)
			}
			return runShell(cmd.Context(), rt)
		},
	}
}
