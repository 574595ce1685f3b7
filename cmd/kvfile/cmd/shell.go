package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const shellPrompt = "kvfile> "

func newShellCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run store commands interactively",
		Long: `Read commands from standard input, one per line, and run each against the
store. Arguments are split with shell quoting rules, so values may contain
spaces when quoted. A failing command prints its error and the shell
continues. The prompt is shown only when standard input is a terminal.

Example:
  kvfile shell
  kvfile> insert greeting "hello world"
  kvfile> get greeting
  hello world
  kvfile> exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := &shell{
				opts:        opts,
				out:         cmd.OutOrStdout(),
				errOut:      cmd.ErrOrStderr(),
				interactive: isTerminal(cmd.InOrStdin()),
			}
			return sh.run(cmd.InOrStdin())
		},
	}
}

type shell struct {
	opts        *rootOptions
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

func (s *shell) run(in io.Reader) error {
	if s.interactive {
		fmt.Fprintf(s.out, "Using %s (backend %s)\n", s.opts.config.Database, s.opts.config.Backend)
		fmt.Fprintln(s.out, "Type commands. 'help' for information or 'exit' to quit.")
	}

	reader := bufio.NewReader(in)
	for {
		if s.interactive {
			fmt.Fprint(s.out, shellPrompt)
		}

		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if s.execute(line) {
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("input error: %w", err)
		}
	}
}

// execute runs one line and reports whether the shell should exit
func (s *shell) execute(line string) bool {
	fields, err := shellquote.Split(line)
	if err != nil {
		fmt.Fprintf(s.errOut, "parse error: %v\n", err)
		return false
	}
	if len(fields) == 0 {
		return false
	}

	name, args := fields[0], fields[1:]
	switch name {
	case "exit", "quit":
		return true
	case "help":
		s.help()
		return false
	}

	op, ok := lookupOperation(name)
	if !ok {
		fmt.Fprintf(s.errOut, "Unknown command: %s (try help)\n", name)
		return false
	}
	if len(args) != len(op.args) {
		fmt.Fprintf(s.errOut, "usage: %s\n", op.usage())
		return false
	}

	if err := op.run(s.opts, s.out, args); err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	return false
}

func (s *shell) help() {
	fmt.Fprintln(s.out, "Commands:")
	for _, op := range operations {
		fmt.Fprintf(s.out, "  %-22s %s\n", op.usage(), op.short)
	}
	fmt.Fprintf(s.out, "  %-22s %s\n", "help", "Show this help")
	fmt.Fprintf(s.out, "  %-22s %s\n", "exit", "Leave the shell")
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
