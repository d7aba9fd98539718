package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/scopeheap/script"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.hcl>",
		Short: "Run a scenario file",
		Long: `The run command executes one scenario file and prints its event trace.
It fails when the scenario fails: an expect block that does not hold, an
ownership violation, or escaped cells nobody received.

Example:
  scopetrace run nested.hcl
  scopetrace run nested.hcl --linear --pages 4
  scopetrace run nested.hcl -i`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := script.ParseFile(args[0])
			if err != nil {
				return err
			}
			return runScript(cmd, opts, s)
		},
	}
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Browse the trace in a pager")
	return cmd
}

func runScript(cmd *cobra.Command, opts *options, s *script.Script) error {
	heapOpts, done, err := opts.heapOptions(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	res, runErr := script.Run(s, heapOpts...)
	trace := renderTrace(s.Filename, res, runErr, newStyles(opts.color()))

	if opts.interactive {
		if !isTerminal(os.Stdout) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		if err := runInteractive(s.Filename, trace); err != nil {
			return err
		}
		return runErr
	}

	fmt.Fprint(cmd.OutOrStdout(), trace)
	return runErr
}
