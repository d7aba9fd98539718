package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/scopeheap/script"
)

func newDemoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "demo [scenario...]",
		Short: "Run the built-in scenarios",
		Long: `The demo command runs bundled scenarios and prints their traces.
Without arguments it runs all of them. A failing scenario is shown in its
trace and does not stop the others; "leak" fails on purpose.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = script.BuiltinNames()
			}

			scripts := make([]*script.Script, 0, len(names))
			for _, name := range names {
				s, err := script.Builtin(name)
				if err != nil {
					return err
				}
				scripts = append(scripts, s)
			}

			st := newStyles(opts.color())
			out := cmd.OutOrStdout()
			for i, s := range scripts {
				if i > 0 {
					fmt.Fprintln(out)
				}
				heapOpts, done, err := opts.heapOptions(cmd.Context())
				if err != nil {
					return err
				}
				res, runErr := script.Run(s, heapOpts...)
				done()
				fmt.Fprint(out, renderTrace(s.Filename, res, runErr, st))
			}
			return nil
		},
	}
}
