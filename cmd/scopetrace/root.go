package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/scopeheap/alloc"
	"github.com/wippyai/scopeheap/heap"
)

type options struct {
	verbose     bool
	noColor     bool
	interactive bool
	linear      bool
	limit       uint64
	pages       uint32
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "scopetrace",
		Short: "Trace scoped reference-counted cells",
		Long: `scopetrace runs HCL scenario files against a scoped heap and prints
every lifecycle event: cells created, retained, released, escaped out of
their scope, adopted by an enclosing one and destroyed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log heap activity to stderr")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.linear, "linear", false, "Back cells with a wasm linear memory allocator")
	flags.Uint64Var(&opts.limit, "limit", 0, "Byte limit for the default allocator (0 = unlimited)")
	flags.Uint32Var(&opts.pages, "pages", 0, "Maximum linear memory pages (0 = default)")

	root.AddCommand(newRunCmd(opts), newDemoCmd(opts))
	return root
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// heapOptions builds the allocator and logger for one run. The returned
// func releases the allocator.
func (o *options) heapOptions(ctx context.Context) ([]heap.Option, func(), error) {
	logger := o.logger()
	alloc.SetLogger(logger)

	opts := []heap.Option{heap.WithLogger(logger)}
	if !o.linear {
		opts = append(opts, heap.WithAllocator(alloc.NewBudget(o.limit)))
		return opts, func() { _ = logger.Sync() }, nil
	}

	cfg := alloc.DefaultLinearConfig()
	if o.pages > 0 {
		cfg.MaxPages = o.pages
	}
	lin, err := alloc.NewLinear(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, heap.WithAllocator(lin))
	return opts, func() {
		_ = lin.Close(ctx)
		_ = logger.Sync()
	}, nil
}

func (o *options) color() bool {
	return !o.noColor && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
