package script

import (
	stderrors "errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/wippyai/scopeheap/errors"
	"github.com/wippyai/scopeheap/heap"
)

// RootScope is the name of the scope top-level blocks run in.
const RootScope = "script"

// Object is the payload of every scenario cell.
type Object struct {
	Name  string
	Value string
}

// Result is what a run observed.
type Result struct {
	Log    []string // destructor log, in destruction order
	Events []heap.Event
	Stats  heap.Stats
}

type escape struct {
	esc      *heap.Escaped[Object]
	name     string
	receiver Receiver
}

type frame struct {
	scope   *heap.Scope
	parent  *frame
	names   map[string]*heap.Cell[Object]
	escapes []escape
}

func (f *frame) lookup(name string) (*heap.Cell[Object], bool) {
	for fr := f; fr != nil; fr = fr.parent {
		if c, ok := fr.names[name]; ok {
			return c, true
		}
	}
	return nil, false
}

type runner struct {
	heap   *heap.Heap
	result *Result
}

// Run executes s on a fresh heap built with opts and closes the heap
// afterwards. The result is returned even when the run fails, so the trace
// up to the failure can be shown.
func Run(s *Script, opts ...heap.Option) (*Result, error) {
	res := &Result{}
	opts = append(slices.Clip(opts), heap.WithObserver(heap.ObserverFunc(func(e heap.Event) {
		res.Events = append(res.Events, e)
	})))
	r := &runner{heap: heap.NewHeap(opts...), result: res}

	err := r.heap.Scope(RootScope, func(root *heap.Scope) error {
		// Nobody receives escapes of the root scope; they stay pending.
		return r.exec(&frame{scope: root, names: map[string]*heap.Cell[Object]{}}, s.Steps)
	})
	err = multierr.Append(err, r.heap.Close())
	res.Stats = r.heap.Stats()
	return res, err
}

func (r *runner) exec(f *frame, steps []Step) error {
	for i := range steps {
		if err := r.step(f, &steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) step(f *frame, st *Step) error {
	switch st.Op {
	case OpScope:
		var child *frame
		err := f.scope.Scope(st.Name, func(s *heap.Scope) error {
			child = &frame{scope: s, parent: f, names: map[string]*heap.Cell[Object]{}}
			return r.exec(child, st.Steps)
		})
		if child != nil {
			err = multierr.Append(err, r.receive(f, child.escapes))
		}
		return stepError(st, err)

	case OpCreate:
		opts := []heap.CreateOption[Object]{heap.WithValue(Object{Name: st.Name, Value: st.Value})}
		if st.Destructor {
			name := st.Name
			opts = append(opts, heap.WithDestructor(func(*Object) {
				r.result.Log = append(r.result.Log, name)
			}))
		}
		c, err := heap.Create(f.scope, opts...)
		if err != nil {
			return stepError(st, err)
		}
		f.names[st.Name] = c
		return nil

	case OpRetain, OpRelease:
		c, ok := f.lookup(st.Name)
		if !ok {
			return stepError(st, errors.NotFound(errors.PhaseScript, nil, "no cell named "+st.Name))
		}
		if st.Op == OpRetain {
			return stepError(st, c.Retain())
		}
		return stepError(st, c.Release())

	case OpTransfer:
		c, ok := f.names[st.Name]
		if !ok {
			return stepError(st, errors.NotFound(errors.PhaseScript, nil, "no cell named "+st.Name+" in this scope"))
		}
		esc, err := heap.TransferOut(f.scope, c)
		if err != nil {
			return stepError(st, err)
		}
		f.escapes = append(f.escapes, escape{esc: esc, name: st.Name, receiver: st.Receiver})
		return nil

	case OpExpect:
		return stepError(st, r.check(st.Expect))
	}
	return stepError(st, errors.InvalidInput(errors.PhaseScript, "unknown op "+string(st.Op)))
}

// receive resolves the escapes of a closed child scope in f.
func (r *runner) receive(f *frame, escapes []escape) error {
	var err error
	for _, e := range escapes {
		switch e.receiver {
		case ReceiverAdopt:
			c, aerr := e.esc.Adopt(f.scope)
			if aerr != nil {
				err = multierr.Append(err, aerr)
				continue
			}
			f.names[e.name] = c
		case ReceiverRelease:
			err = multierr.Append(err, e.esc.Release())
		case ReceiverNone:
		}
	}
	return err
}

func (r *runner) check(exp *Expectation) error {
	if exp == nil {
		return nil
	}
	var err error
	if exp.Destroyed != nil && !slices.Equal(exp.Destroyed, r.result.Log) {
		err = multierr.Append(err, fmt.Errorf("destroyed = %q, want %q", r.result.Log, exp.Destroyed))
	}
	stats := r.heap.Stats()
	if exp.Live != nil && stats.Live != *exp.Live {
		err = multierr.Append(err, fmt.Errorf("live = %d, want %d", stats.Live, *exp.Live))
	}
	if exp.Pending != nil && stats.Pending != *exp.Pending {
		err = multierr.Append(err, fmt.Errorf("pending = %d, want %d", stats.Pending, *exp.Pending))
	}
	if err != nil {
		return errors.New(errors.PhaseScript, errors.KindInvalidInput).
			Detail("expectation failed").
			Cause(err).
			Build()
	}
	return nil
}

// stepError prefixes err with the step's location, keeping its kind.
func stepError(st *Step, err error) error {
	if err == nil {
		return nil
	}
	kind := errors.KindInvalidInput
	var se *errors.Error
	if stderrors.As(err, &se) {
		kind = se.Kind
	}
	return errors.Wrap(errors.PhaseScript, kind, err, fmt.Sprintf("%s: %s %q", st.Range.String(), st.Op, st.Name))
}
