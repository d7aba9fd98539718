package script

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/wippyai/scopeheap/errors"
)

// Op is a scenario step kind.
type Op string

const (
	OpScope    Op = "scope"
	OpCreate   Op = "create"
	OpRetain   Op = "retain"
	OpRelease  Op = "release"
	OpTransfer Op = "transfer"
	OpExpect   Op = "expect"
)

// Receiver says what the enclosing scope does with a transferred cell.
type Receiver string

const (
	ReceiverAdopt   Receiver = "adopt"
	ReceiverRelease Receiver = "release"
	ReceiverNone    Receiver = "none"
)

// Expectation is checked when an expect step runs. Nil fields are not
// checked.
type Expectation struct {
	Destroyed []string
	Live      *int
	Pending   *int
}

// Step is one parsed block.
type Step struct {
	Expect     *Expectation
	Op         Op
	Name       string
	Value      string
	Receiver   Receiver
	Steps      []Step
	Range      hcl.Range
	Destructor bool
}

// Script is a parsed scenario.
type Script struct {
	Filename string
	Steps    []Step
}

// allowed lists the attributes each block accepts.
var allowed = map[Op][]string{
	OpScope:    nil,
	OpCreate:   {"destructor", "value"},
	OpRetain:   nil,
	OpRelease:  nil,
	OpTransfer: {"receiver"},
	OpExpect:   {"destroyed", "live", "pending"},
}

// ParseFile reads and parses a scenario file.
func ParseFile(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindNotFound, err, "read scenario")
	}
	return Parse(src, path)
}

// Parse parses scenario source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Script, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, diags, "parse "+filename)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseScript, "unexpected body type")
	}
	if len(body.Attributes) > 0 {
		return nil, scriptError(anyAttrRange(body), "attributes are not allowed at the top level")
	}

	steps, err := parseBlocks(body.Blocks)
	if err != nil {
		return nil, err
	}
	return &Script{Filename: filename, Steps: steps}, nil
}

func parseBlocks(blocks hclsyntax.Blocks) ([]Step, error) {
	steps := make([]Step, 0, len(blocks))
	for _, b := range blocks {
		step, err := parseBlock(b)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseBlock(b *hclsyntax.Block) (Step, error) {
	op := Op(b.Type)
	names, known := allowed[op]
	if !known {
		return Step{}, scriptError(b.TypeRange, "unknown block %q", b.Type)
	}

	step := Step{Op: op, Range: b.DefRange(), Receiver: ReceiverAdopt}

	wantLabels := 1
	if op == OpExpect {
		wantLabels = 0
	}
	if len(b.Labels) != wantLabels {
		return Step{}, scriptError(b.TypeRange, "%s block takes %d label(s), got %d", op, wantLabels, len(b.Labels))
	}
	if wantLabels == 1 {
		step.Name = b.Labels[0]
	}

	if op != OpScope && len(b.Body.Blocks) > 0 {
		return Step{}, scriptError(b.Body.Blocks[0].TypeRange, "%s block cannot contain blocks", op)
	}

	for _, name := range sortedAttrNames(b.Body.Attributes) {
		attr := b.Body.Attributes[name]
		if !slices.Contains(names, name) {
			return Step{}, scriptError(attr.SrcRange, "unknown attribute %q in %s block", name, op)
		}
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return Step{}, errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, diags, attr.SrcRange.String())
		}
		if err := step.set(name, val); err != nil {
			return Step{}, scriptError(attr.SrcRange, "%s: %v", name, err)
		}
	}

	if op == OpScope {
		steps, err := parseBlocks(b.Body.Blocks)
		if err != nil {
			return Step{}, err
		}
		step.Steps = steps
	}
	return step, nil
}

func (s *Step) set(name string, val cty.Value) error {
	switch name {
	case "destructor":
		return decode(val, cty.Bool, &s.Destructor)
	case "value":
		return decode(val, cty.String, &s.Value)
	case "receiver":
		var r string
		if err := decode(val, cty.String, &r); err != nil {
			return err
		}
		switch Receiver(r) {
		case ReceiverAdopt, ReceiverRelease, ReceiverNone:
			s.Receiver = Receiver(r)
			return nil
		}
		return fmt.Errorf("receiver must be adopt, release or none, got %q", r)
	case "destroyed":
		s.expectation().Destroyed = []string{}
		return decode(val, cty.List(cty.String), &s.expectation().Destroyed)
	case "live":
		var n int
		if err := decode(val, cty.Number, &n); err != nil {
			return err
		}
		s.expectation().Live = &n
	case "pending":
		var n int
		if err := decode(val, cty.Number, &n); err != nil {
			return err
		}
		s.expectation().Pending = &n
	}
	return nil
}

func (s *Step) expectation() *Expectation {
	if s.Expect == nil {
		s.Expect = &Expectation{}
	}
	return s.Expect
}

func decode(val cty.Value, ty cty.Type, target any) error {
	if val.IsNull() {
		return fmt.Errorf("value must not be null")
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(converted, target)
}

func sortedAttrNames(attrs hclsyntax.Attributes) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func anyAttrRange(body *hclsyntax.Body) hcl.Range {
	if names := sortedAttrNames(body.Attributes); len(names) > 0 {
		return body.Attributes[names[0]].SrcRange
	}
	return body.SrcRange
}

func scriptError(rng hcl.Range, format string, args ...any) error {
	return errors.New(errors.PhaseScript, errors.KindInvalidInput).
		Detail("%s: %s", rng.String(), fmt.Sprintf(format, args...)).
		Build()
}
