package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/chainfuse/internal/chain"
)

// Spec is one named chain compiled from CUE.
type Spec struct {
	Name  string      `json:"name"`
	Chain chain.Chain `json:"chain"`
}

// DefaultKeyType is used for ordering nodes that omit key_type.
const DefaultKeyType = "int"

// CompileChain parses a CUE value into a chain Spec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the chain struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`chain: byScore: { ... }`)
//	spec, err := CompileChain(v.LookupPath(cue.ParsePath("chain.byScore")))
//
// The struct has three fields:
//
//	source:   {static_count: bool, indexed: bool}   optional, defaults to an array
//	ops:      [...op]                                optional
//	terminal: "count" | {kind: string, fn?: string, seed?: string}
//
// An op is either a bare kind name ("identity") or a struct with exactly one
// kind field naming its function, plus key_type and dir on ordering nodes:
//
//	{filter: "even"}
//	{type_filter: "int"}
//	{sort_by: "score", key_type: "int", dir: "desc"}
func CompileChain(v cue.Value) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &Spec{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if spec.Chain.Source, err = parseSource(v); err != nil {
		return nil, err
	}
	if spec.Chain.Ops, err = parseOps(v); err != nil {
		return nil, err
	}

	termVal := v.LookupPath(cue.ParsePath("terminal"))
	if !termVal.Exists() {
		return nil, &CompileError{
			Field:   "terminal",
			Message: "terminal is required",
			Pos:     v.Pos(),
		}
	}
	if spec.Chain.Terminal, err = parseTerminal(termVal); err != nil {
		return nil, err
	}

	return spec, nil
}

// parseSource reads the source shape. A missing source is an array: it
// knows its count and supports random access.
func parseSource(v cue.Value) (chain.Source, error) {
	src := chain.Source{HasStaticCount: true, HasIndexedAccess: true}
	srcVal := v.LookupPath(cue.ParsePath("source"))
	if !srcVal.Exists() {
		return src, nil
	}

	for _, f := range []struct {
		name string
		dst  *bool
	}{
		{"static_count", &src.HasStaticCount},
		{"indexed", &src.HasIndexedAccess},
	} {
		fv := srcVal.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			continue
		}
		b, err := fv.Bool()
		if err != nil {
			return src, &CompileError{
				Field:   "source." + f.name,
				Message: "must be a bool",
				Pos:     fv.Pos(),
			}
		}
		*f.dst = b
	}
	return src, nil
}

func parseOps(v cue.Value) ([]chain.Op, error) {
	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return nil, nil
	}

	iter, err := opsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ops []chain.Op
	for i := 0; iter.Next(); i++ {
		op, err := parseOp(iter.Value(), fmt.Sprintf("ops[%d]", i))
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// opAttrs are the struct fields of an op that are not its kind.
var opAttrs = map[string]bool{"key_type": true, "dir": true}

func parseOp(v cue.Value, field string) (chain.Op, error) {
	if name, err := v.String(); err == nil {
		kind, err := chain.ParseOpKind(name)
		if err != nil {
			return chain.Op{}, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return chain.Op{Kind: kind}, nil
	}

	fields, err := v.Fields()
	if err != nil {
		return chain.Op{}, &CompileError{
			Field:   field,
			Message: "must be an operator name or struct",
			Pos:     v.Pos(),
		}
	}

	var op chain.Op
	for fields.Next() {
		label := fields.Label()
		fv := fields.Value()
		if opAttrs[label] {
			continue
		}
		kind, err := chain.ParseOpKind(label)
		if err != nil {
			return chain.Op{}, &CompileError{Field: field + "." + label, Message: err.Error(), Pos: fv.Pos()}
		}
		if op.Kind != 0 {
			return chain.Op{}, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("operator has two kinds: %s and %s", op.Kind, kind),
				Pos:     fv.Pos(),
			}
		}
		arg, err := fv.String()
		if err != nil {
			return chain.Op{}, &CompileError{Field: field + "." + label, Message: "must be a string", Pos: fv.Pos()}
		}
		op.Kind = kind
		if kind == chain.OpTypeFilter || kind == chain.OpTypeCast {
			op.Target = arg
		} else {
			op.Fn = arg
		}
	}
	if op.Kind == 0 {
		return chain.Op{}, &CompileError{Field: field, Message: "operator kind is required", Pos: v.Pos()}
	}

	if !op.Kind.IsOrdering() {
		for attr := range opAttrs {
			if v.LookupPath(cue.ParsePath(attr)).Exists() {
				return chain.Op{}, &CompileError{
					Field:   field + "." + attr,
					Message: fmt.Sprintf("%s only applies to ordering operators", attr),
					Pos:     v.Pos(),
				}
			}
		}
		return op, nil
	}

	op.KeyType = DefaultKeyType
	if kt := v.LookupPath(cue.ParsePath("key_type")); kt.Exists() {
		if op.KeyType, err = kt.String(); err != nil {
			return chain.Op{}, &CompileError{Field: field + ".key_type", Message: "must be a string", Pos: kt.Pos()}
		}
	}
	if dv := v.LookupPath(cue.ParsePath("dir")); dv.Exists() {
		s, err := dv.String()
		if err == nil {
			op.Dir, err = chain.ParseDirection(s)
		}
		if err != nil {
			return chain.Op{}, &CompileError{Field: field + ".dir", Message: "must be asc or desc", Pos: dv.Pos()}
		}
	}
	return op, nil
}

func parseTerminal(v cue.Value) (chain.Terminal, error) {
	if name, err := v.String(); err == nil {
		kind, err := chain.ParseTerminalKind(name)
		if err != nil {
			return chain.Terminal{}, &CompileError{Field: "terminal", Message: err.Error(), Pos: v.Pos()}
		}
		return chain.Terminal{Kind: kind}, nil
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return chain.Terminal{}, &CompileError{Field: "terminal.kind", Message: "terminal kind is required", Pos: v.Pos()}
	}
	name, err := kindVal.String()
	if err != nil {
		return chain.Terminal{}, formatCUEError(err)
	}
	kind, err := chain.ParseTerminalKind(name)
	if err != nil {
		return chain.Terminal{}, &CompileError{Field: "terminal.kind", Message: err.Error(), Pos: kindVal.Pos()}
	}

	t := chain.Terminal{Kind: kind}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"fn", &t.Fn},
		{"seed", &t.Seed},
	} {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			continue
		}
		if *f.dst, err = fv.String(); err != nil {
			return chain.Terminal{}, &CompileError{Field: "terminal." + f.name, Message: "must be a string", Pos: fv.Pos()}
		}
	}
	return t, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
