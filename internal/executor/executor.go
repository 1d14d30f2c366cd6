// Package executor implements the pluggable iteration strategies
// <iterate>/<choose> select by name: RANGE, CHAR, KEY, ATOM. Each satisfies
// the same four-method contract (create/choose/it_begin/it_next) collapsed
// here into a Go Executor + Iterator pair, generalizing an
// iterator-over-operand idiom to variants.
package executor

import (
	"strconv"
	"strings"

	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
)

// Iterator produces one variant per call to Next until exhausted.
type Iterator interface {
	Next() (*variant.Variant, bool)
}

// Executor is the create/choose/it_begin/it_next contract, minus an
// explicit destroy — Go's GC reclaims an Executor/Iterator pair once
// unreferenced.
type Executor interface {
	// Begin starts an iteration governed by rule (the <iterate with=> or
	// foreach-style selector text; executors that ignore rule accept "").
	Begin(rule string) (Iterator, error)
	// Choose selects a single value matching rule, for <choose>.
	Choose(rule string) (*variant.Variant, error)
}

// New constructs the executor named by kind ("RANGE", "CHAR", "KEY",
// "ATOM", case-insensitive) over input, 's
// create(type, input_variant, desc_variant). desc is accepted for interface
// parity but unused by all four built-ins.
func New(kind string, input *variant.Variant, desc *variant.Variant) (Executor, error) {
	switch strings.ToUpper(kind) {
	case "RANGE":
		return newRangeExecutor(input)
	case "CHAR":
		return newCharExecutor(input)
	case "KEY":
		return newKeyExecutor(input)
	case "ATOM":
		return newAtomExecutor(input), nil
	default:
		return nil, perrors.New(perrors.NotSupported, "no executor registered for type %q", kind)
	}
}

// ---- RANGE ----

type rangeExecutor struct{ start, end, step float64 }

func newRangeExecutor(input *variant.Variant) (*rangeExecutor, error) {
	if input.Kind() != variant.Array || input.ArrayLen() < 2 {
		return nil, perrors.New(perrors.InvalidValue, "RANGE executor requires an array input [start, end, step?]")
	}
	startV, _ := input.ArrayGet(0)
	endV, _ := input.ArrayGet(1)
	step := 1.0
	if input.ArrayLen() > 2 {
		stepV, _ := input.ArrayGet(2)
		step = stepV.Float()
	}
	return &rangeExecutor{start: startV.Float(), end: endV.Float(), step: step}, nil
}

type rangeIterator struct {
	cur, end, step float64
}

func (e *rangeExecutor) Begin(rule string) (Iterator, error) {
	return &rangeIterator{cur: e.start, end: e.end, step: e.step}, nil
}

func (it *rangeIterator) Next() (*variant.Variant, bool) {
	if it.step == 0 {
		return nil, false
	}
	if it.step > 0 && it.cur >= it.end {
		return nil, false
	}
	if it.step < 0 && it.cur <= it.end {
		return nil, false
	}
	v := variant.MakeNumber(it.cur)
	it.cur += it.step
	return v, true
}

func (e *rangeExecutor) Choose(rule string) (*variant.Variant, error) {
	n, err := strconv.ParseFloat(rule, 64)
	if err != nil {
		return nil, perrors.New(perrors.InvalidValue, "RANGE executor choose rule %q is not numeric", rule)
	}
	return variant.MakeNumber(n), nil
}

// ---- CHAR ----

type charExecutor struct{ runes []rune }

func newCharExecutor(input *variant.Variant) (*charExecutor, error) {
	if input.Kind() != variant.String {
		return nil, perrors.New(perrors.WrongDataType, "CHAR executor requires a string input")
	}
	return &charExecutor{runes: []rune(input.Str())}, nil
}

type charIterator struct {
	runes []rune
	i     int
}

func (e *charExecutor) Begin(rule string) (Iterator, error) {
	return &charIterator{runes: e.runes}, nil
}

func (it *charIterator) Next() (*variant.Variant, bool) {
	if it.i >= len(it.runes) {
		return nil, false
	}
	v := variant.MakeString(string(it.runes[it.i]))
	it.i++
	return v, true
}

func (e *charExecutor) Choose(rule string) (*variant.Variant, error) {
	i, err := strconv.Atoi(rule)
	if err != nil || i < 0 || i >= len(e.runes) {
		return nil, perrors.New(perrors.NotFound, "CHAR executor has no character at %q", rule)
	}
	return variant.MakeString(string(e.runes[i])), nil
}

// ---- KEY ----

type keyExecutor struct {
	obj  *variant.Variant
	keys []string
}

func newKeyExecutor(input *variant.Variant) (*keyExecutor, error) {
	if input.Kind() != variant.Object {
		return nil, perrors.New(perrors.WrongDataType, "KEY executor requires an object input")
	}
	return &keyExecutor{obj: input, keys: input.ObjectKeys()}, nil
}

type keyIterator struct {
	keys []string
	i    int
}

func (e *keyExecutor) Begin(rule string) (Iterator, error) {
	return &keyIterator{keys: e.keys}, nil
}

func (it *keyIterator) Next() (*variant.Variant, bool) {
	if it.i >= len(it.keys) {
		return nil, false
	}
	v := variant.MakeString(it.keys[it.i])
	it.i++
	return v, true
}

func (e *keyExecutor) Choose(rule string) (*variant.Variant, error) {
	if _, err := e.obj.ObjectGet(rule); err != nil {
		return nil, err
	}
	return variant.MakeString(rule), nil
}

// ---- ATOM ----

// atomExecutor is the degenerate single-value executor 
// describes for <choose> over an already-scalar input.
type atomExecutor struct{ v *variant.Variant }

func newAtomExecutor(input *variant.Variant) *atomExecutor { return &atomExecutor{v: input} }

type atomIterator struct {
	v    *variant.Variant
	done bool
}

func (e *atomExecutor) Begin(rule string) (Iterator, error) { return &atomIterator{v: e.v}, nil }

func (it *atomIterator) Next() (*variant.Variant, bool) {
	if it.done {
		return nil, false
	}
	it.done = true
	return it.v.Ref(), true
}

func (e *atomExecutor) Choose(rule string) (*variant.Variant, error) {
	return e.v.Ref(), nil
}
