// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package argplan

import (
	"github.com/gomlx/thnngen/pkg/codegen/catalog"
)

// SlotKind tells where the value passed to a native argument comes from.
type SlotKind int

const (
	SlotInvalid SlotKind = iota

	// SlotPositional is one of the roles every member of the family shares: input, target, output,
	// gradOutput or gradInput.
	SlotPositional

	// SlotConfig is a non-tensor argument, read from the operation's configuration record.
	SlotConfig

	// SlotFixed is a literal value, e.g. the scale of the parameter gradient accumulation.
	SlotFixed

	// SlotParam is a required tensor taken from the forward inputs.
	SlotParam

	// SlotOptional is a tensor taken from the forward inputs only if the caller supplied it.
	SlotOptional

	// SlotBuffer is a scratch tensor allocated by the generated code.
	SlotBuffer

	// SlotParamGrad is the zero initialized gradient accumulator of a parameter.
	SlotParamGrad
)

//go:generate go tool enumer -type=SlotKind -trimprefix=Slot -output=gen_slotkind_enumer.go slots.go

// Slot binds one native argument to a Go expression.
type Slot struct {
	Kind SlotKind

	// Arg is the native argument.
	Arg catalog.Argument

	// Var is the Go variable (or expression, for SlotConfig and SlotFixed) holding the value.
	Var string

	// VarOptional is set if Var is an autograd.Optional.
	VarOptional bool
}

// Optional returns whether the Backend method declares the argument as autograd.Optional.
func (s Slot) Optional() bool {
	return s.Arg.IsOptional && s.Arg.IsTensor()
}

// Expr returns the Go expression passed to the Backend method, converting between autograd.Tensor
// and autograd.Optional when the variable and the declaration disagree.
func (s Slot) Expr() string {
	switch {
	case s.Optional() && !s.VarOptional:
		return "autograd.Some(" + s.Var + ")"
	case !s.Optional() && s.VarOptional:
		return s.Var + ".Tensor()"
	}
	return s.Var
}

// Call is the full native-order argument list of one Backend method call. The state handle is
// owned by the Backend implementation and has no slot.
type Call struct {
	Function catalog.FunctionDescriptor

	// Method is the Backend method name, e.g. "AbsUpdateOutput".
	Method string

	Slots []Slot
}

// Exprs returns the Go expressions of all slots, in native order.
func (c Call) Exprs() []string {
	exprs := make([]string, len(c.Slots))
	for i, slot := range c.Slots {
		exprs[i] = slot.Expr()
	}
	return exprs
}

// SlotsOf returns the slots of the given kind, in native order.
func (c Call) SlotsOf(kind SlotKind) []Slot {
	var slots []Slot
	for _, slot := range c.Slots {
		if slot.Kind == kind {
			slots = append(slots, slot)
		}
	}
	return slots
}

// Uses returns whether any slot of the call reads the variable v.
func (c Call) Uses(v string) bool {
	for _, slot := range c.Slots {
		if slot.Var == v && slot.Kind != SlotConfig && slot.Kind != SlotFixed {
			return true
		}
	}
	return false
}
