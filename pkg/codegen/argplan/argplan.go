// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package argplan decides, for each operation family, how every argument of every native call is
// supplied by the generated forward and backward methods.
//
// A Plan is built completely before any text is emitted: each member of the family gets a Call with
// one Slot per native argument, in native order. Templates only render it.
package argplan

import (
	stderrors "errors"
	"strings"

	"github.com/gomlx/thnngen/internal/naming"
	"github.com/gomlx/thnngen/internal/sets"
	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/codegen/families"
	"github.com/gomlx/thnngen/pkg/codegen/typemap"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrUnsupportedSignature is matched by the errors of families whose signatures can't be planned.
var ErrUnsupportedSignature = stderrors.New("unsupported signature")

// Role names, which are also the names of the variables holding them in the generated code.
const (
	RoleInput      = "input"
	RoleTarget     = "target"
	RoleOutput     = "output"
	RoleGradOutput = "gradOutput"
	RoleGradInput  = "gradInput"
)

const (
	// InPlaceArgument, if it is the last argument of updateOutput, selects in-place computation.
	InPlaceArgument = "inplace"

	// ScaleArgument of accGradParameters is always passed as 1.
	ScaleArgument = "scale"
)

// Field of the configuration record of an operation.
type Field struct {
	// Name of the Go field, e.g. "SizeAverage".
	Name string

	// Type is the Go type, from the dispatch variant.
	Type string

	Arg catalog.Argument
}

// Value is a variable of the generated code.
type Value struct {
	Var string

	// Optional is set if Var is an autograd.Optional.
	Optional bool
}

// TensorExpr returns an expression of type autograd.Tensor for the value (nil if an absent Optional).
func (v Value) TensorExpr() string {
	if v.Optional {
		return v.Var + ".Tensor()"
	}
	return v.Var
}

// Input is one of the forward inputs.
type Input struct {
	Value

	// Index in the forward inputs.
	Index int

	// Name is the native argument name, or the role for input and target.
	Name string
}

// Retained is a value saved by forward for backward.
type Retained struct {
	Value

	// Index in the list of saved tensors.
	Index int

	// Backward is set if backward reads the value.
	Backward bool
}

// ParamGrad is the gradient accumulator of a parameter.
type ParamGrad struct {
	Value

	Param Input
}

// Plan holds everything needed to emit one differentiable operation.
type Plan struct {
	// Name of the operation type, Key the native family name.
	Name, Key string
	Kind      families.Kind

	// Fields of the configuration record: the non-tensor arguments of all members.
	Fields []Field

	// Inputs of forward, in order. Inputs from MandatoryInputs on are optional.
	Inputs          []Input
	MandatoryInputs int

	// InPlace is set if a general family takes a trailing inplace flag.
	InPlace bool

	// SaveOutput is set if the gradient members read the forward output.
	SaveOutput bool

	// GradOutputOptional is set if updateGradInput accepts an absent upstream gradient.
	GradOutputOptional bool

	// ConsumesGradOutput is set for criteria whose updateGradInput takes the upstream gradient itself,
	// in which case backward doesn't scale the result.
	ConsumesGradOutput bool

	// Retained lists the tensors saved by forward, in order.
	Retained []Retained

	// Buffers allocated in each phase, in native order. Buffers of the backward phases are only the ones
	// not retained from forward.
	ForwardBuffers, GradInputBuffers, AccGradBuffers []string

	// ParamGrads lists the accumulators of accGradParameters, in native order.
	ParamGrads []ParamGrad

	UpdateOutput, UpdateGradInput Call

	// AccGradParameters is nil if the family has no parameters.
	AccGradParameters *Call
}

// HasFields returns whether the operation has a configuration record.
func (p *Plan) HasFields() bool {
	return len(p.Fields) > 0
}

// MaxInputs returns the maximum number of forward inputs.
func (p *Plan) MaxInputs() int {
	return len(p.Inputs)
}

// OptionalInputs returns the inputs the caller may omit.
func (p *Plan) OptionalInputs() []Input {
	return p.Inputs[p.MandatoryInputs:]
}

// Builder builds Plans.
type Builder struct {
	dispatch  *typemap.Variant
	separator string
}

// NewBuilder returns a Builder that takes the configuration field types from the dispatch variant.
func NewBuilder(dispatch *typemap.Variant, separator string) *Builder {
	return &Builder{dispatch: dispatch, separator: separator}
}

type phase int

const (
	phaseForward phase = iota
	phaseGradInput
	phaseAccGrad
)

// roles returns the roles recognized by name in a phase and, in positional order, the leading roles
// assigned to tensors whose names are not recognized.
func roles(kind families.Kind, ph phase) (byName sets.Set[string], positional []string) {
	if kind == families.KindCriterion {
		switch ph {
		case phaseForward:
			return sets.MakeWith(RoleInput, RoleTarget, RoleOutput), []string{RoleInput, RoleTarget, RoleOutput}
		default:
			return sets.MakeWith(RoleInput, RoleTarget, RoleGradOutput, RoleGradInput),
				[]string{RoleInput, RoleTarget, RoleGradInput}
		}
	}
	switch ph {
	case phaseForward:
		return sets.MakeWith(RoleInput, RoleOutput), []string{RoleInput, RoleOutput}
	case phaseGradInput:
		return sets.MakeWith(RoleInput, RoleGradOutput, RoleGradInput, RoleOutput),
			[]string{RoleInput, RoleGradOutput, RoleGradInput}
	default:
		return sets.MakeWith(RoleInput, RoleGradOutput, RoleOutput), []string{RoleInput, RoleGradOutput}
	}
}

// isParameter returns whether a tensor argument of updateOutput is a parameter of the operation.
func isParameter(kind families.Kind, name string) bool {
	if strings.HasPrefix(name, "weight") {
		return true
	}
	return kind == families.KindGeneral && name == "bias"
}

// planner holds the state of one Build.
type planner struct {
	*Builder
	family *families.Family
	plan   *Plan
	params map[string]Input
	fields map[string]string
}

// Build returns the Plan of the family.
func (b *Builder) Build(family *families.Family) (*Plan, error) {
	p := &planner{
		Builder: b,
		family:  family,
		plan:    &Plan{Name: family.Name, Key: family.Key, Kind: family.Kind},
		params:  make(map[string]Input),
		fields:  make(map[string]string),
	}
	members := family.Members()
	if family.Kind == families.KindCriterion && family.HasParameters() {
		klog.V(1).Infof("argplan: %s: criteria don't accumulate parameter gradients, ignoring %s",
			family.Key, family.AccGradParameters.Name)
		members = members[:2]
	}
	for _, fn := range members {
		if len(fn.Arguments) < 2 || fn.Arguments[0].IsTensor() {
			return nil, errors.Wrapf(ErrUnsupportedSignature,
				"%s: expected the state handle followed by at least one tensor", fn.Name)
		}
	}
	if err := p.buildInputs(); err != nil {
		return nil, err
	}
	if err := p.buildFields(members); err != nil {
		return nil, err
	}
	if err := p.buildCalls(members); err != nil {
		return nil, err
	}
	p.buildRetention()
	return p.plan, nil
}

// buildInputs lists the forward inputs: the positional ones and the parameters of updateOutput.
func (p *planner) buildInputs() error {
	plan := p.plan
	plan.Inputs = []Input{{Value: Value{Var: RoleInput}, Index: 0, Name: RoleInput}}
	if plan.Kind == families.KindCriterion {
		plan.Inputs = append(plan.Inputs, Input{Value: Value{Var: RoleTarget}, Index: 1, Name: RoleTarget})
	}
	plan.MandatoryInputs = len(plan.Inputs)
	byName, _ := roles(plan.Kind, phaseForward)
	for _, arg := range p.family.UpdateOutput.Arguments[1:] {
		if !arg.IsTensor() || byName.Has(arg.Name) || !isParameter(plan.Kind, arg.Name) {
			continue
		}
		if _, found := p.params[arg.Name]; found {
			return errors.Wrapf(ErrUnsupportedSignature, "%s: parameter %q declared twice",
				p.family.UpdateOutput.Name, arg.Name)
		}
		input := Input{
			Value: Value{Var: naming.Local(arg.Name), Optional: arg.IsOptional},
			Index: len(plan.Inputs),
			Name:  arg.Name,
		}
		plan.Inputs = append(plan.Inputs, input)
		p.params[arg.Name] = input
		if !input.Optional {
			plan.MandatoryInputs = len(plan.Inputs)
		}
	}
	// Parameters before the last mandatory one are supplied by the caller: they are read as required.
	for i := range plan.Inputs[:plan.MandatoryInputs] {
		if plan.Inputs[i].Optional {
			plan.Inputs[i].Optional = false
			p.params[plan.Inputs[i].Name] = plan.Inputs[i]
		}
	}
	return nil
}

// buildFields collects the non-tensor arguments of all members, updateOutput first.
func (p *planner) buildFields(members []catalog.FunctionDescriptor) error {
	for i, fn := range members {
		isAccGrad := i == 2
		for _, arg := range fn.Arguments[1:] {
			if arg.IsTensor() || (isAccGrad && arg.Name == ScaleArgument) {
				continue
			}
			if _, found := p.fields[arg.Name]; found {
				continue
			}
			goType, err := p.dispatch.Resolve(arg.Type)
			if err != nil {
				var unmapped *typemap.UnmappedTypeError
				if errors.As(err, &unmapped) {
					unmapped.Function, unmapped.Argument = fn.Name, arg.Name
				}
				return err
			}
			field := Field{Name: naming.Exported(arg.Name), Type: goType, Arg: arg}
			for _, other := range p.plan.Fields {
				if other.Name == field.Name {
					return errors.Wrapf(ErrUnsupportedSignature, "%s: arguments %q and %q map to the same field %s",
						fn.Name, other.Arg.Name, arg.Name, field.Name)
				}
			}
			p.fields[arg.Name] = field.Name
			p.plan.Fields = append(p.plan.Fields, field)
		}
	}
	args := p.family.UpdateOutput.Arguments
	last := args[len(args)-1]
	p.plan.InPlace = p.plan.Kind == families.KindGeneral && last.Name == InPlaceArgument && !last.IsTensor()
	return nil
}

func (p *planner) buildCalls(members []catalog.FunctionDescriptor) error {
	plan := p.plan
	if plan.Kind == families.KindGeneral {
		if arg, found := p.family.UpdateGradInput.Argument(RoleGradOutput); found && arg.IsOptional {
			plan.GradOutputOptional = true
		}
	}
	var err error
	if plan.UpdateOutput, err = p.bind(members[0], phaseForward); err != nil {
		return err
	}
	if plan.UpdateGradInput, err = p.bind(members[1], phaseGradInput); err != nil {
		return err
	}
	if len(members) > 2 {
		call, err := p.bind(members[2], phaseAccGrad)
		if err != nil {
			return err
		}
		plan.AccGradParameters = &call
	}

	forwardBuffers := sets.Set[string]{}
	for _, slot := range plan.UpdateOutput.SlotsOf(SlotBuffer) {
		if !forwardBuffers.Has(slot.Var) {
			forwardBuffers.Insert(slot.Var)
			plan.ForwardBuffers = append(plan.ForwardBuffers, slot.Var)
		}
	}
	plan.GradInputBuffers = backwardBuffers(&plan.UpdateGradInput, forwardBuffers)
	if plan.AccGradParameters != nil {
		plan.AccGradBuffers = backwardBuffers(plan.AccGradParameters, forwardBuffers)
		for _, slot := range plan.AccGradParameters.SlotsOf(SlotParamGrad) {
			param := p.params[paramOfGrad(slot.Arg.Name)]
			plan.ParamGrads = append(plan.ParamGrads, ParamGrad{
				Value: Value{Var: slot.Var, Optional: slot.VarOptional},
				Param: param,
			})
		}
	}

	plan.SaveOutput = plan.Kind == families.KindGeneral &&
		(plan.UpdateGradInput.Uses(RoleOutput) ||
			(plan.AccGradParameters != nil && plan.AccGradParameters.Uses(RoleOutput)))
	plan.ConsumesGradOutput = plan.Kind == families.KindCriterion && plan.UpdateGradInput.Uses(RoleGradOutput)
	return nil
}

// backwardBuffers returns the buffers of call not retained from forward.
func backwardBuffers(call *Call, retained sets.Set[string]) []string {
	var buffers []string
	seen := sets.Set[string]{}
	for _, slot := range call.SlotsOf(SlotBuffer) {
		if retained.Has(slot.Var) || seen.Has(slot.Var) {
			continue
		}
		seen.Insert(slot.Var)
		buffers = append(buffers, slot.Var)
	}
	return buffers
}

// paramOfGrad returns the parameter name for an accumulator name: "gradWeight" -> "weight".
func paramOfGrad(name string) string {
	rest, found := strings.CutPrefix(name, "grad")
	if !found || rest == "" {
		return ""
	}
	return strings.ToLower(rest[:1]) + rest[1:]
}

// bind builds the call of one member of the family.
func (p *planner) bind(fn catalog.FunctionDescriptor, ph phase) (Call, error) {
	call := Call{
		Function: fn,
		Method:   naming.Method(fn.Family(p.separator), fn.Suffix(p.separator)),
	}
	byName, positional := roles(p.plan.Kind, ph)
	named := sets.Set[string]{}
	for _, arg := range fn.Arguments[1:] {
		if arg.IsTensor() && byName.Has(arg.Name) {
			named.Insert(arg.Name)
		}
	}
	bound := sets.Set[string]{}
	tensorPos := 0
	for _, arg := range fn.Arguments[1:] {
		slot := Slot{Arg: arg}
		if !arg.IsTensor() {
			if ph == phaseAccGrad && arg.Name == ScaleArgument {
				slot.Kind, slot.Var = SlotFixed, "1"
			} else {
				slot.Kind, slot.Var = SlotConfig, "f.Args."+p.fields[arg.Name]
			}
			call.Slots = append(call.Slots, slot)
			continue
		}
		pos := tensorPos
		tensorPos++

		if byName.Has(arg.Name) && !bound.Has(arg.Name) {
			slot.Kind, slot.Var = SlotPositional, arg.Name
			bound.Insert(arg.Name)
			slot.VarOptional = arg.Name == RoleGradOutput && p.plan.GradOutputOptional
			call.Slots = append(call.Slots, slot)
			continue
		}
		if param, found := p.params[arg.Name]; found {
			slot.Kind, slot.Var, slot.VarOptional = SlotParam, param.Var, param.Optional
			if param.Optional {
				slot.Kind = SlotOptional
			}
			call.Slots = append(call.Slots, slot)
			continue
		}
		if ph == phaseAccGrad && strings.HasPrefix(arg.Name, "grad") {
			param, found := p.params[paramOfGrad(arg.Name)]
			if !found {
				return Call{}, errors.Wrapf(ErrUnsupportedSignature, "%s: gradient %q has no matching parameter",
					fn.Name, arg.Name)
			}
			slot.Kind, slot.Var, slot.VarOptional = SlotParamGrad, naming.Local(arg.Name), param.Optional
			call.Slots = append(call.Slots, slot)
			continue
		}
		if pos < len(positional) && !named.Has(positional[pos]) && !bound.Has(positional[pos]) {
			role := positional[pos]
			klog.V(1).Infof("argplan: %s: argument %q takes the role %q by position", fn.Name, arg.Name, role)
			slot.Kind, slot.Var = SlotPositional, role
			bound.Insert(role)
			slot.VarOptional = role == RoleGradOutput && p.plan.GradOutputOptional
			call.Slots = append(call.Slots, slot)
			continue
		}
		slot.Kind, slot.Var = SlotBuffer, naming.Local(arg.Name)
		call.Slots = append(call.Slots, slot)
	}
	if ph == phaseForward {
		for _, role := range positional {
			if !bound.Has(role) {
				return Call{}, errors.Wrapf(ErrUnsupportedSignature, "%s: no argument takes the role %q", fn.Name, role)
			}
		}
	} else if ph == phaseGradInput && !bound.Has(RoleGradInput) {
		return Call{}, errors.Wrapf(ErrUnsupportedSignature, "%s: no argument takes the role %q", fn.Name, RoleGradInput)
	}
	return call, nil
}

// buildRetention decides the layout of the values saved by forward: the inputs, the output if the
// gradient members read it, and the forward buffers.
func (p *planner) buildRetention() {
	plan := p.plan
	add := func(v Value) {
		plan.Retained = append(plan.Retained, Retained{Value: v, Index: len(plan.Retained)})
	}
	for _, input := range plan.Inputs {
		add(input.Value)
	}
	if plan.SaveOutput {
		add(Value{Var: RoleOutput})
	}
	for _, buffer := range plan.ForwardBuffers {
		add(Value{Var: buffer})
	}

	paramsWithGrads := sets.Set[string]{}
	for _, pg := range plan.ParamGrads {
		paramsWithGrads.Insert(pg.Param.Var)
	}
	for i := range plan.Retained {
		r := &plan.Retained[i]
		r.Backward = r.Var == RoleInput || paramsWithGrads.Has(r.Var) || plan.UpdateGradInput.Uses(r.Var) ||
			(plan.AccGradParameters != nil && plan.AccGradParameters.Uses(r.Var))
	}
}
