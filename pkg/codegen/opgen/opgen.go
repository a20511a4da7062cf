// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package opgen emits the differentiable operations: for each operation family, a type with a forward and
// a backward method calling the family's kernels through the Backend interface.
package opgen

import (
	"fmt"
	"strings"

	"github.com/gomlx/thnngen/internal/naming"
	"github.com/gomlx/thnngen/pkg/codegen/argplan"
	"github.com/gomlx/thnngen/pkg/codegen/families"
	"github.com/gomlx/thnngen/pkg/codegen/render"
	"github.com/gomlx/thnngen/pkg/config"
	"k8s.io/klog/v2"
)

// File is the name of the file with the operations.
const File = "gen_functions.go"

// Emitter renders the operations file.
type Emitter struct {
	cfg *config.Config

	// Source names the catalog in the banner of the generated file.
	Source string
}

// New returns an Emitter for the given configuration.
func New(cfg *config.Config, source string) *Emitter {
	return &Emitter{cfg: cfg, Source: source}
}

// operation decorates a Plan with what the templates need.
type operation struct {
	*argplan.Plan
}

// IsCriterion returns whether the operation is a loss.
func (op operation) IsCriterion() bool {
	return op.Kind == families.KindCriterion
}

// Alloc returns the expression allocating a buffer: a single element for criteria, an empty tensor
// (resized by the kernel) otherwise.
func (op operation) Alloc() string {
	if op.IsCriterion() {
		return "input.New(1)"
	}
	return "input.New()"
}

// InPlaceField returns the name of the configuration field selecting in-place computation.
func (op operation) InPlaceField() string {
	return naming.Exported(argplan.InPlaceArgument)
}

// InputsDoc describes the forward inputs.
func (op operation) InputsDoc() string {
	var required, optional []string
	for _, input := range op.Inputs[:op.MandatoryInputs] {
		required = append(required, input.Name)
	}
	for _, input := range op.OptionalInputs() {
		optional = append(optional, input.Name)
	}
	doc := strings.Join(required, ", ")
	if len(optional) > 0 {
		doc += fmt.Sprintf(", optionally followed by %s", strings.Join(optional, ", "))
	}
	return doc
}

// ReadInput returns the expression reading a forward input.
func (op operation) ReadInput(input argplan.Input) string {
	switch {
	case input.Optional:
		return fmt.Sprintf("autograd.OptionalAt(inputs, %d)", input.Index)
	case op.IsCriterion() && input.Index < 2:
		return fmt.Sprintf("inputs[%d].Clone()", input.Index)
	}
	return fmt.Sprintf("inputs[%d]", input.Index)
}

// ReadSaved returns the expression reading a retained value in backward.
func (op operation) ReadSaved(r argplan.Retained) string {
	if r.Optional {
		return fmt.Sprintf("autograd.Some(saved[%d])", r.Index)
	}
	return fmt.Sprintf("saved[%d]", r.Index)
}

// SavedExprs returns the tensors passed to SaveForBackward.
func (op operation) SavedExprs() []string {
	exprs := make([]string, len(op.Retained))
	for i, r := range op.Retained {
		exprs[i] = r.TensorExpr()
	}
	return exprs
}

// UsesGradOutput returns whether backward reads the upstream gradient: criteria always do.
func (op operation) UsesGradOutput() bool {
	if op.IsCriterion() || op.UpdateGradInput.Uses(argplan.RoleGradOutput) {
		return true
	}
	return op.AccGradParameters != nil && op.AccGradParameters.Uses(argplan.RoleGradOutput)
}

type fileData struct {
	Banner, Package, AutogradImport, Interface string
	Operations                                 []operation
}

// Operations renders the file with one operation per plan, in the given order.
func (e *Emitter) Operations(plans []*argplan.Plan) []byte {
	data := fileData{
		Banner:         render.Banner(e.Source),
		Package:        e.cfg.Package,
		AutogradImport: e.cfg.AutogradImport,
		Interface:      e.cfg.Backend.Interface,
	}
	for _, plan := range plans {
		data.Operations = append(data.Operations, operation{plan})
	}
	klog.V(1).Infof("opgen: %d operations", len(data.Operations))
	return render.Source(operationsTemplate, File, data)
}
