// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opgen

import (
	"text/template"

	"github.com/gomlx/thnngen/pkg/codegen/render"
)

var operationsTemplate = template.Must(template.New(File).Funcs(render.Funcs).Parse(`{{.Banner}}

package {{.Package}}

import (
	"{{.AutogradImport}}"
)
{{range .Operations}}
{{- $op := .}}
{{- if .HasFields}}
// {{.Name}}Args configures {{.Name}}.
type {{.Name}}Args struct {
{{- range .Fields}}
	{{.Name}} {{.Type}}
{{- end}}
}
{{end}}
// {{.Name}} is the differentiable operation over the {{.Key}} kernels.
//
// Forward inputs: {{.InputsDoc}}.
type {{.Name}} struct {
	autograd.Function
{{- if .HasFields}}
	Args {{.Name}}Args
{{- end}}
}

var _ autograd.Operation = (*{{.Name}})(nil)

// New{{.Name}} returns a new {{.Name}} operation.
func New{{.Name}}({{if .HasFields}}args {{.Name}}Args{{end}}) *{{.Name}} {
	return &{{.Name}}{ {{- if .HasFields}}Args: args{{end -}} }
}

// Forward implements autograd.Operation.
func (f *{{.Name}}) Forward(inputs []autograd.Tensor) ([]autograd.Tensor, error) {
	if err := f.StartForward("{{.Name}}", inputs, {{.MandatoryInputs}}, {{.MaxInputs}}); err != nil {
		return nil, err
	}
{{- range .Inputs}}
	{{.Var}} := {{$op.ReadInput .}}
{{- end}}
	backend, err := backendOf(input)
	if err != nil {
		return nil, err
	}
{{- if .InPlace}}
	var output autograd.Tensor
	if f.Args.{{.InPlaceField}} {
		f.MarkDirty(input)
		output = input
	} else {
		output = input.New()
	}
{{- else if .IsCriterion}}
	output := input.New(1)
{{- else}}
	output := input.New()
{{- end}}
{{- range .ForwardBuffers}}
	{{.}} := {{$op.Alloc}}
{{- end}}
	backend.{{.UpdateOutput.Method}}({{join .UpdateOutput.Exprs}})
	f.SaveForBackward({{join .SavedExprs}})
	return []autograd.Tensor{output}, nil
}

// Backward implements autograd.Operation.
func (f *{{.Name}}) Backward(gradOutputs []autograd.Optional) ([]autograd.Optional, error) {
	saved, err := f.SavedTensors()
	if err != nil {
		return nil, err
	}
{{- range .Retained}}
{{- if .Backward}}
	{{.Var}} := {{$op.ReadSaved .}}
{{- end}}
{{- end}}
{{- if .UsesGradOutput}}
{{- if .GradOutputOptional}}
	gradOutput := autograd.UpstreamOptional(gradOutputs)
{{- else}}
	gradOutput, err := autograd.Upstream(gradOutputs)
	if err != nil {
		return nil, err
	}
{{- end}}
{{- end}}
	backend, err := backendOf(input)
	if err != nil {
		return nil, err
	}
	results := make([]autograd.Optional, f.NumInputs())
{{- if .IsCriterion}}
	gradInput := input.New(input.Dims()...).Zero()
{{- range .GradInputBuffers}}
	{{.}} := {{$op.Alloc}}
{{- end}}
	backend.{{.UpdateGradInput.Method}}({{join .UpdateGradInput.Exprs}})
{{- if not .ConsumesGradOutput}}
	gradInput.MulInPlace(gradOutput.View(autograd.Ones(len(gradInput.Dims()))...).ExpandAs(gradInput))
{{- end}}
	results[0] = autograd.Some(gradInput)
{{- else}}
	if f.NeedsInputGrad(0) {
		gradInput := input.New()
{{- range .GradInputBuffers}}
		{{.}} := {{$op.Alloc}}
{{- end}}
		backend.{{.UpdateGradInput.Method}}({{join .UpdateGradInput.Exprs}})
		results[0] = autograd.Some(gradInput)
	}
{{- with .AccGradParameters}}
	if f.NeedsAnyInputGrad(1) {
{{- range $op.ParamGrads}}
{{- if .Optional}}
		var {{.Var}} autograd.Optional
		if t, ok := {{.Param.Var}}.Get(); ok {
			{{.Var}} = autograd.Some(t.New().ResizeAs(t).Zero())
		}
{{- else}}
		{{.Var}} := {{.Param.Var}}.New().ResizeAs({{.Param.Var}}).Zero()
{{- end}}
{{- end}}
{{- range $op.AccGradBuffers}}
		{{.}} := {{$op.Alloc}}
{{- end}}
		backend.{{.Method}}({{join .Exprs}})
{{- range $op.ParamGrads}}
{{- if .Optional}}
		autograd.SetGradient(results, {{.Param.Index}}, {{.Var}})
{{- else}}
		results[{{.Param.Index}}] = autograd.Some({{.Var}})
{{- end}}
{{- end}}
	}
{{- end}}
{{- end}}
	return results, nil
}
{{end}}`))
