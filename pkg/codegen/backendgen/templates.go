// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backendgen

import (
	"text/template"

	"github.com/gomlx/thnngen/pkg/codegen/render"
)

var (
	interfaceTemplate = template.Must(template.New(InterfaceFile).Funcs(render.Funcs).Parse(`{{.Banner}}

package {{.Package}}

import (
	"{{.AutogradImport}}"
)

// {{.Interface}} is implemented once per precision variant: each method calls the native kernel
// of the same name. Optional tensors may be absent.
type {{.Interface}} interface {
{{- range .Methods}}
	// {{.Name}} calls {{.Kernel}}.
	{{.Name}}({{.ParamList}})
{{end -}}
}

// backendOf returns the {{.Interface}} implementing the kernels for the tensor's precision variant.
func backendOf(t autograd.Tensor) ({{.Interface}}, error) {
	backend, ok := t.Backend().({{.Interface}})
	if !ok {
		return nil, autograd.UnsupportedBackend("{{.Package}}.{{.Interface}}", t)
	}
	return backend, nil
}
`))

	implementationTemplate = template.Must(template.New("implementation").Funcs(render.Funcs).Parse(`{{.Banner}}

package {{.Package}}

/*
{{- range .Preamble}}
{{.}}
{{- end}}
*/
import "C"

import (
	"unsafe"
{{- if .Methods}}

	"{{.AutogradImport}}"
{{- end}}
)

// {{.Type}} implements {{.Interface}} with the {{.KernelPrefix}} kernels.
type {{.Type}} struct {
	state unsafe.Pointer
}

var _ {{.Interface}} = (*{{.Type}})(nil)

// New{{.Type}} returns a {{.Type}} that passes state, the native library state, to every kernel.
func New{{.Type}}(state unsafe.Pointer) *{{.Type}} {
	return &{{.Type}}{state: state}
}
{{- $type := .Type}}
{{range .Methods}}
// {{.Name}} calls {{.Symbol}}.
func (b *{{$type}}) {{.Name}}({{.ParamList}}) {
{{- range .Unwrapped}}
	var {{.}}Ptr unsafe.Pointer
	if t, ok := {{.}}.Get(); ok {
		{{.}}Ptr = t.Handle()
	}
{{- end}}
	C.{{.Symbol}}({{join .CallArgs}})
}
{{end}}`))
)
