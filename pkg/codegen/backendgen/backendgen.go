// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backendgen emits the Backend interface, with one method per qualifying native kernel, and one
// cgo implementation of it per precision variant.
package backendgen

import (
	"slices"
	"strings"

	"github.com/gomlx/thnngen/internal/naming"
	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/codegen/render"
	"github.com/gomlx/thnngen/pkg/codegen/typemap"
	"github.com/gomlx/thnngen/pkg/config"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// InterfaceFile is the name of the file with the Backend interface.
const InterfaceFile = "gen_backend.go"

// ImplementationFile returns the name of the file with the implementation of the given variant.
func ImplementationFile(variant string) string {
	return "gen_backend_" + strings.ToLower(variant) + ".go"
}

// Emitter renders the backend files.
type Emitter struct {
	cfg      *config.Config
	registry *typemap.Registry

	// Source names the catalog in the banner of the generated files.
	Source string
}

// New returns an Emitter for the given configuration and type registry.
func New(cfg *config.Config, registry *typemap.Registry, source string) *Emitter {
	return &Emitter{cfg: cfg, registry: registry, Source: source}
}

// Qualifying returns the functions that get a Backend method, sorted by method name.
func (e *Emitter) Qualifying(functions []catalog.FunctionDescriptor) []catalog.FunctionDescriptor {
	var qualifying []catalog.FunctionDescriptor
	for _, fn := range functions {
		if e.cfg.Qualifies(fn.Name) {
			qualifying = append(qualifying, fn)
		}
	}
	slices.SortStableFunc(qualifying, func(a, b catalog.FunctionDescriptor) int {
		return strings.Compare(e.MethodName(a), e.MethodName(b))
	})
	return qualifying
}

// MethodName returns the Backend method name of fn.
func (e *Emitter) MethodName(fn catalog.FunctionDescriptor) string {
	return naming.Method(fn.Family(e.cfg.Separator), fn.Suffix(e.cfg.Separator))
}

type param struct {
	Name, Type string
}

type method struct {
	Name, Kernel, Symbol string

	// Params of the Go method: the native arguments without the state handle.
	Params []param

	// Unwrapped lists the optional tensor parameters, converted to a raw handle before the call.
	Unwrapped []string

	// CallArgs are the C arguments of the native call, state handle included.
	CallArgs []string
}

// ParamList returns the Go parameter list.
func (m method) ParamList() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.Name + " " + p.Type
	}
	return render.Join(parts)
}

// declare returns the Go parameters of fn, with the types of the dispatch variant.
func (e *Emitter) declare(fn catalog.FunctionDescriptor) (method, error) {
	m := method{Name: e.MethodName(fn), Kernel: fn.Name}
	if len(fn.Arguments) == 0 {
		return m, errors.Errorf("%s has no state handle argument", fn.Name)
	}
	dispatch := e.registry.Dispatch()
	seen := make(map[string]string)
	for _, arg := range fn.Arguments[1:] {
		goType, err := dispatch.Resolve(arg.Type)
		if err != nil {
			return m, locate(err, fn, arg)
		}
		if arg.IsOptional && arg.IsTensor() {
			goType = "autograd.Optional"
		}
		name := naming.Local(arg.Name)
		if other, found := seen[name]; found {
			return m, errors.Errorf("%s: arguments %q and %q have the same Go name %q", fn.Name, other, arg.Name, name)
		}
		seen[name] = arg.Name
		m.Params = append(m.Params, param{Name: name, Type: goType})
	}
	return m, nil
}

func locate(err error, fn catalog.FunctionDescriptor, arg catalog.Argument) error {
	var unmapped *typemap.UnmappedTypeError
	if errors.As(err, &unmapped) {
		unmapped.Function, unmapped.Argument = fn.Name, arg.Name
	}
	return err
}

type interfaceData struct {
	Banner, Package, Interface, AutogradImport string
	Methods                                    []method
}

// Interface renders the file declaring the Backend interface.
func (e *Emitter) Interface(functions []catalog.FunctionDescriptor) ([]byte, error) {
	data := interfaceData{
		Banner:         render.Banner(e.Source),
		Package:        e.cfg.Package,
		Interface:      e.cfg.Backend.Interface,
		AutogradImport: e.cfg.AutogradImport,
	}
	for _, fn := range e.Qualifying(functions) {
		m, err := e.declare(fn)
		if err != nil {
			return nil, err
		}
		data.Methods = append(data.Methods, m)
	}
	klog.V(1).Infof("backendgen: interface %s with %d methods", data.Interface, len(data.Methods))
	return render.Source(interfaceTemplate, InterfaceFile, data), nil
}

type implementationData struct {
	interfaceData
	Variant, Type, KernelPrefix string
	Preamble                    []string
}

// Implementation renders the cgo implementation of the Backend interface for the named variant.
// It fails with an UnmappedTypeError if a type used by a qualifying function has no translation for the variant.
func (e *Emitter) Implementation(variantName string, functions []catalog.FunctionDescriptor) ([]byte, error) {
	variant, found := e.registry.Variant(variantName)
	if !found || variant.IsDispatch() {
		return nil, errors.Errorf("unknown concrete variant %q", variantName)
	}
	qualifying := e.Qualifying(functions)
	if err := variant.Validate(qualifying); err != nil {
		return nil, err
	}
	data := implementationData{
		interfaceData: interfaceData{
			Banner:         render.Banner(e.Source),
			Package:        e.cfg.Package,
			Interface:      e.cfg.Backend.Interface,
			AutogradImport: e.cfg.AutogradImport,
		},
		Variant:      variant.Name,
		Type:         variant.Name + e.cfg.Backend.Interface,
		KernelPrefix: variant.KernelPrefix,
		Preamble:     strings.Split(strings.TrimRight(variant.Preamble, "\n"), "\n"),
	}
	for _, fn := range qualifying {
		m, err := e.declare(fn)
		if err != nil {
			return nil, err
		}
		m.Symbol = variant.KernelPrefix + fn.Name
		for i, arg := range fn.Arguments {
			cType, err := variant.Resolve(arg.Type)
			if err != nil {
				return nil, locate(err, fn, arg)
			}
			if i == 0 {
				m.CallArgs = append(m.CallArgs, convert(cType, "b.state"))
				continue
			}
			p := m.Params[i-1]
			switch {
			case arg.IsOptional && arg.IsTensor():
				m.Unwrapped = append(m.Unwrapped, p.Name)
				m.CallArgs = append(m.CallArgs, convert(cType, p.Name+"Ptr"))
			case typemap.IsHandle(arg.Type):
				m.CallArgs = append(m.CallArgs, convert(cType, p.Name+".Handle()"))
			default:
				m.CallArgs = append(m.CallArgs, convert(cType, p.Name))
			}
		}
		data.Methods = append(data.Methods, m)
	}
	klog.V(1).Infof("backendgen: %s implements %d methods", data.Type, len(data.Methods))
	return render.Source(implementationTemplate, ImplementationFile(variant.Name), data), nil
}

// cTypeNames maps multi-word C types to their cgo names.
var cTypeNames = map[string]string{
	"unsigned char":      "uchar",
	"signed char":        "schar",
	"unsigned short":     "ushort",
	"unsigned int":       "uint",
	"unsigned":           "uint",
	"unsigned long":      "ulong",
	"long long":          "longlong",
	"unsigned long long": "ulonglong",
}

// convert returns the cgo conversion of the Go expression to the C type.
// Pointers to void take an unsafe.Pointer as is.
func convert(cType, expr string) string {
	cType = strings.Join(strings.Fields(cType), " ")
	if base, isPointer := strings.CutSuffix(cType, "*"); isPointer {
		base = strings.TrimSpace(base)
		if base == "void" {
			return expr
		}
		return "(*C." + base + ")(" + expr + ")"
	}
	if name, found := cTypeNames[cType]; found {
		cType = name
	}
	return "C." + cType + "(" + expr + ")"
}
