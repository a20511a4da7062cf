// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backendparser reads back the method sets of generated Go files: the methods of the Backend
// interface and those of a concrete Backend implementation.
//
// It only parses: the files are never type-checked, so implementations calling cgo kernels can be
// compared against the interface without the native libraries.
package backendparser

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Method represents a single method, with its signature information as strings.
type Method struct {
	// Name is the method name
	Name string
	// Comments is the method documentation comment, one line per element.
	Comments []string
	// Parameters of the method.
	Parameters []NameAndType
}

// NameAndType of a parameter.
type NameAndType struct {
	Name, Type string
}

// Types returns the types of the parameters, without names.
func (m Method) Types() []string {
	types := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		types[i] = p.Type
	}
	return types
}

type file struct {
	fileSet *token.FileSet
	ast     *ast.File
	src     []byte
}

func parse(fileName string, src []byte) (*file, error) {
	f := &file{fileSet: token.NewFileSet(), src: src}
	var err error
	f.ast, err = parser.ParseFile(f.fileSet, fileName, src, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", fileName)
	}
	return f, nil
}

// text extracts the source of a node.
func (f *file) text(node ast.Node) string {
	start, end := f.fileSet.Position(node.Pos()).Offset, f.fileSet.Position(node.End()).Offset
	if end > len(f.src) {
		exceptions.Panicf("end offset %d out of bounds for %s", end, f.fileSet.Position(node.Pos()).Filename)
	}
	return string(f.src[start:end])
}

func (f *file) method(name string, doc *ast.CommentGroup, funcType *ast.FuncType) Method {
	m := Method{Name: name}
	if doc != nil {
		m.Comments = make([]string, 0, len(doc.List))
		for _, comment := range doc.List {
			m.Comments = append(m.Comments, comment.Text)
		}
	}
	if funcType.Params != nil {
		for _, param := range funcType.Params.List {
			paramType := f.text(param.Type)
			if len(param.Names) == 0 {
				m.Parameters = append(m.Parameters, NameAndType{Type: paramType})
			}
			for _, name := range param.Names {
				m.Parameters = append(m.Parameters, NameAndType{Name: name.Name, Type: paramType})
			}
		}
	}
	return m
}

// ParseInterface returns the methods of the named interface declared in src, in declaration order.
func ParseInterface(fileName string, src []byte, name string) ([]Method, error) {
	f, err := parse(fileName, src)
	if err != nil {
		return nil, err
	}
	var methods []Method
	found := false
	ast.Inspect(f.ast, func(n ast.Node) bool {
		typeSpec, ok := n.(*ast.TypeSpec)
		if !ok || typeSpec.Name.Name != name {
			return true
		}
		interfaceType, ok := typeSpec.Type.(*ast.InterfaceType)
		if !ok {
			return true
		}
		found = true
		for _, field := range interfaceType.Methods.List {
			funcType, ok := field.Type.(*ast.FuncType)
			if !ok {
				// Embedded interfaces are not generated.
				continue
			}
			methods = append(methods, f.method(field.Names[0].Name, field.Doc, funcType))
		}
		return false
	})
	if !found {
		return nil, errors.Errorf("interface %s not found in %s", name, fileName)
	}
	return methods, nil
}

// ParseMethods returns the methods declared in src with the named type, or a pointer to it, as
// receiver, in declaration order.
func ParseMethods(fileName string, src []byte, receiver string) ([]Method, error) {
	f, err := parse(fileName, src)
	if err != nil {
		return nil, err
	}
	var methods []Method
	for _, decl := range f.ast.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok || funcDecl.Recv == nil || len(funcDecl.Recv.List) != 1 {
			continue
		}
		recvType := funcDecl.Recv.List[0].Type
		if star, ok := recvType.(*ast.StarExpr); ok {
			recvType = star.X
		}
		if ident, ok := recvType.(*ast.Ident); !ok || ident.Name != receiver {
			continue
		}
		methods = append(methods, f.method(funcDecl.Name.Name, funcDecl.Doc, funcDecl.Type))
	}
	return methods, nil
}
