// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package render executes the code generation templates and formats their output.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/gomlx/exceptions"
	"golang.org/x/tools/imports"
)

// Banner returns the first line of every generated file.
func Banner(source string) string {
	return fmt.Sprintf("/***** File generated by thnngen, based on %s. Don't edit it directly. *****/", source)
}

// Source executes tmpl with data and returns the gofmt formatted result.
//
// The templates and the data they receive are under the generator's control, so a failure is a bug:
// it panics with an exception.
func Source(tmpl *template.Template, fileName string, data any) []byte {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		exceptions.Panicf("failed to execute template for %s: %+v", fileName, err)
	}
	formatted, err := imports.Process(fileName, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		exceptions.Panicf("generated source for %s doesn't parse: %+v\n%s", fileName, err, buf.String())
	}
	return formatted
}

// Join concatenates the expressions with ", ".
func Join(exprs []string) string {
	return strings.Join(exprs, ", ")
}

// Funcs are the functions available to all templates.
var Funcs = template.FuncMap{
	"join": Join,
}
