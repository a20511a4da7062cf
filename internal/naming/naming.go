// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package naming converts native identifiers into the Go identifiers used by the generated code.
package naming

import (
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gomlx/thnngen/internal/sets"
)

// reservedLocals are the names of the variables the generated code declares itself.
var reservedLocals = sets.MakeWith(
	"f", "args", "inputs", "gradOutputs", "backend", "saved", "err", "results", "t", "ok", "autograd")

// CamelCase joins snake_case words: "ignore_index" -> "ignoreIndex". Other characters are kept.
func CamelCase(name string) string {
	parts := strings.Split(name, "_")
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString(part)
			continue
		}
		sb.WriteString(upperFirst(part))
	}
	return sb.String()
}

// Exported returns the exported Go identifier for name: "sizeAverage" -> "SizeAverage".
func Exported(name string) string {
	return upperFirst(CamelCase(name))
}

// Local returns the local variable (or parameter) name for a native argument name.
// Names clashing with Go keywords or with the generated code's own variables get an "Arg" suffix.
func Local(name string) string {
	local := lowerFirst(CamelCase(name))
	if token.IsKeyword(local) || reservedLocals.Has(local) {
		local += "Arg"
	}
	return local
}

// Method returns the Backend method name of the kernel with the given family and suffix:
// ("Abs", "updateOutput") -> "AbsUpdateOutput".
func Method(family, suffix string) string {
	return Exported(family) + Exported(suffix)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
