// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package catalog defines the native kernel signatures consumed by the generators, and the parsers
// that produce them from a THNN style C header or from a YAML description.
package catalog

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Argument of a native kernel.
type Argument struct {
	// Name as declared in the native signature, e.g. "gradOutput".
	Name string `yaml:"name"`

	// Type is the native type token, e.g. "THTensor*", "real" or "bool".
	Type string `yaml:"type"`

	// IsOptional is set for arguments flagged `[OPTIONAL]`: callers may pass a null handle.
	IsOptional bool `yaml:"optional,omitempty"`
}

// IsTensor returns whether the argument holds a tensor handle.
func (a Argument) IsTensor() bool {
	return IsTensorType(a.Type)
}

// IsTensorType returns whether the native type token refers to a tensor.
func IsTensorType(token string) bool {
	return strings.Contains(token, "Tensor")
}

// FunctionDescriptor describes one native kernel. The first argument is always the library state handle.
type FunctionDescriptor struct {
	Name      string     `yaml:"name"`
	Arguments []Argument `yaml:"arguments"`
}

// Family returns the part of the name before the first separator: "Abs_updateOutput" -> "Abs".
func (fn FunctionDescriptor) Family(separator string) string {
	family, _, _ := strings.Cut(fn.Name, separator)
	return family
}

// Suffix returns the part of the name after the first separator: "Abs_updateOutput" -> "updateOutput".
// It returns "" if there is no separator.
func (fn FunctionDescriptor) Suffix(separator string) string {
	_, suffix, _ := strings.Cut(fn.Name, separator)
	return suffix
}

// Argument returns the argument with the given name.
func (fn FunctionDescriptor) Argument(name string) (arg Argument, found bool) {
	for _, arg = range fn.Arguments {
		if arg.Name == name {
			return arg, true
		}
	}
	return Argument{}, false
}

// HasArgument returns whether the function has an argument with the given name.
func (fn FunctionDescriptor) HasArgument(name string) bool {
	_, found := fn.Argument(name)
	return found
}

// Parser turns a catalog source (a file path) into the ordered list of kernels it declares.
type Parser interface {
	Parse(source string) ([]FunctionDescriptor, error)
}

// ForSource returns the Parser for the given source, based on its file extension:
// ".h" for THNN style headers and ".yaml"/".yml" for YAML catalogs.
func ForSource(source string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".h", ".hpp":
		return HeaderParser{}, nil
	case ".yaml", ".yml":
		return YAMLParser{}, nil
	}
	return nil, errors.Errorf("unknown catalog format for %q: expected a .h header or a .yaml file", source)
}

// Load parses source with the parser selected by ForSource.
func Load(source string) ([]FunctionDescriptor, error) {
	parser, err := ForSource(source)
	if err != nil {
		return nil, err
	}
	return parser.Parse(source)
}
