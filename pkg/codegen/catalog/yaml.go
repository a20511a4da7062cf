// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAMLParser reads catalogs written as:
//
//	functions:
//	  - name: Abs_updateOutput
//	    arguments:
//	      - {name: state, type: THNNState*}
//	      - {name: input, type: THTensor*}
//	      - {name: output, type: THTensor*}
type YAMLParser struct{}

type yamlCatalog struct {
	Functions []FunctionDescriptor `yaml:"functions"`
}

// Parse implements Parser.
func (YAMLParser) Parse(source string) ([]FunctionDescriptor, error) {
	contents, err := os.ReadFile(source)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %q", source)
	}
	return ParseYAML(contents)
}

// ParseYAML parses a YAML catalog held in memory.
func ParseYAML(contents []byte) ([]FunctionDescriptor, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML catalog")
	}
	for ii, fn := range doc.Functions {
		if fn.Name == "" {
			return nil, errors.Errorf("function #%d has no name", ii)
		}
		for jj, arg := range fn.Arguments {
			if arg.Name == "" || arg.Type == "" {
				return nil, errors.Errorf("function %q: argument #%d needs both name and type", fn.Name, jj)
			}
		}
	}
	return doc.Functions, nil
}
