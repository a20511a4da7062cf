// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// HeaderParser reads THNN style headers, where every kernel is declared as:
//
//	TH_API void THNN_(Abs_updateOutput)(
//	          THNNState *state,
//	          THTensor *input,
//	          THTensor *weights,    // [OPTIONAL]
//	          THTensor *output);
//
// Arguments may also share a line. Preprocessor lines, block comments and any text outside a
// declaration are ignored.
type HeaderParser struct{}

// OptionalMarker flags an optional argument in the line comment that follows it.
const OptionalMarker = "[OPTIONAL]"

var (
	declarationRegexp  = regexp.MustCompile(`^TH_API\s+void\s+THN[A-Z]*_\(?(\w+?)\)?\s*\((.*)$`)
	blockCommentRegexp = regexp.MustCompile(`/\*.*?\*/`)
)

// Parse implements Parser.
func (p HeaderParser) Parse(source string) ([]FunctionDescriptor, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open header %q", source)
	}
	defer func() { _ = f.Close() }()
	functions, err := p.ParseReader(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while parsing %q", source)
	}
	klog.V(1).Infof("catalog: parsed %d functions from %q", len(functions), source)
	return functions, nil
}

// ParseReader parses the header contents read from r.
func (p HeaderParser) ParseReader(r io.Reader) ([]FunctionDescriptor, error) {
	var functions []FunctionDescriptor
	var current *FunctionDescriptor
	scanner := bufio.NewScanner(r)
	lineNum := 0
	inBlockComment := false
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Block comments, possibly spanning several lines.
		line = blockCommentRegexp.ReplaceAllString(line, "")
		if inBlockComment {
			end := strings.Index(line, "*/")
			if end == -1 {
				continue
			}
			line = line[end+2:]
			inBlockComment = false
		}
		if start := strings.Index(line, "/*"); start != -1 {
			line = line[:start]
			inBlockComment = true
		}

		code, comment, _ := strings.Cut(line, "//")
		code = strings.TrimSpace(code)
		if code == "" || strings.HasPrefix(code, "#") {
			continue
		}

		if current == nil {
			if !strings.HasPrefix(code, "TH_API") {
				continue
			}
			matches := declarationRegexp.FindStringSubmatch(code)
			if matches == nil {
				klog.V(2).Infof("catalog: line %d: skipping unsupported declaration %q", lineNum, code)
				continue
			}
			current = &FunctionDescriptor{Name: matches[1]}
			code = strings.TrimSpace(matches[2])
			if code == "" {
				continue
			}
		}

		closing, err := addArguments(current, code, strings.Contains(comment, OptionalMarker))
		if err != nil {
			return nil, errors.WithMessagef(err, "line %d", lineNum)
		}
		if closing {
			functions = append(functions, *current)
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if current != nil {
		return nil, errors.Errorf("declaration of %q is not terminated", current.Name)
	}
	return functions, nil
}

// addArguments parses the comma separated arguments in code and appends them to fn.
// It returns whether code closes the declaration.
func addArguments(fn *FunctionDescriptor, code string, optional bool) (closing bool, err error) {
	closing = strings.HasSuffix(code, ");")
	code = strings.TrimSuffix(code, ");")
	code = strings.TrimSuffix(code, ",")
	for _, part := range strings.Split(code, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		arg, err := parseArgument(part)
		if err != nil {
			return false, err
		}
		arg.IsOptional = optional
		fn.Arguments = append(fn.Arguments, arg)
	}
	return closing, nil
}

// parseArgument splits "THTensor *input", "THTensor* input" or "bool sizeAverage" into type and name.
func parseArgument(text string) (Argument, error) {
	fields := strings.Fields(text)
	if len(fields) == 3 && fields[1] == "*" {
		fields = []string{fields[0] + "*", fields[2]}
	}
	if len(fields) != 2 {
		return Argument{}, errors.Errorf("cannot parse argument %q: expected \"<type> <name>\"", text)
	}
	argType, name := fields[0], fields[1]
	for strings.HasPrefix(name, "*") {
		argType += "*"
		name = name[1:]
	}
	if name == "" {
		return Argument{}, errors.Errorf("argument %q has no name", text)
	}
	return Argument{Name: name, Type: argType}, nil
}
