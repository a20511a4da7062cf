// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typemap

import (
	stderrors "errors"
	"fmt"
)

// ErrUnmappedType is matched (with errors.Is) by every UnmappedTypeError.
var ErrUnmappedType = stderrors.New("unmapped type")

// UnmappedTypeError is returned when a native type token has no translation for a variant.
type UnmappedTypeError struct {
	Variant, Token string

	// Function and Argument locate the first use of Token, if known.
	Function, Argument string
}

// Error implements error.
func (e *UnmappedTypeError) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("unmapped type %q for variant %s", e.Token, e.Variant)
	}
	return fmt.Sprintf("unmapped type %q for variant %s (argument %q of %s)", e.Token, e.Variant, e.Argument, e.Function)
}

// Is makes errors.Is(err, ErrUnmappedType) succeed.
func (e *UnmappedTypeError) Is(target error) bool {
	return target == ErrUnmappedType
}

func joinUnmapped(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return stderrors.Join(errs...)
}
