// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package families

import (
	stderrors "errors"
	"fmt"
)

// ErrIncompleteFamily is matched (with errors.Is) by every IncompleteFamilyError.
var ErrIncompleteFamily = stderrors.New("incomplete family")

// IncompleteFamilyError is returned for a family missing a required member.
type IncompleteFamilyError struct {
	Family, Missing string
}

// Error implements error.
func (e *IncompleteFamilyError) Error() string {
	return fmt.Sprintf("incomplete family %s: missing %s_%s", e.Family, e.Family, e.Missing)
}

// Is makes errors.Is(err, ErrIncompleteFamily) succeed.
func (e *IncompleteFamilyError) Is(target error) bool {
	return target == ErrIncompleteFamily
}

// NameCollisionError is returned for a family whose public name is already taken by another family.
type NameCollisionError struct {
	Family, Name, Other string
}

// Error implements error.
func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("family %s is renamed to %q, which is already used by family %s", e.Family, e.Name, e.Other)
}
