// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package generator

import (
	"slices"
	"strings"

	"github.com/gomlx/thnngen/pkg/codegen/families"
)

// Status of a family in the Report.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusExcluded  Status = "excluded"
	StatusSkipped   Status = "skipped"
)

// FamilyOutcome reports what happened to one operation family.
type FamilyOutcome struct {
	Key, Name string
	Kind      families.Kind
	Status    Status
	Err       error
}

// VariantOutcome reports the generation of one Backend implementation.
type VariantOutcome struct {
	Name, File string
	Err        error
}

// Report summarizes a generation run.
type Report struct {
	// Functions is the number of functions in the catalog, Methods the number of them in the Backend interface.
	Functions, Methods int

	// Families sorted by key.
	Families []FamilyOutcome
	Variants []VariantOutcome

	// Errors of the skipped families and variants.
	Errors []error
}

// Failed returns whether some family or variant was skipped because of an error.
func (r *Report) Failed() bool {
	return len(r.Errors) > 0
}

// Count returns the number of families with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, f := range r.Families {
		if f.Status == status {
			n++
		}
	}
	return n
}

func sortFamilies(outcomes []FamilyOutcome) {
	slices.SortStableFunc(outcomes, func(a, b FamilyOutcome) int {
		return strings.Compare(a.Key, b.Key)
	})
}
