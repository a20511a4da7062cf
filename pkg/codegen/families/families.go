// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package families groups native kernels into operation families (e.g. "ELU_updateOutput" and
// "ELU_updateGradInput" form the family "ELU") and classifies them.
package families

import (
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/gomlx/thnngen/internal/sets"
	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/config"
	"k8s.io/klog/v2"
)

// Suffixes of the members of a family.
const (
	SuffixUpdateOutput      = "updateOutput"
	SuffixUpdateGradInput   = "updateGradInput"
	SuffixAccGradParameters = "accGradParameters"
	SuffixBackward          = "backward"
)

// Kind of operation family, decided once by the Resolver.
type Kind int

const (
	KindInvalid Kind = iota

	// KindGeneral operates on one primary input, plus parameters and buffers.
	KindGeneral

	// KindCriterion takes (input, target) and produces a one-element loss.
	KindCriterion
)

//go:generate go tool enumer -type=Kind -trimprefix=Kind -output=gen_kind_enumer.go families.go

// Family is a resolved operation family.
type Family struct {
	// Key is the native family name, e.g. "ClassNLLCriterion".
	Key string

	// Name is the public name of the operation, e.g. "NLLLoss".
	Name string

	Kind Kind

	UpdateOutput, UpdateGradInput catalog.FunctionDescriptor

	// AccGradParameters is nil for families without learnable parameters.
	AccGradParameters *catalog.FunctionDescriptor
}

// HasParameters returns whether the family accumulates parameter gradients.
func (f *Family) HasParameters() bool {
	return f.AccGradParameters != nil
}

// Members returns the family's kernels in phase order.
func (f *Family) Members() []catalog.FunctionDescriptor {
	members := []catalog.FunctionDescriptor{f.UpdateOutput, f.UpdateGradInput}
	if f.AccGradParameters != nil {
		members = append(members, *f.AccGradParameters)
	}
	return members
}

// Resolver groups and classifies families according to the configuration.
type Resolver struct {
	cfg              *config.Config
	excluded         sets.Set[string]
	criterionMarkers []string
}

// NewResolver creates a Resolver for cfg.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		cfg:              cfg,
		excluded:         sets.MakeWith(cfg.Families.Excluded...),
		criterionMarkers: cfg.Families.CriterionMarkers,
	}
}

// Resolution is the result of Resolver.Resolve.
type Resolution struct {
	// Families that can be emitted, sorted by Key.
	Families []*Family

	// Excluded lists the keys of the denylisted families found in the catalog, sorted.
	Excluded []string

	// Errors holds one error per family that was skipped, e.g. an IncompleteFamilyError.
	Errors []error
}

// Resolve groups the qualifying functions by family key, in lexicographic order.
func (r *Resolver) Resolve(functions []catalog.FunctionDescriptor) *Resolution {
	sep := r.cfg.Separator
	groups := treemap.NewWithStringComparator()
	for _, fn := range functions {
		if !r.cfg.Qualifies(fn.Name) {
			continue
		}
		key := fn.Family(sep)
		var members map[string]catalog.FunctionDescriptor
		if value, found := groups.Get(key); found {
			members = value.(map[string]catalog.FunctionDescriptor)
		} else {
			members = make(map[string]catalog.FunctionDescriptor)
			groups.Put(key, members)
		}
		members[fn.Suffix(sep)] = fn
	}

	res := &Resolution{}
	publicNames := make(map[string]string)
	it := groups.Iterator()
	for it.Next() {
		key := it.Key().(string)
		members := it.Value().(map[string]catalog.FunctionDescriptor)
		if r.excluded.Has(key) {
			klog.V(1).Infof("families: %s is excluded", key)
			res.Excluded = append(res.Excluded, key)
			continue
		}
		family, err := r.resolveFamily(key, members)
		if err != nil {
			klog.Warningf("families: skipping %s: %v", key, err)
			res.Errors = append(res.Errors, err)
			continue
		}
		if other, found := publicNames[family.Name]; found {
			err = &NameCollisionError{Family: key, Name: family.Name, Other: other}
			klog.Warningf("families: skipping %s: %v", key, err)
			res.Errors = append(res.Errors, err)
			continue
		}
		publicNames[family.Name] = key
		klog.V(2).Infof("families: %s -> %s (%s, parameters=%v)", key, family.Name, family.Kind, family.HasParameters())
		res.Families = append(res.Families, family)
	}
	return res
}

func (r *Resolver) resolveFamily(key string, members map[string]catalog.FunctionDescriptor) (*Family, error) {
	updateOutput, found := members[SuffixUpdateOutput]
	if !found {
		return nil, &IncompleteFamilyError{Family: key, Missing: SuffixUpdateOutput}
	}
	updateGradInput, found := members[SuffixUpdateGradInput]
	if !found {
		return nil, &IncompleteFamilyError{Family: key, Missing: SuffixUpdateGradInput}
	}
	family := &Family{
		Key:             key,
		Name:            key,
		Kind:            KindGeneral,
		UpdateOutput:    updateOutput,
		UpdateGradInput: updateGradInput,
	}
	if accGrad, found := members[SuffixAccGradParameters]; found {
		family.AccGradParameters = &accGrad
	}
	if rename, found := r.cfg.Families.Rename[key]; found {
		family.Name = rename
	}
	for _, marker := range r.criterionMarkers {
		if strings.Contains(key, marker) {
			family.Kind = KindCriterion
			break
		}
	}
	return family, nil
}
