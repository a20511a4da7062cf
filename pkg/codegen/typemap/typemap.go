// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package typemap implements the registry that translates native type tokens (e.g. "THTensor*", "real")
// into the types emitted for each precision variant.
//
// The dispatch variant maps tokens to the Go types used in declarations. Concrete variants map tokens
// to C types, used by the cgo implementations. Each concrete variant is built from three tiers:
// its own table, the table of its bucket (device class) and the common table shared by all buckets.
// A higher tier always wins, so the result doesn't depend on the order the tables are merged.
package typemap

import (
	"maps"
	"slices"
	"strings"

	"github.com/gomlx/thnngen/internal/sets"
	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/config"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Variant is a precision/device configuration with its own type table.
type Variant struct {
	// Name of the variant, e.g. "Float".
	Name string

	// Bucket is the device class the variant belongs to, empty for the dispatch variant.
	Bucket string

	// KernelPrefix is prepended to the kernel name to form the native symbol, e.g. "THNN_Float".
	KernelPrefix string

	// Preamble is the cgo preamble of the variant's implementation file.
	Preamble string

	table map[string]string

	// translated holds every token some concrete tier translates, shared by all variants of a Registry.
	translated sets.Set[string]
}

// IsDispatch returns whether v is the declaration-only variant.
func (v *Variant) IsDispatch() bool {
	return v.Bucket == ""
}

// Tokens returns the sorted native tokens v has an explicit entry for.
func (v *Variant) Tokens() []string {
	return slices.Sorted(maps.Keys(v.table))
}

// Registry holds the immutable type tables of the dispatch variant and of every concrete variant.
type Registry struct {
	dispatch *Variant
	variants map[string]*Variant
	names    []string
}

// NewRegistry merges the tables of cfg into one table per variant.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	types := cfg.Types
	translated := sets.MakeWith(slices.Collect(maps.Keys(types.Common))...)
	for _, bucket := range types.Buckets {
		translated.Insert(slices.Collect(maps.Keys(bucket.Table))...)
	}
	for _, vc := range types.Variants {
		translated.Insert(slices.Collect(maps.Keys(vc.Table))...)
	}
	r := &Registry{
		dispatch: &Variant{Name: types.Dispatch.Name, table: maps.Clone(types.Dispatch.Table), translated: translated},
		variants: make(map[string]*Variant, len(types.Variants)),
	}
	if r.dispatch.table == nil {
		r.dispatch.table = make(map[string]string)
	}
	for _, vc := range types.Variants {
		if _, found := r.variants[vc.Name]; found || vc.Name == r.dispatch.Name {
			return nil, errors.Errorf("variant %q defined more than once", vc.Name)
		}
		bucket, found := types.Buckets[vc.Bucket]
		if !found {
			return nil, errors.Errorf("variant %q uses unknown bucket %q", vc.Name, vc.Bucket)
		}
		v := &Variant{
			Name:         vc.Name,
			Bucket:       vc.Bucket,
			KernelPrefix: vc.KernelPrefix,
			Preamble:     bucket.Preamble,
			table:        make(map[string]string, len(types.Common)+len(bucket.Table)+len(vc.Table)),
			translated:   translated,
		}
		for _, tier := range []map[string]string{types.Common, bucket.Table, vc.Table} {
			maps.Copy(v.table, tier)
		}
		r.variants[vc.Name] = v
		r.names = append(r.names, vc.Name)
		klog.V(2).Infof("typemap: variant %s (bucket %s) has %d entries", v.Name, v.Bucket, len(v.table))
	}
	return r, nil
}

// Dispatch returns the declaration-only variant.
func (r *Registry) Dispatch() *Variant {
	return r.dispatch
}

// Variant returns the variant with the given name, the dispatch variant included.
func (r *Registry) Variant(name string) (*Variant, bool) {
	if name == r.dispatch.Name {
		return r.dispatch, true
	}
	v, found := r.variants[name]
	return v, found
}

// Names returns the names of the concrete variants, in configuration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Lookup returns the type v emits for token: its own entry, else the one it inherits from its bucket
// and the common table, else the token unchanged.
func (v *Variant) Lookup(token string) string {
	if target, found := v.table[token]; found {
		return target
	}
	return token
}

// IsHandle returns whether the native token is a pointer, which can never pass through untranslated.
func IsHandle(token string) bool {
	return strings.HasSuffix(token, "*")
}

// Resolve is like Lookup, but returns an UnmappedTypeError for a token without an entry that is either
// a handle or translated by some other variant, bucket or the common table (e.g. "real").
// Only tokens no table knows about, already native to every target, pass through unchanged.
func (v *Variant) Resolve(token string) (string, error) {
	if target, found := v.table[token]; found {
		return target, nil
	}
	if IsHandle(token) || v.translated.Has(token) {
		return "", &UnmappedTypeError{Variant: v.Name, Token: token}
	}
	return token, nil
}

// Validate resolves the type of every argument of every function, and returns one UnmappedTypeError
// per distinct unmapped token, with the first function and argument where it was found.
//
// The dispatch variant never declares the state handle (the first argument), so it's not checked for it.
func (v *Variant) Validate(functions []catalog.FunctionDescriptor) error {
	var errs []error
	reported := sets.Set[string]{}
	for _, fn := range functions {
		args := fn.Arguments
		if v.IsDispatch() && len(args) > 0 {
			args = args[1:]
		}
		for _, arg := range args {
			if _, err := v.Resolve(arg.Type); err != nil {
				if reported.Has(arg.Type) {
					continue
				}
				reported.Insert(arg.Type)
				errs = append(errs, &UnmappedTypeError{Variant: v.Name, Token: arg.Type, Function: fn.Name, Argument: arg.Name})
			}
		}
	}
	return joinUnmapped(errs)
}
