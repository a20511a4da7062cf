// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package autogradtest provides an in-memory autograd.Tensor, to test operations without native kernels.
package autogradtest

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/thnngen/pkg/autograd"
)

// Tensor is a dense float64 tensor held in Go memory.
type Tensor struct {
	// Label identifies the tensor in test failures.
	Label string

	dims    []int
	data    []float64
	backend any
}

var (
	_ autograd.Tensor   = (*Tensor)(nil)
	_ autograd.Nillable = (*Tensor)(nil)
)

// New creates a tensor with the given values and dimensions, owned by backend.
// With no dimensions the tensor is a vector of the values.
func New(backend any, values []float64, dims ...int) *Tensor {
	if len(dims) == 0 {
		dims = []int{len(values)}
	}
	if size(dims) != len(values) {
		exceptions.Panicf("autogradtest.New: %d values for dimensions %v", len(values), dims)
	}
	return &Tensor{dims: slices.Clone(dims), data: slices.Clone(values), backend: backend}
}

func size(dims []int) int {
	n := 1
	for _, dim := range dims {
		n *= dim
	}
	return n
}

func cast(t autograd.Tensor) *Tensor {
	ft, ok := t.(*Tensor)
	if !ok {
		exceptions.Panicf("autogradtest: expected *autogradtest.Tensor, got %T", t)
	}
	return ft
}

// Of returns the *Tensor behind an autograd.Tensor.
func Of(t autograd.Tensor) *Tensor {
	return cast(t)
}

// Values returns the tensor's values.
func (t *Tensor) Values() []float64 {
	return t.data
}

// Set replaces the contents of the tensor.
func (t *Tensor) Set(values []float64, dims ...int) {
	if len(dims) == 0 {
		dims = []int{len(values)}
	}
	if size(dims) != len(values) {
		exceptions.Panicf("autogradtest.Set: %d values for dimensions %v", len(values), dims)
	}
	t.dims = slices.Clone(dims)
	t.data = slices.Clone(values)
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("%s%v:%v", t.Label, t.dims, t.data)
}

// Handle implements autograd.Tensor.
func (t *Tensor) Handle() unsafe.Pointer {
	return unsafe.Pointer(t)
}

// IsNil implements autograd.Nillable.
func (t *Tensor) IsNil() bool {
	return t == nil
}

// Backend implements autograd.Tensor.
func (t *Tensor) Backend() any {
	return t.backend
}

// New implements autograd.Tensor.
func (t *Tensor) New(dims ...int) autograd.Tensor {
	if len(dims) == 0 {
		dims = []int{0}
	}
	return &Tensor{dims: slices.Clone(dims), data: make([]float64, size(dims)), backend: t.backend}
}

// Clone implements autograd.Tensor.
func (t *Tensor) Clone() autograd.Tensor {
	return &Tensor{Label: t.Label, dims: slices.Clone(t.dims), data: slices.Clone(t.data), backend: t.backend}
}

// Dims implements autograd.Tensor.
func (t *Tensor) Dims() []int {
	return slices.Clone(t.dims)
}

// Zero implements autograd.Tensor.
func (t *Tensor) Zero() autograd.Tensor {
	clear(t.data)
	return t
}

// ResizeAs implements autograd.Tensor.
func (t *Tensor) ResizeAs(other autograd.Tensor) autograd.Tensor {
	dims := cast(other).dims
	t.dims = slices.Clone(dims)
	t.data = slices.Grow(t.data[:0], size(dims))[:size(dims)]
	return t
}

// View implements autograd.Tensor.
func (t *Tensor) View(dims ...int) autograd.Tensor {
	if size(dims) != len(t.data) {
		exceptions.Panicf("autogradtest.View: cannot view %v as %v", t.dims, dims)
	}
	return &Tensor{Label: t.Label, dims: slices.Clone(dims), data: t.data, backend: t.backend}
}

// ExpandAs implements autograd.Tensor. Only tensors with a single element can be expanded.
func (t *Tensor) ExpandAs(other autograd.Tensor) autograd.Tensor {
	dims := cast(other).dims
	if slices.Equal(dims, t.dims) {
		return t
	}
	if len(t.data) != 1 {
		exceptions.Panicf("autogradtest.ExpandAs: cannot expand %v to %v", t.dims, dims)
	}
	data := make([]float64, size(dims))
	for i := range data {
		data[i] = t.data[0]
	}
	return &Tensor{Label: t.Label, dims: slices.Clone(dims), data: data, backend: t.backend}
}

// MulInPlace implements autograd.Tensor.
func (t *Tensor) MulInPlace(other autograd.Tensor) autograd.Tensor {
	o := cast(other)
	if len(o.data) != len(t.data) {
		exceptions.Panicf("autogradtest.MulInPlace: shapes %v and %v differ", t.dims, o.dims)
	}
	for i := range t.data {
		t.data[i] *= o.data[i]
	}
	return t
}
