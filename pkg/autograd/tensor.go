// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package autograd defines the runtime contract of the generated operations: the tensor and
// generator handles passed to the native kernels, optional tensors, and the bookkeeping of values
// retained by forward for backward.
package autograd

import "unsafe"

// Tensor is a reference to a native tensor.
//
// Methods returning a Tensor return the receiver itself when they modify it in place, so calls can be chained,
// e.g. `t.New().ResizeAs(t).Zero()`.
type Tensor interface {
	// Handle returns the native tensor handle, passed to the kernels.
	Handle() unsafe.Pointer

	// Backend returns the object that implements the kernels for the tensor's precision variant.
	Backend() any

	// New returns a new tensor of the same variant and device, with the given dimensions.
	// With no dimensions the tensor is empty: kernels resize their outputs as needed.
	New(dims ...int) Tensor

	// Clone returns a copy of the tensor, sharing no storage with it.
	Clone() Tensor

	// Dims returns the dimensions of the tensor.
	Dims() []int

	// Zero fills the tensor with zeros, in place.
	Zero() Tensor

	// ResizeAs resizes the tensor, in place, to the dimensions of other.
	ResizeAs(other Tensor) Tensor

	// View returns a tensor sharing the storage, with the given dimensions.
	View(dims ...int) Tensor

	// ExpandAs returns a view broadcasting the tensor's axes of dimension 1 to the dimensions of other.
	ExpandAs(other Tensor) Tensor

	// MulInPlace multiplies the tensor element-wise by other, in place.
	MulInPlace(other Tensor) Tensor
}

// Generator is a reference to a native random number generator.
type Generator interface {
	Handle() unsafe.Pointer
}

// Ones returns rank dimensions of size 1, used to view a one-element tensor with the rank of another.
func Ones(rank int) []int {
	dims := make([]int, rank)
	for i := range dims {
		dims[i] = 1
	}
	return dims
}

// Optional holds a Tensor that may be absent. The zero value is absent.
type Optional struct {
	t Tensor
}

// Nillable is implemented by tensors backed by a pointer, to tell when that pointer is nil.
// A nil pointer wrapped in a Tensor is not itself nil, so without it Some would take it as present.
type Nillable interface {
	IsNil() bool
}

// Some returns an Optional holding t. Some(nil) is absent, and so is a Nillable tensor whose IsNil is true.
func Some(t Tensor) Optional {
	if n, ok := t.(Nillable); ok && n.IsNil() {
		return Optional{}
	}
	return Optional{t: t}
}

// OptionalAt returns inputs[i], or an absent Optional if there is no such input.
func OptionalAt(inputs []Tensor, i int) Optional {
	if i < 0 || i >= len(inputs) {
		return Optional{}
	}
	return Some(inputs[i])
}

// Get returns the tensor and whether it is present.
func (o Optional) Get() (Tensor, bool) {
	return o.t, o.t != nil
}

// IsPresent returns whether the tensor is present.
func (o Optional) IsPresent() bool {
	return o.t != nil
}

// Tensor returns the tensor, or nil if absent.
func (o Optional) Tensor() Tensor {
	return o.t
}

// Handle returns the native handle of the tensor, or nil if absent.
func (o Optional) Handle() unsafe.Pointer {
	if o.t == nil {
		return nil
	}
	return o.t.Handle()
}
