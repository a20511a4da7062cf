// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package autograd

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	// ErrStaleRetention is returned by backward when there are no values retained by a previous forward:
	// either forward was never called, or backward already consumed them.
	ErrStaleRetention = stderrors.New("no retained values: backward requires a preceding forward")

	// ErrMissingUpstreamGradient is returned by backward when a required upstream gradient is absent.
	ErrMissingUpstreamGradient = stderrors.New("missing upstream gradient")

	// ErrInputCount is returned by forward when called with an unexpected number of inputs.
	ErrInputCount = stderrors.New("wrong number of inputs")

	// ErrUnsupportedBackend is returned when a tensor's backend doesn't implement the kernels of an operation.
	ErrUnsupportedBackend = stderrors.New("unsupported backend")
)

// UnsupportedBackend returns an error, matching ErrUnsupportedBackend, for a tensor whose backend doesn't
// implement the interface named want.
func UnsupportedBackend(want string, t Tensor) error {
	return errors.Wrapf(ErrUnsupportedBackend, "tensor backend %T doesn't implement %s", t.Backend(), want)
}

// Operation is a differentiable operation.
type Operation interface {
	// Forward computes the outputs of the operation.
	Forward(inputs []Tensor) ([]Tensor, error)

	// Backward returns one optional gradient per forward input, given the gradients of the outputs.
	Backward(gradOutputs []Optional) ([]Optional, error)
}

// Function holds the state shared by forward and backward of one operation instance.
// It is meant to be embedded by the operations.
type Function struct {
	numInputs      int
	saved          []Tensor
	hasSaved       bool
	dirty          []Tensor
	needsInputGrad []bool
}

// StartForward validates the number of inputs and resets the state left by a previous forward.
func (f *Function) StartForward(op string, inputs []Tensor, minInputs, maxInputs int) error {
	if len(inputs) < minInputs || len(inputs) > maxInputs {
		if minInputs == maxInputs {
			return errors.Wrapf(ErrInputCount, "%s: got %d inputs, want %d", op, len(inputs), minInputs)
		}
		return errors.Wrapf(ErrInputCount, "%s: got %d inputs, want %d to %d", op, len(inputs), minInputs, maxInputs)
	}
	for i, input := range inputs {
		if input == nil {
			return errors.Errorf("%s: input #%d is nil", op, i)
		}
	}
	f.numInputs = len(inputs)
	f.saved, f.hasSaved = nil, false
	f.dirty = nil
	return nil
}

// NumInputs returns the number of inputs of the last forward.
func (f *Function) NumInputs() int {
	return f.numInputs
}

// SaveForBackward retains tensors for the next backward. Absent optional values are saved as nil.
func (f *Function) SaveForBackward(tensors ...Tensor) {
	f.saved = tensors
	f.hasSaved = true
}

// SavedTensors returns the retained tensors and releases them: a second call without a new forward
// returns ErrStaleRetention.
func (f *Function) SavedTensors() ([]Tensor, error) {
	if !f.hasSaved {
		return nil, errors.WithStack(ErrStaleRetention)
	}
	saved := f.saved
	f.saved, f.hasSaved = nil, false
	return saved, nil
}

// MarkDirty records inputs modified in place by forward.
func (f *Function) MarkDirty(tensors ...Tensor) {
	f.dirty = append(f.dirty, tensors...)
}

// Dirty returns the inputs modified in place by the last forward.
func (f *Function) Dirty() []Tensor {
	return f.dirty
}

// SetNeedsInputGrad sets which inputs need a gradient. Inputs not listed need one.
func (f *Function) SetNeedsInputGrad(needs ...bool) {
	f.needsInputGrad = append([]bool(nil), needs...)
}

// NeedsInputGrad returns whether the i-th input needs a gradient.
func (f *Function) NeedsInputGrad(i int) bool {
	if i < len(f.needsInputGrad) {
		return f.needsInputGrad[i]
	}
	return true
}

// NeedsAnyInputGrad returns whether any of the inputs from the from-th on needs a gradient.
func (f *Function) NeedsAnyInputGrad(from int) bool {
	for i := from; i < f.numInputs; i++ {
		if f.NeedsInputGrad(i) {
			return true
		}
	}
	return false
}

// Upstream returns the gradient of the single output of an operation.
func Upstream(gradOutputs []Optional) (Tensor, error) {
	if t, ok := UpstreamOptional(gradOutputs).Get(); ok {
		return t, nil
	}
	return nil, errors.WithStack(ErrMissingUpstreamGradient)
}

// UpstreamOptional returns the gradient of the single output of an operation, possibly absent.
func UpstreamOptional(gradOutputs []Optional) Optional {
	if len(gradOutputs) == 0 {
		return Optional{}
	}
	return gradOutputs[0]
}

// SetGradient sets results[i] to grad, unless the i-th input wasn't given to forward.
func SetGradient(results []Optional, i int, grad Optional) {
	if i < len(results) {
		results[i] = grad
	}
}
