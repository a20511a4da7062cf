// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package autograd_test

import (
	"errors"
	"testing"

	"github.com/gomlx/thnngen/pkg/autograd"
	"github.com/gomlx/thnngen/pkg/autograd/autogradtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	x := autogradtest.New(nil, []float64{1, 2})
	var absent autograd.Optional
	assert.False(t, absent.IsPresent())
	assert.Nil(t, absent.Tensor())
	assert.Nil(t, absent.Handle())
	_, ok := absent.Get()
	assert.False(t, ok)
	assert.False(t, autograd.Some(nil).IsPresent())

	// A nil *autogradtest.Tensor is a non-nil autograd.Tensor.
	var typedNil *autogradtest.Tensor
	assert.False(t, autograd.Some(typedNil).IsPresent())
	assert.Nil(t, autograd.Some(typedNil).Handle())
	assert.False(t, autograd.OptionalAt([]autograd.Tensor{typedNil}, 0).IsPresent())

	present := autograd.Some(x)
	got, ok := present.Get()
	require.True(t, ok)
	assert.Same(t, x, got)
	assert.Equal(t, x.Handle(), present.Handle())

	inputs := []autograd.Tensor{x, x}
	assert.True(t, autograd.OptionalAt(inputs, 1).IsPresent())
	assert.False(t, autograd.OptionalAt(inputs, 2).IsPresent())
	assert.False(t, autograd.OptionalAt(inputs, -1).IsPresent())

	assert.Equal(t, []int{1, 1, 1}, autograd.Ones(3))
	assert.Empty(t, autograd.Ones(0))
}

func TestFunctionRetention(t *testing.T) {
	var f autograd.Function
	_, err := f.SavedTensors()
	require.Error(t, err)
	assert.True(t, errors.Is(err, autograd.ErrStaleRetention))

	x := autogradtest.New(nil, []float64{1})
	inputs := []autograd.Tensor{x}
	require.NoError(t, f.StartForward("Op", inputs, 1, 2))
	assert.Equal(t, 1, f.NumInputs())
	f.SaveForBackward(x, nil)
	f.MarkDirty(x)
	assert.Equal(t, []autograd.Tensor{x}, f.Dirty())

	saved, err := f.SavedTensors()
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Same(t, x, saved[0])
	assert.Nil(t, saved[1])

	// Consumed once.
	_, err = f.SavedTensors()
	assert.True(t, errors.Is(err, autograd.ErrStaleRetention))

	// A new forward resets the state.
	require.NoError(t, f.StartForward("Op", inputs, 1, 2))
	assert.Empty(t, f.Dirty())
	_, err = f.SavedTensors()
	assert.True(t, errors.Is(err, autograd.ErrStaleRetention))
}

func TestStartForward(t *testing.T) {
	var f autograd.Function
	x := autogradtest.New(nil, []float64{1})
	err := f.StartForward("Loss", []autograd.Tensor{x}, 2, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, autograd.ErrInputCount))
	assert.Contains(t, err.Error(), "Loss: got 1 inputs, want 2 to 3")

	err = f.StartForward("Abs", []autograd.Tensor{x, x}, 1, 1)
	assert.ErrorContains(t, err, "Abs: got 2 inputs, want 1")

	err = f.StartForward("Abs", []autograd.Tensor{nil}, 1, 1)
	assert.ErrorContains(t, err, "input #0 is nil")
}

func TestNeedsInputGrad(t *testing.T) {
	var f autograd.Function
	x := autogradtest.New(nil, []float64{1})
	require.NoError(t, f.StartForward("Conv", []autograd.Tensor{x, x, x}, 2, 3))
	assert.True(t, f.NeedsInputGrad(0))
	assert.True(t, f.NeedsAnyInputGrad(1))

	f.SetNeedsInputGrad(false, false, true)
	assert.False(t, f.NeedsInputGrad(0))
	assert.True(t, f.NeedsAnyInputGrad(1))
	f.SetNeedsInputGrad(true, false, false)
	assert.False(t, f.NeedsAnyInputGrad(1))
	assert.True(t, f.NeedsInputGrad(7))

	// Only the inputs given to forward count.
	require.NoError(t, f.StartForward("Conv", []autograd.Tensor{x, x}, 2, 3))
	f.SetNeedsInputGrad(true, false)
	assert.False(t, f.NeedsAnyInputGrad(1))
}

func TestUpstream(t *testing.T) {
	g := autogradtest.New(nil, []float64{2})
	got, err := autograd.Upstream([]autograd.Optional{autograd.Some(g)})
	require.NoError(t, err)
	assert.Same(t, g, got)

	_, err = autograd.Upstream(nil)
	assert.True(t, errors.Is(err, autograd.ErrMissingUpstreamGradient))
	_, err = autograd.Upstream([]autograd.Optional{{}})
	assert.True(t, errors.Is(err, autograd.ErrMissingUpstreamGradient))
	assert.False(t, autograd.UpstreamOptional(nil).IsPresent())

	results := make([]autograd.Optional, 2)
	autograd.SetGradient(results, 1, autograd.Some(g))
	autograd.SetGradient(results, 2, autograd.Some(g))
	assert.Equal(t, []autograd.Optional{{}, autograd.Some(g)}, results)

	err = autograd.UnsupportedBackend("nn.Backend", g)
	assert.True(t, errors.Is(err, autograd.ErrUnsupportedBackend))
	assert.Contains(t, err.Error(), "<nil> doesn't implement nn.Backend")
}

func TestFakeTensor(t *testing.T) {
	x := autogradtest.New("cpu", []float64{1, 2, 3, 4}, 2, 2)
	assert.Equal(t, "cpu", x.Backend())
	y := autogradtest.Of(x.New().ResizeAs(x).Zero())
	assert.Equal(t, []int{2, 2}, y.Dims())
	assert.Equal(t, []float64{0, 0, 0, 0}, y.Values())

	c := autogradtest.Of(x.Clone())
	c.Values()[0] = 10
	assert.Equal(t, 1.0, x.Values()[0])

	scalar := autogradtest.New("cpu", []float64{3})
	expanded := scalar.View(autograd.Ones(2)...).ExpandAs(x)
	assert.Equal(t, []int{2, 2}, expanded.Dims())
	x.MulInPlace(expanded)
	assert.Equal(t, []float64{3, 6, 9, 12}, x.Values())
}
