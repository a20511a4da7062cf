// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backendgen

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/codegen/typemap"
	"github.com/gomlx/thnngen/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmitter(t *testing.T) (*Emitter, []catalog.FunctionDescriptor) {
	cfg := config.Default()
	registry, err := typemap.NewRegistry(cfg)
	require.NoError(t, err)
	functions, err := catalog.Load("../catalog/testdata/THNN.h")
	require.NoError(t, err)
	return New(cfg, registry, "THNN.h"), functions
}

func TestQualifying(t *testing.T) {
	e, functions := newEmitter(t)
	var names []string
	for _, fn := range e.Qualifying(functions) {
		names = append(names, e.MethodName(fn))
	}
	// LookupTable_accGradParameters and unfolded_acc are left out.
	assert.Len(t, names, 19)
	assert.Equal(t, "AbsCriterionUpdateGradInput", names[0])
	assert.Equal(t, "AbsCriterionUpdateOutput", names[1])
	assert.Equal(t, "AbsUpdateGradInput", names[2])
	assert.NotContains(t, names, "LookupTableAccGradParameters")
	assert.True(t, slices.IsSorted(names))
}

func TestInterface(t *testing.T) {
	e, functions := newEmitter(t)
	src, err := e.Interface(functions)
	require.NoError(t, err)
	code := string(src)
	assert.True(t, strings.HasPrefix(code,
		"/***** File generated by thnngen, based on THNN.h. Don't edit it directly. *****/\n\npackage nn\n"))
	assert.Contains(t, code, `import (
	"github.com/gomlx/thnngen/pkg/autograd"
)`)
	assert.Contains(t, code, "type Backend interface {\n")
	assert.Contains(t, code, "\t// AbsUpdateOutput calls Abs_updateOutput.\n\tAbsUpdateOutput(input autograd.Tensor, output autograd.Tensor)\n")
	assert.Contains(t, code, "\tBCECriterionUpdateOutput(input autograd.Tensor, target autograd.Tensor, "+
		"output autograd.Tensor, sizeAverage bool, weights autograd.Optional)\n")
	assert.Contains(t, code, "\tClassNLLCriterionUpdateOutput(input autograd.Tensor, target autograd.Tensor, "+
		"output autograd.Tensor, sizeAverage bool, weights autograd.Optional, totalWeight autograd.Tensor, ignoreIndex int64)\n")
	assert.Contains(t, code, "\tELUUpdateOutput(input autograd.Tensor, output autograd.Tensor, alpha float64, inplace bool)\n")
	assert.Contains(t, code, "gradBias autograd.Optional, columns autograd.Tensor, ones autograd.Tensor, "+
		"kW int32, kH int32, dW int32, dH int32, padW int32, padH int32, dilationW int32, dilationH int32, scale float64)\n")
	assert.Contains(t, code, "func backendOf(t autograd.Tensor) (Backend, error) {")
	assert.Contains(t, code, `autograd.UnsupportedBackend("nn.Backend", t)`)
	assert.NotContains(t, code, "LookupTable")
	assert.NotContains(t, code, "state")
	assert.Equal(t, 19, strings.Count(code, "\n\t// "))
}

func TestImplementation(t *testing.T) {
	e, functions := newEmitter(t)
	src, err := e.Implementation("Float", functions)
	require.NoError(t, err)
	code := string(src)
	assert.Contains(t, code, `package nn

/*
#cgo LDFLAGS: -lTHNN -lTH
#include <TH/TH.h>
#include <THNN/THNN.h>
*/
import "C"
`)
	assert.Contains(t, code, "type FloatBackend struct {\n\tstate unsafe.Pointer\n}")
	assert.Contains(t, code, "var _ Backend = (*FloatBackend)(nil)")
	assert.Contains(t, code, "func NewFloatBackend(state unsafe.Pointer) *FloatBackend {")
	assert.Contains(t, code, `// AbsUpdateOutput calls THNN_FloatAbs_updateOutput.
func (b *FloatBackend) AbsUpdateOutput(input autograd.Tensor, output autograd.Tensor) {
	C.THNN_FloatAbs_updateOutput(b.state, (*C.THFloatTensor)(input.Handle()), (*C.THFloatTensor)(output.Handle()))
}`)
	// Optional tensors are unwrapped to a raw handle or nil, scalars converted to C.
	assert.Contains(t, code, `func (b *FloatBackend) ClassNLLCriterionUpdateOutput(input autograd.Tensor, target autograd.Tensor, output autograd.Tensor, sizeAverage bool, weights autograd.Optional, totalWeight autograd.Tensor, ignoreIndex int64) {
	var weightsPtr unsafe.Pointer
	if t, ok := weights.Get(); ok {
		weightsPtr = t.Handle()
	}
	C.THNN_FloatClassNLLCriterion_updateOutput(b.state, (*C.THFloatTensor)(input.Handle()), (*C.THLongTensor)(target.Handle()), (*C.THFloatTensor)(output.Handle()), C.bool(sizeAverage), (*C.THFloatTensor)(weightsPtr), (*C.THFloatTensor)(totalWeight.Handle()), C.long(ignoreIndex))
}`)
	assert.Contains(t, code, "C.THNN_FloatELU_updateOutput(b.state, (*C.THFloatTensor)(input.Handle()), "+
		"(*C.THFloatTensor)(output.Handle()), C.float(alpha), C.bool(inplace))")
	assert.Contains(t, code, "C.int(dilationH), C.double(scale))")
	assert.Equal(t, 19, strings.Count(code, "func (b *FloatBackend) "))

	double, err := e.Implementation("Double", functions)
	require.NoError(t, err)
	assert.Contains(t, string(double), "C.THNN_DoubleELU_updateOutput(b.state, (*C.THDoubleTensor)(input.Handle()), "+
		"(*C.THDoubleTensor)(output.Handle()), C.double(alpha), C.bool(inplace))")
}

func TestImplementationUnmapped(t *testing.T) {
	e, functions := newEmitter(t)
	_, err := e.Implementation("Cuda", functions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, typemap.ErrUnmappedType))
	assert.Contains(t, err.Error(), "variant Cuda")

	_, err = e.Implementation("Trait", functions)
	assert.ErrorContains(t, err, "unknown concrete variant")
	_, err = e.Implementation("Quantum", functions)
	assert.ErrorContains(t, err, "unknown concrete variant")
}

func TestImplementationMissingScalar(t *testing.T) {
	cfg := config.Default()
	idx := slices.IndexFunc(cfg.Types.Variants, func(v config.VariantConfig) bool { return v.Name == "Double" })
	delete(cfg.Types.Variants[idx].Table, "real")
	registry, err := typemap.NewRegistry(cfg)
	require.NoError(t, err)
	e := New(cfg, registry, "THNN.h")
	functions := []catalog.FunctionDescriptor{{Name: "ELU_updateOutput", Arguments: []catalog.Argument{
		{Name: "state", Type: "THNNState*"},
		{Name: "input", Type: "THTensor*"},
		{Name: "output", Type: "THTensor*"},
		{Name: "alpha", Type: "real"},
	}}}

	_, err = e.Implementation("Double", functions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, typemap.ErrUnmappedType))
	var unmapped *typemap.UnmappedTypeError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "real", unmapped.Token)
	assert.Equal(t, "alpha", unmapped.Argument)

	src, err := e.Implementation("Float", functions)
	require.NoError(t, err)
	assert.Contains(t, string(src), "C.float(alpha)")
}

func TestConvert(t *testing.T) {
	assert.Equal(t, "b.state", convert("void*", "b.state"))
	assert.Equal(t, "(*C.THCState)(b.state)", convert("THCState*", "b.state"))
	assert.Equal(t, "(*C.THFloatTensor)(x.Handle())", convert("THFloatTensor *", "x.Handle()"))
	assert.Equal(t, "C.float(x)", convert("float", "x"))
	assert.Equal(t, "C.ulong(x)", convert("unsigned  long", "x"))
	assert.Equal(t, "C.int64_t(x)", convert("int64_t", "x"))
}
