// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typemap

import (
	"errors"
	"slices"
	"testing"

	"github.com/gomlx/thnngen/pkg/codegen/catalog"
	"github.com/gomlx/thnngen/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, cfg *config.Config) *Registry {
	r, err := NewRegistry(cfg)
	require.NoError(t, err)
	return r
}

func TestLookup(t *testing.T) {
	r := newRegistry(t, config.Default())
	assert.Equal(t, []string{"Float", "Double", "CudaHalf", "Cuda", "CudaDouble"}, r.Names())

	dispatch := r.Dispatch()
	assert.True(t, dispatch.IsDispatch())
	assert.Equal(t, "autograd.Tensor", dispatch.Lookup("THTensor*"))
	assert.Equal(t, "float64", dispatch.Lookup("real"))
	assert.Equal(t, "int64", dispatch.Lookup("long"))
	// Common C types are not inherited by the dispatch variant.
	assert.Equal(t, "int32", dispatch.Lookup("int"))

	float, found := r.Variant("Float")
	require.True(t, found)
	assert.False(t, float.IsDispatch())
	assert.Equal(t, "THNN_Float", float.KernelPrefix)
	assert.Contains(t, float.Preamble, "THNN.h")
	assert.Equal(t, "THFloatTensor*", float.Lookup("THTensor*"))
	assert.Equal(t, "float", float.Lookup("real"))
	// Bucket and common entries. Unknown scalars pass through.
	assert.Equal(t, "void*", float.Lookup("THNNState*"))
	assert.Equal(t, "THLongTensor*", float.Lookup("THIndexTensor*"))
	assert.Equal(t, "int64_t", float.Lookup("THIndex_t"))
	assert.Equal(t, "bool", float.Lookup("bool"))

	cuda, found := r.Variant("Cuda")
	require.True(t, found)
	assert.Equal(t, "THCudaLongTensor*", cuda.Lookup("THCIndexTensor*"))
	assert.Equal(t, "int64_t", cuda.Lookup("THIndex_t"))
	assert.Equal(t, "THTensor*", cuda.Lookup("THTensor*"))

	_, found = r.Variant("Quantum")
	assert.False(t, found)
	_, found = r.Variant("Trait")
	assert.True(t, found)
}

func TestPrecedence(t *testing.T) {
	cfg := config.Default()
	cfg.Types.Common["real"] = "common_real"
	cfg.Types.Buckets["cpu"].Table["real"] = "bucket_real"
	cfg.Types.Buckets["cpu"].Table["accreal"] = "bucket_accreal"
	cfg.Types.Common["long"] = "int64_t"
	r := newRegistry(t, cfg)
	float, _ := r.Variant("Float")
	assert.Equal(t, "float", float.Lookup("real"))
	assert.Equal(t, "double", float.Lookup("accreal"))
	assert.Equal(t, "int64_t", float.Lookup("long"))

	// Reversing the variant order changes nothing but the order of Names.
	reversed := config.Default()
	slices.Reverse(reversed.Types.Variants)
	r1, r2 := newRegistry(t, config.Default()), newRegistry(t, reversed)
	for _, name := range r1.Names() {
		v1, _ := r1.Variant(name)
		v2, _ := r2.Variant(name)
		assert.Equal(t, v1, v2)
	}

	// Building the registry leaves the configuration untouched.
	cfg = config.Default()
	_ = newRegistry(t, cfg)
	assert.Equal(t, config.Default(), cfg)
}

func TestResolve(t *testing.T) {
	r := newRegistry(t, config.Default())
	cuda, _ := r.Variant("Cuda")
	_, err := cuda.Resolve("THTensor*")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnmappedType))
	var unmapped *UnmappedTypeError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "Cuda", unmapped.Variant)
	assert.Equal(t, "THTensor*", unmapped.Token)

	got, err := cuda.Resolve("long")
	require.NoError(t, err)
	assert.Equal(t, "long", got)

	got, err = cuda.Resolve("THCTensor*")
	require.NoError(t, err)
	assert.Equal(t, "THCudaTensor*", got)
}

func TestResolveTranslatedScalar(t *testing.T) {
	cfg := config.Default()
	idx := slices.IndexFunc(cfg.Types.Variants, func(v config.VariantConfig) bool { return v.Name == "Double" })
	delete(cfg.Types.Variants[idx].Table, "real")
	r := newRegistry(t, cfg)

	// Double has no entry for "real", which every other variant translates.
	double, _ := r.Variant("Double")
	assert.Equal(t, "real", double.Lookup("real"))
	_, err := double.Resolve("real")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnmappedType))
	functions := []catalog.FunctionDescriptor{{Name: "ELU_updateOutput", Arguments: []catalog.Argument{
		{Name: "state", Type: "THNNState*"},
		{Name: "input", Type: "THTensor*"},
		{Name: "output", Type: "THTensor*"},
		{Name: "alpha", Type: "real"},
	}}}
	err = double.Validate(functions)
	var unmapped *UnmappedTypeError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "real", unmapped.Token)
	assert.Equal(t, "alpha", unmapped.Argument)

	for _, name := range []string{"Float", "Trait"} {
		v, _ := r.Variant(name)
		assert.NoErrorf(t, v.Validate(functions), "variant %s", name)
	}

	// Tokens no table knows about are native everywhere and pass through.
	got, err := double.Resolve("double")
	require.NoError(t, err)
	assert.Equal(t, "double", got)
}

func TestValidate(t *testing.T) {
	functions, err := catalog.Load("../catalog/testdata/THNN.h")
	require.NoError(t, err)
	r := newRegistry(t, config.Default())

	require.NoError(t, r.Dispatch().Validate(functions))
	for _, name := range []string{"Float", "Double"} {
		v, _ := r.Variant(name)
		assert.NoErrorf(t, v.Validate(functions), "variant %s", name)
	}

	// GPU variants don't know the CPU tensor and state types.
	cuda, _ := r.Variant("CudaHalf")
	err = cuda.Validate(functions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnmappedType))
	assert.Contains(t, err.Error(), `"THNNState*" for variant CudaHalf (argument "state" of Abs_updateOutput)`)
	assert.Contains(t, err.Error(), `"THTensor*"`)
	assert.Contains(t, err.Error(), `"THIndexTensor*"`)

	// A single unknown token fails only the variant missing it.
	bogus := []catalog.FunctionDescriptor{{Name: "Foo_updateOutput", Arguments: []catalog.Argument{
		{Name: "state", Type: "THNNState*"},
		{Name: "input", Type: "THTensor*"},
		{Name: "mask", Type: "THByteTensor*"},
	}}}
	cfg := config.Default()
	cfg.Types.Dispatch.Table["THByteTensor*"] = "autograd.Tensor"
	cfg.Types.Variants[0].Table["THByteTensor*"] = "THByteTensor*"
	r = newRegistry(t, cfg)
	float, _ := r.Variant("Float")
	double, _ := r.Variant("Double")
	assert.NoError(t, float.Validate(bogus))
	err = double.Validate(bogus)
	require.Error(t, err)
	var unmapped *UnmappedTypeError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "mask", unmapped.Argument)
}

func TestNewRegistryErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Types.Variants[0].Bucket = "tpu"
	_, err := NewRegistry(cfg)
	assert.ErrorContains(t, err, "unknown bucket")

	cfg = config.Default()
	cfg.Types.Variants[0].Name = "Trait"
	_, err = NewRegistry(cfg)
	assert.ErrorContains(t, err, "more than once")
}
