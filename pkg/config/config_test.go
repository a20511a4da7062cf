// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "nn", cfg.Package)
	assert.Equal(t, []string{"Float", "Double"}, cfg.Generate)
	assert.Equal(t, "Trait", cfg.Types.Dispatch.Name)
	assert.Equal(t, "autograd.Tensor", cfg.Types.Dispatch.Table["THTensor*"])
	assert.Equal(t, "NLLLoss", cfg.Families.Rename["ClassNLLCriterion"])
	assert.Contains(t, cfg.Families.Excluded, "Threshold")
	assert.Len(t, cfg.Types.Variants, 5)

	float, found := cfg.Variant("Float")
	require.True(t, found)
	assert.Equal(t, "cpu", float.Bucket)
	assert.Equal(t, "THNN_Float", float.KernelPrefix)
	assert.Equal(t, "THFloatTensor*", float.Table["THTensor*"])
	assert.Contains(t, cfg.Types.Buckets["cpu"].Preamble, "#include <THNN/THNN.h>")

	// Every call returns an independent copy.
	cfg.Families.Rename["Abs"] = "Absolute"
	assert.NotContains(t, Default().Families.Rename, "Abs")
}

func TestQualifies(t *testing.T) {
	cfg := Default()
	for name, want := range map[string]bool{
		"Abs_updateOutput":                       true,
		"Abs_updateGradInput":                    true,
		"SpatialConvolutionMM_accGradParameters": true,
		"BatchNormalization_backward":            true,
		"LookupTable_accGradParameters":          false,
		"LookupTable_renorm":                     false,
		"unfolded_acc":                           false,
		"SpatialConvolutionMM_unfolded_copy":     false,
		"Sqrt_helper":                            false,
	} {
		assert.Equalf(t, want, cfg.Qualifies(name), "Qualifies(%q)", name)
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "thnngen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
package: thnn
generate: [Cuda]
families:
  rename:
    Abs: Absolute
`), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "thnn", cfg.Package)
	assert.Equal(t, []string{"Cuda"}, cfg.Generate)
	// Maps merge with the defaults.
	assert.Equal(t, "Absolute", cfg.Families.Rename["Abs"])
	assert.Equal(t, "NLLLoss", cfg.Families.Rename["ClassNLLCriterion"])

	require.NoError(t, os.WriteFile(path, []byte("generate: [Quantum]\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Quantum")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Types.Variants[0].Bucket = "tpu"
	assert.ErrorContains(t, cfg.Validate(), `unknown bucket "tpu"`)

	cfg = Default()
	cfg.Types.Variants = append(cfg.Types.Variants, cfg.Types.Variants[0])
	assert.ErrorContains(t, cfg.Validate(), "more than once")

	cfg = Default()
	cfg.Types.Variants[1].KernelPrefix = ""
	assert.ErrorContains(t, cfg.Validate(), "no kernel prefix")

	cfg = Default()
	cfg.Separator = ""
	assert.Error(t, cfg.Validate())
}
