// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaming(t *testing.T) {
	assert.Equal(t, "ignoreIndex", CamelCase("ignore_index"))
	assert.Equal(t, "kW", CamelCase("kW"))
	assert.Equal(t, "totalWeight", CamelCase("total_weight_"))

	assert.Equal(t, "SizeAverage", Exported("sizeAverage"))
	assert.Equal(t, "KW", Exported("kW"))
	assert.Equal(t, "IgnoreIndex", Exported("ignore_index"))

	assert.Equal(t, "totalWeight", Local("total_weight"))
	assert.Equal(t, "rangeArg", Local("range"))
	assert.Equal(t, "backendArg", Local("backend"))
	assert.Equal(t, "gradOutput", Local("gradOutput"))
	assert.Equal(t, "thIndex", Local("ThIndex"))

	assert.Equal(t, "AbsUpdateOutput", Method("Abs", "updateOutput"))
	assert.Equal(t, "SpatialDilatedConvolutionAccGradParameters",
		Method("SpatialDilatedConvolution", "accGradParameters"))
}
