package gltfconv

import (
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltfbridge/scene"
)

func TestMLPWeightPackRoundTrip(t *testing.T) {
	const d1, d2 = 8, 4
	src := make([]float32, d1*d2)
	for i := range src {
		src[i] = float32(i)
	}
	wire := make([]float32, len(src))
	packMLPWeight(src, wire, d1, d2)
	back := make([]float32, len(src))
	unpackMLPWeight(wire, back, d1, d2)
	assert.Equal(t, src, back)
}

func TestBase64FieldRoundTrip(t *testing.T) {
	payload := []byte{0, 1, 2, 3, 250, 251, 252, 253}

	plain := packBase64Field(payload, false)
	data, err := unpackBase64Field(plain, false)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	compressed := packBase64Field(payload, true)
	data, err = unpackBase64Field(compressed, true)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, err = unpackBase64Field("!!!", false)
	assert.Error(t, err)
}

func TestNGPExtensionRoundTrip(t *testing.T) {
	src := &scene.NGPData{
		DensityThreshold:     2.5,
		HashGridResolution:   []int{16, 32, 64},
		HashGrid:             []float32{0, 0.5, 1, 2},
		DensityGrid:          []float32{0, 1, 2, 4},
		DistanceGrid:         []float32{0, 1, 4},
		DensityMLPLayer0Bias: []float32{0.5, -1.5},
		// MLP weight fields stay nil, like a payload that never
		// carried them.
	}
	ec := newTestExportContext(scene.NewScene())
	payload, transform := ec.exportNGPExtension(src)
	require.NotNil(t, payload)
	// The stored identity transform composes with the Z-up rotation
	// into a non-identity wire transform.
	require.NotNil(t, transform)

	ext, ok := extensionValue(gltf.Extensions{extNGP: payload}, extNGP)
	require.True(t, ok)
	// Absent weight matrices are omitted, present fields are kept.
	assert.False(t, ext.Get("spatial_mlp_l0_weight").Exists())
	assert.True(t, ext.Get("spatial_mlp_l0_bias").Exists())

	ic := newImportContext(gltf.NewDocument(), scene.NewScene(), ImportOptions{})
	var dst scene.NGPData
	ic.importNGPExtension(ext, &dst)

	assert.InDelta(t, 2.5, dst.DensityThreshold, 1e-6)
	assert.Equal(t, []int{16, 32, 64}, dst.HashGridResolution)
	assert.Equal(t, []float32{0.5, -1.5}, dst.DensityMLPLayer0Bias)
	assert.Nil(t, dst.DensityMLPLayer0Weight)
	require.Len(t, dst.HashGrid, 4)
	assert.InDelta(t, 0.5, dst.HashGrid[1], 1e-3)
	assert.InDelta(t, 2, dst.HashGrid[3], 1e-3)
	// Grids are 8-bit quantized against their maximum.
	require.Len(t, dst.DensityGrid, 4)
	assert.InDelta(t, 4, dst.DensityGrid[3], 4.0/255)
	assert.InDelta(t, 1, dst.DensityGrid[1], 4.0/255)
	require.Len(t, dst.DistanceGrid, 3)
	assert.InDelta(t, 4, dst.DistanceGrid[2], 0.05)
	assert.InDelta(t, 1, dst.DistanceGrid[1], 0.05)
	assert.True(t, dst.HasTransform)
}
