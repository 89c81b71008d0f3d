package gltfconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASMLevelRoundTrip(t *testing.T) {
	for _, c := range []struct {
		strength  float32
		roughness float32
	}{
		{0.7, 0.3},
		{1.0, 0.0},
		{0.25, 0.9},
		{0.0, 0.5},
	} {
		level := calculateASMLevel(c.strength, c.roughness)
		back := reverseASMLevel(level, 1, c.roughness)
		assert.InDelta(t, c.strength, back, 1e-5,
			"strength %v roughness %v", c.strength, c.roughness)
	}
}

func TestASMLevelDegenerateRoughness(t *testing.T) {
	assert.Zero(t, reverseASMLevel(0.5, 1, 1.5))
	assert.Zero(t, reverseASMLevel(0.5, 1, 1.0))
}

func TestASMRotationRoundTrip(t *testing.T) {
	for _, angle := range []float32{0, 1.0, math.Pi, 2*math.Pi - 0.1, 7.5} {
		normalized := calculateASMRotation(angle)
		assert.GreaterOrEqual(t, normalized, float32(0))
		assert.Less(t, normalized, float32(1))

		back := reverseASMRotation(normalized, 0)
		want := float64(angle)
		want = want - 2*math.Pi*math.Floor(want/(2*math.Pi))
		assert.InDelta(t, want, back, 1e-5, "angle %v", angle)
	}
}

func TestASMImageRotationRoundTrip(t *testing.T) {
	// Channel pair at 45 degrees, no extra rotation.
	normalized := calculateASMImageRotation(
		(float32(math.Cos(math.Pi/4))+1)/2,
		(float32(math.Sin(math.Pi/4))+1)/2, 0)
	assert.InDelta(t, 1.0/8.0, normalized, 1e-5)

	red, green := reverseASMImageRotation(normalized, 0)
	assert.InDelta(t, (math.Cos(math.Pi/4)+1)/2, red, 1e-5)
	assert.InDelta(t, (math.Sin(math.Pi/4)+1)/2, green, 1e-5)
}

func TestAnisotropyImageNameRoundTrip(t *testing.T) {
	name := anisotropyImageName(anisotropyLevelPrefix, 0.817, 0.159)
	assert.Equal(t, "anisotropyLevelTexture_0_817_0_159", name)

	level, rotation, ok := anisotropyParamsFromName(name)
	require.True(t, ok)
	assert.InDelta(t, 0.817, level, 1e-5)
	assert.InDelta(t, 0.159, rotation, 1e-5)
}

func TestAnisotropyParamsFromNameRejectsShort(t *testing.T) {
	_, _, ok := anisotropyParamsFromName("texture_1_2")
	assert.False(t, ok)
}

func TestAnisotropyScenario(t *testing.T) {
	// strength 0.7, rotation 1 rad, roughness 0.3
	level := calculateASMLevel(0.7, 0.3)
	assert.InDelta(t, math.Pow(0.91*0.49, 0.25), level, 1e-5)

	rotation := calculateASMRotation(1)
	assert.InDelta(t, 1/(2*math.Pi), rotation, 1e-6)

	assert.InDelta(t, 0.7, reverseASMLevel(level, 1, 0.3), 1e-5)
	assert.InDelta(t, 1.0, reverseASMRotation(rotation, 0), 1e-5)
}
