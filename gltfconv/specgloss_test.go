package gltfconv

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/mogaika/gltfbridge/texproc"
	"github.com/mogaika/gltfbridge/utils"
)

func TestSolveMetallicDielectric(t *testing.T) {
	// Specular at exactly the dielectric reflectance solves to zero
	// metalness and the diffuse color passes through.
	diffuse := mgl32.Vec3{0.8, 0.4, 0.2}
	specular := mgl32.Vec3{0.04, 0.04, 0.04}

	newDiffuse, metallic := convertToMetallicRoughness(diffuse, specular)
	assert.InDelta(t, 0, metallic, 1e-5)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, diffuse[i], newDiffuse[i], 1e-4)
	}
}

func TestSolveMetallicPureMetal(t *testing.T) {
	// A metal has specular equal to its color and black diffuse.
	diffuse := mgl32.Vec3{}
	specular := mgl32.Vec3{0.9, 0.8, 0.7}

	newDiffuse, metallic := convertToMetallicRoughness(diffuse, specular)
	assert.Greater(t, metallic, float32(0.9))
	// Base color approaches the specular color as metalness approaches 1.
	for i := 0; i < 3; i++ {
		assert.InDelta(t, specular[i], newDiffuse[i], 0.15)
	}
}

func TestSolveMetallicBelowDielectric(t *testing.T) {
	m := solveMetallic(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0.01, 0.01, 0.01}, 0.99)
	assert.Zero(t, m)
}

func TestSpecGlossScenario(t *testing.T) {
	// Diffuse (0.8, 0.4, 0.2), dielectric specular, glossiness 0.8:
	// metallic 0, roughness 0.2.
	diffuseIn := mgl32.Vec4{0.8, 0.4, 0.2, 1}
	specGloss := mgl32.Vec4{0.04, 0.04, 0.04, 0.8}

	_, metallic := convertToMetallicRoughness(
		mgl32.Vec3{diffuseIn[0], diffuseIn[1], diffuseIn[2]},
		mgl32.Vec3{specGloss[0], specGloss[1], specGloss[2]})
	assert.InDelta(t, 0, metallic, 1e-5)
	assert.InDelta(t, 0.2, 1-specGloss[3], 1e-6)
}

func TestHasMetalness(t *testing.T) {
	assert.True(t, hasMetalness(mgl32.Vec3{0.5, 0.5, 0.5}))
	assert.False(t, hasMetalness(mgl32.Vec3{0.01, 0.01, 0.01}))
	// Exactly the dielectric threshold counts as metalness.
	assert.True(t, hasMetalness(mgl32.Vec3{0.04, 0.04, 0.04}))
}

func TestConvertSpecGlossImagesConstantSpecular(t *testing.T) {
	// 1x1 diffuse texture with constant specular factors.
	diffuse := &texproc.Image{Width: 1, Height: 1, Channels: 3, Pixels: []float32{0.5, 0.5, 0.5}}
	diffuseDst, mrDst, hasTransparency := convertSpecGlossImages(
		diffuse, mgl32.Vec4{1, 1, 1, 1},
		nil, mgl32.Vec4{0.04, 0.04, 0.04, 0.75})

	assert.False(t, hasTransparency)
	assert.Equal(t, 3, diffuseDst.Channels)
	assert.Equal(t, 3, mrDst.Channels)
	// Roughness channel carries 1-gloss.
	assert.InDelta(t, 0.25, mrDst.At(0, 0, 1), 1e-5)
	// Metallic stays zero for dielectric specular (sRGB of 0 is 0).
	assert.InDelta(t, 0, mrDst.At(0, 0, 2), 1e-5)
	// Diffuse survives the sRGB -> linear -> sRGB round trip.
	assert.InDelta(t, 0.5, diffuseDst.At(0, 0, 0), 0.01)
}

func TestColorIntegerKey(t *testing.T) {
	assert.Equal(t, 0xffffff, colorIntegerKey(mgl32.Vec4{1, 1, 1, 1}))
	assert.Equal(t, 0xff0000, colorIntegerKey(mgl32.Vec4{1, 0, 0, 1}))
	assert.Equal(t, "specgloss-mr-ff0000-ffffff",
		specGlossImageName("specgloss-mr", 0xff0000, 0xffffff))
}

func TestRec601LumaMatchesReference(t *testing.T) {
	assert.InDelta(t, 0.04, utils.Rec601Luma(0.04, 0.04, 0.04), 1e-6)
	assert.InDelta(t, 1, utils.Rec601Luma(1, 1, 1), 1e-6)
}
