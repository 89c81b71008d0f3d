package gltfconv

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
	"github.com/mogaika/gltfbridge/texproc"
	"github.com/mogaika/gltfbridge/utils"
)

// KHR_materials_pbrSpecularGlossiness conversion. The spec/gloss
// workflow is translated to metallic/roughness per the reference
// conversion of the extension, per pixel when textures are involved.

const dielectricSpecular = 0.04

func hasMetalness(specular mgl32.Vec3) bool {
	return utils.Rec601Luma(specular[0], specular[1], specular[2]) >= dielectricSpecular
}

// solveMetallic inverts the dielectric blend for a metallic estimate,
// per the quadratic of the spec/gloss conversion reference.
func solveMetallic(diffuse, specular mgl32.Vec3, oneMinusSpecularStrength float32) float32 {
	specularBrightness := utils.Rec601Luma(specular[0], specular[1], specular[2])
	if specularBrightness < dielectricSpecular {
		return 0
	}
	diffuseBrightness := utils.Rec601Luma(diffuse[0], diffuse[1], diffuse[2])
	a := float32(dielectricSpecular)
	b := diffuseBrightness*oneMinusSpecularStrength/(1-dielectricSpecular) +
		specularBrightness - 2*dielectricSpecular
	c := float32(dielectricSpecular) - specularBrightness
	d := sqrt32(max32(0, b*b-4*a*c))
	return utils.Clamp01((-b + d) / (2 * a))
}

// convertToMetallicRoughness maps linear-space diffuse and specular
// colors onto a base color and metallic value.
func convertToMetallicRoughness(diffuse, specular mgl32.Vec3) (newDiffuse mgl32.Vec3, metallic float32) {
	const epsilon = 1e-4
	specularStrength := max32(specular[0], max32(specular[1], specular[2]))
	oneMinusSpecularStrength := 1 - specularStrength
	m := solveMetallic(diffuse, specular, oneMinusSpecularStrength)

	diffuseScale := oneMinusSpecularStrength / (1 - dielectricSpecular) / max32(epsilon, 1-m)
	specularDiff := dielectricSpecular * (1 - m)
	specularScale := 1 / max32(epsilon, m)

	m2 := m * m
	for i := 0; i < 3; i++ {
		newDiffuse[i] = utils.Clamp01(utils.Lerp(
			diffuse[i]*diffuseScale, (specular[i]-specularDiff)*specularScale, m2))
	}
	return newDiffuse, m
}

// specGlossImageName builds the cache key for a derived texture from
// the contributing image indices or 24-bit color keys.
func specGlossImageName(basename string, key1, key2 int) string {
	return fmt.Sprintf("%s-%x-%x", basename, key1, key2)
}

func colorIntegerKey(color mgl32.Vec4) int {
	to255 := func(f float32) int { return int(f * 255) }
	return to255(color[0])<<16 + to255(color[1])<<8 + to255(color[2])
}

// importSpecGlossMaterial reads the extension payload and routes it
// through the metallic/roughness conversion.
func (c *importContext) importSpecGlossMaterial(gm *gltf.Material, m *scene.Material, ext ExtValue) {
	diffuseFactor := mgl32.Vec4{1, 1, 1, 1}
	if arr, ok := ext.Get("diffuseFactor").FloatArray(4); ok {
		diffuseFactor = mgl32.Vec4{float32(arr[0]), float32(arr[1]), float32(arr[2]), float32(arr[3])}
	}
	specularFactor := mgl32.Vec3{1, 1, 1}
	if arr, ok := ext.Get("specularFactor").FloatArray(3); ok {
		specularFactor = mgl32.Vec3{float32(arr[0]), float32(arr[1]), float32(arr[2])}
	}
	glossinessFactor := float32(ext.Get("glossinessFactor").NumberOr(1))

	diffuseIn := scene.Input{Image: -1, Value: scene.Vec4Value(diffuseFactor)}
	specularIn := scene.Input{Image: -1, Value: scene.Vec4Value(mgl32.Vec4{
		specularFactor[0], specularFactor[1], specularFactor[2], glossinessFactor})}
	opacityIn := scene.Input{Image: -1}

	if ref := readTextureRef(ext.Get("diffuseTexture")); ref.Index >= 0 {
		factors := diffuseIn.Value
		if c.setInputTextureRef(&diffuseIn, ref, scene.ColorspaceSRGB, scene.ChannelRGB, m.Name, "diffuse") {
			diffuseIn.Value = factors
			applyTextureTransform(&diffuseIn, gm.Extensions)
			if gm.AlphaMode == gltf.AlphaBlend || gm.AlphaMode == gltf.AlphaMask {
				opacityIn = diffuseIn
				opacityIn.Channel = scene.ChannelA
				opacityIn.Colorspace = ""
				importScale1(&opacityIn, diffuseFactor[3])
			}
		}
	}
	if ref := readTextureRef(ext.Get("specularGlossinessTexture")); ref.Index >= 0 {
		factors := specularIn.Value
		if c.setInputTextureRef(&specularIn, ref, scene.ColorspaceSRGB, scene.ChannelRGB, m.Name, "specGloss") {
			specularIn.Value = factors
			applyTextureTransform(&specularIn, gm.Extensions)
		}
	}

	c.translateSpecGloss(diffuseIn, specularIn, opacityIn, gm.AlphaMode, m)
}

// translateSpecGloss converts spec/gloss inputs to new diffuse,
// opacity, metallic and roughness inputs on the material.
func (c *importContext) translateSpecGloss(diffuseIn, specularIn, opacityIn scene.Input,
	alphaMode gltf.AlphaMode, m *scene.Material) {

	diffuseFactor := diffuseIn.Value.Vec4Or(mgl32.Vec4{})
	specularGlossFactor := specularIn.Value.Vec4Or(mgl32.Vec4{})
	specularRGB := mgl32.Vec3{specularGlossFactor[0], specularGlossFactor[1], specularGlossFactor[2]}

	switch {
	case !diffuseIn.HasTexture() && !specularIn.HasTexture():
		// Solid colors only.
		newDiffuse, metallic := convertToMetallicRoughness(
			mgl32.Vec3{diffuseFactor[0], diffuseFactor[1], diffuseFactor[2]}, specularRGB)
		m.DiffuseColor.Value = scene.Vec3Value(newDiffuse)
		m.Opacity.Value = scene.FloatValue(diffuseFactor[3])
		// Metallic goes through the sRGB transfer to match how the
		// textured path stores it in an 8-bit channel.
		m.Metallic.Value = scene.FloatValue(utils.LinearToSRGB(metallic))
		m.Roughness.Value = scene.FloatValue(1 - specularGlossFactor[3])
		return

	case !specularIn.HasTexture() && !hasMetalness(specularRGB):
		// Constant specular near zero carries no metalness.
		m.DiffuseColor = diffuseIn
		m.Opacity = opacityIn
		m.Metallic.Value = scene.FloatValue(0)
		m.Roughness.Value = scene.FloatValue(1 - specularGlossFactor[3])
		return
	}

	var diffuseSrc, specularSrc *texproc.Image
	if diffuseIn.HasTexture() {
		diffuseSrc = c.decodeSceneImage(diffuseIn.Image, 0)
		if diffuseSrc != nil && diffuseSrc.Channels < 3 {
			channels := 3
			if diffuseSrc.Channels == 2 {
				channels = 4
			}
			diffuseSrc = c.decodeSceneImage(diffuseIn.Image, channels)
		}
	}
	if specularIn.HasTexture() {
		specularSrc = c.decodeSceneImage(specularIn.Image, 4)
	}

	if diffuseSrc != nil && specularSrc != nil &&
		(diffuseSrc.Width != specularSrc.Width || diffuseSrc.Height != specularSrc.Height) {
		c.warnf("material %q: diffuse and specular images differ in size, dropping specular", m.Name)
		m.DiffuseColor = diffuseIn
		m.Opacity = opacityIn
		m.Metallic.Value = scene.FloatValue(0)
		m.Roughness.Value = scene.FloatValue(1 - specularGlossFactor[3])
		return
	}

	diffuseKey := colorIntegerKey(diffuseFactor)
	if diffuseIn.HasTexture() {
		diffuseKey = diffuseIn.Image
	}
	specularKey := colorIntegerKey(specularGlossFactor)
	if specularIn.HasTexture() {
		specularKey = specularIn.Image
	}
	diffuseName := specGlossImageName("specgloss-diffuse", diffuseKey, specularKey)
	mrName := specGlossImageName("specgloss-mr", diffuseKey, specularKey)

	diffuseImageIndex, haveDiffuse := c.specGlossCache[diffuseName]
	mrImageIndex, haveMR := c.specGlossCache[mrName]
	hasTransparency := false

	if !haveDiffuse || !haveMR {
		diffuseDst, mrDst, transparency := convertSpecGlossImages(
			diffuseSrc, diffuseFactor, specularSrc, specularGlossFactor)
		hasTransparency = transparency

		diffuseImageIndex = c.registerSpecGlossImage(diffuseName, diffuseDst)
		mrImageIndex = c.registerSpecGlossImage(mrName, mrDst)
	}

	diffuseOut := diffuseIn
	if !diffuseIn.HasTexture() {
		diffuseOut = specularIn
	}
	specGlossDerivedInput(&diffuseOut, diffuseImageIndex, scene.ChannelRGB, scene.ColorspaceSRGB)
	m.DiffuseColor = diffuseOut

	if hasTransparency && alphaMode != gltf.AlphaOpaque {
		opacityOut := diffuseOut
		specGlossDerivedInput(&opacityOut, diffuseImageIndex, scene.ChannelA, scene.ColorspaceRaw)
		m.Opacity = opacityOut
	}

	mrBase := specularIn
	if !specularIn.HasTexture() {
		mrBase = diffuseIn
	}
	metallicOut := mrBase
	specGlossDerivedInput(&metallicOut, mrImageIndex, scene.ChannelB, scene.ColorspaceRaw)
	m.Metallic = metallicOut
	roughnessOut := mrBase
	specGlossDerivedInput(&roughnessOut, mrImageIndex, scene.ChannelG, scene.ColorspaceRaw)
	m.Roughness = roughnessOut
}

// specGlossDerivedInput repoints a copied input at a generated image,
// keeping scale, bias, transform and filters of the source.
func specGlossDerivedInput(in *scene.Input, imageIndex int, channel scene.Channel, colorspace scene.Colorspace) {
	in.Image = imageIndex
	in.Value = scene.Value{}
	in.UVIndex = 0
	in.WrapS = scene.WrapRepeat
	in.WrapT = scene.WrapRepeat
	in.Channel = channel
	in.Colorspace = colorspace
}

func (c *importContext) registerSpecGlossImage(name string, img *texproc.Image) int {
	if img == nil {
		return -1
	}
	png, err := img.EncodePNG()
	if err != nil {
		c.warnf("cannot encode %q: %v", name, err)
		return -1
	}
	index := c.addDerivedImage(name, png)
	c.scene.Images[index].URI = name + ".png"
	c.specGlossCache[name] = index
	return index
}

func (c *importContext) decodeSceneImage(imageIndex, channels int) *texproc.Image {
	if imageIndex < 0 || imageIndex >= len(c.scene.Images) {
		return nil
	}
	img, err := texproc.Decode(c.scene.Images[imageIndex].Data, channels)
	if err != nil {
		return nil
	}
	return img
}

// convertSpecGlossImages runs the per-pixel conversion. One of the
// source images may be nil, in which case its factor stands in for
// every pixel. Factors are linear; image pixels are sRGB-encoded.
func convertSpecGlossImages(diffuseSrc *texproc.Image, diffuseFactor mgl32.Vec4,
	specularSrc *texproc.Image, specularGlossFactor mgl32.Vec4) (diffuseDst, mrDst *texproc.Image, hasTransparency bool) {

	var width, height int
	if diffuseSrc != nil {
		width, height = diffuseSrc.Width, diffuseSrc.Height
	} else if specularSrc != nil {
		width, height = specularSrc.Width, specularSrc.Height
	} else {
		return nil, nil, false
	}

	srcHasAlpha := diffuseSrc != nil && diffuseSrc.Channels == 4
	dstHasAlpha := srcHasAlpha || diffuseFactor[3] != 1
	dstChannels := 3
	if dstHasAlpha {
		dstChannels = 4
	}

	diffuseDst = &texproc.Image{}
	diffuseDst.Allocate(width, height, dstChannels)
	mrDst = &texproc.Image{}
	mrDst.Allocate(width, height, 3)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var diffuse mgl32.Vec3
			opacity := diffuseFactor[3]
			if diffuseSrc != nil {
				for i := 0; i < 3; i++ {
					diffuse[i] = utils.SRGBToLinear(diffuseSrc.At(x, y, i)) * diffuseFactor[i]
				}
				if srcHasAlpha {
					opacity = diffuseSrc.At(x, y, 3)
				}
			} else {
				diffuse = mgl32.Vec3{diffuseFactor[0], diffuseFactor[1], diffuseFactor[2]}
			}

			var specular mgl32.Vec3
			gloss := specularGlossFactor[3]
			if specularSrc != nil {
				for i := 0; i < 3; i++ {
					specular[i] = utils.SRGBToLinear(specularSrc.At(x, y, i)) * specularGlossFactor[i]
				}
				gloss = specularSrc.At(x, y, 3)
			} else {
				specular = mgl32.Vec3{specularGlossFactor[0], specularGlossFactor[1], specularGlossFactor[2]}
			}

			newDiffuse, metallic := convertToMetallicRoughness(diffuse, specular)
			for i := 0; i < 3; i++ {
				diffuseDst.Set(x, y, i, utils.LinearToSRGB(newDiffuse[i]))
			}
			if opacity < 1 {
				hasTransparency = true
			}
			if dstHasAlpha {
				diffuseDst.Set(x, y, 3, opacity)
			}

			mrDst.Set(x, y, 0, 0)
			mrDst.Set(x, y, 1, 1-gloss)
			mrDst.Set(x, y, 2, utils.LinearToSRGB(metallic))
		}
	}
	return diffuseDst, mrDst, hasTransparency
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
