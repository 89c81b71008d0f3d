package gltfconv

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
	"github.com/mogaika/gltfbridge/texproc"
)

// constantOpacityEps is the pixel variance below which an opacity
// texture collapses to a constant.
const constantOpacityEps = 0.001

// constructedTexture remembers a texture built for an extension so
// materials sharing the same source images reuse it.
type constructedTexture struct {
	texture  int
	texCoord int
}

func (c *exportContext) exportMaterials() {
	for i := range c.scene.Materials {
		m := c.scene.Materials[i]
		gm := &gltf.Material{
			Name:                 m.Name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
		}
		c.doc.Materials = append(c.doc.Materials, gm)
		c.exportMaterial(&m, gm)
	}
	c.flushImages()
}

// coreTextureInfo emits the sampler/texture pair of a translated input
// and wraps it as a core TextureInfo, nil when the input has no image.
func (c *exportContext) coreTextureInfo(in *scene.Input) *gltf.TextureInfo {
	textureIndex, texCoord := c.exportTexture(in)
	if textureIndex == -1 {
		return nil
	}
	info := &gltf.TextureInfo{Index: uint32(textureIndex), TexCoord: uint32(texCoord)}
	if transform, ok := c.exportTextureTransform(in); ok {
		info.Extensions = gltf.Extensions{extTextureTransform: transform}
	}
	return info
}

func (c *exportContext) exportMaterial(m *scene.Material, gm *gltf.Material) {
	pbr := gm.PBRMetallicRoughness
	ones := mgl32.Vec4{1, 1, 1, 1}

	// Without the KHR extensions transmission has no direct encoding,
	// so it degrades to opacity. Transmission is capped at 75% to keep
	// fully transmissive surfaces from disappearing entirely.
	if !c.opts.UseMaterialExtensions && !m.Transmission.IsEmpty() {
		m.Opacity = m.Transmission
		scale := m.Opacity.Scale.Vec4Or(ones)
		bias := m.Opacity.Bias.Vec4Or(mgl32.Vec4{})
		scale = scale.Mul(0.75)
		// Opacity is inverted relative to transmission; fold the
		// inversion into scale and bias.
		m.Opacity.Scale = scene.Vec4Value(scale.Mul(-1))
		m.Opacity.Bias = scene.Vec4Value(ones.Sub(bias))
	}

	// An opacity texture without actual variance is expensive at render
	// time, so constant textures collapse to their value.
	if m.Opacity.Image >= 0 {
		texOpacity := float32(-1)
		ch := channelIndex(m.Opacity.Channel)
		if ch >= 0 {
			lo, hi := c.computeInputRange(&m.Opacity)
			if lo[ch] > hi[ch] {
				c.warnf("material %q has an unreadable opacity texture, assuming opaque", gm.Name)
				texOpacity = 1
			} else if hi[ch]-lo[ch] < constantOpacityEps {
				texOpacity = hi[ch]
			}
		}
		if texOpacity >= 0 || ch < 0 {
			opacityValue := float32(1)
			if ch >= 0 {
				scale := m.Opacity.Scale.Vec4Or(ones)
				bias := m.Opacity.Bias.Vec4Or(mgl32.Vec4{})
				opacityValue = scale[ch]*texOpacity + bias[ch]
			} else {
				c.warnf("material %q has an invalid opacity channel %q, assuming opaque",
					gm.Name, m.Opacity.Channel)
			}
			m.Opacity.Image = -1
			m.Opacity.Value = scene.FloatValue(opacityValue)
			m.Opacity.Scale = scene.Value{}
			m.Opacity.Bias = scene.Value{}
		}
	}

	if constOpacity, ok := m.Opacity.Value.Float(); m.Opacity.Image >= 0 || (ok && constOpacity != 1) {
		gm.AlphaMode = gltf.AlphaBlend
	}

	// Unlit materials arrive with their surface color stored as
	// emissive; it goes back out as the base color.
	color := &m.DiffuseColor
	if m.IsUnlit {
		color = &m.EmissiveColor
	}

	var baseColor scene.Input
	if m.Opacity.Image >= 0 || !m.Opacity.Value.IsEmpty() {
		// glTF cannot express a bias on a texture, so it gets baked
		// into the texel data before packing opacity into the alpha
		// channel of the base color.
		if bias := m.Opacity.Bias.Vec4Or(mgl32.Vec4{}); bias != (mgl32.Vec4{}) {
			scale := m.Opacity.Scale.Vec4Or(ones)
			lane := 0
			if m.Opacity.Image >= 0 {
				if ch := channelIndex(m.Opacity.Channel); ch >= 0 {
					lane = ch
				}
			}
			m.Opacity = c.translateAffine("opacity", &m.Opacity, scale[lane], bias[lane], true)
		}
		baseColor = c.translateMix("baseColor", scene.ColorspaceSRGB,
			splitChannel(*color, 0),
			splitChannel(*color, 1),
			splitChannel(*color, 2),
			m.Opacity)
	} else {
		baseColor, _ = c.translateDirect(color)
	}

	var emissive scene.Input
	if m.IsUnlit {
		emissive = scene.Input{Image: -1, Value: scene.Vec4Value(mgl32.Vec4{})}
	} else {
		emissive, _ = c.translateDirect(&m.EmissiveColor)
	}
	normal, _ := c.translateDirect(&m.Normal)

	pbr.BaseColorTexture = c.coreTextureInfo(&baseColor)
	gm.EmissiveTexture = c.coreTextureInfo(&emissive)

	if textureIndex, texCoord := c.exportTexture(&normal); textureIndex != -1 {
		nt := &gltf.NormalTexture{
			Index:    gltf.Index(uint32(textureIndex)),
			TexCoord: uint32(texCoord),
		}
		if v, ok := m.NormalScale.Value.Float(); ok {
			nt.Scale = gltf.Float(v)
		}
		if transform, ok := c.exportTextureTransform(&normal); ok {
			nt.Extensions = gltf.Extensions{extTextureTransform: transform}
		}
		gm.NormalTexture = nt
	}

	// glTF fixes occlusion to r, roughness to g and metallic to b of a
	// shared texture; anything else needs repacking.
	packOcclusion := m.Occlusion.Image >= 0 && m.Occlusion.Channel != scene.ChannelR
	packRoughness := m.Roughness.Image >= 0 && m.Roughness.Channel != scene.ChannelG
	packMetallic := m.Metallic.Image >= 0 && m.Metallic.Channel != scene.ChannelB
	packTogether := m.Roughness.Image >= 0 && m.Metallic.Image >= 0 &&
		m.Roughness.Image != m.Metallic.Image

	if packOcclusion || packRoughness || packMetallic || packTogether {
		solidAlpha := scene.Input{Image: -1, Value: scene.FloatValue(1)}
		orm := c.translateMix("occlusionRoughnessMetallic", scene.ColorspaceRaw,
			m.Occlusion, m.Roughness, m.Metallic, solidAlpha)
		if m.Roughness.Image >= 0 || m.Metallic.Image >= 0 {
			pbr.MetallicRoughnessTexture = c.coreTextureInfo(&orm)
		}
		if m.Occlusion.Image >= 0 {
			gm.OcclusionTexture = c.occlusionTextureInfo(&orm)
		}
	} else {
		occlusion, _ := c.translateDirect(&m.Occlusion)
		// The roughness texture, when valid, already carries the
		// metallic data, so one transfer is enough.
		source := &m.Roughness
		if m.Roughness.Image < 0 {
			source = &m.Metallic
		}
		roughnessMetallic, _ := c.translateDirect(source)
		if m.Roughness.Image >= 0 && m.Metallic.Image >= 0 && !transformsEqual(&m.Roughness, &m.Metallic) {
			c.warnf("material %q: roughness and metallic textures have different transforms "+
				"but share one texture", gm.Name)
		}
		gm.OcclusionTexture = c.occlusionTextureInfo(&occlusion)
		pbr.MetallicRoughnessTexture = c.coreTextureInfo(&roughnessMetallic)
	}

	baseColorFactor := mgl32.Vec4{1, 1, 1, 1}
	haveBaseColorFactor := false
	if m.DiffuseColor.Image >= 0 {
		if _, ok := m.DiffuseColor.Scale.Vec4(); ok {
			if s, ok := baseColor.Scale.Vec4(); ok {
				baseColorFactor[0], baseColorFactor[1], baseColorFactor[2] = s[0], s[1], s[2]
				haveBaseColorFactor = true
			}
		}
	} else if v3, ok := m.DiffuseColor.Value.Vec3(); ok {
		if v4, ok := baseColor.Value.Vec4(); ok {
			v3 = mgl32.Vec3{v4[0], v4[1], v4[2]}
		}
		baseColorFactor[0], baseColorFactor[1], baseColorFactor[2] = v3[0], v3[1], v3[2]
		haveBaseColorFactor = true
	}
	if m.Opacity.Image >= 0 {
		if s, ok := m.Opacity.Scale.Vec4(); ok {
			baseColorFactor[3] = s[3]
			haveBaseColorFactor = true
		}
	} else if f, ok := m.Opacity.Value.Float(); ok {
		baseColorFactor[3] = f
		haveBaseColorFactor = true
	}
	if haveBaseColorFactor {
		pbr.BaseColorFactor = &[4]float32{
			baseColorFactor[0], baseColorFactor[1], baseColorFactor[2], baseColorFactor[3],
		}
	}

	// emissiveFactor components cap at 1; anything beyond moves into
	// the emissive strength extension.
	emissiveStrength := float32(1)
	if m.EmissiveColor.Image >= 0 {
		if s, ok := m.EmissiveColor.Scale.Vec4(); ok {
			rgb := mgl32.Vec3{s[0], s[1], s[2]}
			rgb, emissiveStrength = normalizeEmissive(rgb)
			gm.EmissiveFactor = [3]float32{rgb[0], rgb[1], rgb[2]}
		} else {
			gm.EmissiveFactor = [3]float32{1, 1, 1}
		}
	} else if v, ok := m.EmissiveColor.Value.Vec3(); ok {
		v, emissiveStrength = normalizeEmissive(v)
		gm.EmissiveFactor = [3]float32{v[0], v[1], v[2]}
	}

	if gm.OcclusionTexture != nil {
		if m.Occlusion.Image >= 0 {
			if s, ok := m.Occlusion.Scale.Vec4(); ok {
				gm.OcclusionTexture.Strength = gltf.Float(s[0])
			}
		} else if f, ok := m.Occlusion.Value.Float(); ok {
			gm.OcclusionTexture.Strength = gltf.Float(f)
		}
	}

	if m.Metallic.Image >= 0 {
		if s, ok := m.Metallic.Scale.Vec4(); ok {
			pbr.MetallicFactor = gltf.Float(s[0])
		}
	} else if f, ok := m.Metallic.Value.Float(); ok {
		pbr.MetallicFactor = gltf.Float(f)
	} else {
		// Unauthored metallic defaults to 0 in the source model but 1
		// in glTF, so it needs to go out explicitly.
		pbr.MetallicFactor = gltf.Float(0)
	}

	if m.Roughness.Image >= 0 {
		if s, ok := m.Roughness.Scale.Vec4(); ok {
			pbr.RoughnessFactor = gltf.Float(s[0])
		}
	} else if f, ok := m.Roughness.Value.Float(); ok {
		pbr.RoughnessFactor = gltf.Float(f)
	} else {
		// Same mismatch for roughness: source default 0.5, glTF 1.
		pbr.RoughnessFactor = gltf.Float(0.5)
	}

	if m.OpacityThreshold.Image >= 0 {
		gm.AlphaMode = gltf.AlphaMask
		gm.AlphaCutoff = gltf.Float(0.5)
	} else if f, ok := m.OpacityThreshold.Value.Float(); ok {
		gm.AlphaMode = gltf.AlphaMask
		gm.AlphaCutoff = gltf.Float(f)
	}

	if c.opts.UseMaterialExtensions {
		c.exportAnisotropyExtension(m, gm)
		c.exportEmissiveStrengthExtension(emissiveStrength, gm)
		c.exportIorExtension(m, gm)
		c.exportSheenExtension(m, gm)
		c.exportSpecularExtension(m, gm)
		c.exportTransmissionExtension(m, gm)
		c.exportVolumeExtension(m, gm)
		if m.IsUnlit {
			c.addMaterialExt(gm, extUnlit, map[string]interface{}{}, false)
		}
		// A clearcoat lobe synthesized to tint transmission must not go
		// back out; glTF tints transmission natively.
		if !m.ClearcoatModelsTransmissionTint {
			c.exportClearcoatExtension(m, gm)
			c.exportAdobeClearcoatSpecularExtension(m, gm)
			c.exportAdobeClearcoatTintExtension(m, gm)
		}
	}
}

// occlusionTextureInfo mirrors coreTextureInfo for the occlusion slot.
func (c *exportContext) occlusionTextureInfo(in *scene.Input) *gltf.OcclusionTexture {
	textureIndex, texCoord := c.exportTexture(in)
	if textureIndex == -1 {
		return nil
	}
	ot := &gltf.OcclusionTexture{
		Index:    gltf.Index(uint32(textureIndex)),
		TexCoord: uint32(texCoord),
	}
	if transform, ok := c.exportTextureTransform(in); ok {
		ot.Extensions = gltf.Extensions{extTextureTransform: transform}
	}
	return ot
}

func normalizeEmissive(rgb mgl32.Vec3) (mgl32.Vec3, float32) {
	maxFactor := rgb[0]
	if rgb[1] > maxFactor {
		maxFactor = rgb[1]
	}
	if rgb[2] > maxFactor {
		maxFactor = rgb[2]
	}
	if maxFactor <= 1 {
		return rgb, 1
	}
	return rgb.Mul(1 / maxFactor), maxFactor
}

func (c *exportContext) exportEmissiveStrengthExtension(strength float32, gm *gltf.Material) {
	if strength == 1 {
		return
	}
	ext := map[string]interface{}{}
	addFloatToExt(ext, "emissiveStrength", strength)
	c.addMaterialExt(gm, extEmissiveStrength, ext, false)
}

func (c *exportContext) exportIorExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	if addFloatValueToExt(ext, "ior", m.IOR.Value, 1.5) {
		c.addMaterialExt(gm, extIOR, ext, false)
	}
}

func (c *exportContext) exportSheenExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	written := c.addTextureToExt(ext, &m.SheenColor, "sheenColorTexture", "sheenColorFactor", 0)
	written = c.addTextureToExt(ext, &m.SheenRoughness, "sheenRoughnessTexture", "sheenRoughnessFactor", 0) || written
	if written {
		c.addMaterialExt(gm, extSheen, ext, false)
	}
}

func (c *exportContext) exportSpecularExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	written := c.addTextureToExt(ext, &m.SpecularLevel, "specularTexture", "specularFactor", 1)
	written = c.addTextureToExt(ext, &m.SpecularColor, "specularColorTexture", "specularColorFactor", 1) || written
	if written {
		c.addMaterialExt(gm, extSpecular, ext, false)
	}
}

func (c *exportContext) exportTransmissionExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	if !c.addTextureToExt(ext, &m.Transmission, "transmissionTexture", "transmissionFactor", 0) {
		return
	}
	// A bare transmission texture reads at full strength.
	if _, ok := ext["transmissionFactor"]; !ok {
		addFloatToExt(ext, "transmissionFactor", 1)
	}
	c.addMaterialExt(gm, extTransmission, ext, false)
}

func (c *exportContext) exportVolumeExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	written := c.addTextureToExt(ext, &m.VolumeThickness, "thicknessTexture", "thicknessFactor", 0)
	written = addFloatValueToExt(ext, "attenuationDistance", m.AbsorptionDistance.Value, 0) || written
	written = addColorValueToExt(ext, "attenuationColor", m.AbsorptionColor.Value, mgl32.Vec3{1, 1, 1}) || written
	if written {
		c.addMaterialExt(gm, extVolume, ext, false)
	}
}

func (c *exportContext) exportClearcoatExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	written := c.addTextureToExt(ext, &m.Clearcoat, "clearcoatTexture", "clearcoatFactor", 0)
	written = c.addTextureToExt(ext, &m.ClearcoatRoughness, "clearcoatRoughnessTexture", "clearcoatRoughnessFactor", 0) || written
	written = c.addTextureToExt(ext, &m.ClearcoatNormal, "clearcoatNormalTexture", "", 0) || written
	if written {
		c.addMaterialExt(gm, extClearcoat, ext, false)
	}
}

func (c *exportContext) exportAdobeClearcoatSpecularExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	written := c.addTextureToExt(ext, &m.ClearcoatSpecular, "clearcoatSpecularTexture", "clearcoatSpecularFactor", 1)
	written = addFloatValueToExt(ext, "clearcoatIor", m.ClearcoatIOR.Value, 1.5) || written
	if written {
		c.addMaterialExt(gm, extAdobeClearcoatSpec, ext, false)
	}
}

func (c *exportContext) exportAdobeClearcoatTintExtension(m *scene.Material, gm *gltf.Material) {
	ext := map[string]interface{}{}
	if c.addTextureToExt(ext, &m.ClearcoatColor, "clearcoatTintTexture", "clearcoatTintFactor", 0) {
		c.addMaterialExt(gm, extAdobeClearcoatTint, ext, false)
	}
}

// exportAnisotropyExtension reverses the level/angle encoding back to
// the strength/rotation/texture form of KHR_materials_anisotropy.
func (c *exportContext) exportAnisotropyExtension(m *scene.Material, gm *gltf.Material) {
	if m.AnisotropyLevel.IsEmpty() && m.AnisotropyAngle.IsEmpty() {
		return
	}
	reconstructedStrength := float32(1)
	reconstructedAngle := float32(0)
	ext := map[string]interface{}{}
	if level, ok := m.AnisotropyLevel.Value.Float(); ok {
		roughness := m.Roughness.Value.FloatOr(0)
		reconstructedStrength = reverseASMLevel(level, 1, roughness)
		addFloatToExt(ext, "anisotropyStrength", reconstructedStrength)
	}
	if angle, ok := m.AnisotropyAngle.Value.Float(); ok {
		reconstructedAngle = reverseASMRotation(angle, 0)
		addFloatToExt(ext, "anisotropyRotation", reconstructedAngle)
	}

	if m.AnisotropyLevel.Image >= 0 || m.AnisotropyAngle.Image >= 0 {
		if m.AnisotropyLevel.Image >= 0 && m.AnisotropyLevel.Image < len(c.srcImages) {
			if level, rotation, ok := anisotropyParamsFromName(c.srcImages[m.AnisotropyLevel.Image].Name); ok {
				reconstructedStrength = level
				reconstructedAngle = rotation
				addFloatToExt(ext, "anisotropyStrength", reconstructedStrength)
				addFloatToExt(ext, "anisotropyRotation", reconstructedAngle)
			}
		}
		name := fmt.Sprintf("anisotropyTexture_%d_%d", m.AnisotropyLevel.Image, m.AnisotropyAngle.Image)
		entry, ok := c.constructedAnisotropy[name]
		if !ok {
			entry = c.buildAnisotropyTexture(m, gm, name, reconstructedStrength, reconstructedAngle)
			c.constructedAnisotropy[name] = entry
		}
		if entry.texture >= 0 {
			info := map[string]interface{}{"index": entry.texture}
			if entry.texCoord != 0 {
				info["texCoord"] = entry.texCoord
			}
			ext["anisotropyTexture"] = info
		}
	}
	c.addMaterialExt(gm, extAnisotropy, ext, false)
}

// buildAnisotropyTexture synthesizes the RGB anisotropy texture from
// the level and angle inputs, sampling roughness from the already
// exported metallic-roughness texture when one exists.
func (c *exportContext) buildAnisotropyTexture(m *scene.Material, gm *gltf.Material,
	name string, strength, angle float32) constructedTexture {

	levelImage := c.decodeSourceImage(m.AnisotropyLevel.Image)
	angleImage := c.decodeSourceImage(m.AnisotropyAngle.Image)
	if levelImage == nil && angleImage == nil {
		return constructedTexture{texture: -1}
	}
	if levelImage == nil {
		levelImage = constantImageLike(angleImage, m.AnisotropyLevel.Value.FloatOr(0))
	}
	if angleImage == nil {
		angleImage = constantImageLike(levelImage, m.AnisotropyAngle.Value.FloatOr(0))
	}
	if levelImage.Width != angleImage.Width || levelImage.Height != angleImage.Height {
		if levelImage.Width*levelImage.Height < angleImage.Width*angleImage.Height {
			levelImage = resampleChannel(levelImage, 0, angleImage.Width, angleImage.Height)
		} else {
			angleImage = resampleChannel(angleImage, 0, levelImage.Width, levelImage.Height)
		}
	}

	var roughnessImage *texproc.Image
	if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.MetallicRoughnessTexture != nil {
		if src := c.exportedTextureImage(int(pbr.MetallicRoughnessTexture.Index)); src != nil {
			// Roughness lives in the green channel of the ORM texture.
			ch := 1
			if src.Channels <= ch {
				ch = src.Channels - 1
			}
			roughnessImage = resampleChannel(src, ch, src.Width, src.Height)
		}
	}

	img := constructAnisotropyImage(levelImage, angleImage, roughnessImage,
		m.Roughness.Value.FloatOr(0), strength, angle)
	imageIndex := c.encodeOutImage(img, name)
	if imageIndex < 0 {
		return constructedTexture{texture: -1}
	}
	in := scene.Input{
		Image:      imageIndex,
		Channel:    scene.ChannelRGB,
		WrapS:      scene.WrapRepeat,
		WrapT:      scene.WrapRepeat,
		Colorspace: scene.ColorspaceRaw,
	}
	textureIndex, texCoord := c.exportTexture(&in)
	return constructedTexture{texture: textureIndex, texCoord: texCoord}
}

// exportedTextureImage decodes the output image behind an already
// emitted texture.
func (c *exportContext) exportedTextureImage(textureIndex int) *texproc.Image {
	if textureIndex < 0 || textureIndex >= len(c.doc.Textures) {
		return nil
	}
	texture := c.doc.Textures[textureIndex]
	if texture.Source == nil {
		return nil
	}
	imageIndex := int(*texture.Source)
	if imageIndex < 0 || imageIndex >= len(c.dstImages) {
		return nil
	}
	img, err := texproc.Decode(c.dstImages[imageIndex].Data, 0)
	if err != nil {
		return nil
	}
	return img
}

func constantImageLike(ref *texproc.Image, v float32) *texproc.Image {
	out := &texproc.Image{}
	out.Allocate(ref.Width, ref.Height, 1)
	for i := range out.Pixels {
		out.Pixels[i] = v
	}
	return out
}

// resampleChannel extracts one channel into a single-channel image of
// the requested size.
func resampleChannel(src *texproc.Image, ch, width, height int) *texproc.Image {
	out := &texproc.Image{}
	out.Allocate(width, height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if width == src.Width && height == src.Height {
				out.Set(x, y, 0, src.At(x, y, ch))
			} else {
				u := (float32(x) + 0.5) / float32(width)
				v := (float32(y) + 0.5) / float32(height)
				out.Set(x, y, 0, src.SampleBilinear(u, v, ch))
			}
		}
	}
	return out
}

func imageMimeType(format scene.ImageFormat) string {
	switch format {
	case scene.ImageFormatJpg:
		return "image/jpeg"
	case scene.ImageFormatBmp:
		return "image/bmp"
	case scene.ImageFormatWebp:
		return "image/webp"
	}
	return "image/png"
}

func gltfSupportedImageFormat(format scene.ImageFormat) bool {
	switch format {
	case scene.ImageFormatPng, scene.ImageFormatJpg, scene.ImageFormatWebp:
		return true
	}
	return false
}

// flushImages moves the collected output images into the document,
// embedded in the buffer or referenced by URI for sidecar writing.
func (c *exportContext) flushImages() {
	for i := range c.dstImages {
		asset := &c.dstImages[i]
		gi := &gltf.Image{Name: asset.Name}
		if asset.Format == scene.ImageFormatWebp {
			c.useExtension(extTextureWebp, true)
		}
		if !gltfSupportedImageFormat(asset.Format) {
			if img, err := texproc.Decode(asset.Data, 0); err == nil {
				if data, err := img.EncodePNG(); err == nil {
					asset.Data = data
					asset.Format = scene.ImageFormatPng
					asset.URI = replaceURIExtension(asset.URI, "png")
				}
			} else {
				c.warnf("cannot convert image %q to png: %v", asset.Name, err)
			}
		}
		if c.opts.EmbedImages {
			gi.MimeType = imageMimeType(asset.Format)
			gi.BufferView = gltf.Index(uint32(AddImageBufferView(c.doc, asset.Name, asset.Data)))
		} else {
			gi.URI = asset.URI
		}
		c.doc.Images = append(c.doc.Images, gi)
	}
}

func replaceURIExtension(uri, ext string) string {
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '.' {
			return uri[:i+1] + ext
		}
		if uri[i] == '/' {
			break
		}
	}
	return uri + "." + ext
}
