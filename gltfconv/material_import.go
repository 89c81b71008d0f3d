package gltfconv

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

func f32Or(v *float32, def float32) float32 {
	if v != nil {
		return *v
	}
	return def
}

// importScale1 folds a scalar factor into the scale of a textured
// input, skipping the no-op factor.
func importScale1(in *scene.Input, factor float32) {
	if factor != 1 {
		in.Scale = scene.Vec4Value(mgl32.Vec4{factor, factor, factor, factor})
	}
}

func importScale3(in *scene.Input, factor mgl32.Vec3, mult float32) {
	if factor[0] != 1 || factor[1] != 1 || factor[2] != 1 || mult != 1 {
		in.Scale = scene.Vec4Value(mgl32.Vec4{mult * factor[0], mult * factor[1], mult * factor[2], mult})
	}
}

func importValue1(in *scene.Input, value float32) {
	in.Value = scene.FloatValue(value)
}

func importValue3(in *scene.Input, value mgl32.Vec3, mult float32) {
	in.Value = scene.Vec3Value(mgl32.Vec3{mult * value[0], mult * value[1], mult * value[2]})
}

func inputUsed(in *scene.Input) bool {
	return in.HasTexture() || !in.Value.IsEmpty()
}

// importScalarInput fills a single-channel input from an extension
// textureRef plus a factor, defaulting to empty when the factor equals
// its extension default.
func (c *importContext) importScalarInput(materialName, slotName string, in *scene.Input,
	ref textureRef, channel scene.Channel, factor, defaultFactor float32) {
	if ref.Index >= 0 {
		if c.setInputTextureRef(in, ref, scene.ColorspaceRaw, channel, materialName, slotName) {
			importScale1(in, factor)
			return
		}
	}
	if factor != defaultFactor {
		importValue1(in, factor)
	}
}

// importColorInput fills an rgb input, always tagged sRGB.
func (c *importContext) importColorInput(materialName, slotName string, in *scene.Input,
	ref textureRef, factor mgl32.Vec3, defaultFactor float32) {
	if ref.Index >= 0 {
		if c.setInputTextureRef(in, ref, scene.ColorspaceSRGB, scene.ChannelRGB, materialName, slotName) {
			importScale3(in, factor, 1)
			return
		}
	}
	if factor[0] != defaultFactor || factor[1] != defaultFactor || factor[2] != defaultFactor {
		importValue3(in, factor, 1)
	}
}

// importNormalInput fills a tangent-space normal input with the
// 8-bit expansion scale and bias expected downstream.
func (c *importContext) importNormalInput(materialName, slotName string, in *scene.Input, ref textureRef) {
	if ref.Index < 0 {
		return
	}
	if !c.setInputTextureRef(in, ref, scene.ColorspaceRaw, scene.ChannelRGB, materialName, slotName) {
		return
	}
	s := float32(ref.Scale)
	in.Scale = scene.Vec4Value(mgl32.Vec4{2 * s, 2 * s, 2 * s, 1})
	in.Bias = scene.Vec4Value(mgl32.Vec4{-s, -s, -s, 0})
}

// applyInputMultiplier multiplies an rgb input by a constant,
// whichever shape the input currently holds.
func applyInputMultiplier(in *scene.Input, mult mgl32.Vec3) {
	switch {
	case in.HasTexture():
		s := in.Scale.Vec4Or(mgl32.Vec4{1, 1, 1, 1})
		in.Scale = scene.Vec4Value(mgl32.Vec4{mult[0] * s[0], mult[1] * s[1], mult[2] * s[2], s[3]})
	case !in.Value.IsEmpty():
		v := in.Value.Vec3Or(mgl32.Vec3{})
		in.Value = scene.Vec3Value(mgl32.Vec3{mult[0] * v[0], mult[1] * v[1], mult[2] * v[2]})
	default:
		in.Value = scene.Vec3Value(mult)
	}
}

func extVec3(e ExtValue, key string, def mgl32.Vec3) mgl32.Vec3 {
	if arr, ok := e.Get(key).FloatArray(3); ok {
		return mgl32.Vec3{float32(arr[0]), float32(arr[1]), float32(arr[2])}
	}
	return def
}

// importMaterials converts every glTF material into the flat shading
// record, resolving the KHR/ADOBE extension family.
func (c *importContext) importMaterials() error {
	for i, gm := range c.doc.Materials {
		_, m := c.scene.AddMaterial()
		m.Name = gm.Name
		if m.Name == "" {
			m.Name = fmt.Sprintf("Material%d", i)
		}

		if specGloss, ok := extensionValue(gm.Extensions, extSpecGloss); ok {
			c.importSpecGlossMaterial(gm, m, specGloss)
		} else {
			c.importMetallicRoughness(gm, m)
			c.importMaterialExtensions(gm, m)
		}

		c.importEmissive(gm, m)

		if gm.AlphaMode == gltf.AlphaMask {
			importValue1(&m.OpacityThreshold, f32Or(gm.AlphaCutoff, 0.5))
		}

		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			c.importMaterialNormal(gm, m)
		}
		c.importOcclusion(gm, m)
	}
	return nil
}

func (c *importContext) importMetallicRoughness(gm *gltf.Material, m *scene.Material) {
	pbr := gm.PBRMetallicRoughness
	if pbr == nil {
		pbr = &gltf.PBRMetallicRoughness{}
	}
	baseColor := [4]float32{1, 1, 1, 1}
	if pbr.BaseColorFactor != nil {
		baseColor = *pbr.BaseColorFactor
	}
	baseRGB := mgl32.Vec3{baseColor[0], baseColor[1], baseColor[2]}

	if pbr.BaseColorTexture != nil {
		if c.setInputTextureInfo(&m.DiffuseColor, pbr.BaseColorTexture,
			scene.ColorspaceSRGB, scene.ChannelRGB, m.Name, "diffuse") {
			importScale3(&m.DiffuseColor, baseRGB, 1)
			if gm.AlphaMode == gltf.AlphaBlend || gm.AlphaMode == gltf.AlphaMask {
				c.setInputTextureInfo(&m.Opacity, pbr.BaseColorTexture,
					scene.ColorspaceRaw, scene.ChannelA, m.Name, "opacity")
				importScale1(&m.Opacity, baseColor[3])
				m.Opacity.TransformRotation = m.DiffuseColor.TransformRotation
				m.Opacity.TransformScale = m.DiffuseColor.TransformScale
				m.Opacity.TransformTranslation = m.DiffuseColor.TransformTranslation
			}
		}
	} else {
		importValue3(&m.DiffuseColor, baseRGB, 1)
		importValue1(&m.Opacity, baseColor[3])
	}

	metallicFactor := f32Or(pbr.MetallicFactor, 1)
	roughnessFactor := f32Or(pbr.RoughnessFactor, 1)
	if pbr.MetallicRoughnessTexture != nil {
		ok := c.setInputTextureInfo(&m.Roughness, pbr.MetallicRoughnessTexture,
			scene.ColorspaceRaw, scene.ChannelG, m.Name, "metallicRoughness")
		ok = c.setInputTextureInfo(&m.Metallic, pbr.MetallicRoughnessTexture,
			scene.ColorspaceRaw, scene.ChannelB, m.Name, "metallicRoughness") && ok
		if ok {
			importScale1(&m.Metallic, metallicFactor)
			importScale1(&m.Roughness, roughnessFactor)
			m.Metallic.TransformRotation = m.Roughness.TransformRotation
			m.Metallic.TransformScale = m.Roughness.TransformScale
			m.Metallic.TransformTranslation = m.Roughness.TransformTranslation
			return
		}
	}
	importValue1(&m.Metallic, metallicFactor)
	importValue1(&m.Roughness, roughnessFactor)
}

func (c *importContext) importMaterialExtensions(gm *gltf.Material, m *scene.Material) {
	if ior, ok := extensionValue(gm.Extensions, extIOR); ok {
		importValue1(&m.IOR, float32(ior.Get("ior").NumberOr(1.5)))
	}

	if specular, ok := extensionValue(gm.Extensions, extSpecular); ok {
		c.importScalarInput(m.Name, "specularLevel", &m.SpecularLevel,
			readTextureRef(specular.Get("specularTexture")), scene.ChannelA,
			float32(specular.Get("specularFactor").NumberOr(1)), 1)
		c.importColorInput(m.Name, "specularColor", &m.SpecularColor,
			readTextureRef(specular.Get("specularColorTexture")),
			extVec3(specular, "specularColorFactor", mgl32.Vec3{1, 1, 1}), 1)
	}

	if anisotropy, ok := extensionValue(gm.Extensions, extAnisotropy); ok {
		c.importAnisotropy(gm, m, anisotropy)
	}

	if clearcoat, ok := extensionValue(gm.Extensions, extClearcoat); ok {
		c.importScalarInput(m.Name, "clearcoat", &m.Clearcoat,
			readTextureRef(clearcoat.Get("clearcoatTexture")), scene.ChannelR,
			float32(clearcoat.Get("clearcoatFactor").NumberOr(0)), 0)
		c.importScalarInput(m.Name, "clearcoatRoughness", &m.ClearcoatRoughness,
			readTextureRef(clearcoat.Get("clearcoatRoughnessTexture")), scene.ChannelG,
			float32(clearcoat.Get("clearcoatRoughnessFactor").NumberOr(0)), 0)
		c.importNormalInput(m.Name, "clearcoatNormal", &m.ClearcoatNormal,
			readTextureRef(clearcoat.Get("clearcoatNormalTexture")))
	}

	if coatSpecular, ok := extensionValue(gm.Extensions, extAdobeClearcoatSpec); ok {
		importValue1(&m.ClearcoatIOR, float32(coatSpecular.Get("clearcoatIor").NumberOr(1.5)))
		c.importScalarInput(m.Name, "clearcoatSpecular", &m.ClearcoatSpecular,
			readTextureRef(coatSpecular.Get("clearcoatSpecularTexture")), scene.ChannelB,
			float32(coatSpecular.Get("clearcoatSpecularFactor").NumberOr(1)), 1)
	}

	if coatTint, ok := extensionValue(gm.Extensions, extAdobeClearcoatTint); ok {
		c.importColorInput(m.Name, "clearcoatColor", &m.ClearcoatColor,
			readTextureRef(coatTint.Get("clearcoatTintTexture")),
			extVec3(coatTint, "clearcoatTintFactor", mgl32.Vec3{1, 1, 1}), 1)
	}

	if sheen, ok := extensionValue(gm.Extensions, extSheen); ok {
		c.importColorInput(m.Name, "sheenColor", &m.SheenColor,
			readTextureRef(sheen.Get("sheenColorTexture")),
			extVec3(sheen, "sheenColorFactor", mgl32.Vec3{}), 0)
		c.importScalarInput(m.Name, "sheenRoughness", &m.SheenRoughness,
			readTextureRef(sheen.Get("sheenRoughnessTexture")), scene.ChannelA,
			float32(sheen.Get("sheenRoughnessFactor").NumberOr(0)), 0)
	}

	hasTransmission := false
	if transmission, ok := extensionValue(gm.Extensions, extTransmission); ok {
		c.importScalarInput(m.Name, "transmission", &m.Transmission,
			readTextureRef(transmission.Get("transmissionTexture")), scene.ChannelR,
			float32(transmission.Get("transmissionFactor").NumberOr(0)), 0)
		hasTransmission = true
		// glTF tints transmitted light by the base color, the target
		// shading model does not. Emulate the tint with the clearcoat
		// lobe when that lobe is free.
		if inputUsed(&m.DiffuseColor) {
			if !inputUsed(&m.Clearcoat) {
				m.Clearcoat = m.Transmission
				m.ClearcoatRoughness = m.Roughness
				m.ClearcoatNormal = m.Normal
				m.ClearcoatSpecular = m.SpecularLevel
				m.ClearcoatIOR = m.IOR
				if !inputUsed(&m.ClearcoatColor) {
					m.ClearcoatColor = m.DiffuseColor
					m.ClearcoatModelsTransmissionTint = true
				} else {
					c.warnf("material %q: clearcoatColor in use, cannot tint transmission", m.Name)
				}
			}
		}
	}

	if diffuseTransmission, ok := extensionValue(gm.Extensions, extDiffuseTransmission); ok {
		// There is no diffuse transmission lobe downstream; approximate
		// with micro-facet transmission plus volume absorption.
		if !hasTransmission {
			c.importScalarInput(m.Name, "transmission", &m.Transmission,
				readTextureRef(diffuseTransmission.Get("diffuseTransmissionTexture")), scene.ChannelA,
				float32(diffuseTransmission.Get("diffuseTransmissionFactor").NumberOr(0)), 0)
			c.importColorInput(m.Name, "absorptionColor", &m.AbsorptionColor,
				readTextureRef(diffuseTransmission.Get("diffuseTransmissionColorTexture")),
				extVec3(diffuseTransmission, "diffuseTransmissionColorFactor", mgl32.Vec3{1, 1, 1}), 0)
		} else {
			c.warnf("material %q has both transmission and diffuse_transmission, ignoring the latter", m.Name)
		}
	}

	if volume, ok := extensionValue(gm.Extensions, extVolume); ok {
		if thickness := float32(volume.Get("thicknessFactor").NumberOr(0)); thickness > 0 {
			c.importScalarInput(m.Name, "thickness", &m.VolumeThickness,
				readTextureRef(volume.Get("thicknessTexture")), scene.ChannelG, thickness, 0)
			importValue1(&m.AbsorptionDistance, float32(volume.Get("attenuationDistance").NumberOr(0)))
			applyInputMultiplier(&m.AbsorptionColor,
				extVec3(volume, "attenuationColor", mgl32.Vec3{1, 1, 1}))
		}
	}

	subsurface, ok := extensionValue(gm.Extensions, extSubsurface)
	if !ok {
		// Old name of the same extension, still in circulation.
		subsurface, ok = extensionValue(gm.Extensions, extSubsurfaceLegacy)
	}
	if ok {
		importValue1(&m.ScatteringDistance, float32(subsurface.Get("scatterDistance").NumberOr(0)))
		importValue3(&m.ScatteringColor, extVec3(subsurface, "scatterColor", mgl32.Vec3{1, 1, 1}), 1)
	}
}

func (c *importContext) importEmissive(gm *gltf.Material, m *scene.Material) {
	_, unlit := extensionValue(gm.Extensions, extUnlit)
	emissiveStrength := float32(1)
	if strength, ok := extensionValue(gm.Extensions, extEmissiveStrength); ok {
		emissiveStrength = float32(strength.Get("emissiveStrength").NumberOr(1))
	}
	factor := mgl32.Vec3{gm.EmissiveFactor[0], gm.EmissiveFactor[1], gm.EmissiveFactor[2]}

	switch {
	case gm.EmissiveTexture != nil:
		if c.setInputTextureInfo(&m.EmissiveColor, gm.EmissiveTexture,
			scene.ColorspaceSRGB, scene.ChannelRGB, m.Name, "emissive") {
			importScale3(&m.EmissiveColor, factor, emissiveStrength)
		}
	case factor[0] > 0 || factor[1] > 0 || factor[2] > 0:
		importValue3(&m.EmissiveColor, factor, emissiveStrength)
	case unlit:
		// Unlit has no dedicated representation: move the surface color
		// to emission and keep the diffuse lobe black.
		m.EmissiveColor = m.DiffuseColor
		importValue3(&m.DiffuseColor, mgl32.Vec3{}, 1)
		m.IsUnlit = true
	}
}

func (c *importContext) importMaterialNormal(gm *gltf.Material, m *scene.Material) {
	nt := gm.NormalTexture
	if !c.setInputTexture(&m.Normal, int(*nt.Index), int(nt.TexCoord), nt.Extensions,
		scene.ColorspaceRaw, scene.ChannelRGB, m.Name, "normal") {
		return
	}
	// 8-bit normal map expansion is scale 2 bias -1 on x and y, with
	// the authored strength folded in. The z axis keeps full range so
	// normal length stays plausible for renderers that renormalize.
	s := f32Or(nt.Scale, 1)
	xyScale := 2 * s
	xyBias := -s
	m.Normal.Scale = scene.Vec4Value(mgl32.Vec4{xyScale, xyScale, 2, 1})
	m.Normal.Bias = scene.Vec4Value(mgl32.Vec4{xyBias, xyBias, -1, 0})
	importValue1(&m.NormalScale, s)
}

func (c *importContext) importOcclusion(gm *gltf.Material, m *scene.Material) {
	ot := gm.OcclusionTexture
	if ot == nil {
		return
	}
	strength := f32Or(ot.Strength, 1)
	if ot.Index != nil {
		if c.setInputTexture(&m.Occlusion, int(*ot.Index), int(ot.TexCoord), ot.Extensions,
			scene.ColorspaceRaw, scene.ChannelR, m.Name, "occlusion") {
			importScale1(&m.Occlusion, strength)
			return
		}
	}
	if strength != 1 {
		importValue1(&m.Occlusion, strength)
	}
}
