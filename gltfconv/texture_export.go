package gltfconv

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

func wrapToGltf(w scene.Wrap) gltf.WrappingMode {
	switch w {
	case scene.WrapClamp:
		return gltf.WrapClampToEdge
	case scene.WrapMirror:
		return gltf.WrapMirroredRepeat
	}
	return gltf.WrapRepeat
}

func magFilterToGltf(f scene.Filter) gltf.MagFilter {
	if f == scene.FilterNearest {
		return gltf.MagNearest
	}
	return gltf.MagLinear
}

func minFilterToGltf(f scene.Filter) gltf.MinFilter {
	switch f {
	case scene.FilterNearest:
		return gltf.MinNearest
	case scene.FilterLinear:
		return gltf.MinLinear
	case scene.FilterNearestMipmapNearest:
		return gltf.MinNearestMipMapNearest
	case scene.FilterLinearMipmapNearest:
		return gltf.MinLinearMipMapNearest
	case scene.FilterNearestMipmapLinear:
		return gltf.MinNearestMipMapLinear
	}
	return gltf.MinLinearMipMapLinear
}

// exportTexture creates a sampler and texture pair for an input that
// carries an output image. Returns the texture index and UV set, or -1.
func (c *exportContext) exportTexture(in *scene.Input) (int, int) {
	if in.Image < 0 {
		return -1, 0
	}
	samplerIndex := len(c.doc.Samplers)
	c.doc.Samplers = append(c.doc.Samplers, &gltf.Sampler{
		MagFilter: magFilterToGltf(in.MagFilter),
		MinFilter: minFilterToGltf(in.MinFilter),
		WrapS:     wrapToGltf(in.WrapS),
		WrapT:     wrapToGltf(in.WrapT),
	})
	textureIndex := len(c.doc.Textures)
	c.doc.Textures = append(c.doc.Textures, &gltf.Texture{
		Sampler: gltf.Index(uint32(samplerIndex)),
		Source:  gltf.Index(uint32(in.Image)),
	})
	return textureIndex, in.UVIndex
}

// exportTextureTransform converts the place2d transform of an input to
// a KHR_texture_transform payload. The V axis flips back to glTF's
// top-left origin, so an untransformed input still carries the flip.
func (c *exportContext) exportTextureTransform(in *scene.Input) (map[string]interface{}, bool) {
	if in.Image < 0 {
		return nil, false
	}
	rotation := float32(0)
	if in.TransformRotation != nil {
		rotation = mgl32.DegToRad(*in.TransformRotation)
	}
	hasRotation := rotation != 0

	sx, sy := float32(1), float32(-1)
	hasScale := true
	if in.TransformScale != nil {
		sx, sy = in.TransformScale[0], -in.TransformScale[1]
		hasScale = sx != 1 || sy != 1
	}

	tx, ty := float32(0), float32(1)
	hasOffset := true
	if in.TransformTranslation != nil {
		tx, ty = in.TransformTranslation[0], 1-in.TransformTranslation[1]
		hasOffset = tx != 0 || ty != 0
	}

	if !hasRotation && !hasScale && !hasOffset {
		return nil, false
	}
	ext := map[string]interface{}{}
	if hasRotation {
		ext["rotation"] = float64(rotation)
	}
	if hasScale {
		ext["scale"] = []float64{float64(sx), float64(sy)}
	}
	if hasOffset {
		ext["offset"] = []float64{float64(tx), float64(ty)}
	}
	c.useExtension(extTextureTransform, true)
	return ext, true
}

// textureInfoObject builds the {index, texCoord, extensions} record
// used by extension payloads. transformSource is the original input
// before translation, which still carries the 2D transform.
func (c *exportContext) textureInfoObject(textureIndex, texCoord int, transformSource *scene.Input) map[string]interface{} {
	info := map[string]interface{}{"index": textureIndex}
	if texCoord != 0 {
		info["texCoord"] = texCoord
	}
	if transform, ok := c.exportTextureTransform(transformSource); ok {
		info["extensions"] = map[string]interface{}{extTextureTransform: transform}
	}
	return info
}

func addFloatToExt(ext map[string]interface{}, name string, v float32) {
	ext[name] = float64(v)
}

// addFloatValueToExt writes a scalar member when the value holds a
// float different from the default.
func addFloatValueToExt(ext map[string]interface{}, name string, v scene.Value, def float32) bool {
	f, ok := v.Float()
	if !ok || f == def {
		return false
	}
	ext[name] = float64(f)
	return true
}

func addColorToExt(ext map[string]interface{}, name string, v mgl32.Vec3) {
	ext[name] = []float64{float64(v[0]), float64(v[1]), float64(v[2])}
}

// addColorValueToExt writes a color member when the value holds a
// vector different from the default.
func addColorValueToExt(ext map[string]interface{}, name string, v scene.Value, def mgl32.Vec3) bool {
	w, ok := v.Vec3()
	if !ok || w == def {
		return false
	}
	addColorToExt(ext, name, w)
	return true
}

// addTextureToExt translates an input into a texture member plus an
// optional factor member of an extension payload. Returns whether
// anything was written.
func (c *exportContext) addTextureToExt(ext map[string]interface{}, in *scene.Input,
	textureName, factorName string, factorDefault float32) bool {
	if in.Image >= 0 {
		translated, ok := c.translateDirect(in)
		if !ok {
			return false
		}
		textureIndex, texCoord := c.exportTexture(&translated)
		if textureIndex != -1 {
			ext[textureName] = c.textureInfoObject(textureIndex, texCoord, in)
		}
		if factorName != "" {
			if in.Channel == scene.ChannelRGB || in.Channel == scene.ChannelRGBA {
				if s, ok := translated.Scale.Vec4(); ok {
					if s[0] != factorDefault || s[1] != factorDefault || s[2] != factorDefault {
						addColorToExt(ext, factorName, mgl32.Vec3{s[0], s[1], s[2]})
					}
				}
			} else if lane := channelIndex(in.Channel); lane >= 0 {
				if s, ok := translated.Scale.Vec4(); ok && s[lane] != factorDefault {
					addFloatToExt(ext, factorName, s[lane])
				} else if s, ok := translated.Scale.Float(); ok && s != factorDefault {
					addFloatToExt(ext, factorName, s)
				}
			}
		}
		return true
	}
	if !in.Value.IsEmpty() && factorName != "" {
		if addFloatValueToExt(ext, factorName, in.Value, factorDefault) {
			return true
		}
		return addColorValueToExt(ext, factorName, in.Value,
			mgl32.Vec3{factorDefault, factorDefault, factorDefault})
	}
	return false
}

// addMaterialExt attaches a finished extension payload to a material.
func (c *exportContext) addMaterialExt(gm *gltf.Material, name string, ext map[string]interface{}, required bool) {
	if gm.Extensions == nil {
		gm.Extensions = gltf.Extensions{}
	}
	gm.Extensions[name] = ext
	c.useExtension(name, required)
}
