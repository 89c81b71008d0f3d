package gltfconv

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
	"github.com/mogaika/gltfbridge/texproc"
)

// Anisotropy translation between the glTF RG-direction/B-strength
// encoding and the level/angle pair of the target shading model. The
// derived images carry their construction parameters in the image name
// so the reverse direction can reconstruct the original texture.

const singleValueImageSize = 4

const anisotropyLevelPrefix = "anisotropyLevelTexture"
const anisotropyAnglePrefix = "anisotropyAngleTexture"

func calculateASMLevel(strength, roughness float32) float32 {
	s2 := strength * strength
	return float32(math.Sqrt(math.Sqrt(float64((1 - roughness*roughness) * s2))))
}

func reverseASMLevel(level, anisScale, roughness float32) float32 {
	if roughness > 1 {
		return 0
	}
	denominator := 1 - roughness*roughness
	if denominator <= 0 {
		return 0
	}
	strengthSquared := float64(level*level*level*level) / float64(denominator)
	return float32(math.Sqrt(strengthSquared)) / anisScale
}

// calculateASMRotation normalizes an angle in radians to [0, 1).
func calculateASMRotation(angle float32) float32 {
	normalized := float64(angle) / (2 * math.Pi)
	return float32(normalized - math.Floor(normalized))
}

// calculateASMImageRotation derives the normalized angle from the RG
// direction channels plus the constant rotation of the extension.
func calculateASMImageRotation(red, green, rotation float32) float32 {
	angle := float32(math.Atan2(float64(green*2-1), float64(red*2-1))) + rotation
	return calculateASMRotation(angle)
}

func reverseASMRotation(normalized, rotation float32) float32 {
	angle := float64(normalized)*2*math.Pi - float64(rotation)
	angle = math.Mod(angle, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return float32(angle)
}

func reverseASMImageRotation(normalized, rotation float32) (red, green float32) {
	angle := float64(reverseASMRotation(normalized, rotation))
	return float32((math.Cos(angle) + 1) / 2), float32((math.Sin(angle) + 1) / 2)
}

// anisotropyImageName formats "<prefix>_<level>_<rotation>" with three
// decimals and dots replaced so the name survives as a filename stem.
func anisotropyImageName(prefix string, level, rotation float32) string {
	name := fmt.Sprintf("%s_%.3f_%.3f", prefix, level, rotation)
	return strings.ReplaceAll(name, ".", "_")
}

// anisotropyParamsFromName recovers level and rotation from a name
// produced by anisotropyImageName.
func anisotropyParamsFromName(name string) (level, rotation float32, ok bool) {
	tokens := strings.Split(name, "_")
	if len(tokens) < 5 {
		return -1, -1, false
	}
	levelStr := tokens[len(tokens)-4] + "." + tokens[len(tokens)-3]
	rotationStr := tokens[len(tokens)-2] + "." + tokens[len(tokens)-1]
	l, err := strconv.ParseFloat(levelStr, 32)
	if err != nil {
		return -1, -1, false
	}
	r, err := strconv.ParseFloat(rotationStr, 32)
	if err != nil {
		return -1, -1, false
	}
	return float32(l), float32(r), true
}

func isSingleValueImage(img *texproc.Image) bool {
	return img != nil && img.Width == singleValueImageSize && img.Height == singleValueImageSize
}

// decodeGltfTextureImage decodes the source image behind a glTF
// texture for pixel processing. Nil on any failure.
func (c *importContext) decodeGltfTextureImage(textureIndex, channels int) *texproc.Image {
	if textureIndex < 0 || textureIndex >= len(c.doc.Textures) {
		return nil
	}
	source := c.resolveTextureSource(c.doc.Textures[textureIndex])
	if source < 0 || source >= len(c.doc.Images) {
		return nil
	}
	data, err := c.loadImageBytes(c.doc.Images[source])
	if err != nil {
		return nil
	}
	img, err := texproc.Decode(data, channels)
	if err != nil {
		return nil
	}
	return img
}

// importAnisotropy translates KHR_materials_anisotropy onto the
// level/angle inputs, generating grayscale images when the extension
// carries a texture.
func (c *importContext) importAnisotropy(gm *gltf.Material, m *scene.Material, ext ExtValue) {
	roughness := m.Roughness.Value.FloatOr(0)

	strength := float32(ext.Get("anisotropyStrength").NumberOr(0))
	_, haveStrength := ext.Get("anisotropyStrength").Number()
	rotation := float32(ext.Get("anisotropyRotation").NumberOr(0))
	ref := readTextureRef(ext.Get("anisotropyTexture"))

	var srcImage *texproc.Image
	hasImage := false
	if ref.Index >= 0 {
		srcImage = c.decodeGltfTextureImage(ref.Index, 3)
		if isSingleValueImage(srcImage) {
			// A uniform 4x4 texture is a constant in disguise.
			if !haveStrength {
				strength = srcImage.Pixels[2]
			}
			rotation = calculateASMImageRotation(srcImage.Pixels[0], srcImage.Pixels[1], rotation)
		} else {
			hasImage = true
		}
	}

	importValue1(&m.AnisotropyLevel, calculateASMLevel(strength, roughness))
	importValue1(&m.AnisotropyAngle, calculateASMRotation(rotation))

	if hasImage {
		c.importAnisotropyTexture(gm, m, roughness, strength, rotation, ref, srcImage)
	}
}

// anisotropyDerivedInput points a level or angle input at a generated
// image.
func anisotropyDerivedInput(in *scene.Input, imageIndex, uvIndex int) {
	if imageIndex < 0 {
		return
	}
	in.Value = scene.Value{}
	in.Image = imageIndex
	in.UVIndex = uvIndex
	in.Channel = scene.ChannelRGB
	in.Colorspace = scene.ColorspaceRaw
	in.WrapS = scene.WrapRepeat
	in.WrapT = scene.WrapRepeat
	in.MinFilter = scene.FilterLinear
	in.MagFilter = scene.FilterLinear
}

// cachedDerivedImage encodes and registers a generated grayscale image
// under its cache key.
func (c *importContext) cachedDerivedImage(key string, img *texproc.Image) int {
	png, err := img.EncodePNG()
	if err != nil {
		c.warnf("cannot encode derived image %q: %v", key, err)
		return -1
	}
	index := c.addDerivedImage(key, png)
	c.scene.Images[index].URI = key + ".png"
	c.anisotropyCache[key] = index
	return index
}

func (c *importContext) importAnisotropyTexture(gm *gltf.Material, m *scene.Material,
	roughness, strength, rotation float32, ref textureRef, srcImage *texproc.Image) {

	var roughnessImage *texproc.Image
	mrTextureIndex := -1
	if gm.PBRMetallicRoughness != nil && gm.PBRMetallicRoughness.MetallicRoughnessTexture != nil {
		mrTextureIndex = int(gm.PBRMetallicRoughness.MetallicRoughnessTexture.Index)
		roughnessImage = c.decodeGltfTextureImage(mrTextureIndex, 3)
	}

	levelKey, angleKey := "", ""
	if ref.Index >= 0 {
		levelKey = anisotropyImageName(anisotropyLevelPrefix, strength, rotation)
		angleKey = anisotropyImageName(anisotropyAnglePrefix, strength, rotation)
	} else if mrTextureIndex >= 0 {
		levelKey = anisotropyImageName(anisotropyLevelPrefix+"_roughness", strength, rotation)
	}

	levelIndex, haveLevel := c.anisotropyCache[levelKey]
	angleIndex, haveAngle := c.anisotropyCache[angleKey]
	if !haveLevel {
		levelIndex = -1
	}
	if !haveAngle {
		angleIndex = -1
	}

	switch {
	case srcImage != nil && srcImage.Width > 0 && srcImage.Height > 0:
		if levelIndex < 0 && angleIndex < 0 {
			levelImage, angleImage := processAnisotropyPixels(srcImage, roughnessImage, roughness, strength, rotation)
			levelIndex = c.cachedDerivedImage(levelKey, levelImage)
			angleIndex = c.cachedDerivedImage(angleKey, angleImage)
		}
		anisotropyDerivedInput(&m.AnisotropyLevel, levelIndex, ref.TexCoord)
		anisotropyDerivedInput(&m.AnisotropyAngle, angleIndex, ref.TexCoord)
	case roughnessImage != nil && roughnessImage.Width > 0 && roughnessImage.Height > 0:
		// No anisotropy texture, but per-pixel roughness still varies
		// the level.
		if levelIndex < 0 {
			levelImage := processAnisotropyFromRoughness(roughnessImage, strength)
			levelIndex = c.cachedDerivedImage(levelKey, levelImage)
		}
		anisotropyDerivedInput(&m.AnisotropyLevel, levelIndex, ref.TexCoord)
	}
}

// processAnisotropyPixels builds level and angle grayscale images from
// the RG direction and B strength channels, with per-pixel roughness
// when a roughness image is present.
func processAnisotropyPixels(src, roughnessImage *texproc.Image,
	roughness, strength, rotation float32) (level, angle *texproc.Image) {

	level = &texproc.Image{}
	level.Allocate(src.Width, src.Height, 1)
	angle = &texproc.Image{}
	angle.Allocate(src.Width, src.Height, 1)

	resample := roughnessImage != nil &&
		(roughnessImage.Width != src.Width || roughnessImage.Height != src.Height)

	for y := 0; y < src.Height; y++ {
		v := float32(y) / float32(src.Height)
		for x := 0; x < src.Width; x++ {
			u := float32(x) / float32(src.Width)
			red := src.At(x, y, 0)
			green := src.At(x, y, 1)
			blue := src.At(x, y, 2)

			r := roughness
			if roughnessImage != nil {
				if resample {
					r = roughnessImage.SampleBilinear(u, v, 0)
				} else {
					r = roughnessImage.At(x, y, 0)
				}
			}

			level.Set(x, y, 0, calculateASMLevel(blue*strength, r))
			angle.Set(x, y, 0, calculateASMImageRotation(red, green, rotation))
		}
	}
	return level, angle
}

func processAnisotropyFromRoughness(roughnessImage *texproc.Image, strength float32) *texproc.Image {
	level := &texproc.Image{}
	level.Allocate(roughnessImage.Width, roughnessImage.Height, 1)
	for y := 0; y < roughnessImage.Height; y++ {
		for x := 0; x < roughnessImage.Width; x++ {
			level.Set(x, y, 0, calculateASMLevel(strength, roughnessImage.At(x, y, 0)))
		}
	}
	return level
}

// constructAnisotropyImage rebuilds the glTF RGB anisotropy texture
// from level and angle images on export.
func constructAnisotropyImage(levelImage, angleImage, roughnessImage *texproc.Image,
	constantRoughness, anisScale, anisRotation float32) *texproc.Image {

	width := levelImage.Width
	if angleImage.Width > width {
		width = angleImage.Width
	}
	height := levelImage.Height
	if angleImage.Height > height {
		height = angleImage.Height
	}

	resample := roughnessImage != nil &&
		(levelImage.Width != roughnessImage.Width || levelImage.Height != roughnessImage.Height)

	out := &texproc.Image{}
	out.Allocate(width, height, 3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := constantRoughness
			if roughnessImage != nil {
				if resample {
					u := float32(x) / float32(levelImage.Width)
					v := float32(y) / float32(levelImage.Height)
					r = roughnessImage.SampleBilinear(u, v, 0)
				} else {
					r = roughnessImage.At(x, y, 0)
				}
			}
			red, green := reverseASMImageRotation(angleImage.At(x, y, 0), anisRotation)
			out.Set(x, y, 0, red)
			out.Set(x, y, 1, green)
			out.Set(x, y, 2, reverseASMLevel(levelImage.At(x, y, 0), anisScale, r))
		}
	}
	return out
}
