package gltfconv

import (
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/resolver"
	"github.com/mogaika/gltfbridge/scene"
)

// formatFromExt maps a file extension (without dot, lower case) to an
// image format the translator can carry.
func formatFromExt(ext string) (scene.ImageFormat, bool) {
	switch ext {
	case "png":
		return scene.ImageFormatPng, true
	case "jpg", "jpeg":
		return scene.ImageFormatJpg, true
	case "webp":
		return scene.ImageFormatWebp, true
	case "bmp":
		return scene.ImageFormatBmp, true
	}
	return "", false
}

func formatFromMime(mime string) (scene.ImageFormat, bool) {
	switch mime {
	case "image/png":
		return scene.ImageFormatPng, true
	case "image/jpeg", "image/jpg":
		return scene.ImageFormatJpg, true
	case "image/webp":
		return scene.ImageFormatWebp, true
	case "image/bmp":
		return scene.ImageFormatBmp, true
	}
	return "", false
}

// detectImageFormat tries the URI extension, then the declared mime
// type, then content sniffing.
func detectImageFormat(uri, mime string, data []byte) (scene.ImageFormat, bool) {
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(uri)), "."); ext != "" {
		if f, ok := formatFromExt(ext); ok {
			return f, true
		}
	}
	if f, ok := formatFromMime(mime); ok {
		return f, true
	}
	if kind, err := filetype.Match(data); err == nil {
		if f, ok := formatFromExt(kind.Extension); ok {
			return f, true
		}
	}
	return "", false
}

// loadImageBytes fetches the payload of a glTF image from its buffer
// view, a data URI, a remote URI, or a file next to the document.
func (c *importContext) loadImageBytes(img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		bufferView := c.doc.BufferViews[*img.BufferView]
		buffer := c.doc.Buffers[bufferView.Buffer]
		start := int(bufferView.ByteOffset)
		end := start + int(bufferView.ByteLength)
		if end > len(buffer.Data) {
			return nil, errors.Wrapf(ErrInvalidSize, "image bufferView %d", *img.BufferView)
		}
		return buffer.Data[start:end], nil
	}
	switch {
	case strings.HasPrefix(img.URI, "data:"):
		comma := strings.IndexByte(img.URI, ',')
		if comma < 0 {
			return nil, errors.Wrap(ErrInvalidAsset, "malformed data uri")
		}
		return base64.StdEncoding.DecodeString(img.URI[comma+1:])
	case strings.HasPrefix(img.URI, "http://"), strings.HasPrefix(img.URI, "https://"):
		return resolver.Fetch(img.URI)
	case img.URI != "":
		return ioutil.ReadFile(filepath.Join(c.opts.BaseDir, filepath.FromSlash(img.URI)))
	}
	return nil, errors.Wrap(ErrInvalidAsset, "image has neither bufferView nor uri")
}

// uniqueImageName reserves a name, appending a numeric suffix when the
// candidate collides with an earlier image.
func (c *importContext) uniqueImageName(candidate string) string {
	if candidate == "" {
		candidate = "image"
	}
	name := candidate
	for i := 1; c.imageNames[name]; i++ {
		name = fmt.Sprintf("%s_%d", candidate, i)
	}
	c.imageNames[name] = true
	return name
}

// imageName picks the asset name: the glTF name, then the uri stem,
// then material and slot of the first use.
func imageName(img *gltf.Image, materialName, slotName string) string {
	if img.Name != "" {
		return img.Name
	}
	if img.URI != "" && !strings.HasPrefix(img.URI, "data:") {
		base := path.Base(img.URI)
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return materialName + "_" + slotName
}

// importImage loads one glTF image into the scene, once. Images that
// cannot be loaded or identified return -1 and a warning; the material
// input falls back to its constant value.
func (c *importContext) importImage(imageIndex int, materialName, slotName string) int {
	if imageIndex < 0 || imageIndex >= len(c.doc.Images) {
		return -1
	}
	if cached, ok := c.imageCache[imageIndex]; ok {
		return cached
	}
	img := c.doc.Images[imageIndex]

	data, err := c.loadImageBytes(img)
	if err != nil {
		c.warnf("cannot load image %d (%q): %v", imageIndex, img.Name, err)
		c.imageCache[imageIndex] = -1
		return -1
	}
	format, ok := detectImageFormat(img.URI, img.MimeType, data)
	if !ok {
		c.warnf("cannot identify format of image %d (%q), skipping", imageIndex, img.Name)
		c.imageCache[imageIndex] = -1
		return -1
	}

	sceneIndex, asset := c.scene.AddImage()
	asset.Name = c.uniqueImageName(imageName(img, materialName, slotName))
	asset.Format = format
	asset.Data = data
	if !strings.HasPrefix(img.URI, "data:") {
		asset.URI = img.URI
	}

	c.imageCache[imageIndex] = sceneIndex
	return sceneIndex
}

// resolveTextureSource follows EXT_texture_webp when the core source is
// absent.
func (c *importContext) resolveTextureSource(texture *gltf.Texture) int {
	if texture.Source != nil {
		return int(*texture.Source)
	}
	if webp, ok := extensionValue(texture.Extensions, extTextureWebp); ok {
		if src, ok := webp.Get("source").Number(); ok {
			return int(src)
		}
	}
	return -1
}

func wrapFromGltf(w gltf.WrappingMode) scene.Wrap {
	switch w {
	case gltf.WrapClampToEdge:
		return scene.WrapClamp
	case gltf.WrapMirroredRepeat:
		return scene.WrapMirror
	}
	return scene.WrapRepeat
}

func magFilterFromGltf(f gltf.MagFilter) scene.Filter {
	if f == gltf.MagNearest {
		return scene.FilterNearest
	}
	return scene.FilterLinear
}

func minFilterFromGltf(f gltf.MinFilter) scene.Filter {
	switch f {
	case gltf.MinNearest:
		return scene.FilterNearest
	case gltf.MinLinear:
		return scene.FilterLinear
	case gltf.MinNearestMipMapNearest:
		return scene.FilterNearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		return scene.FilterLinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		return scene.FilterNearestMipmapLinear
	}
	return scene.FilterLinearMipmapLinear
}

// applySampler copies wrap and filter modes from the glTF sampler of
// the texture, or the repeat/linear defaults.
func (c *importContext) applySampler(in *scene.Input, texture *gltf.Texture) {
	in.WrapS = scene.WrapRepeat
	in.WrapT = scene.WrapRepeat
	in.MagFilter = scene.FilterLinear
	in.MinFilter = scene.FilterLinearMipmapLinear
	if texture.Sampler == nil {
		return
	}
	sampler := c.doc.Samplers[*texture.Sampler]
	in.WrapS = wrapFromGltf(sampler.WrapS)
	in.WrapT = wrapFromGltf(sampler.WrapT)
	in.MagFilter = magFilterFromGltf(sampler.MagFilter)
	in.MinFilter = minFilterFromGltf(sampler.MinFilter)
}

// applyTextureTransform converts KHR_texture_transform to place2d
// terms. glTF UV origin is top-left while the scene reads bottom-left,
// so the V axis flips even without the extension.
func applyTextureTransform(in *scene.Input, ext gltf.Extensions) {
	transform, ok := extensionValue(ext, extTextureTransform)
	if !ok {
		in.TransformScale = &mgl32.Vec2{1, -1}
		in.TransformTranslation = &mgl32.Vec2{0, 1}
		return
	}
	sx, sy := float32(1), float32(1)
	if arr, ok := transform.Get("scale").FloatArray(2); ok {
		sx, sy = float32(arr[0]), float32(arr[1])
	}
	tx, ty := float32(0), float32(0)
	if arr, ok := transform.Get("offset").FloatArray(2); ok {
		tx, ty = float32(arr[0]), float32(arr[1])
	}
	rotation := mgl32.RadToDeg(float32(transform.Get("rotation").NumberOr(0)))

	if sy = -sy; sx != 1 || sy != 1 {
		in.TransformScale = &mgl32.Vec2{sx, sy}
	}
	if ty = 1 - ty; tx != 0 || ty != 0 {
		in.TransformTranslation = &mgl32.Vec2{tx, ty}
	}
	if rotation != 0 {
		in.TransformRotation = &rotation
	}
}

// setInputTexture binds texture number textureIndex to a material
// input. Returns false when the texture or its image cannot be used.
func (c *importContext) setInputTexture(in *scene.Input, textureIndex, texCoord int,
	ext gltf.Extensions, colorspace scene.Colorspace, channel scene.Channel,
	materialName, slotName string) bool {

	if textureIndex < 0 || textureIndex >= len(c.doc.Textures) {
		c.warnf("material %q input %s references texture %d out of range", materialName, slotName, textureIndex)
		return false
	}
	texture := c.doc.Textures[textureIndex]
	sceneImage := c.importImage(c.resolveTextureSource(texture), materialName, slotName)
	if sceneImage < 0 {
		return false
	}

	in.Image = sceneImage
	in.UVIndex = texCoord
	in.Channel = channel
	// Alpha reads stay untagged: the alpha channel never takes the sRGB
	// transfer even when the rgb read of the same texture does.
	if channel != scene.ChannelA {
		in.Colorspace = colorspace
	}
	c.applySampler(in, texture)
	applyTextureTransform(in, ext)
	return true
}

// setInputTextureInfo is the gltf.TextureInfo flavored entry point for
// core material slots.
func (c *importContext) setInputTextureInfo(in *scene.Input, info *gltf.TextureInfo,
	colorspace scene.Colorspace, channel scene.Channel, materialName, slotName string) bool {
	if info == nil {
		return false
	}
	return c.setInputTexture(in, int(info.Index), int(info.TexCoord), info.Extensions,
		colorspace, channel, materialName, slotName)
}

// setInputTextureRef is the extension-payload flavored entry point.
func (c *importContext) setInputTextureRef(in *scene.Input, ref textureRef,
	colorspace scene.Colorspace, channel scene.Channel, materialName, slotName string) bool {
	if ref.Index < 0 {
		return false
	}
	return c.setInputTexture(in, ref.Index, ref.TexCoord, ref.Extensions.extensionsMap(),
		colorspace, channel, materialName, slotName)
}

// addDerivedImage registers a PNG produced by pixel processing
// (anisotropy construction, spec/gloss conversion) as a new scene
// image.
func (c *importContext) addDerivedImage(name string, data []byte) int {
	sceneIndex, asset := c.scene.AddImage()
	asset.Name = c.uniqueImageName(name)
	asset.Format = scene.ImageFormatPng
	asset.Data = data
	return sceneIndex
}
