package gltfconv

import (
	"fmt"
	"math"
	"path"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gltfbridge/scene"
	"github.com/mogaika/gltfbridge/texproc"
)

// channelIndex maps a single-channel token to its lane, -1 for
// multi-channel or empty tokens.
func channelIndex(ch scene.Channel) int {
	switch ch {
	case scene.ChannelR:
		return 0
	case scene.ChannelG:
		return 1
	case scene.ChannelB:
		return 2
	case scene.ChannelA:
		return 3
	}
	return -1
}

func channelFromIndex(lane int) scene.Channel {
	switch lane {
	case 0:
		return scene.ChannelR
	case 1:
		return scene.ChannelG
	case 2:
		return scene.ChannelB
	case 3:
		return scene.ChannelA
	}
	return ""
}

func formatExtension(f scene.ImageFormat) string {
	if f == "" {
		return "png"
	}
	return string(f)
}

// decodeSourceImage lazily decodes a source image. Intermediate images
// produced by the translator are already stored decoded.
func (c *exportContext) decodeSourceImage(srcIndex int) *texproc.Image {
	if srcIndex < 0 || srcIndex >= len(c.srcImages) {
		return nil
	}
	if c.srcDecoded[srcIndex] != nil {
		return c.srcDecoded[srcIndex]
	}
	asset := &c.srcImages[srcIndex]
	if len(asset.Data) == 0 {
		return nil
	}
	img, err := texproc.Decode(asset.Data, 0)
	if err != nil {
		c.warnf("failed to decode image %q: %v", asset.Name, err)
		return nil
	}
	c.srcDecoded[srcIndex] = img
	return img
}

// addIntermediateImage keeps a processed image in the source set in
// decoded form, so later translation stages can consume it without a
// round trip through an encoder.
func (c *exportContext) addIntermediateImage(img *texproc.Image, name string) int {
	index := len(c.srcImages)
	c.srcImages = append(c.srcImages, scene.ImageAsset{Name: name})
	c.srcDecoded = append(c.srcDecoded, img)
	return index
}

// addOutImage places an image asset in the document output set.
func (c *exportContext) addOutImage(asset scene.ImageAsset) int {
	index := len(c.dstImages)
	c.dstImages = append(c.dstImages, asset)
	return index
}

// encodeOutImage encodes a processed image as PNG into the output set.
func (c *exportContext) encodeOutImage(img *texproc.Image, name string) int {
	data, err := img.EncodePNG()
	if err != nil {
		c.warnf("failed to encode image %q: %v", name, err)
		return -1
	}
	return c.addOutImage(scene.ImageAsset{
		Name:   name,
		URI:    name + ".png",
		Format: scene.ImageFormatPng,
		Data:   data,
	})
}

// translateDirect moves an input to the output image set unchanged.
func (c *exportContext) translateDirect(in *scene.Input) (scene.Input, bool) {
	out := *in
	if in.Image >= 0 {
		if in.Image >= len(c.srcImages) {
			c.warnf("input references missing image %d", in.Image)
			return out, false
		}
		src := &c.srcImages[in.Image]
		base := src.URI
		if base == "" {
			base = src.Name
		}
		key := "direct-" + path.Base(base)
		if index, ok := c.imageCache[key]; ok {
			out.Image = index
			return out, true
		}
		index := c.addOutImage(scene.ImageAsset{
			Name:   src.Name,
			URI:    key,
			Format: src.Format,
			Data:   src.Data,
		})
		c.imageCache[key] = index
		out.Image = index
		return out, true
	}
	if !in.Value.IsEmpty() {
		return out, true
	}
	return out, false
}

// translateAffine applies value*scale+bias to an input, either to the
// constant value or to every pixel of the texture. Intermediate results
// stay decoded in the source set for further translation.
func (c *exportContext) translateAffine(name string, in *scene.Input, scale, bias float32, intermediate bool) scene.Input {
	out := *in
	if in.Image >= 0 {
		src := c.srcImages[in.Image]
		key := fmt.Sprintf("%s-%d.%s", name, in.Image, formatExtension(src.Format))
		if index, ok := c.imageCache[key]; ok {
			out.Image = index
		} else if img := c.decodeSourceImage(in.Image); img != nil {
			res := &texproc.Image{}
			res.Allocate(img.Width, img.Height, img.Channels)
			for i, v := range img.Pixels {
				res.Pixels[i] = v*scale + bias
			}
			if intermediate {
				out.Image = c.addIntermediateImage(res, key)
			} else {
				out.Image = c.encodeOutImage(res, key)
			}
			c.imageCache[key] = out.Image
		} else {
			out.Image = -1
		}
	} else if !in.Value.IsEmpty() {
		v := in.Value
		for i := 0; i < v.Dim; i++ {
			v.Data[i] = v.Data[i]*scale + bias
		}
		out.Value = v
	}
	out.Scale = scene.Value{}
	out.Bias = scene.Value{}
	return out
}

// mixKey identifies one input of a channel mix: its image and channel
// when textured, its constant value otherwise.
func mixKey(in *scene.Input, ch int) string {
	if in.Image >= 0 && ch >= 0 {
		return fmt.Sprintf("%d%s", in.Image, channelFromIndex(ch))
	}
	return strconv.Itoa(int(in.Value.FloatOr(0)))
}

func scaleLane(v scene.Value, lane int, def float32) float32 {
	if f, ok := v.Float(); ok {
		return f
	}
	if w, ok := v.Vec4(); ok {
		return w[lane]
	}
	return def
}

func transformsEqual(a, b *scene.Input) bool {
	ptrEq := func(x, y *float32) bool {
		if (x == nil) != (y == nil) {
			return false
		}
		return x == nil || *x == *y
	}
	vecEq := func(x, y *mgl32.Vec2) bool {
		if (x == nil) != (y == nil) {
			return false
		}
		return x == nil || *x == *y
	}
	return ptrEq(a.TransformRotation, b.TransformRotation) &&
		vecEq(a.TransformScale, b.TransformScale) &&
		vecEq(a.TransformTranslation, b.TransformTranslation)
}

func hasTransform(in *scene.Input) bool {
	return in.TransformRotation != nil || in.TransformScale != nil || in.TransformTranslation != nil
}

// translateMix packs four single-channel inputs into one rgba texture
// and/or value. Untextured lanes are filled with their constant value.
func (c *exportContext) translateMix(name string, colorspace scene.Colorspace, in0, in1, in2, in3 scene.Input) scene.Input {
	inputs := [4]*scene.Input{&in0, &in1, &in2, &in3}
	var chs [4]int
	var vals [4]float32
	anyValue := false
	anyImage := false
	for i, in := range inputs {
		chs[i] = -1
		if in.Image >= 0 {
			chs[i] = channelIndex(in.Channel)
		}
		vals[i] = in.Value.FloatOr(0)
		if !in.Value.IsEmpty() {
			anyValue = true
		}
		if in.Image >= 0 && chs[i] >= 0 {
			anyImage = true
		}
	}

	out := scene.Input{Image: -1}
	if anyValue {
		out.Value = scene.Vec4Value(mgl32.Vec4{vals[0], vals[1], vals[2], vals[3]})
	}

	if anyImage {
		key := name
		for i, in := range inputs {
			key += "-" + mixKey(in, chs[i])
		}
		if index, ok := c.imageCache[key]; ok {
			out.Image = index
		} else {
			out.Image = c.buildMixImage(key, inputs, chs, vals)
			c.imageCache[key] = out.Image
		}
		out.UVIndex = 0
		out.Channel = scene.ChannelRGBA
		out.WrapS = scene.WrapRepeat
		out.WrapT = scene.WrapRepeat
		out.Colorspace = colorspace
	}

	anyScale := false
	anyBias := false
	for _, in := range inputs {
		if !in.Scale.IsEmpty() {
			anyScale = true
		}
		if !in.Bias.IsEmpty() {
			anyBias = true
		}
	}
	if anyScale {
		out.Scale = scene.Vec4Value(mgl32.Vec4{
			scaleLane(in0.Scale, 0, 1),
			scaleLane(in1.Scale, 1, 1),
			scaleLane(in2.Scale, 2, 1),
			scaleLane(in3.Scale, 3, 1),
		})
	}
	if anyBias {
		out.Bias = scene.Vec4Value(mgl32.Vec4{
			scaleLane(in0.Bias, 0, 0),
			scaleLane(in1.Bias, 1, 0),
			scaleLane(in2.Bias, 2, 0),
			scaleLane(in3.Bias, 3, 0),
		})
	}

	var first *scene.Input
	consistent := true
	for _, in := range inputs {
		if !hasTransform(in) {
			continue
		}
		if first == nil {
			first = in
		} else if !transformsEqual(first, in) {
			consistent = false
		}
	}
	if first != nil {
		if consistent {
			out.TransformRotation = first.TransformRotation
			out.TransformScale = first.TransformScale
			out.TransformTranslation = first.TransformTranslation
		} else {
			c.warnf("mix %q: inputs disagree on texture transforms, dropping them", name)
		}
	}

	return out
}

// buildMixImage constructs the packed texture for translateMix. When
// every textured lane already reads its own lane of one shared image
// the source bytes pass through unmodified.
func (c *exportContext) buildMixImage(key string, inputs [4]*scene.Input, chs [4]int, vals [4]float32) int {
	valid := -1
	sameImage := true
	sameChannels := true
	for i, in := range inputs {
		if in.Image < 0 || chs[i] < 0 {
			continue
		}
		if valid < 0 {
			valid = i
		}
		if in.Image != inputs[valid].Image {
			sameImage = false
		}
		if chs[i] != i {
			sameChannels = false
		}
	}
	if valid < 0 {
		return -1
	}

	if sameImage && sameChannels {
		src := &c.srcImages[inputs[valid].Image]
		if len(src.Data) > 0 {
			return c.addOutImage(scene.ImageAsset{
				Name:   key,
				URI:    key + "." + formatExtension(src.Format),
				Format: src.Format,
				Data:   src.Data,
			})
		}
	}

	base := c.decodeSourceImage(inputs[valid].Image)
	if base == nil {
		return -1
	}
	mixed := &texproc.Image{}
	mixed.Allocate(base.Width, base.Height, 4)
	for y := 0; y < mixed.Height; y++ {
		for x := 0; x < mixed.Width; x++ {
			for lane := 0; lane < 4; lane++ {
				mixed.Set(x, y, lane, vals[lane])
			}
		}
	}
	for lane, in := range inputs {
		if in.Image < 0 || chs[lane] < 0 {
			continue
		}
		img := c.decodeSourceImage(in.Image)
		if img == nil {
			continue
		}
		srcCh := chs[lane]
		if srcCh >= img.Channels {
			srcCh = img.Channels - 1
		}
		if img.Width == mixed.Width && img.Height == mixed.Height {
			for y := 0; y < mixed.Height; y++ {
				for x := 0; x < mixed.Width; x++ {
					mixed.Set(x, y, lane, img.At(x, y, srcCh))
				}
			}
		} else {
			for y := 0; y < mixed.Height; y++ {
				for x := 0; x < mixed.Width; x++ {
					u := (float32(x) + 0.5) / float32(mixed.Width)
					v := (float32(y) + 0.5) / float32(mixed.Height)
					mixed.Set(x, y, lane, img.SampleBilinear(u, v, srcCh))
				}
			}
		}
	}
	return c.encodeOutImage(mixed, key)
}

// splitChannel narrows a color input to one of its lanes.
func splitChannel(in scene.Input, lane int) scene.Input {
	out := in
	if v, ok := in.Value.Vec3(); ok {
		out.Value = scene.FloatValue(v[lane])
	} else {
		out.Value = scene.Value{}
	}
	out.Channel = channelFromIndex(lane)
	return out
}

// computeInputRange reports per-lane min and max of an input, from the
// decoded pixels when textured, from the constant value otherwise.
// Untouched lanes stay at the empty range (+max, -max).
func (c *exportContext) computeInputRange(in *scene.Input) (mgl32.Vec4, mgl32.Vec4) {
	lo := mgl32.Vec4{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec4{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	if in.Image >= 0 {
		img := c.decodeSourceImage(in.Image)
		if img == nil {
			return lo, hi
		}
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				for ch := 0; ch < img.Channels && ch < 4; ch++ {
					v := img.At(x, y, ch)
					if v < lo[ch] {
						lo[ch] = v
					}
					if v > hi[ch] {
						hi[ch] = v
					}
				}
			}
		}
		return lo, hi
	}
	for i := 0; i < in.Value.Dim; i++ {
		lo[i] = in.Value.Data[i]
		hi[i] = in.Value.Data[i]
	}
	return lo, hi
}
