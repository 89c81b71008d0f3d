package gltfconv

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltfbridge/scene"
	"github.com/mogaika/gltfbridge/texproc"
)

func grayImage(w, h int, v float32) *texproc.Image {
	img := &texproc.Image{}
	img.Allocate(w, h, 3)
	for i := range img.Pixels {
		img.Pixels[i] = v
	}
	return img
}

func TestChannelIndexRoundTrip(t *testing.T) {
	for lane, ch := range []scene.Channel{
		scene.ChannelR, scene.ChannelG, scene.ChannelB, scene.ChannelA,
	} {
		assert.Equal(t, lane, channelIndex(ch))
		assert.Equal(t, ch, channelFromIndex(lane))
	}
	assert.Equal(t, -1, channelIndex(scene.ChannelRGB))
	assert.Equal(t, -1, channelIndex(""))
}

func TestTranslateAffineValue(t *testing.T) {
	c := newTestExportContext(scene.NewScene())
	in := scene.Input{
		Image: -1,
		Value: scene.FloatValue(0.5),
		Scale: scene.FloatValue(3),
		Bias:  scene.FloatValue(-1),
	}
	out := c.translateAffine("roughness", &in, 3, -1, false)
	f, ok := out.Value.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.5, f, 1e-6)
	// The affine factors are consumed by the translation.
	assert.True(t, out.Scale.IsEmpty())
	assert.True(t, out.Bias.IsEmpty())
}

func TestTranslateAffineTexture(t *testing.T) {
	c := newTestExportContext(scene.NewScene())
	srcIndex := c.addIntermediateImage(grayImage(2, 2, 0.25), "gloss")

	in := scene.Input{Image: srcIndex}
	out := c.translateAffine("roughness", &in, -1, 1, true)
	require.GreaterOrEqual(t, out.Image, 0)
	img := c.srcDecoded[out.Image]
	require.NotNil(t, img)
	// gloss 0.25 inverts to roughness 0.75.
	assert.InDelta(t, 0.75, img.At(0, 0, 0), 1e-6)

	// The same source translates once.
	again := c.translateAffine("roughness", &in, -1, 1, true)
	assert.Equal(t, out.Image, again.Image)
}

func TestTranslateMixValuesOnly(t *testing.T) {
	c := newTestExportContext(scene.NewScene())
	mk := func(v float32) scene.Input {
		return scene.Input{Image: -1, Value: scene.FloatValue(v)}
	}
	out := c.translateMix("orm", scene.ColorspaceRaw, mk(1), mk(0.5), mk(0.25), scene.Input{Image: -1})
	assert.Equal(t, -1, out.Image)
	v, ok := out.Value.Vec4()
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.25, 0}, v)
	assert.True(t, out.Scale.IsEmpty())
}

func TestTranslateMixScaleBiasLanes(t *testing.T) {
	c := newTestExportContext(scene.NewScene())
	in0 := scene.Input{Image: -1, Value: scene.FloatValue(1), Scale: scene.FloatValue(0.5)}
	in1 := scene.Input{Image: -1, Value: scene.FloatValue(1), Bias: scene.FloatValue(0.1)}
	out := c.translateMix("orm", scene.ColorspaceRaw, in0, in1, scene.Input{Image: -1}, scene.Input{Image: -1})

	s, ok := out.Scale.Vec4()
	require.True(t, ok)
	// Unset lanes keep the neutral scale.
	assert.Equal(t, mgl32.Vec4{0.5, 1, 1, 1}, s)
	b, ok := out.Bias.Vec4()
	require.True(t, ok)
	assert.InDelta(t, 0.1, b[1], 1e-6)
	assert.Zero(t, b[0])
}

func TestTranslateMixSharedImagePassthrough(t *testing.T) {
	sc := scene.NewScene()
	imageIndex, asset := sc.AddImage()
	asset.Name = "orm"
	asset.Format = scene.ImageFormatPng
	asset.Data = []byte{1, 2, 3, 4}

	c := newTestExportContext(sc)
	mk := func(ch scene.Channel) scene.Input {
		return scene.Input{Image: imageIndex, Channel: ch}
	}
	out := c.translateMix("orm", scene.ColorspaceRaw,
		mk(scene.ChannelR), mk(scene.ChannelG), mk(scene.ChannelB), scene.Input{Image: -1})
	require.GreaterOrEqual(t, out.Image, 0)
	assert.Equal(t, scene.ChannelRGBA, out.Channel)
	assert.Equal(t, scene.ColorspaceRaw, out.Colorspace)
	// All lanes already sit in their own channel of one image, so the
	// payload passes through unmodified.
	assert.Equal(t, []byte{1, 2, 3, 4}, c.dstImages[out.Image].Data)

	again := c.translateMix("orm", scene.ColorspaceRaw,
		mk(scene.ChannelR), mk(scene.ChannelG), mk(scene.ChannelB), scene.Input{Image: -1})
	assert.Equal(t, out.Image, again.Image)
}

func TestTranslateMixRepackedImage(t *testing.T) {
	c := newTestExportContext(scene.NewScene())
	img := &texproc.Image{}
	img.Allocate(2, 2, 3)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, 0, 0)
			img.Set(x, y, 1, 1)
			img.Set(x, y, 2, 0)
		}
	}
	srcIndex := c.addIntermediateImage(img, "packed")

	// Lane 0 reads the green channel, so the texture must be rebuilt.
	in0 := scene.Input{Image: srcIndex, Channel: scene.ChannelG}
	out := c.translateMix("occlusion", scene.ColorspaceRaw,
		in0, scene.Input{Image: -1, Value: scene.FloatValue(0.5)},
		scene.Input{Image: -1}, scene.Input{Image: -1})
	require.GreaterOrEqual(t, out.Image, 0)

	decoded, err := texproc.Decode(c.dstImages[out.Image].Data, 4)
	require.NoError(t, err)
	assert.InDelta(t, 1, decoded.At(0, 0, 0), 1.0/255)
	assert.InDelta(t, 0.5, decoded.At(0, 0, 1), 1.0/255)
	assert.InDelta(t, 0, decoded.At(0, 0, 2), 1.0/255)
}

func TestTranslateMixTransforms(t *testing.T) {
	c := newTestExportContext(scene.NewScene())
	rot := float32(0.5)
	in0 := scene.Input{Image: -1, Value: scene.FloatValue(1), TransformRotation: &rot}
	in1 := scene.Input{Image: -1, Value: scene.FloatValue(1)}
	out := c.translateMix("orm", scene.ColorspaceRaw, in0, in1,
		scene.Input{Image: -1}, scene.Input{Image: -1})
	require.NotNil(t, out.TransformRotation)
	assert.Equal(t, rot, *out.TransformRotation)

	// Disagreeing transforms are dropped.
	otherRot := float32(1.5)
	in1.TransformRotation = &otherRot
	out = c.translateMix("orm2", scene.ColorspaceRaw, in0, in1,
		scene.Input{Image: -1}, scene.Input{Image: -1})
	assert.Nil(t, out.TransformRotation)
}

func TestSplitChannel(t *testing.T) {
	in := scene.Input{Image: 3, Value: scene.Vec3Value(mgl32.Vec3{0.1, 0.2, 0.3})}
	out := splitChannel(in, 1)
	f, ok := out.Value.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.2, f, 1e-6)
	assert.Equal(t, scene.ChannelG, out.Channel)

	out = splitChannel(scene.Input{Image: 3}, 2)
	assert.True(t, out.Value.IsEmpty())
	assert.Equal(t, scene.ChannelB, out.Channel)
}

func TestComputeInputRange(t *testing.T) {
	c := newTestExportContext(scene.NewScene())

	in := scene.Input{Image: -1, Value: scene.Vec3Value(mgl32.Vec3{0.1, 0.5, 0.9})}
	lo, hi := c.computeInputRange(&in)
	for lane := 0; lane < 3; lane++ {
		assert.Equal(t, lo[lane], hi[lane])
	}
	assert.InDelta(t, 0.5, lo[1], 1e-6)

	img := grayImage(2, 1, 0.25)
	img.Set(1, 0, 0, 0.75)
	srcIndex := c.addIntermediateImage(img, "grad")
	lo, hi = c.computeInputRange(&scene.Input{Image: srcIndex})
	assert.InDelta(t, 0.25, lo[0], 1e-6)
	assert.InDelta(t, 0.75, hi[0], 1e-6)
	assert.InDelta(t, 0.25, lo[1], 1e-6)
	assert.InDelta(t, 0.25, hi[1], 1e-6)
}
