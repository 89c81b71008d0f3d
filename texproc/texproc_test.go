package texproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := &Image{}
	src.Allocate(2, 2, 4)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, 0, float32(x))
			src.Set(x, y, 1, float32(y))
			src.Set(x, y, 2, 0.5)
			src.Set(x, y, 3, 1)
		}
	}

	data, err := src.EncodePNG()
	require.NoError(t, err)

	img, err := Decode(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 2, img.Height)
	// The source carries alpha, so the channel count defaults to 4.
	assert.Equal(t, 4, img.Channels)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.InDelta(t, float32(x), img.At(x, y, 0), 1.0/255)
			assert.InDelta(t, float32(y), img.At(x, y, 1), 1.0/255)
			assert.InDelta(t, 0.5, img.At(x, y, 2), 1.0/255)
			assert.InDelta(t, 1, img.At(x, y, 3), 1.0/255)
		}
	}
}

func TestEncodeGrayscale(t *testing.T) {
	src := &Image{}
	src.Allocate(2, 1, 1)
	src.Set(0, 0, 0, 0)
	src.Set(1, 0, 0, 1)

	data, err := src.EncodePNG()
	require.NoError(t, err)

	img, err := Decode(data, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Channels)
	assert.InDelta(t, 0, img.At(0, 0, 0), 1.0/255)
	assert.InDelta(t, 1, img.At(1, 0, 0), 1.0/255)
}

func TestDecodeKeepsTransparentTexelColor(t *testing.T) {
	src := &Image{}
	src.Allocate(1, 1, 4)
	src.Set(0, 0, 0, 1)
	src.Set(0, 0, 1, 0.5)
	src.Set(0, 0, 2, 0.25)
	src.Set(0, 0, 3, 0)

	data, err := src.EncodePNG()
	require.NoError(t, err)

	img, err := Decode(data, 4)
	require.NoError(t, err)
	// Color survives even at zero alpha.
	assert.InDelta(t, 1, img.At(0, 0, 0), 1.0/255)
	assert.InDelta(t, 0.5, img.At(0, 0, 1), 1.0/255)
	assert.InDelta(t, 0.25, img.At(0, 0, 2), 1.0/255)
	assert.InDelta(t, 0, img.At(0, 0, 3), 1.0/255)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image"), 0)
	assert.Error(t, err)
}

func TestQuantizeClamps(t *testing.T) {
	assert.EqualValues(t, 0, quantize(-0.5))
	assert.EqualValues(t, 0, quantize(0))
	assert.EqualValues(t, 0xff, quantize(1))
	assert.EqualValues(t, 0xff, quantize(2))
	assert.EqualValues(t, 128, quantize(0.5))
}

func TestSampleBilinear(t *testing.T) {
	img := &Image{}
	img.Allocate(2, 1, 1)
	img.Set(0, 0, 0, 0)
	img.Set(1, 0, 0, 1)

	// Texel centers return exact values.
	assert.InDelta(t, 0, img.SampleBilinear(0.25, 0.5, 0), 1e-6)
	assert.InDelta(t, 1, img.SampleBilinear(0.75, 0.5, 0), 1e-6)
	// Halfway between the centers interpolates.
	assert.InDelta(t, 0.5, img.SampleBilinear(0.5, 0.5, 0), 1e-6)
	// Outside coordinates clamp to the edge.
	assert.InDelta(t, 0, img.SampleBilinear(0, 0.5, 0), 1e-6)
	assert.InDelta(t, 1, img.SampleBilinear(1, 0.5, 0), 1e-6)
}
