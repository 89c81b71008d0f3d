// Package texproc holds the float-pixel image type used by the texture
// synthesis paths of the glTF translator: spec-gloss conversion,
// anisotropy level/angle generation and ORM channel packing.
package texproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
)

// Image is a tightly packed row-major float image. Channel values are
// normalized to [0,1]; no color-space conversion happens on decode, the
// callers convert explicitly where the math requires linear values.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pixels   []float32
}

func (im *Image) Allocate(width, height, channels int) {
	im.Width = width
	im.Height = height
	im.Channels = channels
	im.Pixels = make([]float32, width*height*channels)
}

func (im *Image) At(x, y, ch int) float32 {
	return im.Pixels[(y*im.Width+x)*im.Channels+ch]
}

func (im *Image) Set(x, y, ch int, v float32) {
	im.Pixels[(y*im.Width+x)*im.Channels+ch] = v
}

// Decode sniffs and decodes a PNG, JPEG or WebP payload into float
// pixels with the requested channel count (1, 3 or 4). Zero channels
// picks 4 when the source carries alpha, 3 otherwise.
func Decode(data []byte, channels int) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image payload")
	}
	if channels <= 0 {
		switch src.(type) {
		case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
			channels = 4
		default:
			channels = 3
		}
	}
	bounds := src.Bounds()
	im := &Image{}
	im.Allocate(bounds.Dx(), bounds.Dy(), channels)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var rgba [4]float32
			// Color.RGBA() premultiplies by alpha; straight-alpha
			// sources must be read through their own channels or
			// transparent texels lose their color.
			switch s := src.(type) {
			case *image.NRGBA:
				px := s.NRGBAAt(x, y)
				rgba = [4]float32{
					float32(px.R) / 0xff,
					float32(px.G) / 0xff,
					float32(px.B) / 0xff,
					float32(px.A) / 0xff,
				}
			case *image.NRGBA64:
				px := s.NRGBA64At(x, y)
				rgba = [4]float32{
					float32(px.R) / 0xffff,
					float32(px.G) / 0xffff,
					float32(px.B) / 0xffff,
					float32(px.A) / 0xffff,
				}
			default:
				r, g, b, a := src.At(x, y).RGBA()
				rgba = [4]float32{
					float32(r) / 0xffff,
					float32(g) / 0xffff,
					float32(b) / 0xffff,
					float32(a) / 0xffff,
				}
			}
			for c := 0; c < channels; c++ {
				im.Pixels[i] = rgba[c]
				i++
			}
		}
	}
	return im, nil
}

// EncodePNG packs the float pixels back into an 8-bit PNG. Single
// channel images become grayscale, everything else RGBA with opaque
// alpha filled in when absent.
func (im *Image) EncodePNG() ([]byte, error) {
	var dst image.Image
	if im.Channels == 1 {
		gray := image.NewGray(image.Rect(0, 0, im.Width, im.Height))
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				gray.SetGray(x, y, color.Gray{Y: quantize(im.At(x, y, 0))})
			}
		}
		dst = gray
	} else {
		rgba := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				px := color.NRGBA{A: 0xff}
				px.R = quantize(im.At(x, y, 0))
				if im.Channels > 1 {
					px.G = quantize(im.At(x, y, 1))
				}
				if im.Channels > 2 {
					px.B = quantize(im.At(x, y, 2))
				}
				if im.Channels > 3 {
					px.A = quantize(im.At(x, y, 3))
				}
				rgba.SetNRGBA(x, y, px)
			}
		}
		dst = rgba
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, errors.Wrap(err, "failed to encode png")
	}
	return buf.Bytes(), nil
}

func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}

// SampleBilinear samples one channel at normalized coordinates with
// bilinear filtering and edge clamping.
func (im *Image) SampleBilinear(u, v float32, ch int) float32 {
	if im.Width == 0 || im.Height == 0 {
		return 0
	}
	fx := u*float32(im.Width) - 0.5
	fy := v*float32(im.Height) - 0.5
	x0 := clampInt(int(fx), 0, im.Width-1)
	y0 := clampInt(int(fy), 0, im.Height-1)
	x1 := clampInt(x0+1, 0, im.Width-1)
	y1 := clampInt(y0+1, 0, im.Height-1)
	tx := fx - float32(x0)
	ty := fy - float32(y0)
	if tx < 0 {
		tx = 0
	}
	if ty < 0 {
		ty = 0
	}

	top := im.At(x0, y0, ch)*(1-tx) + im.At(x1, y0, ch)*tx
	bottom := im.At(x0, y1, ch)*(1-tx) + im.At(x1, y1, ch)*tx
	return top*(1-ty) + bottom*ty
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
