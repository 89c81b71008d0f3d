package utils

import "math"

// SRGBToLinear converts one sRGB-encoded channel in [0,1] to linear.
func SRGBToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow((float64(v)+0.055)/1.055, 2.4))
}

// LinearToSRGB converts one linear channel in [0,1] to sRGB encoding.
func LinearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return float32(1.055*math.Pow(float64(v), 1.0/2.4) - 0.055)
}

// Rec601Luma is the perceptual luminance used by the spec-gloss
// conversion: Rec. 601 weights applied to squared components.
func Rec601Luma(r, g, b float32) float32 {
	return float32(math.Sqrt(float64(0.299*r*r + 0.587*g*g + 0.114*b*b)))
}
