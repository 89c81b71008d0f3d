package scene

import "github.com/go-gl/mathgl/mgl64"

// NGPData is a neural graphics primitive: raw MLP weight arrays, dense
// grids and a spatial transform. The wire encoding lives in the glTF
// translator; this record stores plain float arrays.
type NGPData struct {
	DensityThreshold float32

	DensityMLPLayer0Weight []float32
	DensityMLPLayer0Bias   []float32
	DensityMLPLayer1Weight []float32
	DensityMLPLayer1Bias   []float32

	ColorMLPLayer0Weight []float32
	ColorMLPLayer0Bias   []float32
	ColorMLPLayer1Weight []float32
	ColorMLPLayer1Bias   []float32
	ColorMLPLayer2Weight []float32
	ColorMLPLayer2Bias   []float32

	DensityGrid  []float32
	DistanceGrid []float32

	HashGrid           []float32
	HashGridResolution []int

	HasTransform bool
	Transform    mgl64.Mat4
}
